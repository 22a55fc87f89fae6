package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baanfurniture/storefront-backend/api/validators"
	internalorders "github.com/baanfurniture/storefront-backend/internal/orders"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
	"github.com/baanfurniture/storefront-backend/pkg/types"
)

const maxReasonLen = 500

type itemRequest struct {
	ProductID      uuid.UUID        `json:"product_id" validate:"required"`
	PricingVariant string           `json:"pricing_variant" validate:"required"`
	Quantity       int              `json:"quantity" validate:"required,min=1"`
	UnitPrice      *decimal.Decimal `json:"unit_price" validate:"omitempty,gt=0"`
}

type createOrderRequest struct {
	Items              []itemRequest         `json:"items" validate:"required,min=1,dive"`
	PaymentMethod      string                `json:"payment_method" validate:"required"`
	InstallmentPeriods int                   `json:"installment_periods"`
	ShippingAddress    types.ShippingAddress `json:"shipping_address"`
}

func (p createOrderRequest) toInput(customerID uuid.UUID) (internalorders.CheckoutInput, error) {
	method, err := enums.ParsePaymentMethod(p.PaymentMethod)
	if err != nil {
		return internalorders.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
	}
	items := make([]internalorders.Item, 0, len(p.Items))
	for i, item := range p.Items {
		variant, err := enums.ParsePricingVariant(item.PricingVariant)
		if err != nil {
			return internalorders.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pricing_variant").
				WithDetails(map[string]any{"index": i})
		}
		items = append(items, internalorders.Item{
			ProductID: item.ProductID,
			Variant:   variant,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return internalorders.CheckoutInput{
		CustomerID:         customerID,
		Items:              items,
		PaymentMethod:      method,
		InstallmentPeriods: p.InstallmentPeriods,
		ShippingAddress:    p.ShippingAddress,
	}, nil
}

type adminCreateOrderRequest struct {
	CustomerID uuid.UUID `json:"customer_id" validate:"required"`
	createOrderRequest
}

type setStatusRequest struct {
	Status         string   `json:"status" validate:"required"`
	CancelReason   *string  `json:"cancel_reason" validate:"omitempty,max=500"`
	ExpectedStatus []string `json:"expected_status"`
}

func (p setStatusRequest) toInput(orderID uuid.UUID, actor internalorders.Actor) (internalorders.SetStatusInput, error) {
	status, err := enums.ParseOrderStatus(p.Status)
	if err != nil {
		return internalorders.SetStatusInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	expected := make([]enums.OrderStatus, 0, len(p.ExpectedStatus))
	for _, raw := range p.ExpectedStatus {
		s, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return internalorders.SetStatusInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expected_status")
		}
		expected = append(expected, s)
	}
	return internalorders.SetStatusInput{
		OrderID:        orderID,
		Status:         status,
		CancelReason:   validators.OptionalText(p.CancelReason, maxReasonLen),
		ExpectedStatus: expected,
		Actor:          actor,
	}, nil
}

type rejectRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}
