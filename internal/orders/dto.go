package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/types"
)

// Item is one requested order line. UnitPrice is what the client displayed;
// for trusted admin orders it is the price that will be charged.
type Item struct {
	ProductID uuid.UUID
	Variant   enums.PricingVariant
	Quantity  int
	UnitPrice *decimal.Decimal
}

// CheckoutInput is the customer checkout request.
type CheckoutInput struct {
	CustomerID         uuid.UUID
	Items              []Item
	PaymentMethod      enums.PaymentMethod
	InstallmentPeriods int
	ShippingAddress    types.ShippingAddress
}

// AdHocInput is a back-office order built for a customer with trusted prices.
// The customer's cart is not touched.
type AdHocInput struct {
	CheckoutInput
	Actor Actor
}

// SetStatusInput is the generic admin status change.
type SetStatusInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	CancelReason   *string
	ExpectedStatus []enums.OrderStatus
	Actor          Actor
}

// TransitionResult reports the order after a status request. Changed is false
// when the order was already in the requested status.
type TransitionResult struct {
	Order   *models.Order     `json:"order"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Changed bool              `json:"changed"`
}

// ListInput pages through orders newest first.
type ListInput struct {
	CustomerID *uuid.UUID
	Status     *enums.OrderStatus
	Limit      int
	Cursor     string
}

// ListResult is one page of order headers.
type ListResult struct {
	Items      []models.Order `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// InstallmentPaidResult is returned by MarkInstallmentPaid. Changed is false
// when the entry had already been paid.
type InstallmentPaidResult struct {
	Entry   *models.InstallmentEntry `json:"installment"`
	Changed bool                     `json:"changed"`
}
