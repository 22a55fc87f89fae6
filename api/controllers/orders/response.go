package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/baanfurniture/storefront-backend/internal/orders"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/types"
)

type orderSummary struct {
	ID                 uuid.UUID           `json:"id"`
	CustomerID         uuid.UUID           `json:"customer_id"`
	Status             enums.OrderStatus   `json:"order_status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	Currency           enums.Currency      `json:"currency"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	VATAmount          decimal.Decimal     `json:"vat_amount"`
	InstallmentPeriods int                 `json:"installment_periods"`
	MonthlyPayment     decimal.Decimal     `json:"monthly_payment"`
	CancelReason       *string             `json:"cancel_reason,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type detailResponse struct {
	ProductID      uuid.UUID            `json:"product_id"`
	ProductName    string               `json:"product_name"`
	PricingVariant enums.PricingVariant `json:"pricing_variant"`
	Quantity       int                  `json:"quantity"`
	UnitPrice      decimal.Decimal      `json:"unit_price"`
	LineTotal      decimal.Decimal      `json:"line_total"`
}

type installmentResponse struct {
	Number  int                     `json:"installment_number"`
	Amount  decimal.Decimal         `json:"installment_amount"`
	DueDate string                  `json:"payment_due_date"`
	Status  enums.InstallmentStatus `json:"payment_status"`
	PaidAt  *time.Time              `json:"payment_date,omitempty"`
}

type orderResponse struct {
	orderSummary
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Details         []detailResponse      `json:"details"`
	Schedule        []installmentResponse `json:"installment_schedule"`
}

type transitionResponse struct {
	Order   orderSummary      `json:"order"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Result  string            `json:"result"`
	Changed bool              `json:"changed"`
}

func newSummary(o models.Order) orderSummary {
	return orderSummary{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		Status:             o.Status,
		PaymentMethod:      o.PaymentMethod,
		Currency:           o.Currency,
		TotalAmount:        o.TotalAmount,
		VATAmount:          o.VATAmount,
		InstallmentPeriods: o.InstallmentPeriods,
		MonthlyPayment:     o.MonthlyPayment,
		CancelReason:       o.CancelReason,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func newSummaries(rows []models.Order) []orderSummary {
	out := make([]orderSummary, 0, len(rows))
	for _, o := range rows {
		out = append(out, newSummary(o))
	}
	return out
}

func newInstallment(e models.InstallmentEntry) installmentResponse {
	return installmentResponse{
		Number:  e.InstallmentNumber,
		Amount:  e.Amount,
		DueDate: e.DueDate.Format("2006-01-02"),
		Status:  e.Status,
		PaidAt:  e.PaidAt,
	}
}

func newOrderResponse(o *models.Order) orderResponse {
	resp := orderResponse{
		orderSummary:    newSummary(*o),
		ShippingAddress: o.ShippingAddress,
		Details:         make([]detailResponse, 0, len(o.Details)),
		Schedule:        make([]installmentResponse, 0, len(o.Schedule)),
	}
	for _, d := range o.Details {
		resp.Details = append(resp.Details, detailResponse{
			ProductID:      d.ProductID,
			ProductName:    d.ProductName,
			PricingVariant: d.PricingVariant,
			Quantity:       d.Quantity,
			UnitPrice:      d.UnitPrice,
			LineTotal:      d.LineTotal,
		})
	}
	for _, e := range o.Schedule {
		resp.Schedule = append(resp.Schedule, newInstallment(e))
	}
	return resp
}

func newTransitionResponse(res *internalorders.TransitionResult) transitionResponse {
	result := "unchanged"
	if res.Changed {
		result = "changed"
	}
	return transitionResponse{
		Order:   newSummary(*res.Order),
		From:    res.From,
		To:      res.To,
		Result:  result,
		Changed: res.Changed,
	}
}
