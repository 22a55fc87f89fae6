package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once an order and its schedule are stored.
type OrderCreatedEvent struct {
	OrderID            uuid.UUID           `json:"order_id"`
	CustomerID         uuid.UUID           `json:"customer_id"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	InstallmentPeriods int                 `json:"installment_periods"`
	ItemCount          int                 `json:"item_count"`
}

// OrderStatusChangedEvent records every committed status transition.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	From         enums.OrderStatus `json:"from"`
	To           enums.OrderStatus `json:"to"`
	CancelReason *string           `json:"cancel_reason,omitempty"`
	ChangedAt    time.Time         `json:"changed_at"`
}

// InstallmentPaidEvent is emitted when staff record a schedule payment.
type InstallmentPaidEvent struct {
	OrderID           uuid.UUID       `json:"order_id"`
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `json:"amount"`
	PaidAt            time.Time       `json:"paid_at"`
}
