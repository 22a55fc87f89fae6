package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/types"
)

// Order is the customer order header. Money columns are fixed at creation.
type Order struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         uuid.UUID             `gorm:"column:customer_id;type:uuid;not null"`
	Currency           enums.Currency        `gorm:"column:currency;type:text;not null;default:'THB'"`
	TotalAmount        decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	VATAmount          decimal.Decimal       `gorm:"column:vat_amount;type:numeric(12,2);not null;default:0"`
	PaymentMethod      enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	InstallmentPeriods int                   `gorm:"column:installment_periods;not null;default:1"`
	MonthlyPayment     decimal.Decimal       `gorm:"column:monthly_payment;type:numeric(12,2);not null;default:0"`
	ShippingAddress    types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	Status             enums.OrderStatus     `gorm:"column:order_status;type:text;not null;default:'pending'"`
	CancelReason       *string               `gorm:"column:cancel_reason"`
	Details            []OrderDetail         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Schedule           []InstallmentEntry    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderDetail snapshots one purchased line.
type OrderDetail struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string               `gorm:"column:product_name;not null"`
	PricingVariant enums.PricingVariant `gorm:"column:pricing_variant;type:text;not null"`
	Quantity       int                  `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal      decimal.Decimal      `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (d *OrderDetail) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// InstallmentEntry is one row of an order's payment schedule.
type InstallmentEntry struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null"`
	InstallmentNumber int                     `gorm:"column:installment_number;not null"`
	Amount            decimal.Decimal         `gorm:"column:installment_amount;type:numeric(12,2);not null"`
	DueDate           time.Time               `gorm:"column:payment_due_date;type:date;not null"`
	PaidAt            *time.Time              `gorm:"column:payment_date"`
	Status            enums.InstallmentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (InstallmentEntry) TableName() string {
	return "installment_schedules"
}

func (e *InstallmentEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
