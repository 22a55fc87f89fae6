package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

// CartItem is one (customer, product, pricing variant) line. UnitPrice is the
// price snapshot taken when the line was first added or last set. Periods is
// zero for cash variants.
type CartItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID            `gorm:"column:customer_id;type:uuid;not null"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	PricingVariant enums.PricingVariant `gorm:"column:pricing_variant;type:text;not null"`
	PricingLabel   string               `gorm:"column:pricing_label;not null;default:''"`
	Periods        int                  `gorm:"column:installment_periods;not null;default:0"`
	Quantity       int                  `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
