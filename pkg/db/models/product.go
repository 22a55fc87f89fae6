package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog row read by pricing, cart and checkout. The engine
// never writes products.
type Product struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string           `gorm:"column:name;not null"`
	ImageURL              *string          `gorm:"column:image_url"`
	CashPrice             decimal.Decimal  `gorm:"column:cash_price;type:numeric(12,2);not null"`
	CashPromoPrice        *decimal.Decimal `gorm:"column:cash_promo_price;type:numeric(12,2)"`
	InstallmentPrice      *decimal.Decimal `gorm:"column:installment_price;type:numeric(12,2)"`
	InstallmentPromoPrice *decimal.Decimal `gorm:"column:installment_promo_price;type:numeric(12,2)"`
	IsActive              bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
