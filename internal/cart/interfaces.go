package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

// Key identifies a cart line within one customer's cart.
type Key struct {
	ProductID uuid.UUID
	Variant   enums.PricingVariant
}

// CartRepository is the persistence surface used by the cart service and by
// checkout when it consumes purchased lines.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Increment(ctx context.Context, item models.CartItem) error
	SetQuantity(ctx context.Context, item models.CartItem) error
	Delete(ctx context.Context, customerID uuid.UUID, key Key) (int64, error)
	DeleteKeys(ctx context.Context, customerID uuid.UUID, keys []Key) (int64, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
	ListLines(ctx context.Context, customerID uuid.UUID) ([]Line, error)
}
