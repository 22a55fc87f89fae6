package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

const incrementSQL = `
INSERT INTO cart_items (id, customer_id, product_id, pricing_variant, pricing_label, installment_periods, quantity, unit_price, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (customer_id, product_id, pricing_variant)
DO UPDATE SET quantity = cart_items.quantity + excluded.quantity,
              updated_at = excluded.updated_at`

const setSQL = `
INSERT INTO cart_items (id, customer_id, product_id, pricing_variant, pricing_label, installment_periods, quantity, unit_price, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (customer_id, product_id, pricing_variant)
DO UPDATE SET quantity = excluded.quantity,
              unit_price = excluded.unit_price,
              installment_periods = excluded.installment_periods,
              pricing_label = excluded.pricing_label,
              updated_at = excluded.updated_at`

const listLinesSQL = `
SELECT ci.id, ci.customer_id, ci.product_id, ci.pricing_variant, ci.pricing_label,
       ci.installment_periods AS periods, ci.quantity, ci.unit_price, ci.created_at, ci.updated_at,
       p.name AS product_name, p.image_url, p.is_active,
       p.cash_price, p.cash_promo_price, p.installment_price, p.installment_promo_price
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.customer_id = ?
ORDER BY ci.created_at ASC, ci.id ASC`

// Line is a cart item joined with the product's live display fields.
type Line struct {
	ID             uuid.UUID
	CustomerID     uuid.UUID
	ProductID      uuid.UUID
	PricingVariant enums.PricingVariant
	PricingLabel   string
	Periods        int
	Quantity       int
	UnitPrice      decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time

	ProductName           string
	ImageURL              *string
	IsActive              bool
	CashPrice             decimal.Decimal
	CashPromoPrice        *decimal.Decimal
	InstallmentPrice      *decimal.Decimal
	InstallmentPromoPrice *decimal.Decimal
}

// Repository persists cart lines.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx, now: r.now}
}

// Increment adds item.Quantity to the line, creating it when absent. The unit
// price snapshot of an existing line is kept.
func (r *Repository) Increment(ctx context.Context, item models.CartItem) error {
	return r.upsert(ctx, incrementSQL, item)
}

// SetQuantity replaces the line's quantity and refreshes its price snapshot.
func (r *Repository) SetQuantity(ctx context.Context, item models.CartItem) error {
	return r.upsert(ctx, setSQL, item)
}

func (r *Repository) upsert(ctx context.Context, stmt string, item models.CartItem) error {
	if item.CustomerID == uuid.Nil || item.ProductID == uuid.Nil || item.Quantity <= 0 {
		return gorm.ErrInvalidValue
	}
	now := r.now().UTC()
	return r.db.WithContext(ctx).
		Exec(stmt,
			uuid.New(), item.CustomerID, item.ProductID, item.PricingVariant, item.PricingLabel,
			item.Periods, item.Quantity, item.UnitPrice, now, now,
		).Error
}

// Delete removes a single line. Missing lines are not an error.
func (r *Repository) Delete(ctx context.Context, customerID uuid.UUID, key Key) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ? AND pricing_variant = ?", customerID, key.ProductID, key.Variant).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DeleteKeys removes exactly the given lines and leaves the rest of the cart.
func (r *Repository) DeleteKeys(ctx context.Context, customerID uuid.UUID, keys []Key) (int64, error) {
	var removed int64
	for _, key := range keys {
		n, err := r.Delete(ctx, customerID, key)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// Clear empties the customer's cart.
func (r *Repository) Clear(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.CartItem{}).
		Error
}

// ListLines returns the cart joined with live product data, oldest first.
func (r *Repository) ListLines(ctx context.Context, customerID uuid.UUID) ([]Line, error) {
	var lines []Line
	if err := r.db.WithContext(ctx).Raw(listLinesSQL, customerID).Scan(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}
