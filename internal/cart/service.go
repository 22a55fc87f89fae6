package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baanfurniture/storefront-backend/internal/pricing"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
)

type priceResolver interface {
	PriceVariant(ctx context.Context, productID uuid.UUID, variant enums.PricingVariant, periods int) (*models.Product, pricing.Result, error)
}

// Service exposes the customer cart operations.
type Service interface {
	List(ctx context.Context, customerID uuid.UUID) (*View, error)
	Upsert(ctx context.Context, customerID uuid.UUID, input UpsertInput) (*View, error)
	Remove(ctx context.Context, customerID uuid.UUID, key Key) (*View, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

// UpsertInput is a single cart mutation. UnitPrice is the price the client
// displayed; when present it must match the server price within tolerance.
type UpsertInput struct {
	ProductID uuid.UUID
	Variant   enums.PricingVariant
	Quantity  int
	Mode      Mode
	Periods   int
	UnitPrice *decimal.Decimal
	Label     string
}

type service struct {
	repo      CartRepository
	prices    priceResolver
	tolerance decimal.Decimal
}

// NewService builds a cart service. tolerance bounds how far a client-shown
// price may drift from the resolved price.
func NewService(repo CartRepository, prices priceResolver, tolerance decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	return &service{repo: repo, prices: prices, tolerance: tolerance.Abs()}, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID) (*View, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	lines, err := s.repo.ListLines(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return buildView(lines), nil
}

func (s *service) Upsert(ctx context.Context, customerID uuid.UUID, input UpsertInput) (*View, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !input.Variant.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown pricing variant %q", input.Variant)
	}
	if input.Mode == "" {
		input.Mode = ModeIncrement
	}
	key := Key{ProductID: input.ProductID, Variant: input.Variant}

	if input.Quantity <= 0 {
		return s.Remove(ctx, customerID, key)
	}

	_, resolved, err := s.prices.PriceVariant(ctx, input.ProductID, input.Variant, input.Periods)
	if err != nil {
		return nil, err
	}
	if input.UnitPrice != nil && input.UnitPrice.Sub(resolved.EffectiveUnitPrice).Abs().GreaterThan(s.tolerance) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price has changed, refresh and try again").
			WithDetails(map[string]any{
				"submitted_price": input.UnitPrice.String(),
				"current_price":   resolved.EffectiveUnitPrice.String(),
			})
	}

	label := input.Label
	if label == "" {
		label = pricing.Label(input.Variant, resolved.Periods)
	}
	item := models.CartItem{
		CustomerID:     customerID,
		ProductID:      input.ProductID,
		PricingVariant: input.Variant,
		PricingLabel:   label,
		Periods:        resolved.Periods,
		Quantity:       input.Quantity,
		UnitPrice:      resolved.EffectiveUnitPrice,
	}

	switch input.Mode {
	case ModeSet:
		err = s.repo.SetQuantity(ctx, item)
	case ModeIncrement:
		err = s.repo.Increment(ctx, item)
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown cart mode %q", input.Mode)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart item")
	}
	return s.List(ctx, customerID)
}

func (s *service) Remove(ctx context.Context, customerID uuid.UUID, key Key) (*View, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if key.ProductID == uuid.Nil || !key.Variant.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and pricing variant are required")
	}
	if _, err := s.repo.Delete(ctx, customerID, key); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return s.List(ctx, customerID)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := s.repo.Clear(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
