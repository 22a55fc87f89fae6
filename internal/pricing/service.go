package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/baanfurniture/storefront-backend/pkg/db"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
)

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service prices catalog products for display and cart writes.
type Service interface {
	Quote(ctx context.Context, productID uuid.UUID, periods int) (*ProductQuote, error)
	PriceVariant(ctx context.Context, productID uuid.UUID, variant enums.PricingVariant, periods int) (*models.Product, Result, error)
}

// ProductQuote is the product page pricing block.
type ProductQuote struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quote
}

type service struct {
	products productReader
}

func NewService(products productReader) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{products: products}, nil
}

func (s *service) Quote(ctx context.Context, productID uuid.UUID, periods int) (*ProductQuote, error) {
	product, err := s.loadActive(ctx, productID)
	if err != nil {
		return nil, err
	}
	quote, err := BuildQuote(QuadrupleOf(*product), periods)
	if err != nil {
		return nil, Classify(err)
	}
	return &ProductQuote{ProductID: product.ID, Name: product.Name, Quote: quote}, nil
}

func (s *service) PriceVariant(ctx context.Context, productID uuid.UUID, variant enums.PricingVariant, periods int) (*models.Product, Result, error) {
	product, err := s.loadActive(ctx, productID)
	if err != nil {
		return nil, Result{}, err
	}
	result, err := ResolveVariant(QuadrupleOf(*product), variant, periods)
	if err != nil {
		return nil, Result{}, Classify(err)
	}
	return product, result, nil
}

func (s *service) loadActive(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// Classify maps resolver sentinels to typed validation errors.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoPriceAvailable):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "no price available for product")
	case errors.Is(err, ErrPromotionInactive):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "promotional price is no longer available")
	default:
		return err
	}
}
