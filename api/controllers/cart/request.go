package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baanfurniture/storefront-backend/internal/cart"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
)

type upsertItemRequest struct {
	ProductID      uuid.UUID        `json:"product_id" validate:"required"`
	PricingVariant string           `json:"pricing_variant" validate:"required"`
	Quantity       int              `json:"quantity"`
	Mode           string           `json:"mode" validate:"omitempty,oneof=increment set"`
	Periods        int              `json:"installment_periods"`
	UnitPrice      *decimal.Decimal `json:"unit_price" validate:"omitempty,gt=0"`
	PricingLabel   string           `json:"pricing_label" validate:"max=120"`
}

func (p upsertItemRequest) toInput() (cart.UpsertInput, error) {
	variant, err := enums.ParsePricingVariant(p.PricingVariant)
	if err != nil {
		return cart.UpsertInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pricing_variant")
	}
	mode, err := cart.ParseMode(p.Mode)
	if err != nil {
		return cart.UpsertInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode")
	}
	return cart.UpsertInput{
		ProductID: p.ProductID,
		Variant:   variant,
		Quantity:  p.Quantity,
		Mode:      mode,
		Periods:   p.Periods,
		UnitPrice: p.UnitPrice,
		Label:     p.PricingLabel,
	}, nil
}

type removeItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	PricingVariant string    `json:"pricing_variant" validate:"required"`
}

func (p removeItemRequest) toKey() (cart.Key, error) {
	variant, err := enums.ParsePricingVariant(p.PricingVariant)
	if err != nil {
		return cart.Key{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pricing_variant")
	}
	return cart.Key{ProductID: p.ProductID, Variant: variant}, nil
}
