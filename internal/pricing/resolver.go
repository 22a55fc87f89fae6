package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

var (
	// ErrNoPriceAvailable means the product cannot be sold on the requested side.
	ErrNoPriceAvailable = errors.New("no price available")
	// ErrPromotionInactive means a promo variant was requested but the promo is
	// missing or not below its base price.
	ErrPromotionInactive = errors.New("promotion not active")
)

// Quadruple is the set of prices a product may carry.
type Quadruple struct {
	CashPrice             decimal.Decimal
	CashPromoPrice        *decimal.Decimal
	InstallmentPrice      *decimal.Decimal
	InstallmentPromoPrice *decimal.Decimal
}

// QuadrupleOf extracts the price fields from a product row.
func QuadrupleOf(p models.Product) Quadruple {
	return Quadruple{
		CashPrice:             p.CashPrice,
		CashPromoPrice:        p.CashPromoPrice,
		InstallmentPrice:      p.InstallmentPrice,
		InstallmentPromoPrice: p.InstallmentPromoPrice,
	}
}

// Result is the resolved price for one unit.
type Result struct {
	EffectiveUnitPrice decimal.Decimal      `json:"effective_unit_price"`
	Variant            enums.PricingVariant `json:"pricing_variant"`
	RateApplied        decimal.Decimal      `json:"rate_applied"`
	Periods            int                  `json:"periods,omitempty"`
}

func promoActive(base decimal.Decimal, promo *decimal.Decimal) bool {
	return promo != nil && promo.IsPositive() && promo.LessThan(base)
}

func (q Quadruple) hasCash() bool {
	return q.CashPrice.IsPositive()
}

func (q Quadruple) hasInstallmentBase() bool {
	return q.InstallmentPrice != nil && q.InstallmentPrice.IsPositive()
}

// Available reports whether any side can be priced.
func (q Quadruple) Available() bool {
	return q.hasCash() || q.hasInstallmentBase()
}

func (q Quadruple) cash() (Result, error) {
	if !q.hasCash() {
		return Result{}, ErrNoPriceAvailable
	}
	if promoActive(q.CashPrice, q.CashPromoPrice) {
		return Result{EffectiveUnitPrice: *q.CashPromoPrice, Variant: enums.PricingVariantCashPromo, RateApplied: decimal.Zero}, nil
	}
	return Result{EffectiveUnitPrice: q.CashPrice, Variant: enums.PricingVariantCash, RateApplied: decimal.Zero}, nil
}

func (q Quadruple) installment(periods int) (Result, error) {
	periods = ClampPeriods(periods)
	if q.hasInstallmentBase() {
		base := *q.InstallmentPrice
		if promoActive(base, q.InstallmentPromoPrice) {
			return Result{EffectiveUnitPrice: *q.InstallmentPromoPrice, Variant: enums.PricingVariantInstallmentPromo, RateApplied: decimal.Zero, Periods: periods}, nil
		}
		return Result{EffectiveUnitPrice: base, Variant: enums.PricingVariantInstallment, RateApplied: decimal.Zero, Periods: periods}, nil
	}
	return q.derivedInstallment(periods)
}

// derivedInstallment prices the installment side off the effective cash price
// when the product has no explicit installment price.
func (q Quadruple) derivedInstallment(periods int) (Result, error) {
	cash, err := q.cash()
	if err != nil {
		return Result{}, err
	}
	rate := Rate(periods)
	total := cash.EffectiveUnitPrice.Mul(decimal.NewFromInt(1).Add(rate)).Round(0)
	return Result{EffectiveUnitPrice: total, Variant: enums.PricingVariantInstallment, RateApplied: rate, Periods: ClampPeriods(periods)}, nil
}

// Resolve picks the price a customer pays on the given side, applying
// promotions only when they undercut the base price.
func Resolve(q Quadruple, side enums.PaymentMethod, periods int) (Result, error) {
	if !q.Available() {
		return Result{}, ErrNoPriceAvailable
	}
	switch side {
	case enums.PaymentMethodInstallment:
		return q.installment(periods)
	default:
		return q.cash()
	}
}

// ResolveVariant prices one specific variant. Promo variants fail with
// ErrPromotionInactive when the promo would not apply.
func ResolveVariant(q Quadruple, variant enums.PricingVariant, periods int) (Result, error) {
	if !q.Available() {
		return Result{}, ErrNoPriceAvailable
	}
	switch variant {
	case enums.PricingVariantCash:
		if !q.hasCash() {
			return Result{}, ErrNoPriceAvailable
		}
		return Result{EffectiveUnitPrice: q.CashPrice, Variant: variant, RateApplied: decimal.Zero}, nil
	case enums.PricingVariantCashPromo:
		if !q.hasCash() || !promoActive(q.CashPrice, q.CashPromoPrice) {
			return Result{}, ErrPromotionInactive
		}
		return Result{EffectiveUnitPrice: *q.CashPromoPrice, Variant: variant, RateApplied: decimal.Zero}, nil
	case enums.PricingVariantInstallment:
		if q.hasInstallmentBase() {
			return Result{EffectiveUnitPrice: *q.InstallmentPrice, Variant: variant, RateApplied: decimal.Zero, Periods: ClampPeriods(periods)}, nil
		}
		return q.derivedInstallment(periods)
	case enums.PricingVariantInstallmentPromo:
		if !q.hasInstallmentBase() || !promoActive(*q.InstallmentPrice, q.InstallmentPromoPrice) {
			return Result{}, ErrPromotionInactive
		}
		return Result{EffectiveUnitPrice: *q.InstallmentPromoPrice, Variant: variant, RateApplied: decimal.Zero, Periods: ClampPeriods(periods)}, nil
	default:
		return Result{}, ErrNoPriceAvailable
	}
}

// Preview is the installment teaser shown next to a product.
type Preview struct {
	Periods           int             `json:"periods"`
	InstallmentTotal  decimal.Decimal `json:"installment_total"`
	AdvertisedMonthly decimal.Decimal `json:"advertised_monthly"`
	RateApplied       decimal.Decimal `json:"rate_applied"`
}

// Quote bundles both sides for display.
type Quote struct {
	Cash        *Result  `json:"cash,omitempty"`
	Installment *Result  `json:"installment,omitempty"`
	Preview     *Preview `json:"preview,omitempty"`
}

// BuildQuote resolves both sides and the advertised monthly preview. A side
// that cannot be priced is left nil.
func BuildQuote(q Quadruple, periods int) (Quote, error) {
	if !q.Available() {
		return Quote{}, ErrNoPriceAvailable
	}
	var out Quote
	if cash, err := q.cash(); err == nil {
		out.Cash = &cash
	}
	if inst, err := q.installment(periods); err == nil {
		out.Installment = &inst
		out.Preview = &Preview{
			Periods:           inst.Periods,
			InstallmentTotal:  inst.EffectiveUnitPrice,
			AdvertisedMonthly: AdvertisedMonthly(inst.EffectiveUnitPrice, inst.Periods),
			RateApplied:       inst.RateApplied,
		}
	}
	return out, nil
}
