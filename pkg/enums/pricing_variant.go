package enums

import "fmt"

// PricingVariant identifies which of a product's prices a cart line or order
// detail was taken from.
type PricingVariant string

const (
	PricingVariantCash             PricingVariant = "cash"
	PricingVariantCashPromo        PricingVariant = "cashPromo"
	PricingVariantInstallment      PricingVariant = "installment"
	PricingVariantInstallmentPromo PricingVariant = "installmentPromo"
)

var validPricingVariants = []PricingVariant{
	PricingVariantCash,
	PricingVariantCashPromo,
	PricingVariantInstallment,
	PricingVariantInstallmentPromo,
}

// String implements fmt.Stringer.
func (v PricingVariant) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PricingVariant.
func (v PricingVariant) IsValid() bool {
	for _, candidate := range validPricingVariants {
		if candidate == v {
			return true
		}
	}
	return false
}

// PaymentMethod returns the settlement side the variant belongs to.
func (v PricingVariant) PaymentMethod() PaymentMethod {
	switch v {
	case PricingVariantInstallment, PricingVariantInstallmentPromo:
		return PaymentMethodInstallment
	default:
		return PaymentMethodCash
	}
}

// IsPromo reports whether the variant is a promotional price.
func (v PricingVariant) IsPromo() bool {
	return v == PricingVariantCashPromo || v == PricingVariantInstallmentPromo
}

// ParsePricingVariant converts raw input into a PricingVariant.
func ParsePricingVariant(value string) (PricingVariant, error) {
	for _, candidate := range validPricingVariants {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pricing variant %q", value)
}
