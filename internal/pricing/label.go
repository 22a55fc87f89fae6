package pricing

import (
	"fmt"

	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

// Label is the human readable pricing tag shown on cart lines.
func Label(variant enums.PricingVariant, periods int) string {
	switch variant {
	case enums.PricingVariantCash:
		return "Cash price"
	case enums.PricingVariantCashPromo:
		return "Cash promotion"
	case enums.PricingVariantInstallment:
		return fmt.Sprintf("Installment %d months", ClampPeriods(periods))
	case enums.PricingVariantInstallmentPromo:
		return fmt.Sprintf("Installment promotion %d months", ClampPeriods(periods))
	default:
		return string(variant)
	}
}
