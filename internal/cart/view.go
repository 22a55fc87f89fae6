package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baanfurniture/storefront-backend/internal/pricing"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

// View is the cart as returned to the storefront.
type View struct {
	Items     []LineView      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// LineView pairs the stored snapshot with what the product costs now.
type LineView struct {
	ID             uuid.UUID            `json:"id"`
	ProductID      uuid.UUID            `json:"product_id"`
	ProductName    string               `json:"product_name"`
	ImageURL       *string              `json:"image_url,omitempty"`
	PricingVariant enums.PricingVariant `json:"pricing_variant"`
	PricingLabel   string               `json:"pricing_label"`
	Periods        int                  `json:"installment_periods,omitempty"`
	Quantity       int                  `json:"quantity"`
	UnitPrice      decimal.Decimal      `json:"unit_price"`
	LineTotal      decimal.Decimal      `json:"line_total"`
	CurrentPrice   *decimal.Decimal     `json:"current_price,omitempty"`
	Available      bool                 `json:"available"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func buildView(lines []Line) *View {
	view := &View{Items: make([]LineView, 0, len(lines)), Subtotal: decimal.Zero}
	for _, line := range lines {
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		lv := LineView{
			ID:             line.ID,
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			ImageURL:       line.ImageURL,
			PricingVariant: line.PricingVariant,
			PricingLabel:   line.PricingLabel,
			Periods:        line.Periods,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			LineTotal:      lineTotal,
			UpdatedAt:      line.UpdatedAt,
		}
		quad := pricing.Quadruple{
			CashPrice:             line.CashPrice,
			CashPromoPrice:        line.CashPromoPrice,
			InstallmentPrice:      line.InstallmentPrice,
			InstallmentPromoPrice: line.InstallmentPromoPrice,
		}
		if current, err := pricing.ResolveVariant(quad, line.PricingVariant, line.Periods); err == nil && line.IsActive {
			price := current.EffectiveUnitPrice
			lv.CurrentPrice = &price
			lv.Available = true
		}
		view.Items = append(view.Items, lv)
		view.ItemCount += line.Quantity
		view.Subtotal = view.Subtotal.Add(lineTotal)
	}
	return view
}
