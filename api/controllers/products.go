package controllers

import (
	"net/http"

	"github.com/baanfurniture/storefront-backend/api/responses"
	"github.com/baanfurniture/storefront-backend/api/validators"
	"github.com/baanfurniture/storefront-backend/internal/pricing"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
)

// ProductPricing returns the cash and installment prices shown on the product
// page, including the advertised monthly amount for ?periods=N.
func ProductPricing(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		periods, err := validators.ParseQueryInt(r, "periods", pricing.MaxPeriods, pricing.MinPeriods, pricing.MaxPeriods)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), productID, periods)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
