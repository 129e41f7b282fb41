package controllers

import (
	"net/http"

	"github.com/meltedmeethas/storefront-backend/api/responses"
	"github.com/meltedmeethas/storefront-backend/api/validators"
	"github.com/meltedmeethas/storefront-backend/internal/coupons"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

// CouponApply previews a coupon without redeeming it.
func CouponApply(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupon"))
			return
		}

		var body coupons.ApplyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preview, err := svc.Apply(r.Context(), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}
