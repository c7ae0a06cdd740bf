package controllers

import (
	"net/http"
	"time"

	"github.com/teakline/storefront-backend/api/responses"
	"github.com/teakline/storefront-backend/api/validators"
	"github.com/teakline/storefront-backend/internal/coupons"
	"github.com/teakline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/logger"
)

// CouponApply previews a coupon against the caller's current cart without
// locking anything. The real redemption happens inside checkout.
func CouponApply(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload couponApplyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preview, err := svc.Preview(r.Context(), userID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponApplyResponse(preview))
	}
}

// CouponsAvailable lists coupons the caller can still redeem.
func CouponsAvailable(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available, err := svc.AvailableForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := make([]couponResponse, 0, len(available))
		for _, coupon := range available {
			list = append(list, newCouponResponse(coupon))
		}
		responses.WriteSuccess(w, map[string]any{"coupons": list})
	}
}

type couponApplyRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

type couponResponse struct {
	Code             string     `json:"code"`
	Type             string     `json:"type"`
	Value            int        `json:"value"`
	MinOrderCents    int        `json:"min_order_cents"`
	MaxDiscountCents *int       `json:"max_discount_cents,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
}

type couponApplyResponse struct {
	Coupon           couponResponse `json:"coupon"`
	SubtotalCents    int            `json:"subtotal_cents"`
	DiscountCents    int            `json:"discount_cents"`
	FinalAmountCents int            `json:"final_amount_cents"`
}

func newCouponResponse(coupon models.Coupon) couponResponse {
	return couponResponse{
		Code:             coupon.Code,
		Type:             string(coupon.Type),
		Value:            coupon.Value,
		MinOrderCents:    coupon.MinOrderCents,
		MaxDiscountCents: coupon.MaxDiscountCents,
		EndDate:          coupon.EndDate,
	}
}

func newCouponApplyResponse(preview *coupons.PreviewResult) couponApplyResponse {
	if preview == nil {
		return couponApplyResponse{}
	}
	resp := couponApplyResponse{
		SubtotalCents:    preview.SubtotalCents,
		DiscountCents:    preview.DiscountCents,
		FinalAmountCents: preview.FinalAmountCents,
	}
	if preview.Coupon != nil {
		resp.Coupon = newCouponResponse(*preview.Coupon)
	}
	return resp
}
