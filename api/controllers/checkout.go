package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/api/responses"
	"github.com/teakline/storefront-backend/api/validators"
	checkoutsvc "github.com/teakline/storefront-backend/internal/checkout"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/logger"
)

// Checkout converts the caller's cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Execute(r.Context(), userID, checkoutsvc.Input{
			BillingAddress:  payload.BillingAddress,
			ShippingAddress: payload.ShippingAddress,
			PaymentMethod:   method,
			CouponCode:      payload.CouponCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

type checkoutRequest struct {
	BillingAddress  checkoutsvc.AddressInput  `json:"billing_address" validate:"required"`
	ShippingAddress *checkoutsvc.AddressInput `json:"shipping_address,omitempty"`
	PaymentMethod   string                    `json:"payment_method" validate:"required,oneof=cod gateway"`
	CouponCode      *string                   `json:"coupon_code,omitempty" validate:"omitempty,min=1,max=64"`
}

type checkoutResponse struct {
	OrderID         uuid.UUID `json:"order_id"`
	OrderNumber     string    `json:"order_number"`
	Status          string    `json:"status"`
	PaymentMethod   string    `json:"payment_method"`
	PaymentStatus   string    `json:"payment_status"`
	SubtotalCents   int       `json:"subtotal_cents"`
	DiscountCents   int       `json:"discount_cents"`
	GrandTotalCents int       `json:"grand_total_cents"`
}

func newCheckoutResponse(result *checkoutsvc.Result) checkoutResponse {
	if result == nil || result.Order == nil {
		return checkoutResponse{}
	}
	return checkoutResponse{
		OrderID:         result.Order.ID,
		OrderNumber:     result.Order.OrderNumber,
		Status:          string(result.Order.Status),
		PaymentMethod:   string(result.Order.PaymentMethod),
		PaymentStatus:   string(result.Order.PaymentStatus),
		SubtotalCents:   result.SubtotalCents,
		DiscountCents:   result.DiscountCents,
		GrandTotalCents: result.GrandTotal,
	}
}
