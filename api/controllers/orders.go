package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/api/middleware"
	"github.com/teakline/storefront-backend/api/responses"
	"github.com/teakline/storefront-backend/api/validators"
	internalorders "github.com/teakline/storefront-backend/internal/orders"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/logger"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderDetail returns the caller's order aggregate.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, userActor(r, userID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, internalorders.ToDTO(order))
	}
}

// OrderList returns the caller's orders, newest first.
func OrderList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultOrderPageSize, 1, maxOrderPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), userID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summaries := make([]internalorders.OrderSummaryDTO, 0, len(list))
		for _, order := range list {
			summaries = append(summaries, internalorders.ToSummaryDTO(order))
		}
		responses.WriteSuccess(w, map[string]any{"orders": summaries})
	}
}

// OrderCancel cancels the caller's own order within the allowed window.
func OrderCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Reason:  payload.Reason,
			Actor:   userActor(r, userID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCancelResponse(result))
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type cancelOrderResponse struct {
	AlreadyCancelled bool `json:"already_cancelled"`
	Restocked        bool `json:"restocked"`
	Refunded         bool `json:"refunded"`
}

func newCancelResponse(result *internalorders.CancelResult) cancelOrderResponse {
	if result == nil {
		return cancelOrderResponse{}
	}
	return cancelOrderResponse{
		AlreadyCancelled: result.AlreadyCancelled,
		Restocked:        result.Restocked,
		Refunded:         result.Refunded,
	}
}

func userActor(r *http.Request, userID uuid.UUID) internalorders.ActorContext {
	actor := enums.ActorUser
	if middleware.RoleFromContext(r.Context()) == string(enums.RoleAdmin) {
		actor = enums.ActorAdmin
	}
	return internalorders.ActorContext{UserID: userID, Actor: actor}
}
