package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/api/responses"
	"github.com/teakline/storefront-backend/internal/cart"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/logger"
)

// CartPreview returns the live snapshot of the caller's cart with catalog
// prices and stock availability.
func CartPreview(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Preview(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartPreviewResponse(snapshot))
	}
}

type cartLineResponse struct {
	CartItemID     uuid.UUID `json:"cart_item_id"`
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	ProductName    string    `json:"product_name"`
	SKU            string    `json:"sku"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	IsGift         bool      `json:"is_gift"`
	TotalCents     int       `json:"total_cents"`
	AvailableStock int       `json:"available_stock"`
	InStock        bool      `json:"in_stock"`
}

type cartPreviewResponse struct {
	Lines         []cartLineResponse `json:"lines"`
	SubtotalCents int                `json:"subtotal_cents"`
	HasShortfall  bool               `json:"has_stock_shortfall"`
}

func newCartPreviewResponse(snapshot *cart.Snapshot) cartPreviewResponse {
	if snapshot == nil {
		return cartPreviewResponse{Lines: []cartLineResponse{}}
	}
	lines := make([]cartLineResponse, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		lines = append(lines, cartLineResponse{
			CartItemID:     line.CartItemID,
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			ProductName:    line.ProductName,
			SKU:            line.SKU,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			IsGift:         line.IsGift,
			TotalCents:     line.TotalCents,
			AvailableStock: line.AvailableStock,
			InStock:        line.Quantity <= line.AvailableStock,
		})
	}
	return cartPreviewResponse{
		Lines:         lines,
		SubtotalCents: snapshot.SubtotalCents,
		HasShortfall:  snapshot.HasStockShortfall(),
	}
}
