package cart

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
)

// Line is one cart entry joined with its live variant and product state.
type Line struct {
	CartItemID     uuid.UUID
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	ProductName    string
	SKU            string
	UnitPriceCents int
	Quantity       int
	IsGift         bool
	TotalCents     int
	AvailableStock int
}

// Snapshot is the authoritative view of a cart at one instant. The preview
// endpoint and the order assembler both build it through the same join so the
// totals shown to the shopper are the totals that get charged.
type Snapshot struct {
	Lines         []Line
	SubtotalCents int
}

// HasStockShortfall reports whether any line requests more than is available.
func (s Snapshot) HasStockShortfall() bool {
	for _, line := range s.Lines {
		if line.Quantity > line.AvailableStock {
			return true
		}
	}
	return false
}

// BuildSnapshot joins the user's cart rows with current variant price, stock
// and product metadata. Prices always come from the catalog row, never from
// the client. lock propagates FOR UPDATE to the variant read for checkout.
// An empty cart produces a snapshot with no lines; callers that require a
// non-empty cart enforce that themselves.
func BuildSnapshot(ctx context.Context, repo Repository, userID uuid.UUID, lock bool) (*Snapshot, error) {
	items, err := repo.Items(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	if len(items) == 0 {
		return &Snapshot{}, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	variants, err := repo.VariantsByID(ctx, ids, lock)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart variants")
	}
	byID := make(map[uuid.UUID]int, len(variants))
	for i, v := range variants {
		byID[v.ID] = i
	}

	snapshot := &Snapshot{Lines: make([]Line, 0, len(items))}
	for _, item := range items {
		idx, ok := byID[item.VariantID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references a product that no longer exists")
		}
		variant := variants[idx]
		if variant.Product == nil || !variant.Product.Active {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s is no longer available", variant.SKU)
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart quantity must be positive")
		}
		line := Line{
			CartItemID:     item.ID,
			ProductID:      variant.ProductID,
			VariantID:      variant.ID,
			ProductName:    variant.Product.Name,
			SKU:            variant.SKU,
			UnitPriceCents: variant.PriceCents,
			Quantity:       item.Quantity,
			IsGift:         item.IsGift,
			TotalCents:     variant.PriceCents * item.Quantity,
			AvailableStock: variant.Stock,
		}
		snapshot.Lines = append(snapshot.Lines, line)
		snapshot.SubtotalCents += line.TotalCents
	}
	return snapshot, nil
}
