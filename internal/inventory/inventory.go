package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
)

// Reservation describes one variant-level stock movement.
type Reservation struct {
	VariantID   uuid.UUID
	ProductName string
	Qty         int
}

// InsufficientStockDetails is attached to the conflict error so the storefront
// can tell the shopper which line failed.
type InsufficientStockDetails struct {
	VariantID   uuid.UUID `json:"variant_id"`
	ProductName string    `json:"product_name"`
	Requested   int       `json:"requested"`
}

// Reserve decrements variant stock inside the supplied transaction. Rows are
// visited in ascending variant id order so concurrent checkouts acquire row
// locks in the same sequence. The guarded UPDATE keeps stock from going
// negative; a zero-row result means another transaction took the units first.
func Reserve(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	for _, r := range reservations {
		if r.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive")
		}
		if r.VariantID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation variant id required")
		}
	}

	ordered := make([]Reservation, len(reservations))
	copy(ordered, reservations)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].VariantID.String() < ordered[j].VariantID.String()
	})

	for _, r := range ordered {
		res := tx.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
		`, r.Qty, r.VariantID, r.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "insufficient stock for %s", r.ProductName).
				WithDetails(InsufficientStockDetails{
					VariantID:   r.VariantID,
					ProductName: r.ProductName,
					Requested:   r.Qty,
				})
		}
	}
	return nil
}

// Release returns previously reserved units, used on cancellation of orders
// whose stock was committed.
func Release(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	for _, r := range reservations {
		if r.Qty <= 0 {
			continue
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET stock = stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, r.Qty, r.VariantID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
		}
	}
	return nil
}
