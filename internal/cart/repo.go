package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teakline/storefront-backend/pkg/db/models"
)

// Repository defines the persistence surface for the user's cart rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Items(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	VariantsByID(ctx context.Context, ids []uuid.UUID, lock bool) ([]models.ProductVariant, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Items(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// VariantsByID loads variants with their products. lock requests FOR UPDATE
// semantics; the clause is applied only on dialects that support row locking
// so the sqlite test harness can exercise the same code path.
func (r *repository) VariantsByID(ctx context.Context, ids []uuid.UUID, lock bool) ([]models.ProductVariant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Preload("Product")
	if lock && r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var variants []models.ProductVariant
	err := q.Where("id IN ?", ids).
		Order("id ASC").
		Find(&variants).Error
	return variants, err
}

func (r *repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
