package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teakline/storefront-backend/pkg/db/models"
)

// Repository defines the persistence surface for coupon reads and redemption.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRedeemableByCode(ctx context.Context, code string, now time.Time) (*models.Coupon, error)
	HasUsage(ctx context.Context, couponID, userID uuid.UUID) (bool, error)
	ListRedeemableForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Coupon, error)
	InsertUsage(ctx context.Context, usage *models.CouponUsage) error
	IncrementUsedCount(ctx context.Context, couponID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindRedeemableByCode loads a coupon that is active, inside its validity
// window, and not exhausted. A miss returns (nil, nil) so callers can map it
// to the business error without inspecting gorm sentinels.
func (r *repository) FindRedeemableByCode(ctx context.Context, code string, now time.Time) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", strings.ToUpper(strings.TrimSpace(code)), true).
		Where("start_date IS NULL OR start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) HasUsage(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListRedeemableForUser returns coupons the user could still redeem right now.
func (r *repository) ListRedeemableForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Coupon, error) {
	var rows []models.Coupon
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("start_date IS NULL OR start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		Where("id NOT IN (?)", r.db.Model(&models.CouponUsage{}).
			Select("coupon_id").
			Where("user_id = ?", userID)).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) InsertUsage(ctx context.Context, usage *models.CouponUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

// IncrementUsedCount bumps used_count only while the usage limit still has
// room. Zero rows affected means the coupon was exhausted by a concurrent
// redemption.
func (r *repository) IncrementUsedCount(ctx context.Context, couponID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE coupons
		SET used_count = used_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND (usage_limit IS NULL OR used_count < usage_limit)
	`, couponID)
	return res.RowsAffected, res.Error
}
