package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/teakline/storefront-backend/pkg/db"
	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
)

// MinOrderDetails names the threshold a coupon requires, in cents, so the
// storefront can display it in the order currency.
type MinOrderDetails struct {
	MinOrderCents int `json:"min_order_cents"`
}

// Validate applies the redemption rules for a user at a given subtotal and
// returns the coupon on success. It never writes; locking happens in Redeem.
func Validate(ctx context.Context, repo Repository, code string, userID uuid.UUID, subtotalCents int, now time.Time) (*models.Coupon, error) {
	coupon, err := repo.FindRedeemableByCode(ctx, code, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired coupon")
	}

	used, err := repo.HasUsage(ctx, coupon.ID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon usage")
	}
	if used {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
	}

	if subtotalCents < coupon.MinOrderCents {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "order subtotal below the coupon minimum of %d cents", coupon.MinOrderCents).
			WithDetails(MinOrderDetails{MinOrderCents: coupon.MinOrderCents})
	}
	return coupon, nil
}

// ComputeDiscount returns the discount in cents for the given subtotal.
// Percent coupons are clamped to max_discount_cents when set; every discount
// is clamped to [0, subtotal] so the grand total never goes negative.
func ComputeDiscount(coupon *models.Coupon, subtotalCents int) int {
	if coupon == nil || subtotalCents <= 0 {
		return 0
	}
	var discount int
	switch coupon.Type {
	case enums.CouponTypePercent:
		discount = subtotalCents * coupon.Value / 100
		if coupon.MaxDiscountCents != nil && discount > *coupon.MaxDiscountCents {
			discount = *coupon.MaxDiscountCents
		}
	case enums.CouponTypeFixed:
		discount = coupon.Value
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	return discount
}

// Redeem writes the usage ledger row and bumps used_count inside the caller's
// transaction. The unique (coupon_id, user_id) index and the guarded count
// update convert concurrent double-redemptions into business errors.
func Redeem(ctx context.Context, tx *gorm.DB, repo Repository, coupon *models.Coupon, userID, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for coupon redemption")
	}
	txRepo := repo.WithTx(tx)

	usage := &models.CouponUsage{
		ID:       uuid.New(),
		CouponID: coupon.ID,
		UserID:   userID,
		OrderID:  orderID,
	}
	if err := txRepo.InsertUsage(ctx, usage); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_coupon_usages_coupon_user") {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
	}

	rows, err := txRepo.IncrementUsedCount(ctx, coupon.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage count")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired coupon")
	}
	return nil
}
