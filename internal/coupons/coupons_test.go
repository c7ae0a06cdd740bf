package coupons

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:coupons_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  value INTEGER NOT NULL,
  min_order_cents INTEGER NOT NULL DEFAULT 0,
  max_discount_cents INTEGER,
  active INTEGER NOT NULL DEFAULT 1,
  start_date DATETIME,
  end_date DATETIME,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS coupon_usages (
  id TEXT PRIMARY KEY,
  coupon_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_coupon_usages_coupon_user ON coupon_usages (coupon_id, user_id);`,
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(c *models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		ID:     uuid.New(),
		Code:   "WELCOME10",
		Type:   enums.CouponTypePercent,
		Value:  10,
		Active: true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return coupon
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestFindRedeemableByCodeNormalizesAndFilters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	seedCoupon(t, db, nil)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.ID = uuid.New()
		c.Code = "DORMANT"
		c.Active = false
	})
	seedCoupon(t, db, func(c *models.Coupon) {
		c.ID = uuid.New()
		c.Code = "LASTYEAR"
		c.EndDate = timePtr(now.Add(-24 * time.Hour))
	})
	seedCoupon(t, db, func(c *models.Coupon) {
		c.ID = uuid.New()
		c.Code = "SOLDOUT"
		c.UsageLimit = intPtr(1)
		c.UsedCount = 1
	})

	found, err := repo.FindRedeemableByCode(ctx, "  welcome10 ", now)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.Code != "WELCOME10" {
		t.Fatalf("expected WELCOME10, got %+v", found)
	}

	for _, code := range []string{"DORMANT", "LASTYEAR", "SOLDOUT", "NOSUCH"} {
		got, err := repo.FindRedeemableByCode(ctx, code, now)
		if err != nil {
			t.Fatalf("find %s: %v", code, err)
		}
		if got != nil {
			t.Fatalf("expected %s to be unredeemable, got %+v", code, got)
		}
	}
}

func TestValidateRejectsUnknownCode(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := Validate(context.Background(), repo, "NOSUCH", uuid.New(), 10000, time.Now())
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRejectsAlreadyUsed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	coupon := seedCoupon(t, db, nil)
	usage := &models.CouponUsage{ID: uuid.New(), CouponID: coupon.ID, UserID: userID, OrderID: uuid.New()}
	if err := db.Create(usage).Error; err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	_, err := Validate(ctx, repo, coupon.Code, userID, 10000, time.Now())
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	// A different user is unaffected.
	if _, err := Validate(ctx, repo, coupon.Code, uuid.New(), 10000, time.Now()); err != nil {
		t.Fatalf("validate for fresh user: %v", err)
	}
}

func TestValidateRejectsBelowMinimumWithDetails(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	coupon := seedCoupon(t, db, func(c *models.Coupon) {
		c.MinOrderCents = 50000
	})

	_, err := Validate(context.Background(), repo, coupon.Code, uuid.New(), 49999, time.Now())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(appErr.Message(), "50000") {
		t.Fatalf("expected message to carry the minimum amount, got %q", appErr.Message())
	}
	details, ok := appErr.Details().(MinOrderDetails)
	if !ok || details.MinOrderCents != 50000 {
		t.Fatalf("expected min order details, got %+v", appErr.Details())
	}
}

func TestComputeDiscount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		coupon   *models.Coupon
		subtotal int
		want     int
	}{
		{
			name:     "percent floors fractional cents",
			coupon:   &models.Coupon{Type: enums.CouponTypePercent, Value: 10},
			subtotal: 999,
			want:     99,
		},
		{
			name:     "percent clamped to max discount",
			coupon:   &models.Coupon{Type: enums.CouponTypePercent, Value: 50, MaxDiscountCents: intPtr(2000)},
			subtotal: 100000,
			want:     2000,
		},
		{
			name:     "fixed verbatim",
			coupon:   &models.Coupon{Type: enums.CouponTypeFixed, Value: 1500},
			subtotal: 10000,
			want:     1500,
		},
		{
			name:     "fixed clamped to subtotal",
			coupon:   &models.Coupon{Type: enums.CouponTypeFixed, Value: 5000},
			subtotal: 3000,
			want:     3000,
		},
		{
			name:     "nil coupon",
			coupon:   nil,
			subtotal: 10000,
			want:     0,
		},
		{
			name:     "zero subtotal",
			coupon:   &models.Coupon{Type: enums.CouponTypePercent, Value: 10},
			subtotal: 0,
			want:     0,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ComputeDiscount(tc.coupon, tc.subtotal); got != tc.want {
				t.Fatalf("discount = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRedeemWritesUsageAndIncrementsCount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	coupon := seedCoupon(t, db, func(c *models.Coupon) {
		c.UsageLimit = intPtr(5)
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return Redeem(ctx, tx, repo, coupon, userID, uuid.New())
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	var reloaded models.Coupon
	if err := db.First(&reloaded, "id = ?", coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon: %v", err)
	}
	if reloaded.UsedCount != 1 {
		t.Fatalf("used_count = %d, want 1", reloaded.UsedCount)
	}
	var usages int64
	if err := db.Model(&models.CouponUsage{}).Where("coupon_id = ? AND user_id = ?", coupon.ID, userID).Count(&usages).Error; err != nil {
		t.Fatalf("count usages: %v", err)
	}
	if usages != 1 {
		t.Fatalf("usages = %d, want 1", usages)
	}
}

func TestRedeemRejectsSecondRedemptionBySameUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	coupon := seedCoupon(t, db, nil)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return Redeem(ctx, tx, repo, coupon, userID, uuid.New())
	}); err != nil {
		t.Fatalf("first redeem: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return Redeem(ctx, tx, repo, coupon, userID, uuid.New())
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	var reloaded models.Coupon
	if err := db.First(&reloaded, "id = ?", coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon: %v", err)
	}
	if reloaded.UsedCount != 1 {
		t.Fatalf("used_count = %d, want 1 after rejected replay", reloaded.UsedCount)
	}
}

func TestRedeemFailsWhenLimitExhausted(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db, func(c *models.Coupon) {
		c.UsageLimit = intPtr(1)
		c.UsedCount = 1
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return Redeem(ctx, tx, repo, coupon, uuid.New(), uuid.New())
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The rejected redemption must not leave a usage row behind.
	var usages int64
	if err := db.Model(&models.CouponUsage{}).Where("coupon_id = ?", coupon.ID).Count(&usages).Error; err != nil {
		t.Fatalf("count usages: %v", err)
	}
	if usages != 0 {
		t.Fatalf("usages = %d, want 0", usages)
	}
}

func TestListRedeemableForUserExcludesUsed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	used := seedCoupon(t, db, func(c *models.Coupon) { c.Code = "USED" })
	fresh := seedCoupon(t, db, func(c *models.Coupon) { c.ID = uuid.New(); c.Code = "FRESH" })
	usage := &models.CouponUsage{ID: uuid.New(), CouponID: used.ID, UserID: userID, OrderID: uuid.New()}
	if err := db.Create(usage).Error; err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	rows, err := repo.ListRedeemableForUser(ctx, userID, time.Now())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != fresh.ID {
		t.Fatalf("expected only FRESH, got %+v", rows)
	}
}
