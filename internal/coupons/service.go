package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/internal/cart"
	"github.com/teakline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
)

// PreviewResult reports the effect a coupon would have on the current cart.
type PreviewResult struct {
	Coupon           *models.Coupon
	SubtotalCents    int
	DiscountCents    int
	FinalAmountCents int
}

// Service exposes coupon preview operations. Redemption is not part of this
// surface; it happens only inside the checkout transaction.
type Service interface {
	Preview(ctx context.Context, userID uuid.UUID, code string) (*PreviewResult, error)
	AvailableForUser(ctx context.Context, userID uuid.UUID) ([]models.Coupon, error)
}

type service struct {
	repo Repository
	cart cart.Repository
	now  func() time.Time
}

// NewService builds a coupon service over the coupon and cart repositories.
func NewService(repo Repository, cartRepo cart.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo, cart: cartRepo, now: time.Now}, nil
}

// Preview validates the code against the user's live cart subtotal and
// computes the discount exactly as checkout will.
func (s *service) Preview(ctx context.Context, userID uuid.UUID, code string) (*PreviewResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}

	snapshot, err := cart.BuildSnapshot(ctx, s.cart, userID, false)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	coupon, err := Validate(ctx, s.repo, code, userID, snapshot.SubtotalCents, s.now())
	if err != nil {
		return nil, err
	}
	discount := ComputeDiscount(coupon, snapshot.SubtotalCents)
	return &PreviewResult{
		Coupon:           coupon,
		SubtotalCents:    snapshot.SubtotalCents,
		DiscountCents:    discount,
		FinalAmountCents: snapshot.SubtotalCents - discount,
	}, nil
}

// AvailableForUser lists coupons the user can still redeem.
func (s *service) AvailableForUser(ctx context.Context, userID uuid.UUID) ([]models.Coupon, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListRedeemableForUser(ctx, userID, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return rows, nil
}
