package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teakline/storefront-backend/internal/cart"
	"github.com/teakline/storefront-backend/internal/coupons"
	"github.com/teakline/storefront-backend/internal/inventory"
	"github.com/teakline/storefront-backend/internal/orders"
	dbpkg "github.com/teakline/storefront-backend/pkg/db"
	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/outbox"
	"github.com/teakline/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input captures one checkout request. Prices and totals never appear here;
// they are recomputed server-side from the live catalog.
type Input struct {
	BillingAddress  AddressInput
	ShippingAddress *AddressInput
	PaymentMethod   enums.PaymentMethod
	CouponCode      *string
}

// Result reports the committed order and its totals.
type Result struct {
	Order         *models.Order
	SubtotalCents int
	DiscountCents int
	GrandTotal    int
}

// Service executes the checkout transaction.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
}

type service struct {
	tx         txRunner
	cartRepo   cart.Repository
	couponRepo coupons.Repository
	ordersRepo orders.Repository
	outbox     outboxPublisher
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	couponRepo coupons.Repository,
	ordersRepo orders.Repository,
	publisher outboxPublisher,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		couponRepo: couponRepo,
		ordersRepo: ordersRepo,
		outbox:     publisher,
		now:        time.Now,
	}, nil
}

const (
	numberCollisionRetries = 5
	savepointOrderNumber   = "sp_order_number"
)

// Execute runs the whole checkout as one transaction. Variant rows back the
// locked snapshot, so two checkouts competing for the same stock serialize on
// the row lock and the loser sees the depleted count.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", input.PaymentMethod)
	}
	if err := validateAddress(input.BillingAddress, enums.AddressTypeBilling); err != nil {
		return nil, err
	}
	if input.ShippingAddress != nil {
		if err := validateAddress(*input.ShippingAddress, enums.AddressTypeShipping); err != nil {
			return nil, err
		}
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		snapshot, err := cart.BuildSnapshot(ctx, cartRepo, userID, true)
		if err != nil {
			return err
		}
		if len(snapshot.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		for _, line := range snapshot.Lines {
			if line.Quantity > line.AvailableStock {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "insufficient stock for %s", line.ProductName).
					WithDetails(inventory.InsufficientStockDetails{
						VariantID:   line.VariantID,
						ProductName: line.ProductName,
						Requested:   line.Quantity,
					})
			}
		}

		now := s.now()
		var coupon *models.Coupon
		discount := 0
		if input.CouponCode != nil && *input.CouponCode != "" {
			coupon, err = coupons.Validate(ctx, s.couponRepo.WithTx(tx), *input.CouponCode, userID, snapshot.SubtotalCents, now)
			if err != nil {
				return err
			}
			discount = coupons.ComputeDiscount(coupon, snapshot.SubtotalCents)
		}
		grandTotal := snapshot.SubtotalCents - discount
		if grandTotal < 0 {
			grandTotal = 0
		}

		commitsStock := !input.PaymentMethod.IsGatewayMediated()
		order := &models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			SubtotalCents:   snapshot.SubtotalCents,
			DiscountCents:   discount,
			GrandTotalCents: grandTotal,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   enums.PaymentStatusUnpaid,
			Status:          enums.OrderStatusPending,
			StockCommitted:  commitsStock,
		}
		if coupon != nil {
			order.CouponID = &coupon.ID
		}
		if err := s.createWithUniqueNumber(ctx, tx, ordersRepo, order, now); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(snapshot.Lines))
		for _, line := range snapshot.Lines {
			items = append(items, models.OrderItem{
				ID:             uuid.New(),
				OrderID:        order.ID,
				ProductID:      line.ProductID,
				VariantID:      line.VariantID,
				ProductName:    line.ProductName,
				SKU:            line.SKU,
				UnitPriceCents: line.UnitPriceCents,
				Quantity:       line.Quantity,
				IsGift:         line.IsGift,
				TotalCents:     line.TotalCents,
			})
		}
		if err := ordersRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		addresses := []models.OrderAddress{buildOrderAddress(order.ID, input.BillingAddress, enums.AddressTypeBilling)}
		if input.ShippingAddress != nil {
			addresses = append(addresses, buildOrderAddress(order.ID, *input.ShippingAddress, enums.AddressTypeShipping))
		}
		if err := ordersRepo.CreateAddresses(ctx, addresses); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order addresses")
		}

		if err := ordersRepo.InsertStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  enums.OrderStatusPending,
			Actor:   enums.ActorUser,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}

		if coupon != nil {
			if err := coupons.Redeem(ctx, tx, s.couponRepo, coupon, userID, order.ID); err != nil {
				return err
			}
		}

		if commitsStock {
			reservations := make([]inventory.Reservation, 0, len(snapshot.Lines))
			for _, line := range snapshot.Lines {
				reservations = append(reservations, inventory.Reservation{
					VariantID:   line.VariantID,
					ProductName: line.ProductName,
					Qty:         line.Quantity,
				})
			}
			if err := inventory.Reserve(ctx, tx, reservations); err != nil {
				return err
			}
		}

		if err := cartRepo.Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		itemCount := 0
		for _, line := range snapshot.Lines {
			itemCount += line.Quantity
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.ActorUser)},
			Data: payloads.OrderCreatedEvent{
				OrderID:         order.ID,
				OrderNumber:     order.OrderNumber,
				UserID:          userID,
				PaymentMethod:   order.PaymentMethod,
				GrandTotalCents: order.GrandTotalCents,
				ItemCount:       itemCount,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created event")
		}

		result = &Result{
			Order:         order,
			SubtotalCents: order.SubtotalCents,
			DiscountCents: order.DiscountCents,
			GrandTotal:    order.GrandTotalCents,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createWithUniqueNumber inserts the order under a freshly generated order
// number, regenerating when the unique index rejects a collision. A savepoint
// around each insert keeps the enclosing transaction usable after a rejected
// attempt.
func (s *service) createWithUniqueNumber(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, now time.Time) error {
	for attempt := 0; attempt < numberCollisionRetries; attempt++ {
		candidate, err := newOrderNumber(now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		exists, err := repo.NumberExists(ctx, candidate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		}
		if exists {
			continue
		}

		order.OrderNumber = candidate
		tx.SavePoint(savepointOrderNumber)
		err = repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if dbpkg.IsUniqueViolation(err, "idx_orders_order_number") {
			tx.RollbackTo(savepointOrderNumber)
			continue
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
}
