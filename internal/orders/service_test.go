package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  finish TEXT,
  length_mm INTEGER,
  width_mm INTEGER,
  thickness_mm INTEGER,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  grand_total_cents INTEGER NOT NULL,
  coupon_id TEXT,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  status TEXT NOT NULL DEFAULT 'pending',
  stock_committed INTEGER NOT NULL DEFAULT 0,
  gateway_order_id TEXT,
  gateway_payment_id TEXT,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  sku TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  is_gift INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_addresses (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT NOT NULL,
  email TEXT,
  address_line1 TEXT NOT NULL,
  address_line2 TEXT,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  actor TEXT NOT NULL,
  comment TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_payment_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  actor TEXT NOT NULL,
  comment TEXT,
  created_at DATETIME
);`,
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (Service, *stubOutbox) {
	t.Helper()
	publisher := &stubOutbox{}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, publisher, 72*time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, publisher
}

func seedVariant(t *testing.T, db *gorm.DB, stock int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  uuid.New(),
		SKU:        "TK-" + uuid.NewString()[:8],
		PriceCents: 10000,
		Stock:      stock,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

func seedOrder(t *testing.T, db *gorm.DB, variant *models.ProductVariant, qty int, mutate func(o *models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-20250810-" + uuid.NewString()[:6],
		UserID:          uuid.New(),
		SubtotalCents:   variant.PriceCents * qty,
		GrandTotalCents: variant.PriceCents * qty,
		PaymentMethod:   enums.PaymentMethodCOD,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		Status:          enums.OrderStatusPending,
		StockCommitted:  true,
		CreatedAt:       time.Now(),
	}
	if mutate != nil {
		mutate(order)
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	item := &models.OrderItem{
		ID:             uuid.New(),
		OrderID:        order.ID,
		ProductID:      variant.ProductID,
		VariantID:      variant.ID,
		ProductName:    "Oak Shelf",
		SKU:            variant.SKU,
		UnitPriceCents: variant.PriceCents,
		Quantity:       qty,
		TotalCents:     variant.PriceCents * qty,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed order item: %v", err)
	}
	return order
}

func variantStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := db.First(&variant, "id = ?", id).Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	return variant.Stock
}

func reloadOrder(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Order {
	t.Helper()
	var order models.Order
	if err := db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return &order
}

func TestUpdateStatusRequiresPayment(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, nil)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: order.ID,
		Status:  enums.OrderStatusConfirmed,
		Actor:   ActorContext{Actor: enums.ActorAdmin},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateStatusAdvancesOneStepAndRecordsHistory(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, publisher := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusPaid
	})

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: order.ID,
		Status:  enums.OrderStatusConfirmed,
		Actor:   ActorContext{UserID: uuid.New(), Actor: enums.ActorAdmin},
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", updated.Status)
	}

	var history []models.OrderStatusHistory
	if err := db.Where("order_id = ?", order.ID).Find(&history).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 1 || history[0].Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected one confirmed history row, got %+v", history)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected status changed event, got %+v", publisher.events)
	}
}

func TestUpdateStatusRejectsSkippingSteps(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusPaid
	})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: order.ID,
		Status:  enums.OrderStatusShipped,
		Actor:   ActorContext{Actor: enums.ActorAdmin},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateStatusRejectsCancelledTarget(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, nil)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: order.ID,
		Status:  enums.OrderStatusCancelled,
		Actor:   ActorContext{Actor: enums.ActorAdmin},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusRejectsTerminalOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, func(o *models.Order) {
		o.Status = enums.OrderStatusCancelled
		o.PaymentStatus = enums.PaymentStatusPaid
	})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: order.ID,
		Status:  enums.OrderStatusConfirmed,
		Actor:   ActorContext{Actor: enums.ActorAdmin},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestMarkPaidCommitsDeferredStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, publisher := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 2, func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodGateway
		o.StockCommitted = false
	})

	updated, err := svc.MarkPaid(context.Background(), order.ID, ActorContext{Actor: enums.ActorAdmin}, nil)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if updated.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", updated.PaymentStatus)
	}
	if got := variantStock(t, db, variant.ID); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}
	if !reloadOrder(t, db, order.ID).StockCommitted {
		t.Fatal("expected stock to be committed")
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderPaid {
		t.Fatalf("expected paid event, got %+v", publisher.events)
	}
}

func TestMarkPaidDoesNotDoubleCommitStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 3)
	order := seedOrder(t, db, variant, 2, nil) // COD, stock already committed at checkout

	if _, err := svc.MarkPaid(context.Background(), order.ID, ActorContext{Actor: enums.ActorAdmin}, nil); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if got := variantStock(t, db, variant.ID); got != 3 {
		t.Fatalf("stock = %d, want 3 (unchanged)", got)
	}
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, publisher := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusPaid
	})

	if _, err := svc.MarkPaid(context.Background(), order.ID, ActorContext{Actor: enums.ActorAdmin}, nil); err != nil {
		t.Fatalf("mark paid replay: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no events on replay, got %+v", publisher.events)
	}
}

func TestCancelPaidOrderRestocksAndRefunds(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, publisher := newTestService(t, db)
	variant := seedVariant(t, db, 0)
	order := seedOrder(t, db, variant, 2, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusPaid
	})

	result, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Reason:  "changed my mind",
		Actor:   ActorContext{UserID: order.UserID, Actor: enums.ActorUser},
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !result.Restocked || !result.Refunded {
		t.Fatalf("expected restock and refund, got %+v", result)
	}
	if got := variantStock(t, db, variant.ID); got != 2 {
		t.Fatalf("stock = %d, want 2", got)
	}
	reloaded := reloadOrder(t, db, order.ID)
	if reloaded.Status != enums.OrderStatusCancelled || reloaded.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("order = %s/%s, want cancelled/refunded", reloaded.Status, reloaded.PaymentStatus)
	}
	if reloaded.CancelledAt == nil {
		t.Fatal("expected cancelled_at to be set")
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderCancelled {
		t.Fatalf("expected cancelled event, got %+v", publisher.events)
	}
}

func TestCancelUnpaidGatewayOrderLeavesStockAlone(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 2, func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodGateway
		o.StockCommitted = false
	})

	result, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   ActorContext{UserID: order.UserID, Actor: enums.ActorUser},
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Restocked || result.Refunded {
		t.Fatalf("expected no restock or refund, got %+v", result)
	}
	if got := variantStock(t, db, variant.ID); got != 5 {
		t.Fatalf("stock = %d, want 5 (unchanged)", got)
	}
	reloaded := reloadOrder(t, db, order.ID)
	if reloaded.PaymentStatus != enums.PaymentStatusUnpaid {
		t.Fatalf("payment status = %s, want unpaid", reloaded.PaymentStatus)
	}
}

func TestCancelUnpaidCODOrderStillRestocks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 3)
	order := seedOrder(t, db, variant, 2, nil) // COD checkout committed the stock

	result, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   ActorContext{UserID: order.UserID, Actor: enums.ActorUser},
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !result.Restocked || result.Refunded {
		t.Fatalf("expected restock without refund, got %+v", result)
	}
	if got := variantStock(t, db, variant.ID); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, publisher := newTestService(t, db)
	variant := seedVariant(t, db, 0)
	order := seedOrder(t, db, variant, 2, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusPaid
	})
	ctx := context.Background()
	actor := ActorContext{UserID: order.UserID, Actor: enums.ActorUser}

	if _, err := svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: actor}); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	result, err := svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: actor})
	if err != nil {
		t.Fatalf("replay cancel: %v", err)
	}
	if !result.AlreadyCancelled {
		t.Fatalf("expected idempotent no-op, got %+v", result)
	}
	if got := variantStock(t, db, variant.ID); got != 2 {
		t.Fatalf("stock = %d, want 2 (restocked once)", got)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one cancelled event, got %d", len(publisher.events))
	}
}

func TestCancelEnforcesUserWindow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, func(o *models.Order) {
		o.CreatedAt = time.Now().Add(-96 * time.Hour)
	})

	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   ActorContext{UserID: order.UserID, Actor: enums.ActorUser},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected window expired conflict, got %v", err)
	}

	// An admin is not bound by the window.
	if _, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   ActorContext{UserID: uuid.New(), Actor: enums.ActorAdmin},
	}); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestCancelRejectsUserOnAdvancedOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, func(o *models.Order) {
		o.Status = enums.OrderStatusShipped
		o.PaymentStatus = enums.PaymentStatusPaid
	})

	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   ActorContext{UserID: order.UserID, Actor: enums.ActorUser},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// Admins may still cancel before delivery.
	if _, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   ActorContext{Actor: enums.ActorAdmin},
	}); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestCancelHidesForeignOrdersFromUsers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	variant := seedVariant(t, db, 5)
	order := seedOrder(t, db, variant, 1, nil)

	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   ActorContext{UserID: uuid.New(), Actor: enums.ActorUser},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
