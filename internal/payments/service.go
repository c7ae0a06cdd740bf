package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teakline/storefront-backend/internal/cart"
	"github.com/teakline/storefront-backend/internal/inventory"
	"github.com/teakline/storefront-backend/internal/orders"
	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/logger"
	"github.com/teakline/storefront-backend/pkg/outbox"
	"github.com/teakline/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Intent is what the storefront needs to open the gateway's payment widget.
type Intent struct {
	OrderID        uuid.UUID `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	AmountCents    int       `json:"amount_cents"`
	Currency       string    `json:"currency"`
	KeyID          string    `json:"key_id"`
}

// VerifyInput carries the gateway callback fields.
type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// Service drives the gateway payment flow: intent creation before the widget
// opens, and callback verification after the shopper pays.
type Service interface {
	CreateIntent(ctx context.Context, orderID, userID uuid.UUID) (*Intent, error)
	VerifyCallback(ctx context.Context, input VerifyInput) (*models.Order, error)
}

type service struct {
	tx         txRunner
	ordersRepo orders.Repository
	cartRepo   cart.Repository
	gateway    Gateway
	outbox     outboxPublisher
	logg       *logger.Logger
	secret     string
	keyID      string
	currency   string
	now        func() time.Time
}

// Config carries the gateway identity the service signs and verifies with.
type Config struct {
	KeyID    string
	Secret   string
	Currency string
}

// NewService builds the payments service.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	cartRepo cart.Repository,
	gateway Gateway,
	publisher outboxPublisher,
	logg *logger.Logger,
	cfg Config,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("gateway secret required")
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &service{
		tx:         tx,
		ordersRepo: ordersRepo,
		cartRepo:   cartRepo,
		gateway:    gateway,
		outbox:     publisher,
		logg:       logg,
		secret:     cfg.Secret,
		keyID:      cfg.KeyID,
		currency:   currency,
		now:        time.Now,
	}, nil
}

// CreateIntent registers the order's grand total with the gateway and records
// the returned reference. Calling it again for the same order returns the
// stored reference instead of creating a second intent.
func (s *service) CreateIntent(ctx context.Context, orderID, userID uuid.UUID) (*Intent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.ordersRepo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !order.PaymentMethod.IsGatewayMediated() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not gateway paid")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}
	if order.GatewayOrderID != nil && *order.GatewayOrderID != "" {
		return &Intent{
			OrderID:        order.ID,
			GatewayOrderID: *order.GatewayOrderID,
			AmountCents:    order.GrandTotalCents,
			Currency:       s.currency,
			KeyID:          s.keyID,
		}, nil
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
		AmountCents: order.GrandTotalCents,
		Currency:    s.currency,
		Receipt:     order.OrderNumber,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		if err := repo.UpdateFields(ctx, order.ID, map[string]any{
			"gateway_order_id": gatewayOrder.ID,
			"payment_status":   enums.PaymentStatusPending,
			"updated_at":       s.now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record gateway order id")
		}
		return repo.InsertPaymentHistory(ctx, &models.OrderPaymentHistory{
			OrderID:       order.ID,
			PaymentStatus: enums.PaymentStatusPending,
			Actor:         enums.ActorUser,
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "payment intent created")

	return &Intent{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrder.ID,
		AmountCents:    order.GrandTotalCents,
		Currency:       s.currency,
		KeyID:          s.keyID,
	}, nil
}

// VerifyCallback authenticates the gateway callback and settles the order.
// A bad signature mutates nothing and surfaces no internals to the caller.
// Replays of an already settled callback succeed without touching stock.
func (s *service) VerifyCallback(ctx context.Context, input VerifyInput) (*models.Order, error) {
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway identifiers required")
	}
	if !VerifySignature(s.secret, input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		ctx = s.logg.WithField(ctx, "gateway_order_id", input.GatewayOrderID)
		s.logg.Warn(ctx, "payment callback signature mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "payment verification failed")
	}

	var settled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		order, err := repo.FindByGatewayOrderID(ctx, input.GatewayOrderID, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			settled = order
			return nil
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
		}

		fields := map[string]any{
			"payment_status":     enums.PaymentStatusPaid,
			"status":             enums.OrderStatusConfirmed,
			"gateway_payment_id": input.GatewayPaymentID,
			"updated_at":         s.now(),
		}
		if !order.StockCommitted {
			if err := inventory.Reserve(ctx, tx, reservationsFor(order.Items)); err != nil {
				return err
			}
			fields["stock_committed"] = true
		}
		if err := repo.UpdateFields(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
		}
		if err := repo.InsertPaymentHistory(ctx, &models.OrderPaymentHistory{
			OrderID:       order.ID,
			PaymentStatus: enums.PaymentStatusPaid,
			Actor:         enums.ActorSystem,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment history")
		}
		if err := repo.InsertStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  enums.OrderStatusConfirmed,
			Actor:   enums.ActorSystem,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}

		// Usually a no-op: checkout already cleared the cart. Kept for
		// flows that settle before the cart delete was observed.
		if err := s.cartRepo.WithTx(tx).Clear(ctx, order.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		paymentID := input.GatewayPaymentID
		paidAt := s.now()
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				UserID:           order.UserID,
				GatewayPaymentID: &paymentID,
				AmountCents:      order.GrandTotalCents,
				PaidAt:           paidAt,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit paid event")
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.Status = enums.OrderStatusConfirmed
		order.GatewayPaymentID = &paymentID
		order.StockCommitted = true
		settled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, settled.ID.String())
	s.logg.Info(ctx, "payment verified")
	return settled, nil
}

func reservationsFor(items []models.OrderItem) []inventory.Reservation {
	reservations := make([]inventory.Reservation, 0, len(items))
	for _, item := range items {
		reservations = append(reservations, inventory.Reservation{
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Qty:         item.Quantity,
		})
	}
	return reservations
}
