package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teakline/storefront-backend/internal/inventory"
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

// ActorContext identifies who is performing a mutation. Admin and system
// actors skip the ownership and window checks that bind shoppers.
type ActorContext struct {
	UserID uuid.UUID
	Actor  enums.Actor
}

// UpdateStatusInput drives one fulfillment transition.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Comment *string
	Actor   ActorContext
}

// CancelInput drives a cancellation request.
type CancelInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   ActorContext
}

// CancelResult reports what the cancellation actually did, so callers can
// distinguish a fresh cancel from an idempotent replay.
type CancelResult struct {
	AlreadyCancelled bool
	Restocked        bool
	Refunded         bool
}

// Service exposes order reads and the status, payment and cancellation
// transitions.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID, actor ActorContext) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, actor ActorContext, comment *string) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*CancelResult, error)
}

type service struct {
	repo               Repository
	tx                 txRunner
	outbox             outboxPublisher
	cancellationWindow time.Duration
	now                func() time.Time
}

// NewService builds the orders service.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, cancellationWindow time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cancellationWindow <= 0 {
		cancellationWindow = 72 * time.Hour
	}
	return &service{
		repo:               repo,
		tx:                 tx,
		outbox:             publisher,
		cancellationWindow: cancellationWindow,
		now:                time.Now,
	}, nil
}

// forwardRank orders the fulfillment states. Cancelled is excluded; it is a
// branch, not a step.
var forwardRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:    0,
	enums.OrderStatusConfirmed:  1,
	enums.OrderStatusProcessing: 2,
	enums.OrderStatusShipped:    3,
	enums.OrderStatusDelivered:  4,
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor ActorContext) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var (
		order *models.Order
		err   error
	)
	if actor.Actor == enums.ActorUser {
		order, err = s.repo.FindByIDForUser(ctx, orderID, actor.UserID)
	} else {
		order, err = s.repo.FindByID(ctx, orderID, false)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

// UpdateStatus advances the fulfillment status one step forward. Payment must
// have settled before an order may leave pending. Cancellation has its own
// entry point and is rejected here.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation to cancel an order")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", input.Status)
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s and cannot change status", order.Status)
		}
		from, to := forwardRank[order.Status], forwardRank[input.Status]
		if to != from+1 {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, input.Status)
		}
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment required before order can progress")
		}

		if err := repo.UpdateFields(ctx, order.ID, map[string]any{
			"status":     input.Status,
			"updated_at": s.now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.InsertStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  input.Status,
			Actor:   input.Actor.Actor,
			Comment: input.Comment,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				FromStatus:  order.Status,
				ToStatus:    input.Status,
				Actor:       input.Actor.Actor,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
		}

		order.Status = input.Status
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkPaid settles payment outside the gateway flow, typically cash collected
// on delivery. Stock is committed here if checkout deferred it.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, actor ActorContext, comment *string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			updated = order
			return nil
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled order cannot be marked paid")
		}
		if order.PaymentStatus == enums.PaymentStatusRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refunded order cannot be marked paid")
		}

		fields := map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"updated_at":     s.now(),
		}
		if !order.StockCommitted {
			if err := inventory.Reserve(ctx, tx, reservationsFor(order.Items)); err != nil {
				return err
			}
			fields["stock_committed"] = true
		}
		if err := repo.UpdateFields(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if err := repo.InsertPaymentHistory(ctx, &models.OrderPaymentHistory{
			OrderID:       order.ID,
			PaymentStatus: enums.PaymentStatusPaid,
			Actor:         actor.Actor,
			Comment:       comment,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment history")
		}

		paidAt := s.now()
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				AmountCents: order.GrandTotalCents,
				PaidAt:      paidAt,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit paid event")
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.StockCommitted = true
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel transitions the order to cancelled, restoring stock only when this
// order actually holds it. Replaying a cancel is a no-op.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*CancelResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *CancelResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if input.Actor.Actor == enums.ActorUser && order.UserID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusCancelled {
			result = &CancelResult{AlreadyCancelled: true}
			return nil
		}
		if order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered order cannot be cancelled")
		}
		if input.Actor.Actor == enums.ActorUser {
			if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
				return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s cannot be cancelled by the buyer", order.Status)
			}
			if s.now().Sub(order.CreatedAt) > s.cancellationWindow {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation window has expired")
			}
		}

		now := s.now()
		fields := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}

		restocked := false
		if order.StockCommitted {
			if err := inventory.Release(ctx, tx, reservationsFor(order.Items)); err != nil {
				return err
			}
			fields["stock_committed"] = false
			restocked = true
		}

		refunded := false
		if order.PaymentStatus == enums.PaymentStatusPaid {
			fields["payment_status"] = enums.PaymentStatusRefunded
			refunded = true
		}

		if err := repo.UpdateFields(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		reason := input.Reason
		var comment *string
		if reason != "" {
			comment = &reason
		}
		if err := repo.InsertStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  enums.OrderStatusCancelled,
			Actor:   input.Actor.Actor,
			Comment: comment,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}
		if refunded {
			if err := repo.InsertPaymentHistory(ctx, &models.OrderPaymentHistory{
				OrderID:       order.ID,
				PaymentStatus: enums.PaymentStatusRefunded,
				Actor:         input.Actor.Actor,
				Comment:       comment,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment history")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				CancelledAt: now,
				CancelledBy: input.Actor.Actor,
				Restocked:   restocked,
				Refunded:    refunded,
				Reason:      input.Reason,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cancel event")
		}

		result = &CancelResult{Restocked: restocked, Refunded: refunded}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func actorRef(actor ActorContext) *outbox.ActorRef {
	if actor.UserID == uuid.Nil && actor.Actor == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Actor)}
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
