package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/teakline/storefront-backend/internal/orders"
	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	"github.com/teakline/storefront-backend/pkg/logger"
	"github.com/teakline/storefront-backend/pkg/outbox"
	"github.com/teakline/storefront-backend/pkg/outbox/payloads"
)

const (
	defaultUnpaidOrderTTL = 48 * time.Hour
	expireSweepBatchSize  = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderTTLJobParams configure the unpaid order expiry sweep.
type OrderTTLJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	OrdersRepo orders.Repository
	Outbox     outboxEmitter
	TTL        time.Duration
}

// NewOrderTTLJob builds the cron job that cancels gateway orders whose
// payment never arrived. Stock was not committed for these orders, so the
// sweep only flips status and emits the expiry event.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidOrderTTL
	}
	return &orderTTLJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.OrdersRepo,
		outbox: params.Outbox,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   orders.Repository
	outbox outboxEmitter
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.repo.ListUnpaidGatewayBefore(ctx, cutoff, expireSweepBatchSize)
	if err != nil {
		return fmt.Errorf("query unpaid gateway orders: %w", err)
	}

	var errs []error
	expired := 0
	for _, order := range stale {
		if err := j.expireOrder(ctx, order); err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": expired})
	j.logg.Info(logCtx, "unpaid order expiry sweep complete")
	return multierr.Combine(errs...)
}

// expireOrder re-reads the order under lock; a payment that settled between
// the sweep query and this transaction wins.
func (j *orderTTLJob) expireOrder(ctx context.Context, order models.Order) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, order.ID, true)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}
		if current.PaymentStatus == enums.PaymentStatusPaid ||
			current.Status == enums.OrderStatusCancelled {
			return nil
		}

		now := j.now().UTC()
		if err := repo.UpdateFields(ctx, current.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}
		comment := "payment window expired"
		if err := repo.InsertStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID: current.ID,
			Status:  enums.OrderStatusCancelled,
			Actor:   enums.ActorSystem,
			Comment: &comment,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderExpiredEvent{
				OrderID:     current.ID,
				OrderNumber: current.OrderNumber,
				UserID:      current.UserID,
				ExpiredAt:   now,
				TTLHours:    int(j.ttl / time.Hour),
			},
		}
		return j.outbox.Emit(ctx, tx, event)
	})
}
