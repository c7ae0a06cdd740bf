package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teakline/storefront-backend/pkg/config"
	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	"github.com/teakline/storefront-backend/pkg/logger"
	"github.com/teakline/storefront-backend/pkg/metrics"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
)

type txRunner interface {
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.inner.Publish(ctx, msg)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxRepository
	DLQRepository dlqRepository
	Publisher     publisher
	Metrics       *metrics.OutboxPublisherMetrics
}

// Service drains outbox_events into the orders topic. Events that exhaust
// their attempts land in outbox_dlq and stop blocking the queue.
type Service struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxRepository
	dlq          dlqRepository
	publisher    publisher
	metrics      *metrics.OutboxPublisherMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.DLQRepository == nil {
		return nil, errors.New("dlq repository is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	batchSize := params.Config.Outbox.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		dlq:          params.DLQRepository,
		publisher:    params.Publisher,
		metrics:      params.Metrics,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.runBatch(ctx); err != nil {
				s.logg.Error(ctx, "outbox batch failed", err)
			}
		}
	}
}

func (s *Service) runBatch(ctx context.Context) error {
	start := time.Now()
	events, err := s.repo.FetchUnpublished(s.batchSize)
	if err != nil {
		return fmt.Errorf("fetch unpublished events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		s.handleEvent(ctx, event)
	}

	if s.metrics != nil {
		s.metrics.ObserveBatch(time.Since(start))
	}
	return nil
}

func (s *Service) handleEvent(ctx context.Context, event models.OutboxEvent) {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := s.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       event.ID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
		},
	})

	if _, err := result.Get(publishCtx); err != nil {
		s.handlePublishFailure(ctx, event, err)
		return
	}

	if err := s.repo.MarkPublished(event.ID); err != nil {
		// The event will republish next cycle; consumers dedupe on event_id.
		s.logg.Error(ctx, "mark published failed", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncPublished(string(event.EventType))
	}
}

func (s *Service) handlePublishFailure(ctx context.Context, event models.OutboxEvent, pubErr error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID.String(),
		"event_type": string(event.EventType),
		"attempts":   event.AttemptCount + 1,
	})

	if event.AttemptCount+1 < s.maxAttempts {
		s.logg.Warn(logCtx, "publish failed, will retry")
		if err := s.repo.MarkFailed(event.ID, pubErr); err != nil {
			s.logg.Error(logCtx, "mark failed errored", err)
		}
		if s.metrics != nil {
			s.metrics.IncFailed(string(event.EventType))
		}
		return
	}

	message := pubErr.Error()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   enums.DLQReasonMaxAttempts,
			ErrorMessage:  &message,
			AttemptCount:  event.AttemptCount + 1,
		}); err != nil {
			return err
		}
		return s.repo.MarkTerminalTx(tx, event.ID, pubErr)
	})
	if err != nil {
		s.logg.Error(logCtx, "dead-letter write failed", err)
		return
	}

	s.logg.Error(logCtx, "event dead-lettered after max attempts", pubErr)
	if s.metrics != nil {
		s.metrics.IncDeadLettered()
	}
}
