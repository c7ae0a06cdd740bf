package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxPublisherMetrics tracks the publish loop of the outbox relay.
type OutboxPublisherMetrics struct {
	published   *prometheus.CounterVec
	failed      *prometheus.CounterVec
	deadLetters prometheus.Counter
	batchTime   prometheus.Histogram
}

// NewOutboxPublisherMetrics registers outbox relay metrics on the provided registerer.
func NewOutboxPublisherMetrics(reg prometheus.Registerer) *OutboxPublisherMetrics {
	if reg == nil {
		return &OutboxPublisherMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_published",
		Help:      "Outbox events successfully published, by event type.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_failed",
		Help:      "Outbox publish attempts that failed, by event type.",
	}, []string{"event_type"})
	deadLetters := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_dead_lettered",
		Help:      "Outbox events moved to the DLQ after exhausting attempts.",
	})
	batchTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_batch_duration_seconds",
		Help:      "Duration of one outbox poll-and-publish batch.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(published, failed, deadLetters, batchTime)
	return &OutboxPublisherMetrics{
		published:   published,
		failed:      failed,
		deadLetters: deadLetters,
		batchTime:   batchTime,
	}
}

// IncPublished increments the published counter for the event type.
func (m *OutboxPublisherMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (m *OutboxPublisherMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDeadLettered increments the DLQ counter.
func (m *OutboxPublisherMetrics) IncDeadLettered() {
	if m == nil || m.deadLetters == nil {
		return
	}
	m.deadLetters.Inc()
}

// ObserveBatch records the duration of a poll-and-publish batch.
func (m *OutboxPublisherMetrics) ObserveBatch(duration time.Duration) {
	if m == nil || m.batchTime == nil {
		return
	}
	m.batchTime.Observe(duration.Seconds())
}
