package enums

// OutboxEventType is the canonical event_type stored in outbox_events.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderPaid          OutboxEventType = "order.paid"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
	EventOrderExpired       OutboxEventType = "order.expired"
)

// OutboxAggregateType is the canonical aggregate_type stored in outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

// OutboxDLQErrorReason classifies terminal outbox failures.
type OutboxDLQErrorReason string

const (
	DLQReasonPublishFailed OutboxDLQErrorReason = "publish_failed"
	DLQReasonMaxAttempts   OutboxDLQErrorReason = "max_attempts_exceeded"
)
