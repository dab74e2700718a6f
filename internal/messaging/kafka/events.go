package kafka

import (
	"time"
)

// EventType определяет тип события
type EventType string

const (
	// Payment события (входящие от платёжного сервиса)
	EventTypePaymentSucceeded EventType = "payment.succeeded"
	EventTypePaymentTimeout   EventType = "payment.timeout"
	EventTypePaymentRefunded  EventType = "payment.refunded"

	// Order события (исходящие, через outbox)
	EventTypeOrderPlaced    EventType = "order.placed"
	EventTypeOrderPaid      EventType = "order.paid"
	EventTypeOrderShipped   EventType = "order.shipped"
	EventTypeOrderCompleted EventType = "order.completed"
	EventTypeOrderCancelled EventType = "order.cancelled"
	EventTypeOrderRefunded  EventType = "order.refunded"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "fulfillment.order.events"
	TopicPaymentEvents   = "fulfillment.payment.events"
	TopicDeadLetterQueue = "fulfillment.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// PaymentEvent — событие платёжного сервиса, переводящее заказ из
// pending_payment дальше по жизненному циклу.
type PaymentEvent struct {
	EventType EventType `json:"event_type"`
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPaymentEvent создаёт событие платёжного сервиса.
func NewPaymentEvent(eventType EventType, orderID, paymentID string) *PaymentEvent {
	return &PaymentEvent{
		EventType: eventType,
		OrderID:   orderID,
		PaymentID: paymentID,
		Timestamp: time.Now().UTC(),
	}
}
