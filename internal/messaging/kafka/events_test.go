package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
)

func TestNewPaymentEvent(t *testing.T) {
	event := NewPaymentEvent(EventTypePaymentSucceeded, "order-1", "payment-1")

	if event.EventType != EventTypePaymentSucceeded {
		t.Fatalf("unexpected event type: %s", event.EventType)
	}
	if event.OrderID != "order-1" || event.PaymentID != "payment-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Timestamp.IsZero() {
		t.Fatal("timestamp must be set")
	}
}

func TestParsePaymentEvent(t *testing.T) {
	payload, err := json.Marshal(NewPaymentEvent(EventTypePaymentTimeout, "order-1", ""))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	event, err := ParsePaymentEvent(&sarama.ConsumerMessage{Value: payload})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.EventType != EventTypePaymentTimeout || event.OrderID != "order-1" {
		t.Fatalf("unexpected event: %+v", event)
	}

	if _, err := ParsePaymentEvent(&sarama.ConsumerMessage{Value: []byte("not-json")}); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
