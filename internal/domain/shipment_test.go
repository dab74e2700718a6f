package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

func TestClassifyTracking(t *testing.T) {
	cases := []struct {
		description string
		want        domain.ShipmentStatus
	}{
		{"Package delivered to front door", domain.ShipmentStatusDelivered},
		{"Signed for by resident", domain.ShipmentStatusDelivered},
		{"Received by neighbour", domain.ShipmentStatusDelivered},
		{"In transit to destination hub", domain.ShipmentStatusInTransit},
		{"Out for delivery", domain.ShipmentStatusInTransit},
		{"Departed sorting facility", domain.ShipmentStatusInTransit},
		{"Arrived at local depot", domain.ShipmentStatusInTransit},
		{"Delivery failed: nobody home", domain.ShipmentStatusException},
		{"Package undeliverable", domain.ShipmentStatusException},
		{"Recipient refused the package", domain.ShipmentStatusException},
		{"Label created", ""},
		{"", ""},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			if got := domain.ClassifyTracking(tc.description); got != tc.want {
				t.Fatalf("ClassifyTracking(%q) = %q, want %q", tc.description, got, tc.want)
			}
		})
	}
}

// Описание со словами и доставки, и сбоя: ключевые слова доставки приоритетнее.
func TestClassifyTracking_DeliveredWinsOverException(t *testing.T) {
	got := domain.ClassifyTracking("delivered after previous delivery failed attempt")
	if got != domain.ShipmentStatusDelivered {
		t.Fatalf("expected delivered, got %q", got)
	}
}

func TestShipmentStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to domain.ShipmentStatus
	}{
		{domain.ShipmentStatusPending, domain.ShipmentStatusShipped},
		{domain.ShipmentStatusShipped, domain.ShipmentStatusInTransit},
		{domain.ShipmentStatusShipped, domain.ShipmentStatusDelivered},
		{domain.ShipmentStatusShipped, domain.ShipmentStatusException},
		{domain.ShipmentStatusInTransit, domain.ShipmentStatusDelivered},
		{domain.ShipmentStatusInTransit, domain.ShipmentStatusException},
		{domain.ShipmentStatusException, domain.ShipmentStatusReturned},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("%s -> %s must be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to domain.ShipmentStatus
	}{
		{domain.ShipmentStatusDelivered, domain.ShipmentStatusInTransit},
		{domain.ShipmentStatusReturned, domain.ShipmentStatusShipped},
		{domain.ShipmentStatusPending, domain.ShipmentStatusDelivered},
		{domain.ShipmentStatusInTransit, domain.ShipmentStatusReturned},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("%s -> %s must be denied", tc.from, tc.to)
		}
	}
}

func TestShipmentValidate(t *testing.T) {
	shipment := domain.Shipment{
		ID:             "shipment-1",
		OrderID:        "order-1",
		Carrier:        "DHL",
		TrackingNumber: "TRACK123",
		Status:         domain.ShipmentStatusShipped,
	}
	if errs := shipment.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	shipment.Carrier = ""
	shipment.TrackingNumber = ""
	errs := shipment.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestShipmentAppendEvent(t *testing.T) {
	shipment := domain.Shipment{ID: "shipment-1", OrderID: "order-1"}
	now := time.Now().UTC()

	shipment.AppendEvent("package handed over to carrier", "warehouse", now)
	shipment.AppendEvent("in transit", "hub", now.Add(time.Hour))

	if len(shipment.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(shipment.Events))
	}
	if shipment.Events[0].Location != "warehouse" {
		t.Fatalf("unexpected first event: %+v", shipment.Events[0])
	}
}
