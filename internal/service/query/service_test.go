package query

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/storage/memory"
)

func seedOrder(t *testing.T, orders domain.OrderRepository, id, buyerID, merchantID string, status domain.OrderStatus, total int64, updatedAt time.Time) {
	t.Helper()
	err := orders.Create(domain.Order{
		ID:         id,
		Number:     "N" + id,
		BuyerID:    buyerID,
		MerchantID: merchantID,
		Status:     status,
		Lines: []domain.OrderLine{
			{ID: id + "-line", ProductID: "product-1", PriceMinor: total, Qty: 1, SubtotalMinor: total},
		},
		TotalMinor: total,
		Shipping:   domain.ShippingSnapshot{Receiver: "Alex", Phone: "+100000000"},
		CreatedAt:  updatedAt,
		UpdatedAt:  updatedAt,
	})
	if err != nil {
		t.Fatalf("seed order %s: %v", id, err)
	}
}

func TestGetOrder_Visibility(t *testing.T) {
	orders := memory.NewOrderRepository()
	shipments := memory.NewShipmentRepository()
	svc := NewService(orders, shipments, nil)

	seedOrder(t, orders, "order-1", "buyer-1", "merchant-1", domain.OrderStatusShipped, 100, time.Now().UTC())
	if err := shipments.Create(domain.Shipment{ID: "shipment-1", OrderID: "order-1", Carrier: "DHL", TrackingNumber: "T1", Status: domain.ShipmentStatusShipped}); err != nil {
		t.Fatalf("seed shipment: %v", err)
	}

	view, err := svc.GetOrder("order-1", domain.ActorBuyer, "buyer-1")
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if view.Shipment == nil || view.Shipment.ID != "shipment-1" {
		t.Fatalf("expected shipment attached, got %+v", view.Shipment)
	}

	if _, err := svc.GetOrder("order-1", domain.ActorMerchant, "merchant-1"); err != nil {
		t.Fatalf("merchant get: %v", err)
	}
	if _, err := svc.GetOrder("order-1", domain.ActorSystem, ""); err != nil {
		t.Fatalf("system get: %v", err)
	}

	// Чужой заказ неотличим от несуществующего.
	if _, err := svc.GetOrder("order-1", domain.ActorBuyer, "buyer-2"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("foreign buyer: expected ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.GetOrder("order-1", domain.ActorMerchant, "merchant-2"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("foreign merchant: expected ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.GetOrder("order-1", "robot", "x"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("unknown actor: expected ErrOrderNotFound, got %v", err)
	}
}

func TestGetOrder_WithoutShipment(t *testing.T) {
	orders := memory.NewOrderRepository()
	svc := NewService(orders, memory.NewShipmentRepository(), nil)
	seedOrder(t, orders, "order-1", "buyer-1", "merchant-1", domain.OrderStatusPaid, 100, time.Now().UTC())

	view, err := svc.GetOrder("order-1", domain.ActorBuyer, "buyer-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Shipment != nil {
		t.Fatalf("expected nil shipment, got %+v", view.Shipment)
	}
}

func TestGetMerchantStats_Windows(t *testing.T) {
	orders := memory.NewOrderRepository()
	svc := NewService(orders, memory.NewShipmentRepository(), nil)

	// Фиксированное "сейчас", чтобы окна были детерминированы.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seedOrder(t, orders, "order-1", "buyer-1", "merchant-1", domain.OrderStatusCompleted, 100, now.Add(-time.Hour))
	seedOrder(t, orders, "order-2", "buyer-1", "merchant-1", domain.OrderStatusCompleted, 200, now.AddDate(0, 0, -3))
	seedOrder(t, orders, "order-3", "buyer-1", "merchant-1", domain.OrderStatusCompleted, 400, now.AddDate(0, 0, -20))
	seedOrder(t, orders, "order-4", "buyer-1", "merchant-1", domain.OrderStatusCompleted, 800, now.AddDate(0, 0, -40))
	// Незавершённые заказы в продажи не входят.
	seedOrder(t, orders, "order-5", "buyer-1", "merchant-1", domain.OrderStatusShipped, 1600, now)

	stats, err := svc.GetMerchantStats("merchant-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TodaySalesMinor != 100 {
		t.Fatalf("today: expected 100, got %d", stats.TodaySalesMinor)
	}
	if stats.WeekSalesMinor != 300 {
		t.Fatalf("week: expected 300, got %d", stats.WeekSalesMinor)
	}
	if stats.MonthSalesMinor != 700 {
		t.Fatalf("month: expected 700, got %d", stats.MonthSalesMinor)
	}
	if stats.ByStatus[domain.OrderStatusCompleted].Count != 4 {
		t.Fatalf("completed count: %+v", stats.ByStatus[domain.OrderStatusCompleted])
	}
	if stats.ByStatus[domain.OrderStatusShipped].Count != 1 {
		t.Fatalf("shipped count: %+v", stats.ByStatus[domain.OrderStatusShipped])
	}
}

func TestGetMerchantStats_RequiresMerchant(t *testing.T) {
	svc := NewService(memory.NewOrderRepository(), memory.NewShipmentRepository(), nil)
	if _, err := svc.GetMerchantStats(""); !errors.Is(err, domain.ErrMerchantRequired) {
		t.Fatalf("expected ErrMerchantRequired, got %v", err)
	}
}
