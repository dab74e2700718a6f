package memory_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/storage/memory"
)

func makeOrder(id, buyerID, merchantID string, status domain.OrderStatus, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:         id,
		Number:     "N" + id,
		BuyerID:    buyerID,
		MerchantID: merchantID,
		Status:     status,
		Lines: []domain.OrderLine{
			{ID: id + "-line", ProductID: "product-1", PriceMinor: 100, Qty: 1, SubtotalMinor: 100},
		},
		TotalMinor: 100,
		Shipping:   domain.ShippingSnapshot{Receiver: "Alex", Phone: "+100000000"},
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := makeOrder("order-1", "buyer-1", "merchant-1", domain.OrderStatusPendingPayment, time.Now().UTC())

	if err := repo.Create(order); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(order); !domain.IsVersionConflict(err) {
		t.Fatalf("duplicate create: expected version conflict, got %v", err)
	}

	got, err := repo.Get("order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != order.ID || got.Status != order.Status || len(got.Lines) != 1 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_GetReturnsCopy(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := makeOrder("order-1", "buyer-1", "merchant-1", domain.OrderStatusPendingPayment, time.Now().UTC())
	if err := repo.Create(order); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := repo.Get("order-1")
	got.Lines[0].Qty = 99
	got.Status = domain.OrderStatusCancelled

	fresh, _ := repo.Get("order-1")
	if fresh.Lines[0].Qty != 1 || fresh.Status != domain.OrderStatusPendingPayment {
		t.Fatalf("stored order mutated through returned copy: %+v", fresh)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := makeOrder("order-1", "buyer-1", "merchant-1", domain.OrderStatusPendingPayment, time.Now().UTC())
	if err := repo.Create(order); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := repo.Get("order-1")
	second, _ := repo.Get("order-1")

	first.Status = domain.OrderStatusPaid
	if err := repo.Save(first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second.Status = domain.OrderStatusCancelled
	if err := repo.Save(second); !domain.IsVersionConflict(err) {
		t.Fatalf("stale save: expected version conflict, got %v", err)
	}

	got, _ := repo.Get("order-1")
	if got.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid after conflict, got %s", got.Status)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
}

func TestOrderRepository_ListFilters(t *testing.T) {
	repo := memory.NewOrderRepository()
	base := time.Now().UTC()

	orders := []domain.Order{
		makeOrder("order-1", "buyer-1", "merchant-1", domain.OrderStatusPendingPayment, base),
		makeOrder("order-2", "buyer-1", "merchant-2", domain.OrderStatusCompleted, base.Add(time.Minute)),
		makeOrder("order-3", "buyer-2", "merchant-1", domain.OrderStatusCompleted, base.Add(2*time.Minute)),
	}
	orders[2].Shipping.Receiver = "Maria"
	for _, order := range orders {
		if err := repo.Create(order); err != nil {
			t.Fatalf("create %s: %v", order.ID, err)
		}
	}

	page, err := repo.List(domain.OrderFilter{ActorType: domain.ActorBuyer, ActorID: "buyer-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("buyer-1: expected 2 orders, got %d", page.Total)
	}
	// Новые первыми.
	if page.Orders[0].ID != "order-2" {
		t.Fatalf("expected newest first, got %s", page.Orders[0].ID)
	}

	page, _ = repo.List(domain.OrderFilter{ActorType: domain.ActorMerchant, ActorID: "merchant-1", Status: domain.OrderStatusCompleted})
	if page.Total != 1 || page.Orders[0].ID != "order-3" {
		t.Fatalf("merchant-1 completed: unexpected page %+v", page)
	}

	page, _ = repo.List(domain.OrderFilter{ActorType: domain.ActorMerchant, ActorID: "merchant-1", Search: "maria"})
	if page.Total != 1 || page.Orders[0].ID != "order-3" {
		t.Fatalf("search by receiver: unexpected page %+v", page)
	}

	page, _ = repo.List(domain.OrderFilter{ActorType: domain.ActorBuyer, ActorID: "buyer-1", Search: "Norder-2"})
	if page.Total != 1 || page.Orders[0].ID != "order-2" {
		t.Fatalf("search by number: unexpected page %+v", page)
	}
}

func TestOrderRepository_ListPagination(t *testing.T) {
	repo := memory.NewOrderRepository()
	base := time.Now().UTC()
	for i := 0; i < 25; i++ {
		order := makeOrder(fmt.Sprintf("order-%02d", i), "buyer-1", "merchant-1", domain.OrderStatusPendingPayment, base.Add(time.Duration(i)*time.Second))
		if err := repo.Create(order); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := repo.List(domain.OrderFilter{ActorType: domain.ActorBuyer, ActorID: "buyer-1", Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 25 || len(page.Orders) != 5 {
		t.Fatalf("expected total 25 and last page of 5, got total=%d len=%d", page.Total, len(page.Orders))
	}

	// Страница за пределами выборки пуста, а не ошибка.
	page, _ = repo.List(domain.OrderFilter{ActorType: domain.ActorBuyer, ActorID: "buyer-1", Page: 10, PageSize: 10})
	if len(page.Orders) != 0 || page.Total != 25 {
		t.Fatalf("out-of-range page: %+v", page)
	}
}

func TestOrderRepository_CountsByStatus(t *testing.T) {
	repo := memory.NewOrderRepository()
	base := time.Now().UTC()

	first := makeOrder("order-1", "buyer-1", "merchant-1", domain.OrderStatusCompleted, base)
	second := makeOrder("order-2", "buyer-2", "merchant-1", domain.OrderStatusCompleted, base)
	second.TotalMinor = 250
	third := makeOrder("order-3", "buyer-1", "merchant-1", domain.OrderStatusShipped, base)
	other := makeOrder("order-4", "buyer-1", "merchant-2", domain.OrderStatusCompleted, base)

	for _, order := range []domain.Order{first, second, third, other} {
		if err := repo.Create(order); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	counts, err := repo.CountsByStatus("merchant-1")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	completed := counts[domain.OrderStatusCompleted]
	if completed.Count != 2 || completed.AmountMinor != 350 {
		t.Fatalf("completed: %+v", completed)
	}
	if counts[domain.OrderStatusShipped].Count != 1 {
		t.Fatalf("shipped: %+v", counts[domain.OrderStatusShipped])
	}
}

func TestOrderRepository_SalesSince(t *testing.T) {
	repo := memory.NewOrderRepository()
	now := time.Now().UTC()

	recent := makeOrder("order-1", "buyer-1", "merchant-1", domain.OrderStatusCompleted, now.Add(-time.Hour))
	recent.UpdatedAt = now.Add(-time.Hour)
	old := makeOrder("order-2", "buyer-1", "merchant-1", domain.OrderStatusCompleted, now.Add(-48*time.Hour))
	old.UpdatedAt = now.Add(-48 * time.Hour)
	pending := makeOrder("order-3", "buyer-1", "merchant-1", domain.OrderStatusShipped, now)

	for _, order := range []domain.Order{recent, old, pending} {
		if err := repo.Create(order); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	total, err := repo.SalesSince("merchant-1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if total != 100 {
		t.Fatalf("expected 100, got %d", total)
	}

	total, _ = repo.SalesSince("merchant-1", now.Add(-72*time.Hour))
	if total != 200 {
		t.Fatalf("expected 200 for wider window, got %d", total)
	}
}
