package memory_test

import (
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/storage/memory"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := memory.NewOutboxRepository()

	for i := 0; i < 3; i++ {
		msg := domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   fmt.Sprintf("order-%d", i),
			EventType:     "OrderPaid",
			Payload:       []byte(`{}`),
		}
		saved, err := repo.Enqueue(msg)
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if saved.ID == "" {
			t.Fatal("expected generated message id")
		}
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending messages, got %d", len(pending))
	}

	// Лимит соблюдается.
	limited, _ := repo.PullPending(2)
	if len(limited) != 2 {
		t.Fatalf("expected 2 messages with limit, got %d", len(limited))
	}
}

func TestOutboxRepository_MarkSentRemovesFromPending(t *testing.T) {
	repo := memory.NewOutboxRepository()

	first, _ := repo.Enqueue(domain.OutboxMessage{AggregateType: "order", AggregateID: "order-1", EventType: "OrderPlaced"})
	second, _ := repo.Enqueue(domain.OutboxMessage{AggregateType: "order", AggregateID: "order-2", EventType: "OrderPlaced"})

	if err := repo.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	pending, _ := repo.PullPending(10)
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("expected only second message pending, got %+v", pending)
	}

	if err := repo.MarkFailed(second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	pending, _ = repo.PullPending(10)
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}

	if err := repo.MarkSent("missing"); err == nil {
		t.Fatal("expected error for unknown message id")
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := memory.NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("empty repo stats: %+v", stats)
	}

	first, _ := repo.Enqueue(domain.OutboxMessage{AggregateType: "order", AggregateID: "order-1", EventType: "OrderPlaced"})
	repo.Enqueue(domain.OutboxMessage{AggregateType: "order", AggregateID: "order-2", EventType: "OrderPlaced"})

	stats, _ = repo.Stats()
	if stats.PendingCount != 2 {
		t.Fatalf("expected 2 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("expected oldest pending timestamp")
	}

	repo.MarkSent(first.ID)
	stats, _ = repo.Stats()
	if stats.PendingCount != 1 {
		t.Fatalf("expected 1 pending after mark, got %d", stats.PendingCount)
	}
}
