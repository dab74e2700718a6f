package idempotency_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/service/idempotency"
	"github.com/vladislavdragonenkov/fulfillment/internal/storage/memory"
)

func TestCleanupWorker_DeleteExpired(t *testing.T) {
	repo := memory.NewAppliedTransitionRepository()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("order-%d:cancelled", i)
		if _, err := repo.MarkApplied(key, key, domain.OrderStatusCancelled, now.Add(-time.Minute)); err != nil {
			t.Fatalf("mark %s: %v", key, err)
		}
	}
	if _, err := repo.MarkApplied("order-live:cancelled", "order-live", domain.OrderStatusCancelled, now.Add(time.Hour)); err != nil {
		t.Fatalf("mark live: %v", err)
	}

	// Batch меньше числа просроченных: воркер добирает всё за несколько проходов.
	worker := idempotency.NewCleanupWorker(repo, idempotency.WithBatchSize(2))
	deleted, err := worker.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 5 {
		t.Fatalf("expected 5 deleted, got %d", deleted)
	}

	// Живой ключ не удалён.
	first, _ := repo.MarkApplied("order-live:cancelled", "order-live", domain.OrderStatusCancelled, now.Add(time.Hour))
	if first {
		t.Fatal("live key must survive cleanup")
	}
}

func TestCleanupWorker_CancelledContext(t *testing.T) {
	repo := memory.NewAppliedTransitionRepository()
	worker := idempotency.NewCleanupWorker(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := worker.DeleteExpired(ctx, time.Now().UTC()); err == nil {
		t.Fatal("expected context error")
	}
}
