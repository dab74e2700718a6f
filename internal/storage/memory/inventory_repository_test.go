package memory_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/storage/memory"
)

func TestInventoryRepository_ReserveAndCommit(t *testing.T) {
	repo := memory.NewInventoryRepository()
	if err := repo.Restock("product-1", 10); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if err := repo.Restock("product-2", 5); err != nil {
		t.Fatalf("restock: %v", err)
	}

	err := repo.ReserveAndCommit([]domain.StockAdjustment{
		{ProductID: "product-1", Qty: 3},
		{ProductID: "product-2", Qty: 2},
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	level, _ := repo.Get("product-1")
	if level.Available != 7 || level.Sold != 3 {
		t.Fatalf("product-1: %+v", level)
	}
	level, _ = repo.Get("product-2")
	if level.Available != 3 || level.Sold != 2 {
		t.Fatalf("product-2: %+v", level)
	}
}

// Нехватка по одной позиции не должна оставлять частичных списаний по другим.
func TestInventoryRepository_ReserveAllOrNothing(t *testing.T) {
	repo := memory.NewInventoryRepository()
	if err := repo.Restock("product-1", 10); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if err := repo.Restock("product-2", 1); err != nil {
		t.Fatalf("restock: %v", err)
	}

	err := repo.ReserveAndCommit([]domain.StockAdjustment{
		{ProductID: "product-1", Qty: 5},
		{ProductID: "product-2", Qty: 2},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	level, _ := repo.Get("product-1")
	if level.Available != 10 || level.Sold != 0 {
		t.Fatalf("partial effect on product-1: %+v", level)
	}
}

func TestInventoryRepository_ReserveUnknownProduct(t *testing.T) {
	repo := memory.NewInventoryRepository()
	err := repo.ReserveAndCommit([]domain.StockAdjustment{{ProductID: "ghost", Qty: 1}})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestInventoryRepository_ReleaseClampsSold(t *testing.T) {
	repo := memory.NewInventoryRepository()
	if err := repo.Restock("product-1", 10); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if err := repo.ReserveAndCommit([]domain.StockAdjustment{{ProductID: "product-1", Qty: 2}}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// Возврат больше проданного: sold ограничивается нулём, available растёт.
	if err := repo.Release([]domain.StockAdjustment{{ProductID: "product-1", Qty: 5}}); err != nil {
		t.Fatalf("release: %v", err)
	}

	level, _ := repo.Get("product-1")
	if level.Available != 13 || level.Sold != 0 {
		t.Fatalf("after release: %+v", level)
	}
}

// Конкурентные списания по одному товару: суммарный эффект строго равен
// сумме успешных списаний, без гонок по счётчикам.
func TestInventoryRepository_ConcurrentReserve(t *testing.T) {
	repo := memory.NewInventoryRepository()
	if err := repo.Restock("product-1", 100); err != nil {
		t.Fatalf("restock: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int32
	)
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.ReserveAndCommit([]domain.StockAdjustment{{ProductID: "product-1", Qty: 1}}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 100 {
		t.Fatalf("expected exactly 100 successful reservations, got %d", succeeded)
	}
	level, _ := repo.Get("product-1")
	if level.Available != 0 || level.Sold != 100 {
		t.Fatalf("final level: %+v", level)
	}
}
