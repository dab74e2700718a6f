package lifecycle

import (
	"sync"
	"testing"
)

func TestOrderLocks_SerializesSameOrder(t *testing.T) {
	locks := newOrderLocks()

	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Acquire("order-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("expected %d increments under lock, got %d", workers, counter)
	}
	if len(locks.entries) != 0 {
		t.Fatalf("expected empty lock map after release, got %d entries", len(locks.entries))
	}
}

func TestOrderLocks_DifferentOrdersDoNotBlock(t *testing.T) {
	locks := newOrderLocks()

	unlockFirst := locks.Acquire("order-1")
	defer unlockFirst()

	done := make(chan struct{})
	go func() {
		unlock := locks.Acquire("order-2")
		unlock()
		close(done)
	}()

	// Захват по другому заказу не должен ждать освобождения order-1.
	<-done
}
