package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

// appliedRepositoryInMemory хранит ключи применённых переходов в памяти.
type appliedRepositoryInMemory struct {
	mu    sync.Mutex
	items map[string]domain.AppliedTransition
}

// NewAppliedTransitionRepository создаёт in-memory реализацию AppliedTransitionRepository.
func NewAppliedTransitionRepository() domain.AppliedTransitionRepository {
	return &appliedRepositoryInMemory{
		items: make(map[string]domain.AppliedTransition),
	}
}

// MarkApplied регистрирует ключ перехода. Возвращает false, если переход
// с таким ключом уже применялся.
func (r *appliedRepositoryInMemory) MarkApplied(key, orderID string, to domain.OrderStatus, ttlAt time.Time) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, domain.ErrAppliedKeyRequired
	}

	now := time.Now().UTC()
	if ttlAt.IsZero() {
		ttlAt = now.Add(24 * time.Hour)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[key]; exists {
		return false, nil
	}

	r.items[key] = domain.AppliedTransition{
		Key:       key,
		OrderID:   orderID,
		ToStatus:  to,
		TTLAt:     ttlAt,
		AppliedAt: now,
	}
	return true, nil
}

// DeleteExpired удаляет до limit записей с истёкшим TTL.
func (r *appliedRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, record := range r.items {
		if record.TTLAt.After(before) {
			continue
		}
		delete(r.items, key)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}
	return removed, nil
}

var _ domain.AppliedTransitionRepository = (*appliedRepositoryInMemory)(nil)
