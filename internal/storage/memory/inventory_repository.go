package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

// inventoryRepositoryInMemory — складской регистр в памяти. Один мьютекс на
// регистр: проверка и списание по всем позициям заказа проходят атомарно.
type inventoryRepositoryInMemory struct {
	mu     sync.Mutex
	levels map[string]domain.StockLevel
}

// NewInventoryRepository создаёт in-memory реализацию InventoryRepository.
func NewInventoryRepository() domain.InventoryRepository {
	return &inventoryRepositoryInMemory{
		levels: make(map[string]domain.StockLevel),
	}
}

// ReserveAndCommit атомарно списывает сток по всем позициям: сначала проверка
// available >= qty для каждой, затем списание. Частичных эффектов не остаётся.
func (r *inventoryRepositoryInMemory) ReserveAndCommit(adjustments []domain.StockAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, adj := range adjustments {
		level, ok := r.levels[adj.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if level.Available < adj.Qty {
			return domain.ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	for _, adj := range adjustments {
		level := r.levels[adj.ProductID]
		level.Available -= adj.Qty
		level.Sold += adj.Qty
		level.UpdatedAt = now
		r.levels[adj.ProductID] = level
	}
	return nil
}

// Release возвращает сток по позициям отменённого или возвращённого заказа.
func (r *inventoryRepositoryInMemory) Release(adjustments []domain.StockAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, adj := range adjustments {
		level, ok := r.levels[adj.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		level.Available += adj.Qty
		// Защитное ограничение: при соблюдении инвариантов sold сюда
		// отрицательным прийти не может.
		level.Sold -= adj.Qty
		if level.Sold < 0 {
			level.Sold = 0
		}
		level.UpdatedAt = now
		r.levels[adj.ProductID] = level
	}
	return nil
}

// Restock относительно пополняет доступный сток товара.
func (r *inventoryRepositoryInMemory) Restock(productID string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	level, ok := r.levels[productID]
	if !ok {
		level = domain.StockLevel{ProductID: productID}
	}
	level.Available += qty
	level.UpdatedAt = time.Now().UTC()
	r.levels[productID] = level
	return nil
}

// Get возвращает складскую запись товара или ErrProductNotFound.
func (r *inventoryRepositoryInMemory) Get(productID string) (domain.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	level, ok := r.levels[productID]
	if !ok {
		return domain.StockLevel{}, domain.ErrProductNotFound
	}
	return level, nil
}

var _ domain.InventoryRepository = (*inventoryRepositoryInMemory)(nil)
