package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

// shipmentRepositoryInMemory хранит отправления в памяти (для разработки/тестов).
type shipmentRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Shipment
	// byOrder хранит идентификаторы отправлений заказа в порядке создания:
	// последняя запись — актуальная (повторная отгрузка после exception).
	byOrder map[string][]string
}

// NewShipmentRepository создаёт in-memory реализацию ShipmentRepository.
func NewShipmentRepository() domain.ShipmentRepository {
	return &shipmentRepositoryInMemory{
		items:   make(map[string]domain.Shipment),
		byOrder: make(map[string][]string),
	}
}

// Create сохраняет новую запись отправления.
func (r *shipmentRepositoryInMemory) Create(shipment domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[shipment.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.items[shipment.ID] = cloneShipment(shipment)
	r.byOrder[shipment.OrderID] = append(r.byOrder[shipment.OrderID], shipment.ID)
	return nil
}

// Get возвращает отправление или ErrShipmentNotFound.
func (r *shipmentRepositoryInMemory) Get(id string) (domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shipment, ok := r.items[id]
	if !ok {
		return domain.Shipment{}, domain.ErrShipmentNotFound
	}
	return cloneShipment(shipment), nil
}

// GetByOrderID возвращает актуальное (последнее созданное) отправление заказа.
func (r *shipmentRepositoryInMemory) GetByOrderID(orderID string) (domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byOrder[orderID]
	if len(ids) == 0 {
		return domain.Shipment{}, domain.ErrShipmentNotFound
	}
	return cloneShipment(r.items[ids[len(ids)-1]]), nil
}

// Save перезаписывает отправление, проверяя версию (optimistic locking).
func (r *shipmentRepositoryInMemory) Save(shipment domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[shipment.ID]
	if !ok {
		return domain.ErrShipmentNotFound
	}
	if current.Version != shipment.Version {
		return domain.ErrVersionConflict
	}
	shipment.Version++
	r.items[shipment.ID] = cloneShipment(shipment)
	return nil
}

func cloneShipment(shipment domain.Shipment) domain.Shipment {
	clone := shipment
	clone.Events = make([]domain.TrackingEvent, len(shipment.Events))
	copy(clone.Events, shipment.Events)
	return clone
}

var _ domain.ShipmentRepository = (*shipmentRepositoryInMemory)(nil)
