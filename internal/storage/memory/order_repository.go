package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrVersionConflict
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// List возвращает страницу заказов по фильтру, новые первыми.
func (r *orderRepositoryInMemory) List(filter domain.OrderFilter) (domain.OrderPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if !matchesFilter(order, filter) {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return domain.OrderPage{
		Orders:   matched[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	r.items[order.ID] = cloneOrder(order)
	return nil
}

// CountsByStatus возвращает количество и сумму заказов продавца по статусам.
func (r *orderRepositoryInMemory) CountsByStatus(merchantID string) (map[domain.OrderStatus]domain.StatusCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[domain.OrderStatus]domain.StatusCount)
	for _, order := range r.items {
		if order.MerchantID != merchantID {
			continue
		}
		sc := result[order.Status]
		sc.Count++
		sc.AmountMinor += order.TotalMinor
		result[order.Status] = sc
	}
	return result, nil
}

// SalesSince возвращает сумму завершённых заказов продавца начиная с since.
func (r *orderRepositoryInMemory) SalesSince(merchantID string, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, order := range r.items {
		if order.MerchantID != merchantID || order.Status != domain.OrderStatusCompleted {
			continue
		}
		if order.UpdatedAt.Before(since) {
			continue
		}
		total += order.TotalMinor
	}
	return total, nil
}

func matchesFilter(order domain.Order, filter domain.OrderFilter) bool {
	switch filter.ActorType {
	case domain.ActorBuyer:
		if order.BuyerID != filter.ActorID {
			return false
		}
	case domain.ActorMerchant:
		if order.MerchantID != filter.ActorID {
			return false
		}
	}
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(order.Number), needle) &&
			!strings.Contains(strings.ToLower(order.Shipping.Receiver), needle) &&
			!strings.Contains(order.Shipping.Phone, filter.Search) {
			return false
		}
	}
	return true
}

func cloneOrder(order domain.Order) domain.Order {
	clone := order
	clone.Lines = make([]domain.OrderLine, len(order.Lines))
	copy(clone.Lines, order.Lines)
	clone.ActionLog = make([]domain.ActionEntry, len(order.ActionLog))
	copy(clone.ActionLog, order.ActionLog)
	return clone
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
