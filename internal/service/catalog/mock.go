package catalog

import (
	"sync"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

// MockService — конфигурируемая заглушка CatalogService. Используется в тестах
// и как статический каталог для локального запуска без внешнего сервиса.
type MockService struct {
	mu sync.RWMutex

	products map[string]domain.Product

	GetErr   error
	GetCalls int
}

// NewMockService возвращает mock с пустым каталогом.
func NewMockService() *MockService {
	return &MockService{products: make(map[string]domain.Product)}
}

// Add регистрирует товар в каталоге.
func (m *MockService) Add(product domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
}

// GetProduct возвращает карточку товара, заранее настроенную ошибку либо
// ErrProductNotFound.
func (m *MockService) GetProduct(productID string) (domain.Product, error) {
	m.mu.Lock()
	m.GetCalls++
	m.mu.Unlock()

	if m.GetErr != nil {
		return domain.Product{}, m.GetErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	product, ok := m.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

var _ domain.CatalogService = (*MockService)(nil)
