package domain

import "time"

// Product — срез карточки товара, который нужен при оформлении заказа.
// Цена и название копируются в позицию и после создания не перечитываются.
type Product struct {
	ID           string
	MerchantID   string
	Name         string
	ThumbnailURL string
	PriceMinor   int64
	Sellable     bool
}

// CatalogService описывает read-only взаимодействие с каталогом товаров.
// Используется только на этапе оформления заказа.
type CatalogService interface {
	// GetProduct возвращает карточку товара или ErrProductNotFound.
	GetProduct(productID string) (Product, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// AppliedTransitionRepository хранит ключи уже применённых переходов.
type AppliedTransitionRepository interface {
	// MarkApplied регистрирует ключ. Возвращает false, если переход с таким
	// ключом уже применялся ранее.
	MarkApplied(key string, orderID string, to OrderStatus, ttlAt time.Time) (bool, error)
	// DeleteExpired удаляет до limit записей с истёкшим TTL.
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
