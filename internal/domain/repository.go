package domain

import "time"

// OrderFilter задаёт условия выборки заказов на read-стороне.
type OrderFilter struct {
	// ActorType и ActorID определяют, чьи заказы выбираются:
	// buyer — по BuyerID, merchant — по MerchantID.
	ActorType ActorType
	ActorID   string
	// Status фильтрует по статусу; пустое значение — все статусы.
	Status OrderStatus
	// Search ищет по номеру заказа, получателю и телефону (без учёта регистра).
	Search   string
	Page     int
	PageSize int
}

// OrderPage — одна страница выборки заказов.
type OrderPage struct {
	Orders   []Order
	Total    int
	Page     int
	PageSize int
}

// StatusCount — количество и сумма заказов одного статуса.
type StatusCount struct {
	Count       int
	AmountMinor int64
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// List возвращает страницу заказов по фильтру, новые первыми.
	List(filter OrderFilter) (OrderPage, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
	// CountsByStatus возвращает количество и сумму заказов продавца по статусам.
	CountsByStatus(merchantID string) (map[OrderStatus]StatusCount, error)
	// SalesSince возвращает сумму завершённых заказов продавца начиная с since.
	SalesSince(merchantID string, since time.Time) (int64, error)
}

// ShipmentRepository описывает хранилище отправлений.
type ShipmentRepository interface {
	// Create сохраняет новую запись отправления.
	Create(shipment Shipment) error
	// Get возвращает отправление по идентификатору или ErrShipmentNotFound.
	Get(id string) (Shipment, error)
	// GetByOrderID возвращает актуальное отправление заказа (последнее созданное).
	GetByOrderID(orderID string) (Shipment, error)
	// Save применяет обновления с учётом optimistic locking.
	Save(shipment Shipment) error
}

// InventoryRepository описывает складской регистр. Оба счётчика меняются
// только относительными операциями, вызов за вызовом — без абсолютных записей.
type InventoryRepository interface {
	// ReserveAndCommit атомарно списывает сток по всем позициям: либо каждая
	// позиция проходит проверку available >= qty и списывается, либо ни одна
	// (ErrInsufficientStock, без частичных эффектов).
	ReserveAndCommit(adjustments []StockAdjustment) error
	// Release возвращает сток по отменённому или возвращённому заказу;
	// sold уменьшается с защитным ограничением снизу нулём.
	Release(adjustments []StockAdjustment) error
	// Restock относительно пополняет доступный сток товара (приём поставки).
	Restock(productID string, qty int32) error
	// Get возвращает складскую запись товара или ErrProductNotFound.
	Get(productID string) (StockLevel, error)
}
