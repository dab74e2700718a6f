package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/service/catalog"
	"github.com/vladislavdragonenkov/fulfillment/internal/storage/memory"
	"github.com/vladislavdragonenkov/fulfillment/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Orders    domain.OrderRepository
	Shipments domain.ShipmentRepository
	Inventory domain.InventoryRepository
	Outbox    domain.OutboxRepository
	Applied   domain.AppliedTransitionRepository
	Catalog   domain.CatalogService
	Logger    *log.Entry

	store *postgres.Store
}

// NewDependencies собирает зависимости под выбранный драйвер хранилища.
// NOTE: каталог товаров пока mock; в production его заменяет клиент
// сервиса каталога.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Catalog: catalog.NewMockService(),
		Logger:  logger,
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Shipments = postgres.NewShipmentRepository(store)
		deps.Inventory = postgres.NewInventoryRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Applied = postgres.NewAppliedTransitionRepository(store)
		logger.Info("postgres storage initialized")
	default:
		deps.Orders = memory.NewOrderRepository()
		deps.Shipments = memory.NewShipmentRepository()
		deps.Inventory = memory.NewInventoryRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Applied = memory.NewAppliedTransitionRepository()
		logger.Info("in-memory storage initialized")
	}

	return deps, nil
}

// Store возвращает postgres store, если он используется.
func (d *Dependencies) Store() *postgres.Store {
	return d.store
}

// Close освобождает внешние ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
