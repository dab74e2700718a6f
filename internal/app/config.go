package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Драйверы хранилища.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	// HTTPAddr — адрес основного API.
	HTTPAddr string
	// MetricsAddr — адрес для /metrics и health-проб.
	MetricsAddr string

	// StorageDriver — memory или postgres.
	StorageDriver string
	// PostgresDSN используется при StorageDriver=postgres.
	PostgresDSN string

	// KafkaBrokers — список брокеров через запятую; пустое значение
	// отключает Kafka, события остаются в outbox.
	KafkaBrokers string
	// OrderEventsTopic — topic для событий переходов заказа.
	OrderEventsTopic string
	// DLQTopic — topic для сообщений, не доставленных после всех ретраев.
	DLQTopic string
	// PaymentGroupID — consumer group для входящих платёжных событий.
	PaymentGroupID string

	// OutboxPollInterval — период опроса transactional outbox.
	OutboxPollInterval time.Duration
	// OutboxBatchSize — размер батча outbox worker.
	OutboxBatchSize int

	// AppliedCleanupInterval — период очистки ключей применённых переходов.
	AppliedCleanupInterval time.Duration
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:               ":8080",
		MetricsAddr:            ":9090",
		StorageDriver:          StorageMemory,
		OrderEventsTopic:       "fulfillment.order.events",
		DLQTopic:               "fulfillment.dlq",
		PaymentGroupID:         "fulfillment-payment-consumer",
		OutboxPollInterval:     time.Second,
		OutboxBatchSize:        100,
		AppliedCleanupInterval: 10 * time.Minute,
	}
}

// LoadConfig собирает конфигурацию из окружения поверх значений по умолчанию.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("ORDER_EVENTS_TOPIC"); v != "" {
		cfg.OrderEventsTopic = v
	}
	if v := os.Getenv("DLQ_TOPIC"); v != "" {
		cfg.DLQTopic = v
	}
	if v := os.Getenv("PAYMENT_GROUP_ID"); v != "" {
		cfg.PaymentGroupID = v
	}
	if v := os.Getenv("OUTBOX_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse OUTBOX_POLL_INTERVAL: %w", err)
		}
		cfg.OutboxPollInterval = d
	}
	if v := os.Getenv("OUTBOX_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse OUTBOX_BATCH_SIZE: %w", err)
		}
		cfg.OutboxBatchSize = n
	}
	if v := os.Getenv("APPLIED_CLEANUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse APPLIED_CLEANUP_INTERVAL: %w", err)
		}
		cfg.AppliedCleanupInterval = d
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for storage driver %q", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address must not be empty")
	}
	return nil
}
