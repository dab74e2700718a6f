package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics содержит метрики координатора жизненного цикла заказов.
type LifecycleMetrics struct {
	// Счётчики операций
	ordersPlaced     prometheus.Counter
	transitionsTotal *prometheus.CounterVec
	stockReleases    prometheus.Counter
	shipmentsCreated prometheus.Counter

	// Гистограммы времени выполнения
	commandDuration *prometheus.HistogramVec

	// Счётчики событий
	outboxEvents prometheus.Counter

	// Gauge для команд в обработке
	activeCommands prometheus.Gauge
}

// NewLifecycleMetrics создаёт новый экземпляр метрик координатора.
func NewLifecycleMetrics() *LifecycleMetrics {
	return newLifecycleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newLifecycleMetricsWithRegisterer(registerer prometheus.Registerer) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LifecycleMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_orders_placed_total",
			Help: "Total number of successfully placed orders",
		}),
		transitionsTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fulfillment_transitions_total",
			Help: "Total number of lifecycle commands grouped by action and result",
		}, []string{"action", "result"}),
		stockReleases: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_stock_releases_total",
			Help: "Total number of stock release operations on cancel/refund",
		}),
		shipmentsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_shipments_created_total",
			Help: "Total number of shipment records created on dispatch",
		}),
		commandDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "fulfillment_command_duration_seconds",
			Help:    "Duration of lifecycle command processing in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"action"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_outbox_events_total",
			Help: "Total number of transition events enqueued to the outbox",
		}),
		activeCommands: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "fulfillment_active_commands",
			Help: "Number of lifecycle commands currently being processed",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced увеличивает счётчик оформленных заказов.
func (m *LifecycleMetrics) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
}

// RecordTransition увеличивает счётчик команд с меткой результата.
func (m *LifecycleMetrics) RecordTransition(action, result string) {
	m.transitionsTotal.WithLabelValues(action, result).Inc()
}

// RecordStockRelease увеличивает счётчик возвратов стока.
func (m *LifecycleMetrics) RecordStockRelease() {
	m.stockReleases.Inc()
}

// RecordShipmentCreated увеличивает счётчик созданных отправлений.
func (m *LifecycleMetrics) RecordShipmentCreated() {
	m.shipmentsCreated.Inc()
}

// RecordCommandDuration записывает время обработки команды.
func (m *LifecycleMetrics) RecordCommandDuration(action string, duration time.Duration) {
	m.commandDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *LifecycleMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordCommandStarted увеличивает количество команд в обработке.
func (m *LifecycleMetrics) RecordCommandStarted() {
	m.activeCommands.Inc()
}

// RecordCommandFinished уменьшает количество команд в обработке.
func (m *LifecycleMetrics) RecordCommandFinished() {
	m.activeCommands.Dec()
}
