package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики ядра заказов.
type OrderMetrics struct {
	// Счётчики операций
	ordersPlaced     prometheus.Counter
	orderItemsPlaced prometheus.Counter
	placeFailed      prometheus.Counter

	// Переходы статусов по целевому статусу
	statusTransitions *prometheus.CounterVec

	// Фильтрация позиций: hit / empty
	filterQueries *prometheus.CounterVec

	// Гистограмма времени оформления заказа
	placeDuration prometheus.Histogram
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of orders placed successfully",
		}),
		orderItemsPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_items_placed_total",
			Help: "Total number of order items created during placement",
		}),
		placeFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_place_failed_total",
			Help: "Total number of failed order placements",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_item_status_transitions_total",
			Help: "Total number of order item status transitions by target status",
		}, []string{"status"}),
		filterQueries: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_item_filter_queries_total",
			Help: "Total number of order item filter queries by result",
		}, []string{"result"}),
		placeDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orders_place_duration_seconds",
			Help:    "Duration of order placement in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// OrderPlaced фиксирует успешное оформление заказа.
func (m *OrderMetrics) OrderPlaced(itemCount int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderItemsPlaced.Add(float64(itemCount))
	m.placeDuration.Observe(duration.Seconds())
}

// PlaceFailed фиксирует неуспешное оформление.
func (m *OrderMetrics) PlaceFailed() {
	if m == nil {
		return
	}
	m.placeFailed.Inc()
}

// StatusChanged фиксирует применённый переход статуса.
func (m *OrderMetrics) StatusChanged(to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(to).Inc()
}

// FilterExecuted фиксирует результат фильтрации.
func (m *OrderMetrics) FilterExecuted(empty bool) {
	if m == nil {
		return
	}
	result := "hit"
	if empty {
		result = "empty"
	}
	m.filterQueries.WithLabelValues(result).Inc()
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

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
