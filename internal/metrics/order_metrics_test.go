package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetrics(t *testing.T) {
	m := NewOrderMetrics()

	if m == nil {
		t.Fatal("NewOrderMetrics should not return nil")
	}
	if m.ordersPlaced == nil {
		t.Error("ordersPlaced counter should not be nil")
	}
	if m.orderItemsPlaced == nil {
		t.Error("orderItemsPlaced counter should not be nil")
	}
	if m.placeFailed == nil {
		t.Error("placeFailed counter should not be nil")
	}
	if m.statusTransitions == nil {
		t.Error("statusTransitions counter vec should not be nil")
	}
	if m.filterQueries == nil {
		t.Error("filterQueries counter vec should not be nil")
	}
	if m.placeDuration == nil {
		t.Error("placeDuration histogram should not be nil")
	}
}

func TestNewOrderMetrics_Idempotent(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(registry)
	second := newOrderMetricsWithRegisterer(registry)

	// Повторная регистрация должна вернуть уже существующие коллекторы.
	if first.ordersPlaced != second.ordersPlaced {
		t.Error("expected shared ordersPlaced collector")
	}
}

func TestOrderMetrics_Recording(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newOrderMetricsWithRegisterer(registry)

	m.OrderPlaced(3, 10*time.Millisecond)
	m.StatusChanged("shipped")
	m.StatusChanged("shipped")
	m.FilterExecuted(true)

	if got := counterValue(t, m.ordersPlaced); got != 1 {
		t.Fatalf("expected ordersPlaced 1, got %f", got)
	}
	if got := counterValue(t, m.orderItemsPlaced); got != 3 {
		t.Fatalf("expected orderItemsPlaced 3, got %f", got)
	}
	if got := counterValue(t, m.statusTransitions.WithLabelValues("shipped")); got != 2 {
		t.Fatalf("expected 2 shipped transitions, got %f", got)
	}
	if got := counterValue(t, m.filterQueries.WithLabelValues("empty")); got != 1 {
		t.Fatalf("expected 1 empty filter result, got %f", got)
	}
}

func TestOrderMetrics_NilSafe(t *testing.T) {
	var m *OrderMetrics

	// Все методы должны молча переживать nil-receiver.
	m.OrderPlaced(1, time.Millisecond)
	m.PlaceFailed()
	m.StatusChanged("pending")
	m.FilterExecuted(false)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}
