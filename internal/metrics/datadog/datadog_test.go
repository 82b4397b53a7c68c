package datadog

import (
	"reflect"
	"testing"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/JonMunkholm/tpcload/internal/metrics"
)

func TestLabelsToTags(t *testing.T) {
	got := labelsToTags(metrics.Labels{"table": "orders", "kind": "imported"})
	want := []string{"kind:imported", "table:orders"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("labelsToTags() = %v, want %v", got, want)
	}
	if labelsToTags(nil) != nil {
		t.Error("labelsToTags(nil) should be nil")
	}
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("NewBackend() expected error for empty Addr")
	}
}

func TestBackend_NoOpClient(t *testing.T) {
	b := &Backend{client: &statsd.NoOpClient{}}
	b.IncCounter(metrics.RowsTotal, 3, metrics.Labels{"table": "part"})
	b.ObserveHistogram(metrics.BatchDuration, 0.1, nil)
	b.SetGauge(metrics.ActiveImports, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}
