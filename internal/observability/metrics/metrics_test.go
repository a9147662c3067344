package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tax_spec", "INTRA"),
		attribute.String("classification_code", "2523"),
		attribute.String("component", "CGST"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "classification_code" {
			t.Fatalf("classification_code must not be a metric label")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordComputation(context.Background(), "INTER", "ok", time.Millisecond)
	m.RecordResolution(context.Background(), "IGST", "hit")
	m.RecordCacheLookup(context.Background(), "miss")
}

func TestNoopInstruments(t *testing.T) {
	m := NewNoop()
	if m == nil {
		t.Fatalf("expected noop metrics")
	}
	m.RecordComputation(context.Background(), "INTRA", "ok", time.Millisecond)
}
