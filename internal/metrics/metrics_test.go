// internal/metrics/metrics_test.go - Unit tests for metric snapshots
package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSnapshot(t *testing.T) {
	before, err := Snapshot()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	FeaturesDroppedTotal.WithLabelValues(ReasonInvalid).Add(2)
	FeaturesDecodedTotal.Inc()
	DocumentDurationMs.Observe(12)

	after, err := Snapshot()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	key := `mapml_features_dropped_total{reason="invalid"}`
	if got := after[key] - before[key]; got != 2 {
		t.Errorf("Expected 2 dropped features, got %v", got)
	}
	if got := after["mapml_features_decoded_total"] - before["mapml_features_decoded_total"]; got != 1 {
		t.Errorf("Expected 1 decoded feature, got %v", got)
	}
	if after["mapml_document_duration_ms"] < 1 {
		t.Errorf("Expected histogram sample count, got %v", after["mapml_document_duration_ms"])
	}
}

func TestWriteTextfile(t *testing.T) {
	FeaturesDecodedTotal.Inc()
	filename := filepath.Join(t.TempDir(), "mapml.prom")

	if err := WriteTextfile(filename); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), "mapml_features_decoded_total") {
		t.Errorf("Expected decoded counter in textfile, got %s", data)
	}
}
