// internal/metrics/metrics.go - Prometheus counters for decoding and viewport activity
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Drop reasons
const (
	ReasonInvalid     = "invalid"
	ReasonUnsupported = "unsupported"
	ReasonMalformed   = "malformed"
)

// Registry holds every collector of this package
var Registry = prometheus.NewRegistry()

var (
	FeaturesDecodedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapml_features_decoded_total",
		Help: "Total number of features decoded into layers",
	})
	FeaturesDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapml_features_dropped_total",
		Help: "Total number of features excluded from decoding by reason",
	}, []string{"reason"})
	ViewportTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapml_viewport_transitions_total",
		Help: "Viewport changes handled by resulting state",
	}, []string{"state"})
	DocumentsLoadedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapml_documents_loaded_total",
		Help: "Documents loaded by kind",
	}, []string{"kind"})
	DocumentDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapml_document_duration_ms",
		Help:    "Time to fetch and decode one document in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
)

func init() {
	Registry.MustRegister(FeaturesDecodedTotal)
	Registry.MustRegister(FeaturesDroppedTotal)
	Registry.MustRegister(ViewportTransitionsTotal)
	Registry.MustRegister(DocumentsLoadedTotal)
	Registry.MustRegister(DocumentDurationMs)
}

// Snapshot returns the current value of every series keyed by name and
// labels, e.g. mapml_features_dropped_total{reason="invalid"}. Histograms
// report their sample count.
func Snapshot() (map[string]float64, error) {
	families, err := Registry.Gather()
	if err != nil {
		return nil, err
	}

	values := make(map[string]float64)
	for _, family := range families {
		for _, m := range family.GetMetric() {
			values[seriesKey(family.GetName(), m.GetLabel())] = sampleValue(family.GetType(), m)
		}
	}
	return values, nil
}

// WriteTextfile writes every series in the Prometheus text format
func WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, Registry)
}

func seriesKey(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for _, l := range labels {
		pairs = append(pairs, l.GetName()+`="`+l.GetValue()+`"`)
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return m.GetUntyped().GetValue()
	}
}
