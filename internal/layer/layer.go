// internal/layer/layer.go - Feature layer assembly from a MapML document
package layer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/internal/metrics"
	"github.com/valpere/mapml_features/internal/pagination"
	"github.com/valpere/mapml_features/internal/store"
	"github.com/valpere/mapml_features/internal/viewport"
	"github.com/valpere/mapml_features/pkg/crs"
	"github.com/valpere/mapml_features/pkg/mapml"
)

// Options controls how a document is turned into a layer
type Options struct {
	// InitialZoom is the host zoom the static partition is first shown at
	InitialZoom int
	// Style is applied to every decoded feature
	Style    mapml.StyleOptions
	Registry *crs.Registry
	Logger   *slog.Logger
	// Filter drops features for which it returns false
	Filter func(f *mapml.Feature) bool
	// OnEachFeature is called for every decoded layer before it is stored
	OnEachFeature func(l *mapml.DecodedLayer)
	StyleSink     viewport.StyleSink
}

// Layer is a loaded document. Static documents are decoded up front and get
// a viewport controller; query results are paged one feature at a time.
type Layer struct {
	Document   *mapml.Document
	Metadata   mapml.Metadata
	Store      *store.Store
	Controller *viewport.Controller
	Pager      *pagination.Adapter
	Stats      internal.DecodeStats

	// Diagnostics combines every non-fatal decode failure
	Diagnostics error
}

// Static reports whether the layer was decoded up front
func (l *Layer) Static() bool {
	return l.Controller != nil
}

// Load resolves the metadata of doc and builds the layer displayed in group
func Load(doc *mapml.Document, group viewport.LayerGroup, opts Options) (*Layer, error) {
	if doc == nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "no document to load", nil)
	}
	if group == nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "no layer group to display in", nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stats := internal.DecodeStats{
		TotalFeatures: doc.FeatureCount(),
		StartTime:     time.Now(),
	}
	meta := mapml.NewResolver(opts.Registry, logger).Resolve(doc)
	decoder := mapml.NewDecoder(mapml.WithLogger(logger))

	l := &Layer{
		Document: doc,
		Metadata: meta,
	}

	if !doc.IsStatic() {
		l.Store = store.Build(nil)
		l.Pager = pagination.New(doc, meta, decoder, group,
			pagination.WithStyle(opts.Style), pagination.WithStore(l.Store))
		stats.EndTime = time.Now()
		l.Stats = stats
		metrics.DocumentsLoadedTotal.WithLabelValues("query").Inc()
		logger.Debug("loaded query result document", "features", stats.TotalFeatures)
		return l, nil
	}

	var layers []*mapml.DecodedLayer
	for _, f := range doc.Features {
		if opts.Filter != nil && !opts.Filter(f) {
			stats.DroppedFeatures++
			continue
		}

		decoded, err := decoder.DecodeFeature(f, meta, opts.Style)
		if err != nil {
			stats.DroppedFeatures++
			reason := dropReason(err)
			metrics.FeaturesDroppedTotal.WithLabelValues(reason).Inc()
			if reason == metrics.ReasonUnsupported {
				stats.Unsupported++
			}
			if reason != metrics.ReasonInvalid {
				l.Diagnostics = multierr.Append(l.Diagnostics, err)
			}
			continue
		}

		if opts.OnEachFeature != nil {
			opts.OnEachFeature(decoded)
		}
		layers = append(layers, decoded)
		stats.DecodedFeatures++
		metrics.FeaturesDecodedTotal.Inc()
	}

	l.Store = store.Build(layers)
	stats.Partitions = len(l.Store.Zooms())

	l.Controller = viewport.New(l.Store, meta, group, opts.InitialZoom,
		viewport.WithLogger(logger), viewport.WithStyleSink(opts.StyleSink))

	stats.EndTime = time.Now()
	l.Stats = stats
	metrics.DocumentsLoadedTotal.WithLabelValues("static").Inc()
	metrics.DocumentDurationMs.Observe(float64(stats.Duration().Microseconds()) / 1000)

	logger.Debug("loaded static document",
		"features", stats.TotalFeatures,
		"decoded", stats.DecodedFeatures,
		"dropped", stats.DroppedFeatures,
		"partitions", stats.Partitions,
		"projection", meta.Projection.Name())
	return l, nil
}

// Layers returns every decoded layer of a static document, by ascending zoom
func (l *Layer) Layers() []*mapml.DecodedLayer {
	var all []*mapml.DecodedLayer
	for _, z := range l.Store.Zooms() {
		all = append(all, l.Store.Lookup(z)...)
	}
	return all
}

// Partition returns the layers shown at the host zoom, or an error when the
// zoom is outside the renderable range
func (l *Layer) Partition(zoom int) ([]*mapml.DecodedLayer, int, error) {
	if !l.Metadata.ZoomBounds.InRange(zoom) {
		return nil, zoom, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("zoom %d outside renderable range %d-%d", zoom,
				l.Metadata.ZoomBounds.MinZoom, l.Metadata.ZoomBounds.MaxZoom), nil)
	}
	effective := store.ClampZoom(zoom, l.Metadata.ZoomBounds)
	return l.Store.Lookup(effective), effective, nil
}

func dropReason(err error) string {
	var unsupported *mapml.UnsupportedGeometryError
	switch {
	case errors.Is(err, mapml.ErrInvalidFeature):
		return metrics.ReasonInvalid
	case errors.As(err, &unsupported):
		return metrics.ReasonUnsupported
	default:
		return metrics.ReasonMalformed
	}
}
