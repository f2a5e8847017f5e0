// internal/batch/processor.go - Single document conversion
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/multierr"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/internal/config"
	"github.com/valpere/mapml_features/internal/layer"
	"github.com/valpere/mapml_features/internal/output"
	"github.com/valpere/mapml_features/internal/source"
	"github.com/valpere/mapml_features/internal/viewport"
	"github.com/valpere/mapml_features/pkg/crs"
	"github.com/valpere/mapml_features/pkg/mapml"
)

// Processor fetches, decodes and selects the layers of one document
type Processor struct {
	factory  *source.Factory
	config   *config.Config
	registry *crs.Registry
	logger   *slog.Logger
}

// NewProcessor creates a document processor
func NewProcessor(cfg *config.Config, factory *source.Factory, registry *crs.Registry, logger *slog.Logger) *Processor {
	if registry == nil {
		registry = crs.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		factory:  factory,
		config:   cfg,
		registry: registry,
		logger:   logger,
	}
}

// Fetch retrieves and parses the document at location
func (p *Processor) Fetch(ctx context.Context, location string) (*mapml.Document, error) {
	fetcher, err := p.factory.ForLocation(location)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "no fetcher for location", err)
	}

	data, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	doc, err := mapml.ParseBytes(data)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing, fmt.Sprintf("failed to parse %s", location), err)
	}
	return doc, nil
}

// Load fetches location and builds its layer displayed in group
func (p *Processor) Load(ctx context.Context, location string, group viewport.LayerGroup) (*layer.Layer, error) {
	doc, err := p.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	l, err := layer.Load(doc, group, layer.Options{
		InitialZoom: p.config.MapML.InitialZoom,
		Style:       p.config.StyleOptions(),
		Registry:    p.registry,
		Logger:      p.logger.With("location", location),
	})
	if err != nil {
		return nil, err
	}

	for _, diag := range multierr.Errors(l.Diagnostics) {
		p.logger.Warn("feature skipped", "location", location, "error", diag)
	}
	return l, nil
}

// Convert loads location and returns the layers chosen by sel
func (p *Processor) Convert(ctx context.Context, location string, sel Selection) (*output.Collection, error) {
	start := time.Now()
	l, err := p.Load(ctx, location, viewport.NewGroup())
	if err != nil {
		return nil, err
	}

	var layers []*mapml.DecodedLayer
	if l.Static() {
		layers, err = p.selectStatic(l, sel)
		if err != nil {
			return nil, err
		}
	} else {
		layers = p.collectPages(l, sel)
	}

	stats := l.Stats
	p.logger.Info("document converted",
		"location", location,
		"features", stats.TotalFeatures,
		"emitted", len(layers),
		"duration", time.Since(start))

	return &output.Collection{
		Name:       DocumentName(location),
		Layers:     layers,
		Stats:      &stats,
		Projection: l.Metadata.Projection,
	}, nil
}

// selectStatic picks layers of a decoded static document
func (p *Processor) selectStatic(l *layer.Layer, sel Selection) ([]*mapml.DecodedLayer, error) {
	var zooms []int
	if sel.All {
		zooms = l.Store.Zooms()
	} else {
		zoom := p.config.MapML.InitialZoom
		if sel.Zoom != nil {
			zoom = *sel.Zoom
		}
		_, effective, err := l.Partition(zoom)
		if err != nil {
			return nil, err
		}
		zooms = []int{effective}
	}

	var layers []*mapml.DecodedLayer
	for _, z := range zooms {
		if sel.BBox != nil {
			layers = append(layers, l.Store.Search(z, ProjectBound(*sel.BBox, l.Metadata.Projection))...)
		} else {
			layers = append(layers, l.Store.Lookup(z)...)
		}
	}
	return layers, nil
}

// collectPages decodes every feature of a query document through its pager
func (p *Processor) collectPages(l *layer.Layer, sel Selection) []*mapml.DecodedLayer {
	var layers []*mapml.DecodedLayer
	var pcrs orb.Bound
	if sel.BBox != nil {
		pcrs = ProjectBound(*sel.BBox, l.Metadata.Projection)
	}

	for i := 0; i < l.Pager.Count(); i++ {
		decoded, err := l.Pager.Show(i)
		if err != nil {
			p.logger.Debug("query feature skipped", "index", i, "error", err)
			continue
		}
		if sel.BBox != nil && !decoded.Bound().Intersects(pcrs) {
			continue
		}
		layers = append(layers, decoded)
	}
	return layers
}

// ProjectBound converts a lon/lat box to the projection's PCRS
func ProjectBound(b orb.Bound, proj crs.Projection) orb.Bound {
	lo := proj.Project(b.Min)
	hi := proj.Project(b.Max)
	return orb.Bound{Min: lo, Max: lo}.Extend(hi)
}

// DocumentName derives an output name from a location
func DocumentName(location string) string {
	name := path.Base(strings.ReplaceAll(location, "\\", "/"))
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, ".gz")
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	return name
}
