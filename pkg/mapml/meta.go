// pkg/mapml/meta.go - Document metadata resolution
package mapml

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cast"

	"github.com/valpere/mapml_features/pkg/crs"
)

// Sentinels for the native zoom scan. Declared zooms are assumed not to exceed 100.
const (
	nativeScanMin = 100
	nativeScanMax = 0
)

// ZoomBounds is the renderable zoom range and the range with native data
type ZoomBounds struct {
	MinZoom       int `json:"minZoom"`
	MaxZoom       int `json:"maxZoom"`
	MinNativeZoom int `json:"minNativeZoom"`
	MaxNativeZoom int `json:"maxNativeZoom"`
}

// InRange reports whether zoom is within [MinZoom, MaxZoom]
func (b ZoomBounds) InRange(zoom int) bool {
	return zoom >= b.MinZoom && zoom <= b.MaxZoom
}

// Metadata is everything resolved from a document's meta elements
type Metadata struct {
	NativeZoom  int
	ZoomBounds  ZoomBounds
	LayerBounds orb.Bound
	DefaultCS   crs.CS
	Projection  crs.Projection
}

// extentAxes lists the axis name pairs an extent may be expressed in,
// horizontal axis first
var extentAxes = [][2]string{
	{"longitude", "latitude"},
	{"easting", "northing"},
	{"x", "y"},
	{"column", "row"},
	{"i", "j"},
	{"horizontal", "vertical"},
}

// defaultExtent is used when a document carries no extent metadata
var defaultExtent = map[string]string{
	"top-left-vertical":       "0",
	"top-left-horizontal":     "0",
	"bottom-right-vertical":   "5",
	"bottom-right-horizontal": "5",
}

// Resolver extracts Metadata from documents
type Resolver struct {
	registry *crs.Registry
	logger   *slog.Logger
}

// NewResolver creates a resolver looking projections up in registry
func NewResolver(registry *crs.Registry, logger *slog.Logger) *Resolver {
	if registry == nil {
		registry = crs.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{registry: registry, logger: logger}
}

// Resolve extracts the document metadata. Malformed metadata never fails,
// each value falls back to its default instead.
func (r *Resolver) Resolve(doc *Document) Metadata {
	proj := r.projection(doc)
	native := r.nativeZoom(doc)

	return Metadata{
		NativeZoom:  native,
		ZoomBounds:  r.zoomBounds(doc, proj, native),
		LayerBounds: r.layerBounds(doc, proj, native),
		DefaultCS:   r.defaultCS(doc),
		Projection:  proj,
	}
}

func (r *Resolver) projection(doc *Document) crs.Projection {
	content, ok := doc.Meta["projection"]
	if !ok {
		return r.registry.Fallback()
	}
	name := strings.ToUpper(MetaContent(content)["content"])
	if p, found := r.registry.Lookup(name); found {
		return p
	}
	r.logger.Debug("unknown projection, using fallback", "projection", name, "fallback", r.registry.Fallback().Name())
	return r.registry.Fallback()
}

func (r *Resolver) nativeZoom(doc *Document) int {
	content, ok := doc.Meta["zoom"]
	if !ok {
		return 0
	}
	values := MetaContent(content)
	value, ok := values["value"]
	if !ok {
		// a bare number is the native zoom
		if value, ok = values["content"]; !ok {
			return 0
		}
	}
	zoom, err := parseZoom(value)
	if err != nil {
		r.logger.Debug("malformed native zoom", "value", value, "error", err)
		return 0
	}
	return zoom
}

func (r *Resolver) zoomBounds(doc *Document, proj crs.Projection, native int) ZoomBounds {
	bounds := ZoomBounds{
		MinNativeZoom: nativeScanMin,
		MaxNativeZoom: nativeScanMax,
	}
	for _, f := range doc.Features {
		z := f.EffectiveZoom(native)
		if z > bounds.MaxNativeZoom {
			bounds.MaxNativeZoom = z
		}
		if z < bounds.MinNativeZoom {
			bounds.MinNativeZoom = z
		}
	}

	minZoom, maxZoom, err := declaredZoomRange(doc)
	if err != nil {
		r.logger.Debug("zoom metadata unusable, using projection range", "error", err)
		bounds.MinZoom = 0
		bounds.MaxZoom = len(proj.Resolutions()) - 1
		return bounds
	}
	bounds.MinZoom = minZoom
	bounds.MaxZoom = maxZoom
	return bounds
}

func declaredZoomRange(doc *Document) (int, int, error) {
	content, ok := doc.Meta["zoom"]
	if !ok {
		return 0, 0, fmt.Errorf("no zoom metadata")
	}
	values := MetaContent(content)
	lo, ok := values["min"]
	if !ok {
		return 0, 0, fmt.Errorf("min zoom missing")
	}
	hi, ok := values["max"]
	if !ok {
		return 0, 0, fmt.Errorf("max zoom missing")
	}
	minZoom, err := parseZoom(lo)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid min zoom %q: %w", lo, err)
	}
	maxZoom, err := parseZoom(hi)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid max zoom %q: %w", hi, err)
	}
	return minZoom, maxZoom, nil
}

func (r *Resolver) defaultCS(doc *Document) crs.CS {
	content, ok := doc.Meta["cs"]
	if !ok {
		return crs.GCRS
	}
	cs, _ := crs.ParseCS(MetaContent(content)["content"])
	return cs
}

func (r *Resolver) layerBounds(doc *Document, proj crs.Projection, native int) orb.Bound {
	values := defaultExtent
	if content, ok := doc.Meta["extent"]; ok {
		values = MetaContent(content)
	}

	box, cs, zoom, err := parseExtent(values, native)
	if err != nil {
		r.logger.Debug("extent metadata unusable, using whole world", "error", err)
		return crs.BoundsToPCRS(proj.TileMatrixBounds(0), 0, proj, crs.FallbackCS)
	}
	return crs.BoundsToPCRS(box, zoom, proj, cs)
}

// parseExtent reads the corner box, coordinate system and zoom of an extent
func parseExtent(values map[string]string, native int) (orb.Bound, crs.CS, int, error) {
	var axes [2]string
	found := false
	for _, pair := range extentAxes {
		_, h := values["top-left-"+pair[0]]
		_, v := values["top-left-"+pair[1]]
		if h && v {
			axes, found = pair, true
			break
		}
	}
	if !found {
		return orb.Bound{}, 0, 0, fmt.Errorf("extent has no recognised axis pair")
	}

	var corners [4]float64
	keys := [4]string{
		"top-left-" + axes[0], "top-left-" + axes[1],
		"bottom-right-" + axes[0], "bottom-right-" + axes[1],
	}
	for i, key := range keys {
		raw, ok := values[key]
		if !ok {
			return orb.Bound{}, 0, 0, fmt.Errorf("extent is missing %s", key)
		}
		v, err := cast.ToFloat64E(raw)
		if err == nil && !finite(v) {
			err = fmt.Errorf("not a finite number")
		}
		if err != nil {
			return orb.Bound{}, 0, 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		corners[i] = v
	}

	cs := crs.FallbackCS
	if axisCS, ok := crs.AxisCS(axes[0]); ok {
		cs = axisCS
	}
	if name, ok := values["cs"]; ok {
		if declared, known := crs.ParseCS(name); known {
			cs = declared
		}
	}

	zoom := native
	if z, ok := values["zoom"]; ok {
		if parsed, err := parseZoom(z); err == nil {
			zoom = parsed
		}
	}

	topLeft := orb.Point{corners[0], corners[1]}
	bottomRight := orb.Point{corners[2], corners[3]}
	return orb.Bound{Min: topLeft, Max: topLeft}.Extend(bottomRight), cs, zoom, nil
}
