// internal/viewport/controller.go - Active partition selection on viewport changes
package viewport

import (
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/valpere/mapml_features/internal/metrics"
	"github.com/valpere/mapml_features/internal/store"
	"github.com/valpere/mapml_features/pkg/crs"
	"github.com/valpere/mapml_features/pkg/mapml"
)

// State is the controller state after the last viewport change
type State int

const (
	// Idle means no viewport change has been handled yet
	Idle State = iota
	// Active means a partition is displayed for the current zoom
	Active
	// OutOfRange means the viewport zoom is outside the renderable range
	OutOfRange
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case OutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// View is the viewport reported by the host after a move
type View struct {
	Zoom        int
	PixelBounds orb.Bound
}

// Result describes the outcome of one viewport change
type Result struct {
	State         State
	EffectiveZoom int
	Visible       bool
	Active        int
	// Scale is the factor the effective partition is drawn with at the view zoom
	Scale float64
}

// Controller keeps the active layer set consistent with the viewport zoom.
// It is not safe for concurrent use; the host calls it from its event loop.
type Controller struct {
	store  *store.Store
	meta   mapml.Metadata
	group  LayerGroup
	styles StyleSink
	logger *slog.Logger

	state         State
	visible       bool
	effectiveZoom int
	active        int
}

// Option configures a Controller
type Option func(*Controller)

// WithStyleSink sets where transient stylesheets are removed on every move
func WithStyleSink(sink StyleSink) Option {
	return func(c *Controller) {
		c.styles = sink
	}
}

// WithLogger sets the controller logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a controller and displays the partition for the host's
// initial zoom. The layer is reported visible until the first move.
// Metadata without a projection is viewed through OSMTILE.
func New(s *store.Store, meta mapml.Metadata, group LayerGroup, initialZoom int, opts ...Option) *Controller {
	if meta.Projection == nil {
		meta.Projection = crs.OSMTile()
	}
	c := &Controller{
		store:   s,
		meta:    meta,
		group:   group,
		logger:  slog.Default(),
		state:   Idle,
		visible: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.effectiveZoom = store.ClampZoom(initialZoom, meta.ZoomBounds)
	c.reset(c.effectiveZoom)
	return c
}

// HandleMoveEnd reacts to a finished viewport change. The active set is
// cleared and refilled before it returns.
func (c *Controller) HandleMoveEnd(view View) Result {
	if c.styles != nil {
		c.styles.RemoveStylesheets()
	}

	if !c.meta.ZoomBounds.InRange(view.Zoom) {
		c.group.ClearLayers()
		c.state = OutOfRange
		c.visible = false
		c.effectiveZoom = view.Zoom
		c.active = 0
		c.logger.Debug("viewport out of range", "zoom", view.Zoom,
			"min_zoom", c.meta.ZoomBounds.MinZoom, "max_zoom", c.meta.ZoomBounds.MaxZoom)
		return c.record(view)
	}

	c.effectiveZoom = store.ClampZoom(view.Zoom, c.meta.ZoomBounds)
	c.reset(c.effectiveZoom)

	viewBounds := crs.PixelBoundsToPCRS(view.PixelBounds, view.Zoom, c.meta.Projection)
	c.visible = c.active > 0 && c.meta.LayerBounds.Intersects(viewBounds)
	c.state = Active
	c.logger.Debug("viewport updated", "zoom", view.Zoom, "effective_zoom", c.effectiveZoom,
		"active", c.active, "visible", c.visible)
	return c.record(view)
}

// AttachSubParts displays the sub-parts of layer
func (c *Controller) AttachSubParts(layer *mapml.DecodedLayer) {
	if layer == nil {
		return
	}
	for _, part := range layer.SubParts {
		c.group.AddLayer(part)
	}
}

// DetachSubParts hides the sub-parts of layer
func (c *Controller) DetachSubParts(layer *mapml.DecodedLayer) {
	if layer == nil {
		return
	}
	for _, part := range layer.SubParts {
		c.group.RemoveLayer(part)
	}
}

// State returns the state after the last change
func (c *Controller) State() State {
	return c.state
}

// Visible reports whether the layer should be drawn
func (c *Controller) Visible() bool {
	return c.visible
}

// EffectiveZoom returns the partition zoom currently displayed
func (c *Controller) EffectiveZoom() int {
	return c.effectiveZoom
}

// ZoomLimits returns the renderable zoom range to hand to the host
func (c *Controller) ZoomLimits() (int, int) {
	return c.meta.ZoomBounds.MinZoom, c.meta.ZoomBounds.MaxZoom
}

func (c *Controller) reset(zoom int) {
	c.group.ClearLayers()
	layers := c.store.Lookup(zoom)
	for _, layer := range layers {
		c.group.AddLayer(layer)
	}
	c.active = len(layers)
}

func (c *Controller) record(view View) Result {
	metrics.ViewportTransitionsTotal.WithLabelValues(c.state.String()).Inc()

	scale := 1.0
	if c.state == Active {
		scale = c.meta.Projection.Scale(view.Zoom) / c.meta.Projection.Scale(c.effectiveZoom)
	}
	return Result{
		State:         c.state,
		EffectiveZoom: c.effectiveZoom,
		Visible:       c.visible,
		Active:        c.active,
		Scale:         scale,
	}
}
