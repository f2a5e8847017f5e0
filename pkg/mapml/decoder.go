// pkg/mapml/decoder.go - MapML geometry decoding implementation
package mapml

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/spf13/cast"
	"golang.org/x/net/html"

	"github.com/valpere/mapml_features/pkg/crs"
)

// pairPattern matches one "x y" coordinate pair in paired-token text
var pairPattern = regexp.MustCompile(`\S+\s+\S+`)

// Decoder turns geometry elements into decoded layers
type Decoder struct {
	logger *slog.Logger
}

// Option configures a Decoder
type Option func(*Decoder)

// WithLogger sets the logger used for decode diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDecoder creates a new geometry decoder
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeFeature decodes a feature using the document metadata. The geometry cs
// attribute overrides the document default, and a feature without a zoom
// inherits the native zoom.
func (d *Decoder) DecodeFeature(f *Feature, meta Metadata, base StyleOptions) (*DecodedLayer, error) {
	if f == nil || !f.Valid() {
		return nil, ErrInvalidFeature
	}

	cs := meta.DefaultCS
	if name := f.CS(); name != "" {
		cs, _ = crs.ParseCS(name)
	}

	style := base
	if style.Color == "" && f.Class != "" {
		style.ClassName = f.Class
	}

	layer, err := d.Decode(f.Geometry, cs, f.EffectiveZoom(meta.NativeZoom), meta.Projection, style)
	if err != nil {
		return nil, fmt.Errorf("feature %d: %w", f.Index, err)
	}

	layer.Feature = f
	layer.Properties = f.Properties
	for _, part := range layer.SubParts {
		part.Feature = f
		part.Properties = f.Properties
	}
	return layer, nil
}

// Decode decodes the member of a geometry element. Coordinates are read in cs
// at zoom and converted through proj. Unsupported variants return an
// *UnsupportedGeometryError and no layer.
func (d *Decoder) Decode(geometry *html.Node, cs crs.CS, zoom int, proj crs.Projection, style StyleOptions) (*DecodedLayer, error) {
	if geometry == nil {
		return nil, ErrInvalidFeature
	}
	if proj == nil {
		return nil, fmt.Errorf("no projection to decode with")
	}

	member := firstElementChild(geometry)
	if member == nil {
		d.logger.Warn("geometry has no member element")
		return nil, &UnsupportedGeometryError{Type: GeometryUnknown}
	}

	typ := ParseGeometryType(member.Data)
	var (
		raw      orb.Geometry
		parts    []orb.Polygon
		altitude *float64
		err      error
	)

	switch typ {
	case GeometryPoint:
		raw, altitude, err = decodePoint(member)
	case GeometryMultiPoint:
		raw, err = decodeMultiPoint(member)
	case GeometryLineString:
		raw, err = decodeLineString(member)
	case GeometryMultiLineString:
		raw, err = decodeMultiLineString(member)
	case GeometryPolygon:
		raw, parts, err = decodePolygon(member)
	case GeometryMultiPolygon:
		raw, err = decodeMultiPolygon(member)
	case GeometryCollection:
		d.logger.Warn("GEOMETRYCOLLECTION not implemented", "tag", member.Data)
		return nil, &UnsupportedGeometryError{Type: typ, Tag: member.Data}
	default:
		d.logger.Warn("invalid geometry", "tag", member.Data)
		return nil, &UnsupportedGeometryError{Type: typ, Tag: member.Data}
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", typ, err)
	}

	layer := newLayer(typ, raw, cs, zoom, proj, style)
	layer.Altitude = altitude
	for _, part := range parts {
		layer.SubParts = append(layer.SubParts, newLayer(GeometryPolygon, part, cs, zoom, proj, style))
	}
	return layer, nil
}

func newLayer(typ GeometryType, raw orb.Geometry, cs crs.CS, zoom int, proj crs.Projection, style StyleOptions) *DecodedLayer {
	toPCRS := func(p orb.Point) orb.Point { return crs.ToPCRS(p, cs, zoom, proj) }
	toGeographic := func(p orb.Point) orb.Point { return crs.ToGeographic(p, cs, zoom, proj) }

	return &DecodedLayer{
		Type:         typ,
		Geometry:     project.Geometry(orb.Clone(raw), toGeographic),
		Projected:    project.Geometry(orb.Clone(raw), toPCRS),
		Zoom:         zoom,
		Style:        style,
		DefaultStyle: style,
	}
}

func decodePoint(member *html.Node) (orb.Point, *float64, error) {
	coords := findElement(member, "coordinates")
	if coords == nil {
		return orb.Point{}, nil, ErrNoCoordinates
	}

	numbers := parseNumbers(strings.Fields(textContent(coords)))
	if len(numbers) < 2 {
		return orb.Point{}, nil, ErrNoCoordinates
	}

	var altitude *float64
	if len(numbers) > 2 {
		alt := numbers[2]
		altitude = &alt
	}
	return orb.Point{numbers[0], numbers[1]}, altitude, nil
}

func decodeMultiPoint(member *html.Node) (orb.MultiPoint, error) {
	coords := findElement(member, "coordinates")
	if coords == nil {
		return nil, ErrNoCoordinates
	}
	points := parsePairs(textContent(coords))
	if len(points) == 0 {
		return nil, ErrNoCoordinates
	}
	return orb.MultiPoint(points), nil
}

func decodeLineString(member *html.Node) (orb.LineString, error) {
	coords := findElement(member, "coordinates")
	if coords == nil {
		return nil, ErrNoCoordinates
	}
	points := parsePairs(textContent(coords))
	if len(points) == 0 {
		return nil, ErrNoCoordinates
	}
	return orb.LineString(points), nil
}

// decodeMultiLineString reads each coordinates element as one line
func decodeMultiLineString(member *html.Node) (orb.MultiLineString, error) {
	var lines orb.MultiLineString
	for _, coords := range findElements(member, "coordinates") {
		if points := parsePairs(textContent(coords)); len(points) > 0 {
			lines = append(lines, orb.LineString(points))
		}
	}
	if len(lines) == 0 {
		return nil, ErrNoCoordinates
	}
	return lines, nil
}

// decodePolygon reads every ring of a polygon element and returns the spans
// found inside the rings as separate polygons
func decodePolygon(member *html.Node) (orb.Polygon, []orb.Polygon, error) {
	var (
		polygon orb.Polygon
		parts   []orb.Polygon
	)
	for _, coords := range findElements(member, "coordinates") {
		ring, ringParts := splitRing(coords)
		parts = append(parts, ringParts...)
		if len(ring) > 0 {
			polygon = append(polygon, ring)
		}
	}
	if len(polygon) == 0 {
		return nil, nil, ErrNoCoordinates
	}
	return polygon, parts, nil
}

// decodeMultiPolygon reads the rings of each polygon element. Spans are
// excluded from the rings and are not returned as parts.
func decodeMultiPolygon(member *html.Node) (orb.MultiPolygon, error) {
	var multi orb.MultiPolygon
	for _, p := range findElements(member, "polygon") {
		var polygon orb.Polygon
		for _, coords := range findElements(p, "coordinates") {
			ring, _ := splitRing(coords)
			if len(ring) > 0 {
				polygon = append(polygon, ring)
			}
		}
		if len(polygon) > 0 {
			multi = append(multi, polygon)
		}
	}
	if len(multi) == 0 {
		return nil, ErrNoCoordinates
	}
	return multi, nil
}

// splitRing parses the ring's coordinate text outside spans and collects every span
// nested below it as a polygon of its own. Nested spans are flattened into
// the same list, outer span first.
func splitRing(n *html.Node) (orb.Ring, []orb.Polygon) {
	var parts []orb.Polygon
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			parts = append(parts, spanParts(c)...)
		}
	}
	return orb.Ring(parsePairs(textOutsideSpans(n))), parts
}

func spanParts(n *html.Node) []orb.Polygon {
	if localName(n) != "span" {
		var parts []orb.Polygon
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				parts = append(parts, spanParts(c)...)
			}
		}
		return parts
	}

	ring, nested := splitRing(n)
	if len(ring) == 0 {
		return nested
	}
	return append([]orb.Polygon{{ring}}, nested...)
}

// parsePairs extracts "x y" pairs from text. Pairs that do not parse as two
// numbers are skipped.
func parsePairs(text string) []orb.Point {
	var points []orb.Point
	for _, token := range pairPattern.FindAllString(text, -1) {
		numbers := parseNumbers(strings.Fields(token))
		if len(numbers) == 2 {
			points = append(points, orb.Point{numbers[0], numbers[1]})
		}
	}
	return points
}

// parseNumbers converts each field to a float, skipping fields that are not
// finite numbers
func parseNumbers(fields []string) []float64 {
	numbers := make([]float64, 0, len(fields))
	for _, field := range fields {
		if v, err := cast.ToFloat64E(field); err == nil && finite(v) {
			numbers = append(numbers, v)
		}
	}
	return numbers
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
