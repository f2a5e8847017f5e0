// pkg/mapml/types.go - Decoded layer types
package mapml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"golang.org/x/net/html"
)

// GeometryType enumerates the geometry variants of a feature
type GeometryType int

const (
	GeometryUnknown GeometryType = iota
	GeometryPoint
	GeometryMultiPoint
	GeometryLineString
	GeometryMultiLineString
	GeometryPolygon
	GeometryMultiPolygon
	GeometryCollection
)

// ParseGeometryType maps a geometry element name to its variant
func ParseGeometryType(tag string) GeometryType {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), "map-") {
	case "point":
		return GeometryPoint
	case "multipoint":
		return GeometryMultiPoint
	case "linestring":
		return GeometryLineString
	case "multilinestring":
		return GeometryMultiLineString
	case "polygon":
		return GeometryPolygon
	case "multipolygon":
		return GeometryMultiPolygon
	case "geometrycollection":
		return GeometryCollection
	default:
		return GeometryUnknown
	}
}

// String returns the GeoJSON name of the geometry type
func (t GeometryType) String() string {
	switch t {
	case GeometryPoint:
		return "Point"
	case GeometryMultiPoint:
		return "MultiPoint"
	case GeometryLineString:
		return "LineString"
	case GeometryMultiLineString:
		return "MultiLineString"
	case GeometryPolygon:
		return "Polygon"
	case GeometryMultiPolygon:
		return "MultiPolygon"
	case GeometryCollection:
		return "GeometryCollection"
	default:
		return "Unknown"
	}
}

// StyleOptions holds the presentation options of a decoded layer
type StyleOptions struct {
	ClassName   string  `json:"className,omitempty"`
	Color       string  `json:"color,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty"`
}

// Merge returns s with every non-zero field of other applied on top
func (s StyleOptions) Merge(other StyleOptions) StyleOptions {
	if other.ClassName != "" {
		s.ClassName = other.ClassName
	}
	if other.Color != "" {
		s.Color = other.Color
	}
	if other.Weight != 0 {
		s.Weight = other.Weight
	}
	if other.Opacity != 0 {
		s.Opacity = other.Opacity
	}
	if other.FillColor != "" {
		s.FillColor = other.FillColor
	}
	if other.FillOpacity != 0 {
		s.FillOpacity = other.FillOpacity
	}
	return s
}

// DecodedLayer is the renderable record produced for one feature
type DecodedLayer struct {
	Type GeometryType
	// Geometry is in longitude/latitude, ready for display
	Geometry orb.Geometry
	// Projected is the same geometry in the projection's PCRS
	Projected orb.Geometry
	Altitude  *float64
	Zoom      int

	Style        StyleOptions
	DefaultStyle StyleOptions

	Properties *html.Node
	Feature    *Feature

	// SubParts are owned by this layer and are only displayed on request
	SubParts []*DecodedLayer
}

// Bound returns the PCRS bounding box of the layer
func (l *DecodedLayer) Bound() orb.Bound {
	return l.Projected.Bound()
}

// SetStyle applies style on top of the current options
func (l *DecodedLayer) SetStyle(style StyleOptions) {
	l.Style = l.Style.Merge(style)
}

// ResetStyle restores the options the layer was decoded with
func (l *DecodedLayer) ResetStyle() {
	l.Style = l.DefaultStyle
}

var (
	// ErrInvalidFeature marks a feature without geometry or coordinates
	ErrInvalidFeature = errors.New("feature has no geometry or coordinates")
	// ErrNoCoordinates marks a geometry whose coordinates hold no usable numbers
	ErrNoCoordinates = errors.New("geometry has no coordinates")
)

// UnsupportedGeometryError is returned for geometry variants that are not decoded
type UnsupportedGeometryError struct {
	Type GeometryType
	Tag  string
}

func (e *UnsupportedGeometryError) Error() string {
	if e.Type == GeometryCollection {
		return "GEOMETRYCOLLECTION not implemented"
	}
	if e.Tag == "" {
		return "geometry element has no member"
	}
	return fmt.Sprintf("unsupported geometry %q", e.Tag)
}
