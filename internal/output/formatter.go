// internal/output/formatter.go - Output formatting implementation
package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"

	"github.com/valpere/mapml_features/pkg/mapml"
)

// GeoJSONFormatter formats collections as a GeoJSON FeatureCollection
type GeoJSONFormatter struct {
	config FormatterConfig
}

// NewGeoJSONFormatter creates a new GeoJSON formatter
func NewGeoJSONFormatter(config FormatterConfig) *GeoJSONFormatter {
	return &GeoJSONFormatter{config: config}
}

// Format formats a collection as GeoJSON
func (f *GeoJSONFormatter) Format(c *Collection) ([]byte, error) {
	fc := f.FeatureCollection(c)

	if f.config.IncludeStats && c.Stats != nil {
		fc.ExtraMembers = geojson.Properties{
			"_metadata": statsMetadata(c),
		}
	}

	if f.config.Pretty {
		return json.MarshalIndent(fc, "", "  ")
	}
	return json.Marshal(fc)
}

// FeatureCollection converts the collection's layers to GeoJSON features
func (f *GeoJSONFormatter) FeatureCollection(c *Collection) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range c.Layers {
		if l == nil || l.Geometry == nil {
			continue
		}
		fc.Append(f.feature(l))
	}
	return fc
}

// feature converts one decoded layer
func (f *GeoJSONFormatter) feature(l *mapml.DecodedLayer) *geojson.Feature {
	feat := geojson.NewFeature(f.geometry(l.Geometry))
	if l.Feature != nil {
		feat.ID = l.Feature.Index
	}
	feat.Properties = layerProperties(l)
	return feat
}

func (f *GeoJSONFormatter) geometry(g orb.Geometry) orb.Geometry {
	return simplified(g, f.config)
}

// ContentType returns the MIME type for GeoJSON
func (f *GeoJSONFormatter) ContentType() string {
	return "application/geo+json"
}

// JSONFormatter formats collections as structured JSON objects carrying
// both geographic and projected coordinates
type JSONFormatter struct {
	config FormatterConfig
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(config FormatterConfig) *JSONFormatter {
	return &JSONFormatter{config: config}
}

type jsonLayer struct {
	Index          int                `json:"index"`
	Type           string             `json:"type"`
	Zoom           int                `json:"zoom"`
	Altitude       *float64           `json:"altitude,omitempty"`
	Style          mapml.StyleOptions `json:"style"`
	Geometry       *geojson.Geometry  `json:"geometry"`
	Projected      *geojson.Geometry  `json:"projected"`
	PropertiesHTML string             `json:"properties_html,omitempty"`
	SubParts       []jsonLayer        `json:"subparts,omitempty"`
}

// Format formats a collection as a JSON document
func (f *JSONFormatter) Format(c *Collection) ([]byte, error) {
	layers := make([]jsonLayer, 0, len(c.Layers))
	for _, l := range c.Layers {
		if l == nil {
			continue
		}
		layers = append(layers, f.layer(l))
	}

	result := map[string]interface{}{
		"name":   c.Name,
		"layers": layers,
	}

	if c.Projection != nil {
		result["projection"] = map[string]string{
			"name": c.Projection.Name(),
			"code": c.Projection.Code(),
		}
	}

	if f.config.IncludeStats && c.Stats != nil {
		result["summary"] = statsMetadata(c)
	}

	if f.config.Pretty {
		return json.MarshalIndent(result, "", "  ")
	}
	return json.Marshal(result)
}

func (f *JSONFormatter) layer(l *mapml.DecodedLayer) jsonLayer {
	out := jsonLayer{
		Index:    -1,
		Type:     l.Type.String(),
		Zoom:     l.Zoom,
		Altitude: l.Altitude,
		Style:    l.Style,
	}
	if l.Feature != nil {
		out.Index = l.Feature.Index
		out.PropertiesHTML = l.Feature.PropertiesHTML()
	}
	if l.Geometry != nil {
		out.Geometry = geojson.NewGeometry(simplified(l.Geometry, f.config))
	}
	if l.Projected != nil {
		out.Projected = geojson.NewGeometry(simplified(l.Projected, f.config))
	}
	for _, part := range l.SubParts {
		out.SubParts = append(out.SubParts, f.layer(part))
	}
	return out
}

// ContentType returns the MIME type for JSON
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// NewFormatter creates a formatter based on the specified configuration
func NewFormatter(config FormatterConfig) (Formatter, error) {
	switch config.Format {
	case FormatGeoJSON:
		return NewGeoJSONFormatter(config), nil
	case FormatJSON:
		return NewJSONFormatter(config), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", config.Format)
	}
}

// layerProperties builds the GeoJSON properties of a decoded layer
func layerProperties(l *mapml.DecodedLayer) geojson.Properties {
	props := geojson.Properties{
		"type": l.Type.String(),
		"zoom": l.Zoom,
	}
	if l.Style.ClassName != "" {
		props["class"] = l.Style.ClassName
	}
	if style := styleProperties(l.Style); len(style) > 0 {
		props["style"] = style
	}
	if l.Altitude != nil {
		props["altitude"] = *l.Altitude
	}
	if len(l.SubParts) > 0 {
		props["_subparts"] = len(l.SubParts)
	}
	if l.Feature != nil {
		if html := l.Feature.PropertiesHTML(); html != "" {
			props["properties_html"] = html
		}
	}
	return props
}

func styleProperties(s mapml.StyleOptions) map[string]interface{} {
	style := make(map[string]interface{})
	if s.Color != "" {
		style["color"] = s.Color
	}
	if s.Weight != 0 {
		style["weight"] = s.Weight
	}
	if s.Opacity != 0 {
		style["opacity"] = s.Opacity
	}
	if s.FillColor != "" {
		style["fillColor"] = s.FillColor
	}
	if s.FillOpacity != 0 {
		style["fillOpacity"] = s.FillOpacity
	}
	return style
}

// simplified returns g reduced with Douglas-Peucker when enabled. g is not modified.
func simplified(g orb.Geometry, config FormatterConfig) orb.Geometry {
	if !config.Simplify || config.SimplifyThreshold <= 0 {
		return g
	}
	return simplify.DouglasPeucker(config.SimplifyThreshold).Simplify(orb.Clone(g))
}

func statsMetadata(c *Collection) map[string]interface{} {
	s := c.Stats
	return map[string]interface{}{
		"name":             c.Name,
		"total_features":   s.TotalFeatures,
		"decoded_features": s.DecodedFeatures,
		"dropped_features": s.DroppedFeatures,
		"unsupported":      s.Unsupported,
		"partitions":       s.Partitions,
		"duration_ms":      s.Duration().Milliseconds(),
		"generated_at":     time.Now().UTC(),
	}
}
