// internal/output/types.go - Output handling types
package output

import (
	"fmt"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/pkg/crs"
	"github.com/valpere/mapml_features/pkg/mapml"
)

// Format represents different output formats supported by the application
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatJSON    Format = "json"
)

// Collection is one document's worth of decoded layers ready for output
type Collection struct {
	Name       string
	Layers     []*mapml.DecodedLayer
	Stats      *internal.DecodeStats
	Projection crs.Projection
}

// Writer defines the interface for writing collections to a destination
type Writer interface {
	Write(c *Collection) error
	Close() error
}

// Formatter defines the interface for formatting collections
type Formatter interface {
	Format(c *Collection) ([]byte, error)
	ContentType() string
}

// FormatterConfig contains configuration for creating formatters
type FormatterConfig struct {
	Format            Format
	Pretty            bool
	IncludeStats      bool
	Simplify          bool
	SimplifyThreshold float64
}

// WriterConfig contains configuration for creating writers
type WriterConfig struct {
	FormatterConfig
	Compression bool
}

// String returns a string representation of the format
func (f Format) String() string {
	return string(f)
}

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	switch f {
	case FormatGeoJSON, FormatJSON:
		return true
	default:
		return false
	}
}

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	f := Format(name)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format: %s", name)
	}
	return f, nil
}
