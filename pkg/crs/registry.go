// pkg/crs/registry.go - Named projection registry
package crs

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"gopkg.in/yaml.v3"
)

// Registry resolves projection names. Callers resolve a projection once and
// pass it into every transform, there is no package-level lookup.
type Registry struct {
	projections map[string]Projection
	fallback    string
}

// NewRegistry creates a registry seeded with the built-in projections
func NewRegistry() *Registry {
	r := &Registry{
		projections: make(map[string]Projection),
		fallback:    FallbackProjection,
	}
	r.Register(OSMTile())
	r.Register(WGS84())
	return r
}

// Register adds or replaces a projection under its upper-cased name
func (r *Registry) Register(p Projection) {
	r.projections[strings.ToUpper(p.Name())] = p
}

// Lookup returns the projection registered under name
func (r *Registry) Lookup(name string) (Projection, bool) {
	p, ok := r.projections[strings.ToUpper(strings.TrimSpace(name))]
	return p, ok
}

// Fallback returns the projection used for documents that name none or an
// unknown one
func (r *Registry) Fallback() Projection {
	if p, ok := r.Lookup(r.fallback); ok {
		return p
	}
	return OSMTile()
}

// SetFallback makes the registered projection name the fallback
func (r *Registry) SetFallback(name string) error {
	if _, ok := r.Lookup(name); !ok {
		return fmt.Errorf("unknown projection %q, registered: %s", name, strings.Join(r.Names(), ", "))
	}
	r.fallback = name
	return nil
}

// Names returns the registered projection names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.projections))
	for name := range r.projections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// definitionFile is the YAML layout of a projections file
type definitionFile struct {
	Projections []struct {
		Name        string        `yaml:"name"`
		Code        string        `yaml:"code"`
		Origin      [2]float64    `yaml:"origin"`
		Resolutions []float64     `yaml:"resolutions"`
		Bounds      [2][2]float64 `yaml:"bounds"`
		TileSize    int           `yaml:"tile_size"`
		Unproject   string        `yaml:"unproject"`
	} `yaml:"projections"`
}

// LoadDefinitions reads tiled projection definitions from YAML and registers them.
// The unproject key selects "identity" (the default) or "mercator".
func (r *Registry) LoadDefinitions(reader io.Reader) (int, error) {
	var file definitionFile
	if err := yaml.NewDecoder(reader).Decode(&file); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to decode projection definitions: %w", err)
	}

	for i, d := range file.Projections {
		if d.Name == "" {
			return i, fmt.Errorf("projection %d: name is required", i)
		}
		if len(d.Resolutions) == 0 {
			return i, fmt.Errorf("projection %s: resolutions are required", d.Name)
		}
		def := Definition{
			Name:        strings.ToUpper(d.Name),
			Code:        d.Code,
			Origin:      orb.Point{d.Origin[0], d.Origin[1]},
			Resolutions: d.Resolutions,
			Bounds: orb.Bound{
				Min: orb.Point{d.Bounds[0][0], d.Bounds[0][1]},
				Max: orb.Point{d.Bounds[1][0], d.Bounds[1][1]},
			},
			TileSize: d.TileSize,
		}
		switch strings.ToLower(d.Unproject) {
		case "", "identity":
		case "mercator":
			def.Project = project.WGS84.ToMercator
			def.Unproject = project.Mercator.ToWGS84
		default:
			return i, fmt.Errorf("projection %s: unknown unproject %q, must be 'identity' or 'mercator'", d.Name, d.Unproject)
		}
		r.Register(NewTiledProjection(def))
	}

	return len(file.Projections), nil
}
