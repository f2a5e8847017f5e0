// pkg/crs/projection.go - Tiled projection definitions
package crs

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// FallbackProjection is the projection used when a document does not name one
const FallbackProjection = "OSMTILE"

// Projection is the capability the coordinate engine needs from a map projection.
// Scale returns pixels per PCRS unit at a zoom level, Transform/Untransform move
// between PCRS and TCRS at a scale, and Project/Unproject move between GCRS and PCRS.
type Projection interface {
	Name() string
	Code() string
	Scale(zoom int) float64
	Transform(p orb.Point, scale float64) orb.Point
	Untransform(p orb.Point, scale float64) orb.Point
	Project(p orb.Point) orb.Point
	Unproject(p orb.Point) orb.Point
	TileSize() int
	Resolutions() []float64
	TileMatrixBounds(zoom int) orb.Bound
}

// TiledProjection implements Projection for a tile pyramid with a fixed origin
// and a resolution table indexed by zoom
type TiledProjection struct {
	name        string
	code        string
	origin      orb.Point
	resolutions []float64
	bounds      orb.Bound
	tileSize    int
	project     orb.Projection
	unproject   orb.Projection
}

// Definition describes a tiled projection
type Definition struct {
	Name        string
	Code        string
	Origin      orb.Point
	Resolutions []float64
	Bounds      orb.Bound
	TileSize    int
	Project     orb.Projection
	Unproject   orb.Projection
}

// NewTiledProjection creates a projection from its definition
func NewTiledProjection(def Definition) *TiledProjection {
	tileSize := def.TileSize
	if tileSize <= 0 {
		tileSize = 256
	}
	identity := func(p orb.Point) orb.Point { return p }
	p := &TiledProjection{
		name:        def.Name,
		code:        def.Code,
		origin:      def.Origin,
		resolutions: def.Resolutions,
		bounds:      def.Bounds,
		tileSize:    tileSize,
		project:     def.Project,
		unproject:   def.Unproject,
	}
	if p.project == nil {
		p.project = identity
	}
	if p.unproject == nil {
		p.unproject = identity
	}
	return p
}

// Name returns the projection name
func (p *TiledProjection) Name() string {
	return p.name
}

// Code returns the EPSG code of the projected system
func (p *TiledProjection) Code() string {
	return p.code
}

// Scale returns 1/resolution for the zoom. Zooms outside the resolution
// table continue by powers of two from the nearest entry.
func (p *TiledProjection) Scale(zoom int) float64 {
	n := len(p.resolutions)
	if n == 0 {
		return math.Pow(2, float64(zoom))
	}
	switch {
	case zoom < 0:
		return math.Pow(2, float64(zoom)) / p.resolutions[0]
	case zoom >= n:
		return math.Pow(2, float64(zoom-n+1)) / p.resolutions[n-1]
	default:
		return 1 / p.resolutions[zoom]
	}
}

// Transform converts a PCRS point to TCRS pixels at scale
func (p *TiledProjection) Transform(pt orb.Point, scale float64) orb.Point {
	return orb.Point{
		scale * (pt[0] - p.origin[0]),
		scale * (p.origin[1] - pt[1]),
	}
}

// Untransform converts TCRS pixels at scale to a PCRS point
func (p *TiledProjection) Untransform(pt orb.Point, scale float64) orb.Point {
	return orb.Point{
		pt[0]/scale + p.origin[0],
		p.origin[1] - pt[1]/scale,
	}
}

// Project converts longitude/latitude to PCRS
func (p *TiledProjection) Project(pt orb.Point) orb.Point {
	return p.project(pt)
}

// Unproject converts PCRS to longitude/latitude
func (p *TiledProjection) Unproject(pt orb.Point) orb.Point {
	return p.unproject(pt)
}

// TileSize returns the tile edge length in pixels
func (p *TiledProjection) TileSize() int {
	return p.tileSize
}

// Resolutions returns the resolution table, one entry per zoom level
func (p *TiledProjection) Resolutions() []float64 {
	return p.resolutions
}

// TileMatrixBounds returns the extent of the tile matrix at zoom in tile units
func (p *TiledProjection) TileMatrixBounds(zoom int) orb.Bound {
	scale := p.Scale(zoom)
	size := float64(p.tileSize)
	lo := p.Transform(orb.Point{p.bounds.Min[0], p.bounds.Max[1]}, scale)
	hi := p.Transform(orb.Point{p.bounds.Max[0], p.bounds.Min[1]}, scale)
	return orb.Bound{
		Min: orb.Point{math.Floor(lo[0]/size + 1e-6), math.Floor(lo[1]/size + 1e-6)},
		Max: orb.Point{math.Ceil(hi[0]/size - 1e-6), math.Ceil(hi[1]/size - 1e-6)},
	}
}

const webMercatorMax = 20037508.342787

// OSMTile returns the spherical web mercator tile pyramid
func OSMTile() *TiledProjection {
	resolutions := []float64{
		156543.0339, 78271.51695, 39135.758475, 19567.8792375, 9783.93961875,
		4891.969809375, 2445.9849046875, 1222.9924523438, 611.49622617188,
		305.74811308594, 152.87405654297, 76.437028271484, 38.218514135742,
		19.109257067871, 9.5546285339355, 4.7773142669678, 2.3886571334839,
		1.1943285667419, 0.59716428337097,
	}
	return NewTiledProjection(Definition{
		Name:        "OSMTILE",
		Code:        "EPSG:3857",
		Origin:      orb.Point{-webMercatorMax, webMercatorMax},
		Resolutions: resolutions,
		Bounds: orb.Bound{
			Min: orb.Point{-webMercatorMax, -webMercatorMax},
			Max: orb.Point{webMercatorMax, webMercatorMax},
		},
		TileSize:  256,
		Project:   project.WGS84.ToMercator,
		Unproject: project.Mercator.ToWGS84,
	})
}

// WGS84 returns the plate carree tile pyramid
func WGS84() *TiledProjection {
	resolutions := make([]float64, 22)
	res := 0.703125
	for i := range resolutions {
		resolutions[i] = res
		res /= 2
	}
	return NewTiledProjection(Definition{
		Name:        "WGS84",
		Code:        "EPSG:4326",
		Origin:      orb.Point{-180, 90},
		Resolutions: resolutions,
		Bounds: orb.Bound{
			Min: orb.Point{-180, -90},
			Max: orb.Point{180, 90},
		},
		TileSize: 256,
	})
}
