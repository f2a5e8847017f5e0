// pkg/crs/crs.go - Coordinate reference system normalisation
package crs

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// CS identifies the coordinate reference system a coordinate tuple is expressed in
type CS int

const (
	// GCRS is geographic longitude/latitude
	GCRS CS = iota
	// PCRS is the projected system of the target projection
	PCRS
	// TCRS is tiled pixel space at a given zoom
	TCRS
	// TileMatrix is tile-relative space, one unit per tile
	TileMatrix
)

// FallbackCS is used for extents that do not declare a usable coordinate system
const FallbackCS = TileMatrix

// String returns the canonical name of the coordinate system
func (c CS) String() string {
	switch c {
	case GCRS:
		return "GCRS"
	case PCRS:
		return "PCRS"
	case TCRS:
		return "TCRS"
	case TileMatrix:
		return "TILEMATRIX"
	default:
		return fmt.Sprintf("CS(%d)", int(c))
	}
}

// ParseCS parses a coordinate system name. Unknown names yield GCRS and false.
func ParseCS(name string) (CS, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "GCRS":
		return GCRS, true
	case "PCRS":
		return PCRS, true
	case "TCRS":
		return TCRS, true
	case "TILEMATRIX":
		return TileMatrix, true
	default:
		return GCRS, false
	}
}

// axisSystems maps extent axis names to the coordinate system they belong to
var axisSystems = map[string]CS{
	"longitude": GCRS,
	"latitude":  GCRS,
	"easting":   PCRS,
	"northing":  PCRS,
	"x":         TCRS,
	"y":         TCRS,
	"column":    TileMatrix,
	"row":       TileMatrix,
	"i":         TileMatrix,
	"j":         TileMatrix,
}

// AxisCS returns the coordinate system an axis name belongs to.
// Generic axis names such as "horizontal" and "vertical" report false.
func AxisCS(axis string) (CS, bool) {
	cs, ok := axisSystems[strings.ToLower(axis)]
	return cs, ok
}

// ToPCRS converts a point from the source system into the projection's PCRS
func ToPCRS(p orb.Point, cs CS, zoom int, proj Projection) orb.Point {
	switch cs {
	case PCRS:
		return p
	case GCRS:
		return proj.Project(p)
	case TCRS:
		return proj.Untransform(p, proj.Scale(zoom))
	case TileMatrix:
		size := float64(proj.TileSize())
		return proj.Untransform(orb.Point{p[0] * size, p[1] * size}, proj.Scale(zoom))
	default:
		return proj.Project(p)
	}
}

// ToGeographic converts a point from the source system into longitude/latitude.
// GCRS input is already geographic and is returned unchanged.
func ToGeographic(p orb.Point, cs CS, zoom int, proj Projection) orb.Point {
	if cs == GCRS {
		return p
	}
	return proj.Unproject(ToPCRS(p, cs, zoom, proj))
}

// BoundsToPCRS converts a box expressed in cs into a normalised PCRS box
func BoundsToPCRS(b orb.Bound, zoom int, proj Projection, cs CS) orb.Bound {
	lo := ToPCRS(b.Min, cs, zoom, proj)
	hi := ToPCRS(b.Max, cs, zoom, proj)
	return orb.Bound{Min: lo, Max: lo}.Extend(hi)
}

// PixelBoundsToPCRS converts a viewport pixel box at zoom into a PCRS box
func PixelBoundsToPCRS(b orb.Bound, zoom int, proj Projection) orb.Bound {
	return BoundsToPCRS(b, zoom, proj, TCRS)
}
