// pkg/crs/crs_test.go - Unit tests for coordinate reference conversions
package crs

import (
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCS(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   CS
		wantOK bool
	}{
		{"gcrs", "gcrs", GCRS, true},
		{"pcrs upper", "PCRS", PCRS, true},
		{"tcrs mixed", " Tcrs ", TCRS, true},
		{"tilematrix", "tilematrix", TileMatrix, true},
		{"unknown falls back to gcrs", "tile", GCRS, false},
		{"empty", "", GCRS, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCS(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestToPCRS_PCRSIsIdentity(t *testing.T) {
	proj := OSMTile()
	points := []orb.Point{
		{0, 0},
		{-8238310.24, 4969803.34},
		{1e-9, -1e9},
		{20037508.342787, -20037508.342787},
	}

	for _, p := range points {
		for zoom := -2; zoom < 25; zoom++ {
			assert.Equal(t, p, ToPCRS(p, PCRS, zoom, proj))
		}
	}
}

func TestToPCRS_TCRSGoldenValue(t *testing.T) {
	got := ToPCRS(orb.Point{10, 20}, TCRS, 3, OSMTile())

	assert.InDelta(t, -19841829.550412, got[0], 1e-6)
	assert.InDelta(t, 19646150.758037, got[1], 1e-6)
}

func TestToPCRS_TileMatrixScalesByTileSize(t *testing.T) {
	proj := OSMTile()

	fromTiles := ToPCRS(orb.Point{1.5, 2.25}, TileMatrix, 4, proj)
	fromPixels := ToPCRS(orb.Point{1.5 * 256, 2.25 * 256}, TCRS, 4, proj)

	assert.Equal(t, fromPixels, fromTiles)
}

func TestToPCRS_TCRSRoundTrip(t *testing.T) {
	proj := OSMTile()
	pcrs := orb.Point{-8238310.24, 4969803.34}

	for zoom := 0; zoom < len(proj.Resolutions()); zoom++ {
		pixel := proj.Transform(pcrs, proj.Scale(zoom))
		back := ToPCRS(pixel, TCRS, zoom, proj)
		assert.InDelta(t, pcrs[0], back[0], 1e-6, "zoom %d", zoom)
		assert.InDelta(t, pcrs[1], back[1], 1e-6, "zoom %d", zoom)
	}
}

func TestToGeographic(t *testing.T) {
	proj := OSMTile()

	// GCRS passes through untouched
	lonlat := orb.Point{-74.006, 40.7128}
	assert.Equal(t, lonlat, ToGeographic(lonlat, GCRS, 5, proj))

	// Web Mercator point, roughly New York City
	got := ToGeographic(orb.Point{-8238310.24, 4969803.34}, PCRS, 0, proj)
	assert.InDelta(t, -74.006, got[0], 0.01)
	assert.InDelta(t, 40.7128, got[1], 0.01)

	// TCRS origin is the north-west corner of the world
	corner := ToGeographic(orb.Point{0, 0}, TCRS, 0, proj)
	assert.InDelta(t, -180, corner[0], 1e-6)
	assert.InDelta(t, 85.0511, corner[1], 1e-3)
}

func TestToGeographic_WGS84IsPlateCarree(t *testing.T) {
	proj := WGS84()

	got := ToGeographic(orb.Point{256, 128}, TCRS, 0, proj)
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.InDelta(t, 0, got[1], 1e-9)
}

func TestAxisCS(t *testing.T) {
	tests := []struct {
		axis   string
		want   CS
		wantOK bool
	}{
		{"longitude", GCRS, true},
		{"northing", PCRS, true},
		{"x", TCRS, true},
		{"Column", TileMatrix, true},
		{"horizontal", GCRS, false},
		{"vertical", GCRS, false},
	}

	for _, tt := range tests {
		t.Run(tt.axis, func(t *testing.T) {
			got, ok := AxisCS(tt.axis)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBoundsToPCRS_Normalises(t *testing.T) {
	proj := OSMTile()
	b := BoundsToPCRS(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, 0, proj, TileMatrix)

	assert.Less(t, b.Min[0], b.Max[0])
	assert.Less(t, b.Min[1], b.Max[1])
	assert.InDelta(t, -webMercatorMax, b.Min[0], 1e-3)
	assert.InDelta(t, webMercatorMax, b.Max[1], 1e-3)
}

func TestPixelBoundsToPCRS(t *testing.T) {
	proj := OSMTile()
	pixels := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{256, 256}}

	b := PixelBoundsToPCRS(pixels, 0, proj)
	assert.InDelta(t, -webMercatorMax, b.Min[0], 1e-3)
	assert.InDelta(t, webMercatorMax, b.Max[0], 0.01)
}

func TestScaleOutsideResolutionTable(t *testing.T) {
	proj := OSMTile()
	last := len(proj.Resolutions()) - 1

	assert.InDelta(t, proj.Scale(last)*2, proj.Scale(last+1), 1e-12)
	assert.InDelta(t, proj.Scale(0)/2, proj.Scale(-1), 1e-12)
}

func TestTileMatrixBounds(t *testing.T) {
	osm := OSMTile().TileMatrixBounds(0)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, osm)

	wgs := WGS84().TileMatrixBounds(0)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 1}}, wgs)

	z3 := OSMTile().TileMatrixBounds(3)
	assert.Equal(t, 8.0, z3.Max[0])
}

func TestProjectionCode(t *testing.T) {
	var p Projection = OSMTile()
	if p.Code() != "EPSG:3857" {
		t.Errorf("Expected EPSG:3857, got %s", p.Code())
	}
	if WGS84().Code() != "EPSG:4326" {
		t.Errorf("Expected EPSG:4326, got %s", WGS84().Code())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	p, ok := r.Lookup("osmtile")
	require.True(t, ok)
	assert.Equal(t, "OSMTILE", p.Name())

	_, ok = r.Lookup("CBMTILE")
	assert.False(t, ok)

	assert.Equal(t, "OSMTILE", r.Fallback().Name())
	assert.Equal(t, []string{"OSMTILE", "WGS84"}, r.Names())

	require.NoError(t, r.SetFallback("wgs84"))
	assert.Equal(t, "WGS84", r.Fallback().Name())
	assert.Error(t, r.SetFallback("CBMTILE"))
	assert.Equal(t, "WGS84", r.Fallback().Name())
}

func TestRegistryLoadDefinitions(t *testing.T) {
	definitions := `
projections:
  - name: halftile
    code: EPSG:3857
    origin: [-20037508.342787, 20037508.342787]
    resolutions: [78271.51695, 39135.758475]
    bounds: [[-20037508.342787, -20037508.342787], [20037508.342787, 20037508.342787]]
    tile_size: 512
    unproject: mercator
`
	r := NewRegistry()
	n, err := r.LoadDefinitions(strings.NewReader(definitions))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, ok := r.Lookup("HALFTILE")
	require.True(t, ok)
	assert.Equal(t, 512, p.TileSize())
	assert.Len(t, p.Resolutions(), 2)

	lonlat := p.Unproject(orb.Point{0, 0})
	assert.InDelta(t, 0, lonlat[0], 1e-9)
	assert.False(t, math.IsNaN(lonlat[1]))
}

func TestRegistryLoadDefinitions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "projections:\n  - resolutions: [1]\n"},
		{"missing resolutions", "projections:\n  - name: empty\n"},
		{"unknown unproject", "projections:\n  - name: odd\n    resolutions: [1]\n    unproject: lambert\n"},
		{"not yaml", "projections: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry().LoadDefinitions(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}
