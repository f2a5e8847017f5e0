// pkg/mapml/decoder_test.go - Unit tests for geometry decoding
package mapml

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/valpere/mapml_features/pkg/crs"
)

// geometryOf parses a single feature and returns its geometry element
func geometryOf(t *testing.T, geometry string) *html.Node {
	t.Helper()
	doc, err := ParseString("<mapml><feature><geometry>" + geometry + "</geometry></feature></mapml>")
	require.NoError(t, err)
	require.Len(t, doc.Features, 1)
	require.NotNil(t, doc.Features[0].Geometry)
	return doc.Features[0].Geometry
}

func decodePCRS(t *testing.T, geometry string) *DecodedLayer {
	t.Helper()
	layer, err := NewDecoder().Decode(geometryOf(t, geometry), crs.PCRS, 0, crs.OSMTile(), StyleOptions{})
	require.NoError(t, err)
	require.NotNil(t, layer)
	return layer
}

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name     string
		geometry string
		wantType GeometryType
		want     orb.Geometry
	}{
		{
			name:     "point",
			geometry: "<point><coordinates>10 20</coordinates></point>",
			wantType: GeometryPoint,
			want:     orb.Point{10, 20},
		},
		{
			name:     "multipoint",
			geometry: "<multipoint><coordinates>1 2 3 4 5 6</coordinates></multipoint>",
			wantType: GeometryMultiPoint,
			want:     orb.MultiPoint{{1, 2}, {3, 4}, {5, 6}},
		},
		{
			name:     "linestring",
			geometry: "<linestring><coordinates>0 0\n 10   10\t20 0</coordinates></linestring>",
			wantType: GeometryLineString,
			want:     orb.LineString{{0, 0}, {10, 10}, {20, 0}},
		},
		{
			name:     "multilinestring",
			geometry: "<multilinestring><coordinates>0 0 1 1</coordinates><coordinates>5 5 6 6 7 7</coordinates></multilinestring>",
			wantType: GeometryMultiLineString,
			want:     orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}, {6, 6}, {7, 7}}},
		},
		{
			name:     "polygon with hole",
			geometry: "<polygon><coordinates>0 0 10 0 10 10 0 0</coordinates><coordinates>2 2 3 2 3 3 2 2</coordinates></polygon>",
			wantType: GeometryPolygon,
			want: orb.Polygon{
				{{0, 0}, {10, 0}, {10, 10}, {0, 0}},
				{{2, 2}, {3, 2}, {3, 3}, {2, 2}},
			},
		},
		{
			name:     "multipolygon",
			geometry: "<multipolygon><polygon><coordinates>0 0 1 0 1 1 0 0</coordinates></polygon><polygon><coordinates>5 5 6 5 6 6 5 5</coordinates></polygon></multipolygon>",
			wantType: GeometryMultiPolygon,
			want: orb.MultiPolygon{
				{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
				{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}},
			},
		},
		{
			name:     "prefixed linestring",
			geometry: "<map-linestring><map-coordinates>1 1 2 2</map-coordinates></map-linestring>",
			wantType: GeometryLineString,
			want:     orb.LineString{{1, 1}, {2, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer := decodePCRS(t, tt.geometry)
			assert.Equal(t, tt.wantType, layer.Type)
			assert.Equal(t, tt.want, layer.Projected)
			assert.Empty(t, layer.SubParts)
		})
	}
}

func TestDecode_PointAltitude(t *testing.T) {
	layer, err := NewDecoder().Decode(geometryOf(t, "<point><coordinates>-74.006 40.7128 15</coordinates></point>"),
		crs.GCRS, 0, crs.OSMTile(), StyleOptions{})
	require.NoError(t, err)

	assert.Equal(t, orb.Point{-74.006, 40.7128}, layer.Geometry)
	require.NotNil(t, layer.Altitude)
	assert.Equal(t, 15.0, *layer.Altitude)

	projected := layer.Projected.(orb.Point)
	assert.InDelta(t, -8238310.24, projected[0], 1)
}

func TestDecode_TCRSGoldenValue(t *testing.T) {
	layer, err := NewDecoder().Decode(geometryOf(t, "<point><coordinates>10 20</coordinates></point>"),
		crs.TCRS, 3, crs.OSMTile(), StyleOptions{})
	require.NoError(t, err)

	projected := layer.Projected.(orb.Point)
	assert.InDelta(t, -19841829.550412, projected[0], 1e-6)
	assert.InDelta(t, 19646150.758037, projected[1], 1e-6)

	lonlat := layer.Geometry.(orb.Point)
	assert.InDelta(t, -178.2421875, lonlat[0], 1e-6)
	assert.Equal(t, 3, layer.Zoom)
}

func TestDecode_ProjectedAndGeographicAreSeparate(t *testing.T) {
	geometry := geometryOf(t, "<polygon><coordinates>0 0 256 0 256 256 0 0</coordinates></polygon>")
	layer, err := NewDecoder().Decode(geometry, crs.TCRS, 0, crs.OSMTile(), StyleOptions{})
	require.NoError(t, err)

	projected := layer.Projected.(orb.Polygon)
	geographic := layer.Geometry.(orb.Polygon)
	assert.InDelta(t, 20037508.342787, projected[0][1][0], 0.01)
	assert.InDelta(t, 180, geographic[0][1][0], 1e-6)
	assert.InDelta(t, -180, geographic[0][0][0], 1e-6)
}

func TestDecode_SkipsUnparsableTokens(t *testing.T) {
	layer := decodePCRS(t, "<linestring><coordinates>0 0 a b 2 2</coordinates></linestring>")
	assert.Equal(t, orb.LineString{{0, 0}, {2, 2}}, layer.Projected)
}

func TestDecode_SkipsNonFiniteTokens(t *testing.T) {
	layer := decodePCRS(t, "<linestring><coordinates>0 0 NaN 1 Inf -Inf 2 2</coordinates></linestring>")
	assert.Equal(t, orb.LineString{{0, 0}, {2, 2}}, layer.Projected)

	_, err := NewDecoder().Decode(geometryOf(t, "<point><coordinates>NaN 1</coordinates></point>"),
		crs.PCRS, 0, crs.OSMTile(), StyleOptions{})
	assert.ErrorIs(t, err, ErrNoCoordinates)
}

func TestDecode_PolygonSpans(t *testing.T) {
	geometry := `<polygon><coordinates>0 0 10 0 <span class="a">1 1 2 1 2 2 1 1</span> 10 10 0 10 <span>5 5 6 5 6 6 5 5</span> 0 0</coordinates></polygon>`
	layer := decodePCRS(t, geometry)

	ring := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	assert.Equal(t, orb.Polygon{ring}, layer.Projected)

	require.Len(t, layer.SubParts, 2)
	assert.Equal(t, orb.Polygon{{{1, 1}, {2, 1}, {2, 2}, {1, 1}}}, layer.SubParts[0].Projected)
	assert.Equal(t, orb.Polygon{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}}, layer.SubParts[1].Projected)
	for _, part := range layer.SubParts {
		assert.Equal(t, GeometryPolygon, part.Type)
		assert.Empty(t, part.SubParts)
	}
}

func TestDecode_NestedSpansAreFlattened(t *testing.T) {
	geometry := `<polygon><coordinates>0 0 9 0 9 9 0 0 <span>1 1 8 1 8 8 1 1 <span>2 2 3 2 3 3 2 2</span></span></coordinates></polygon>`
	layer := decodePCRS(t, geometry)

	require.Len(t, layer.SubParts, 2)
	assert.Equal(t, orb.Polygon{{{1, 1}, {8, 1}, {8, 8}, {1, 1}}}, layer.SubParts[0].Projected)
	assert.Equal(t, orb.Polygon{{{2, 2}, {3, 2}, {3, 3}, {2, 2}}}, layer.SubParts[1].Projected)
}

func TestDecode_SpansInsideOtherMarkup(t *testing.T) {
	geometry := `<polygon><coordinates>0 0 9 0 9 9 0 0 <b>ignored 7 <span>1 1 2 1 2 2 1 1</span></b></coordinates></polygon>`
	layer := decodePCRS(t, geometry)

	assert.Equal(t, orb.Polygon{{{0, 0}, {9, 0}, {9, 9}, {0, 0}}}, layer.Projected)
	require.Len(t, layer.SubParts, 1)
}

func TestDecode_RingTextInsideOtherMarkup(t *testing.T) {
	geometry := `<polygon><coordinates>0 0 10 0 <a href="x">10 10 0 10</a> 0 0</coordinates></polygon>`
	layer := decodePCRS(t, geometry)

	assert.Equal(t, orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}, layer.Projected)
	assert.Empty(t, layer.SubParts)
}

func TestDecode_MultiPolygonIgnoresSpans(t *testing.T) {
	geometry := `<multipolygon><polygon><coordinates>0 0 1 0 1 1 0 0 <span>5 5 6 5 6 6 5 5</span></coordinates></polygon></multipolygon>`
	layer := decodePCRS(t, geometry)

	assert.Equal(t, orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, layer.Projected)
	assert.Empty(t, layer.SubParts)
}

func TestDecode_Unsupported(t *testing.T) {
	tests := []struct {
		name     string
		geometry string
		wantType GeometryType
		wantMsg  string
	}{
		{"geometry collection", "<geometrycollection><point><coordinates>0 0</coordinates></point></geometrycollection>", GeometryCollection, "GEOMETRYCOLLECTION not implemented"},
		{"unknown tag", "<circle><coordinates>0 0</coordinates></circle>", GeometryUnknown, `unsupported geometry "circle"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer, err := NewDecoder().Decode(geometryOf(t, tt.geometry), crs.PCRS, 0, crs.OSMTile(), StyleOptions{})
			assert.Nil(t, layer)

			var unsupported *UnsupportedGeometryError
			require.True(t, errors.As(err, &unsupported))
			assert.Equal(t, tt.wantType, unsupported.Type)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestDecode_NoCoordinates(t *testing.T) {
	tests := []string{
		"<point><coordinates>7</coordinates></point>",
		"<linestring><coordinates>x y</coordinates></linestring>",
		"<polygon><coordinates><span>1 1 2 2 1 1</span></coordinates></polygon>",
		"<multilinestring></multilinestring>",
	}

	for _, geometry := range tests {
		_, err := NewDecoder().Decode(geometryOf(t, geometry), crs.PCRS, 0, crs.OSMTile(), StyleOptions{})
		assert.ErrorIs(t, err, ErrNoCoordinates, geometry)
	}
}

func TestDecode_NilInputs(t *testing.T) {
	_, err := NewDecoder().Decode(nil, crs.PCRS, 0, crs.OSMTile(), StyleOptions{})
	assert.ErrorIs(t, err, ErrInvalidFeature)

	_, err = NewDecoder().Decode(geometryOf(t, "<point><coordinates>0 0</coordinates></point>"), crs.PCRS, 0, nil, StyleOptions{})
	assert.Error(t, err)
}

func TestDecodeFeature(t *testing.T) {
	doc, err := ParseString(`<mapml>
<meta name="zoom" content="value=2">
<meta name="cs" content="pcrs">
<feature class="park"><geometry><polygon><coordinates>0 0 1 0 1 1 0 0 <span>0 0 1 0 1 1 0 0</span></coordinates></polygon></geometry><properties><p>Park</p></properties></feature>
<feature zoom="5"><geometry cs="tcrs"><point><coordinates>10 20</coordinates></point></geometry></feature>
<feature><properties>empty</properties></feature>
</mapml>`)
	require.NoError(t, err)
	meta := NewResolver(nil, nil).Resolve(doc)
	decoder := NewDecoder()

	park, err := decoder.DecodeFeature(doc.Features[0], meta, StyleOptions{Weight: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, park.Zoom)
	assert.Equal(t, "park", park.Style.ClassName)
	assert.Equal(t, 2.0, park.Style.Weight)
	assert.Equal(t, park.Style, park.DefaultStyle)
	assert.Same(t, doc.Features[0], park.Feature)
	assert.Same(t, doc.Features[0].Properties, park.Properties)
	require.Len(t, park.SubParts, 1)
	assert.Same(t, doc.Features[0], park.SubParts[0].Feature)
	assert.Equal(t, 2, park.SubParts[0].Zoom)

	point, err := decoder.DecodeFeature(doc.Features[1], meta, StyleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, point.Zoom)
	projected := point.Projected.(orb.Point)
	osm := crs.OSMTile()
	assert.InDelta(t, osm.Untransform(orb.Point{10, 20}, osm.Scale(5))[0], projected[0], 1e-6)

	_, err = decoder.DecodeFeature(doc.Features[2], meta, StyleOptions{})
	assert.ErrorIs(t, err, ErrInvalidFeature)
}

func TestDecodeFeature_ColorKeepsClassName(t *testing.T) {
	doc, err := ParseString(`<mapml><feature class="lake"><geometry><point><coordinates>1 2</coordinates></point></geometry></feature></mapml>`)
	require.NoError(t, err)
	meta := NewResolver(nil, nil).Resolve(doc)

	layer, err := NewDecoder().DecodeFeature(doc.Features[0], meta, StyleOptions{Color: "#00f", ClassName: "query"})
	require.NoError(t, err)
	assert.Equal(t, "query", layer.Style.ClassName)
}

func TestDecodedLayerStyle(t *testing.T) {
	layer := decodePCRS(t, "<point><coordinates>0 0</coordinates></point>")
	layer.DefaultStyle = StyleOptions{Color: "red", Weight: 1}
	layer.ResetStyle()

	layer.SetStyle(StyleOptions{Weight: 4, FillOpacity: 0.5})
	assert.Equal(t, StyleOptions{Color: "red", Weight: 4, FillOpacity: 0.5}, layer.Style)

	layer.ResetStyle()
	assert.Equal(t, StyleOptions{Color: "red", Weight: 1}, layer.Style)
}
