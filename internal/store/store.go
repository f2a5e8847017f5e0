// internal/store/store.go - Zoom partition store for decoded layers
package store

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/valpere/mapml_features/pkg/mapml"
)

// minExtent pads degenerate boxes (points, axis-aligned lines) so they can be indexed
const minExtent = 1e-6

// Store files decoded layers under the zoom level they are valid at
type Store struct {
	partitions map[int][]*mapml.DecodedLayer
	indexes    map[int]*rtreego.Rtree
	total      int
}

// entry adapts a layer to rtreego.Spatial
type entry struct {
	layer *mapml.DecodedLayer
	order int
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial
func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Build creates a store from decoded layers. Nil layers are skipped.
func Build(layers []*mapml.DecodedLayer) *Store {
	s := &Store{}
	s.Replace(layers)
	return s
}

// Replace discards every partition and refiles layers
func (s *Store) Replace(layers []*mapml.DecodedLayer) {
	s.partitions = make(map[int][]*mapml.DecodedLayer)
	s.indexes = make(map[int]*rtreego.Rtree)
	s.total = 0

	for _, layer := range layers {
		if layer == nil {
			continue
		}
		zoom := layer.Zoom
		order := len(s.partitions[zoom])
		s.partitions[zoom] = append(s.partitions[zoom], layer)
		s.total++

		rect, ok := boundToRect(layer.Bound())
		if !ok {
			continue
		}
		tree, exists := s.indexes[zoom]
		if !exists {
			tree = rtreego.NewTree(2, 25, 50)
			s.indexes[zoom] = tree
		}
		tree.Insert(&entry{layer: layer, order: order, rect: rect})
	}
}

// Lookup returns the partition for zoom in document order. A missing
// partition yields an empty slice. The slice must not be modified.
func (s *Store) Lookup(zoom int) []*mapml.DecodedLayer {
	layers, ok := s.partitions[zoom]
	if !ok {
		return []*mapml.DecodedLayer{}
	}
	return layers
}

// Zooms returns the zoom levels that hold at least one layer, ascending
func (s *Store) Zooms() []int {
	zooms := make([]int, 0, len(s.partitions))
	for z := range s.partitions {
		zooms = append(zooms, z)
	}
	sort.Ints(zooms)
	return zooms
}

// Len returns the number of layers across all partitions
func (s *Store) Len() int {
	return s.total
}

// Search returns the layers of the zoom partition whose PCRS bounds
// intersect b, in document order
func (s *Store) Search(zoom int, b orb.Bound) []*mapml.DecodedLayer {
	tree, ok := s.indexes[zoom]
	if !ok {
		return []*mapml.DecodedLayer{}
	}
	query, ok := boundToRect(b)
	if !ok {
		return []*mapml.DecodedLayer{}
	}

	spatials := tree.SearchIntersect(query)
	entries := make([]*entry, 0, len(spatials))
	for _, spatial := range spatials {
		entries = append(entries, spatial.(*entry))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })

	result := make([]*mapml.DecodedLayer, len(entries))
	for i, e := range entries {
		result[i] = e.layer
	}
	return result
}

// ClampZoom maps a requested zoom onto the nearest zoom with native data.
// A zoom outside [MinZoom, MaxZoom] is returned unchanged so the caller can
// treat it as out of range.
func ClampZoom(requested int, b mapml.ZoomBounds) int {
	if !b.InRange(requested) {
		return requested
	}
	if requested < b.MinNativeZoom {
		return b.MinNativeZoom
	}
	if requested > b.MaxNativeZoom {
		return b.MaxNativeZoom
	}
	return requested
}

func boundToRect(b orb.Bound) (rtreego.Rect, bool) {
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return rtreego.Rect{}, false
	}
	point := rtreego.Point{b.Min[0] - minExtent/2, b.Min[1] - minExtent/2}
	lengths := []float64{
		b.Max[0] - b.Min[0] + minExtent,
		b.Max[1] - b.Min[1] + minExtent,
	}
	rect, err := rtreego.NewRect(point, lengths)
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}
