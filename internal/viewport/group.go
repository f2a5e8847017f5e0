// internal/viewport/group.go - Active layer set capability and default implementation
package viewport

import "github.com/valpere/mapml_features/pkg/mapml"

// LayerGroup is the active set the renderer displays
type LayerGroup interface {
	AddLayer(layer *mapml.DecodedLayer)
	RemoveLayer(layer *mapml.DecodedLayer)
	ClearLayers()
	EachLayer(fn func(layer *mapml.DecodedLayer))
}

// StyleSink removes presentation rules injected for the current view
type StyleSink interface {
	RemoveStylesheets()
}

// Group is an ordered LayerGroup. Adding a layer twice keeps a single entry.
// The zero value is an empty group.
type Group struct {
	layers []*mapml.DecodedLayer
	index  map[*mapml.DecodedLayer]int
}

// NewGroup creates an empty group
func NewGroup() *Group {
	return &Group{index: make(map[*mapml.DecodedLayer]int)}
}

// AddLayer appends layer to the group
func (g *Group) AddLayer(layer *mapml.DecodedLayer) {
	if layer == nil {
		return
	}
	if _, ok := g.index[layer]; ok {
		return
	}
	if g.index == nil {
		g.index = make(map[*mapml.DecodedLayer]int)
	}
	g.index[layer] = len(g.layers)
	g.layers = append(g.layers, layer)
}

// RemoveLayer removes layer if present
func (g *Group) RemoveLayer(layer *mapml.DecodedLayer) {
	i, ok := g.index[layer]
	if !ok {
		return
	}
	g.layers = append(g.layers[:i], g.layers[i+1:]...)
	delete(g.index, layer)
	for j := i; j < len(g.layers); j++ {
		g.index[g.layers[j]] = j
	}
}

// ClearLayers removes every layer
func (g *Group) ClearLayers() {
	g.layers = nil
	g.index = make(map[*mapml.DecodedLayer]int)
}

// EachLayer calls fn for every layer in insertion order
func (g *Group) EachLayer(fn func(layer *mapml.DecodedLayer)) {
	for _, layer := range g.layers {
		fn(layer)
	}
}

// Has reports whether layer is in the group
func (g *Group) Has(layer *mapml.DecodedLayer) bool {
	_, ok := g.index[layer]
	return ok
}

// Len returns the number of layers in the group
func (g *Group) Len() int {
	return len(g.layers)
}

// Layers returns a copy of the layers in insertion order
func (g *Group) Layers() []*mapml.DecodedLayer {
	return append([]*mapml.DecodedLayer(nil), g.layers...)
}
