// internal/pagination/adapter.go - On-demand decoding of query-result features
package pagination

import (
	"errors"
	"fmt"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/internal/store"
	"github.com/valpere/mapml_features/internal/viewport"
	"github.com/valpere/mapml_features/pkg/mapml"
)

// ErrIndexOutOfRange is returned by Show for an index outside [0, Count)
var ErrIndexOutOfRange = errors.New("feature index out of range")

// FeatureDecoder decodes a single feature
type FeatureDecoder interface {
	DecodeFeature(f *mapml.Feature, meta mapml.Metadata, base mapml.StyleOptions) (*mapml.DecodedLayer, error)
}

// Adapter decodes one feature of a query-result document at a time.
// It holds no navigation state; callers track the current index.
type Adapter struct {
	doc     *mapml.Document
	meta    mapml.Metadata
	decoder FeatureDecoder
	group   viewport.LayerGroup
	style   mapml.StyleOptions
	store   *store.Store
}

// Option configures an Adapter
type Option func(*Adapter)

// WithStyle sets the style options every shown feature is decoded with
func WithStyle(style mapml.StyleOptions) Option {
	return func(a *Adapter) {
		a.style = style
	}
}

// WithStore keeps s holding only the shown feature
func WithStore(s *store.Store) Option {
	return func(a *Adapter) {
		a.store = s
	}
}

// New creates an adapter over doc
func New(doc *mapml.Document, meta mapml.Metadata, decoder FeatureDecoder, group viewport.LayerGroup, opts ...Option) *Adapter {
	if decoder == nil {
		decoder = mapml.NewDecoder()
	}
	a := &Adapter{
		doc:     doc,
		meta:    meta,
		decoder: decoder,
		group:   group,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Count returns the number of features in the document, valid or not
func (a *Adapter) Count() int {
	return a.doc.FeatureCount()
}

// Show clears the active set and replaces it with the decoded feature at
// index. Sub-parts are decoded but not displayed. When the feature cannot be
// decoded the active set is left empty and a coded error is returned.
func (a *Adapter) Show(index int) (*mapml.DecodedLayer, error) {
	count := a.Count()
	if index < 0 || index >= count {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("showing feature %d of %d", index, count), ErrIndexOutOfRange)
	}

	a.group.ClearLayers()
	layer, err := a.decoder.DecodeFeature(a.doc.Features[index], a.meta, a.style)
	if err != nil {
		a.replaceStore(nil)
		return nil, internal.NewError(codeFor(err), fmt.Sprintf("showing feature %d", index), err)
	}

	a.group.AddLayer(layer)
	a.replaceStore([]*mapml.DecodedLayer{layer})
	return layer, nil
}

func (a *Adapter) replaceStore(layers []*mapml.DecodedLayer) {
	if a.store != nil {
		a.store.Replace(layers)
	}
}

func codeFor(err error) string {
	var unsupported *mapml.UnsupportedGeometryError
	switch {
	case errors.As(err, &unsupported):
		return internal.ErrorCodeUnsupported
	case errors.Is(err, mapml.ErrInvalidFeature):
		return internal.ErrorCodeValidation
	default:
		return internal.ErrorCodeProcessing
	}
}

// Navigator tracks the position of a paging control over an adapter
type Navigator struct {
	adapter *Adapter
	index   int
}

// NewNavigator creates a navigator positioned before the first feature
func NewNavigator(adapter *Adapter) *Navigator {
	return &Navigator{adapter: adapter, index: -1}
}

// Index returns the current position, -1 before the first Show
func (n *Navigator) Index() int {
	return n.index
}

// Count returns the total number of features
func (n *Navigator) Count() int {
	return n.adapter.Count()
}

// Label returns the "i/n" position text, 1-based
func (n *Navigator) Label() string {
	return fmt.Sprintf("%d/%d", n.index+1, n.Count())
}

// Go shows the feature at index and moves there
func (n *Navigator) Go(index int) (*mapml.DecodedLayer, error) {
	if index < 0 || index >= n.Count() {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("moving to feature %d of %d", index, n.Count()), ErrIndexOutOfRange)
	}
	n.index = index
	return n.adapter.Show(index)
}

// Next shows the following feature, wrapping to the first
func (n *Navigator) Next() (*mapml.DecodedLayer, error) {
	if n.Count() == 0 {
		return nil, internal.NewError(internal.ErrorCodeNotFound, "no features to show", ErrIndexOutOfRange)
	}
	return n.Go((n.index + 1) % n.Count())
}

// Prev shows the preceding feature, wrapping to the last
func (n *Navigator) Prev() (*mapml.DecodedLayer, error) {
	if n.Count() == 0 {
		return nil, internal.NewError(internal.ErrorCodeNotFound, "no features to show", ErrIndexOutOfRange)
	}
	count := n.Count()
	if n.index < 0 {
		return n.Go(count - 1)
	}
	return n.Go((n.index - 1 + count) % count)
}
