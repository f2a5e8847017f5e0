// pkg/mapml/document.go - MapML document parsing
package mapml

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Document is a parsed MapML document. It is not modified after Parse returns.
type Document struct {
	Features    []*Feature
	Meta        map[string]string
	Stylesheets []Stylesheet
	Base        string

	hasExtent bool
}

// Stylesheet is a linked or inline stylesheet declared by a document
type Stylesheet struct {
	Href   string
	Inline string
}

// Feature is a single feature element of a document
type Feature struct {
	Index      int
	Zoom       *int
	Class      string
	Geometry   *html.Node
	Properties *html.Node

	node *html.Node
}

// Parse reads a MapML document. Markup problems are tolerated, only read
// failures are reported.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing MapML: %w", err)
	}

	doc := &Document{
		Meta: make(map[string]string),
	}
	doc.collect(root)
	return doc, nil
}

// ParseString parses a document held in a string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseBytes parses a document held in a byte slice
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

func (d *Document) collect(n *html.Node) {
	if n.Type == html.ElementNode {
		switch localName(n) {
		case "feature":
			d.Features = append(d.Features, newFeature(n, len(d.Features)))
			return
		case "meta":
			name := strings.ToLower(getAttr(n, "name"))
			if _, seen := d.Meta[name]; name != "" && !seen {
				d.Meta[name] = getAttr(n, "content")
			}
		case "link":
			if strings.EqualFold(getAttr(n, "rel"), "stylesheet") {
				d.Stylesheets = append(d.Stylesheets, Stylesheet{Href: getAttr(n, "href")})
			}
		case "style":
			d.Stylesheets = append(d.Stylesheets, Stylesheet{Inline: textContent(n)})
		case "base":
			if d.Base == "" {
				d.Base = getAttr(n, "href")
			}
		case "extent":
			d.hasExtent = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.collect(c)
	}
}

// IsStatic reports whether the document carries static features rather than
// being a templated or query-result document
func (d *Document) IsStatic() bool {
	return !d.hasExtent && len(d.Features) > 0
}

// FeatureCount returns the number of feature elements in document order
func (d *Document) FeatureCount() int {
	return len(d.Features)
}

func newFeature(n *html.Node, index int) *Feature {
	f := &Feature{
		Index:      index,
		Class:      strings.TrimSpace(getAttr(n, "class")),
		Geometry:   findElement(n, "geometry"),
		Properties: findElement(n, "properties"),
		node:       n,
	}
	if z, ok := attr(n, "zoom"); ok {
		if zoom, err := parseZoom(z); err == nil {
			f.Zoom = &zoom
		}
	}
	return f
}

// Valid reports whether the feature has a geometry with coordinate content
func (f *Feature) Valid() bool {
	return f.Geometry != nil && findElement(f.node, "coordinates") != nil
}

// CS returns the coordinate system declared on the geometry, if any
func (f *Feature) CS() string {
	if f.Geometry == nil {
		return ""
	}
	return getAttr(f.Geometry, "cs")
}

// EffectiveZoom returns the explicit zoom of the feature or native when absent
func (f *Feature) EffectiveZoom(native int) int {
	if f.Zoom != nil {
		return *f.Zoom
	}
	return native
}

// PropertiesHTML renders the properties payload as markup
func (f *Feature) PropertiesHTML() string {
	if f.Properties == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := f.Properties.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return strings.TrimSpace(buf.String())
}

// parseZoom reads a base 10 zoom level. Leading zeros are not an octal prefix.
func parseZoom(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// MetaContent parses a meta content attribute of the form "k=v,k=v".
// Content without any '=' is returned under the "content" key.
func MetaContent(content string) map[string]string {
	result := make(map[string]string)
	content = strings.TrimSpace(content)
	if !strings.Contains(content, "=") {
		if content != "" {
			result["content"] = content
		}
		return result
	}
	for _, pair := range strings.Split(content, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" {
			result[key] = strings.TrimSpace(value)
		}
	}
	return result
}

// localName returns the element name without the custom element prefix
func localName(n *html.Node) string {
	return strings.TrimPrefix(n.Data, "map-")
}

func findElement(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && localName(c) == name {
			return c
		}
		if result := findElement(c, name); result != nil {
			return result
		}
	}
	return nil
}

func findElements(n *html.Node, name string) []*html.Node {
	var result []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && localName(c) == name {
			result = append(result, c)
		}
		result = append(result, findElements(c, name)...)
	}
	return result
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func getAttr(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}

// textContent returns all descendant text
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// textOutsideSpans returns the descendant text of n, leaving out span subtrees
func textOutsideSpans(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				sb.WriteString(c.Data)
				sb.WriteByte(' ')
			case c.Type == html.ElementNode && localName(c) != "span":
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}
