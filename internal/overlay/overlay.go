// Package overlay turns sets of word rectangles into merged visual spans and
// keeps a retained, layered scene of everything drawn over the page stack.
// Selection, annotations, search matches and reference highlights all flow
// through the same grouping algorithm so a given set of words always produces
// identical rectangles regardless of which feature painted them.
package overlay

import (
	"sort"

	"github.com/golang/geo/r2"

	"github.com/askpdf/askpdf/internal/docmodel"
	"github.com/askpdf/askpdf/internal/geometry"
)

// Style distinguishes annotation spans. Selection, search and reference
// spans use the zero Style; their appearance is fixed per layer.
type Style struct {
	Mode  docmodel.Mode
	Color string
}

// Item is one word rectangle queued for grouping.
type Item struct {
	Rect  geometry.WordRect
	Style Style
}

// Span is a merged run of visually adjacent words on one line. Coordinates
// are normalized to the page, like the word rects they union.
type Span struct {
	Left      float64
	Top       float64
	Width     float64
	Height    float64
	FirstWord int
	LastWord  int
	Style     Style
	lineKey   float64
}

// Right returns the span's right edge.
func (s Span) Right() float64 { return s.Left + s.Width }

// Group merges items into spans. Two items join the same span only when
// they sit on the same line, carry the same style, and their word indices
// are consecutive. A gap in the index sequence splits the run even when the
// rectangles touch, so geometry alone never bridges unselected words.
func Group(items []Item, byStyle bool) []Span {
	if len(items) == 0 {
		return nil
	}
	sorted := append([]Item(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ak, bk := a.Rect.LineKey(), b.Rect.LineKey(); ak != bk {
			return ak < bk
		}
		if byStyle {
			if a.Style.Mode != b.Style.Mode {
				return a.Style.Mode < b.Style.Mode
			}
			if a.Style.Color != b.Style.Color {
				return a.Style.Color < b.Style.Color
			}
		}
		return a.Rect.Left < b.Rect.Left
	})

	var spans []Span
	var current *Span
	var bounds r2.Rect
	flush := func() {
		if current == nil {
			return
		}
		current.Left = bounds.X.Lo
		current.Top = bounds.Y.Lo
		current.Width = bounds.X.Length()
		current.Height = bounds.Y.Length()
		spans = append(spans, *current)
		current = nil
	}
	for i := range sorted {
		item := sorted[i]
		rect := r2.RectFromPoints(
			r2.Point{X: item.Rect.Left, Y: item.Rect.Top},
			r2.Point{X: item.Rect.Left + item.Rect.Width, Y: item.Rect.Top + item.Rect.Height},
		)
		extend := current != nil &&
			current.lineKey == item.Rect.LineKey() &&
			item.Rect.WordIndex == current.LastWord+1 &&
			(!byStyle || current.Style == item.Style)
		if extend {
			bounds = bounds.Union(rect)
			current.LastWord = item.Rect.WordIndex
			continue
		}
		flush()
		current = &Span{
			FirstWord: item.Rect.WordIndex,
			LastWord:  item.Rect.WordIndex,
			Style:     item.Style,
			lineKey:   item.Rect.LineKey(),
		}
		bounds = rect
	}
	flush()
	return spans
}

// TrimToNeighbors pulls annotation span edges to the midpoint of the gap
// shared with the adjacent un-spanned word on the same line, when one
// exists. Without this, two differently colored runs that meet mid-line
// would leave an unpainted sliver between them. rects must be the page's
// full rect list sorted by word index.
func TrimToNeighbors(spans []Span, rects []geometry.WordRect) []Span {
	byIndex := make(map[int]geometry.WordRect, len(rects))
	for _, r := range rects {
		byIndex[r.WordIndex] = r
	}
	out := make([]Span, len(spans))
	for i, span := range spans {
		if prev, ok := byIndex[span.FirstWord-1]; ok && prev.LineKey() == span.lineKey {
			prevRight := prev.Left + prev.Width
			if prevRight <= span.Left {
				mid := (prevRight + span.Left) / 2
				span.Width += span.Left - mid
				span.Left = mid
			}
		}
		if next, ok := byIndex[span.LastWord+1]; ok && next.LineKey() == span.lineKey {
			if right := span.Right(); right <= next.Left {
				span.Width += (next.Left - right) / 2
			}
		}
		out[i] = span
	}
	return out
}

// Layer identifies one overlay plane. Higher layers draw later, so they
// win where planes overlap.
type Layer int

const (
	LayerAnnotation Layer = iota
	LayerReference
	LayerSearch
	LayerSelection

	layerCount
)

// Scene is the retained overlay state: per layer, per page, the spans last
// painted there. Painting the same spans twice leaves the scene unchanged.
type Scene struct {
	layers [layerCount]map[int][]Span
}

func NewScene() *Scene {
	s := &Scene{}
	for i := range s.layers {
		s.layers[i] = map[int][]Span{}
	}
	return s
}

// Paint replaces one layer's spans on one page.
func (s *Scene) Paint(layer Layer, page int, spans []Span) {
	if len(spans) == 0 {
		delete(s.layers[layer], page)
		return
	}
	s.layers[layer][page] = spans
}

// Clear empties a layer on every page.
func (s *Scene) Clear(layer Layer) {
	s.layers[layer] = map[int][]Span{}
}

// PageSpans returns every span painted on the page in draw order: lower
// layers first.
func (s *Scene) PageSpans(page int) []PlacedSpan {
	var out []PlacedSpan
	for layer := Layer(0); layer < layerCount; layer++ {
		for _, span := range s.layers[layer][page] {
			out = append(out, PlacedSpan{Layer: layer, Span: span})
		}
	}
	return out
}

// Pages returns the pages that currently carry any spans, ascending.
func (s *Scene) Pages() []int {
	seen := map[int]bool{}
	for layer := Layer(0); layer < layerCount; layer++ {
		for page := range s.layers[layer] {
			seen[page] = true
		}
	}
	pages := make([]int, 0, len(seen))
	for page := range seen {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}

// PlacedSpan is a span together with the layer it belongs to.
type PlacedSpan struct {
	Layer Layer
	Span  Span
}
