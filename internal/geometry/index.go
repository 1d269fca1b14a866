// Package geometry builds the per-document word index: normalized word
// rectangles derived from backend polygons, pixel-space hit-testing, and
// cross-page selection range resolution.
package geometry

import (
	"math"
	"sort"
	"strings"

	"github.com/golang/geo/r2"

	"github.com/askpdf/askpdf/internal/docmodel"
)

// NoLine marks a word that no backend line covers.
const NoLine = -1

// WordRect is a word's bounding box normalized to [0,1] of the page size.
// When the word belongs to a line, Top and Height come from the line's box
// rather than the word's own polygon; glyph polygons are noisy vertically
// while line boxes are stable.
type WordRect struct {
	WordIndex int
	LineID    int
	Left      float64
	Top       float64
	Width     float64
	Height    float64
}

// LineKey is the vertical grouping key used by span merging: the line id
// when present, otherwise the normalized top coordinate.
func (r WordRect) LineKey() float64 {
	if r.LineID != NoLine {
		return float64(r.LineID)
	}
	return r.Top
}

// PageMeta records a page's pixel dimensions at the current zoom plus its
// physical dimensions, which are zoom-invariant.
type PageMeta struct {
	Width      int
	Height     int
	WidthInch  float64
	HeightInch float64
}

// PixelRect maps a normalized rect into the page's pixel space.
func PixelRect(rect WordRect, meta PageMeta) r2.Rect {
	w := float64(meta.Width)
	h := float64(meta.Height)
	return r2.RectFromPoints(
		r2.Point{X: rect.Left * w, Y: rect.Top * h},
		r2.Point{X: (rect.Left + rect.Width) * w, Y: (rect.Top + rect.Height) * h},
	)
}

// PageWord pairs a word index with its text, in reading order.
type PageWord struct {
	WordIndex int
	Text      string
}

// Index is the immutable geometry of one loaded document. Pages with
// missing or malformed geometry simply have no entries; consumers treat an
// empty rect list as "no interaction available" on that page.
type Index struct {
	rects map[int][]WordRect
	words map[int][]PageWord
	dims  map[int][2]float64
	pages []int
}

// BuildIndex converts a result payload into normalized per-page rects and
// word lists, both sorted ascending by word index.
func BuildIndex(result *docmodel.ResultPayload) *Index {
	idx := &Index{
		rects: map[int][]WordRect{},
		words: map[int][]PageWord{},
		dims:  map[int][2]float64{},
	}
	if result == nil {
		return idx
	}
	for _, page := range result.Pages {
		if page.PageNumber <= 0 || page.Width <= 0 || page.Height <= 0 {
			continue
		}
		idx.dims[page.PageNumber] = [2]float64{page.Width, page.Height}

		wordToLine := map[int]int{}
		lineBounds := map[int]r2.Rect{}
		for lineID, line := range page.Lines {
			bounds, ok := polygonBounds(line.Polygon)
			for _, wordIndex := range line.WordIndexes {
				if _, seen := wordToLine[wordIndex]; !seen {
					wordToLine[wordIndex] = lineID
				}
			}
			if ok {
				lineBounds[lineID] = bounds
			}
		}

		var rects []WordRect
		var words []PageWord
		for _, word := range page.Words {
			if word.WordIndex < 0 {
				continue
			}
			words = append(words, PageWord{WordIndex: word.WordIndex, Text: word.Content})
			bounds, ok := polygonBounds(word.Polygon)
			if !ok {
				continue
			}
			rect := WordRect{
				WordIndex: word.WordIndex,
				LineID:    NoLine,
				Left:      bounds.X.Lo / page.Width,
				Top:       bounds.Y.Lo / page.Height,
				Width:     bounds.X.Length() / page.Width,
				Height:    bounds.Y.Length() / page.Height,
			}
			if lineID, covered := wordToLine[word.WordIndex]; covered {
				rect.LineID = lineID
				if lb, has := lineBounds[lineID]; has {
					rect.Top = lb.Y.Lo / page.Height
					rect.Height = lb.Y.Length() / page.Height
				}
			}
			rects = append(rects, rect)
		}
		sort.Slice(rects, func(i, j int) bool { return rects[i].WordIndex < rects[j].WordIndex })
		sort.Slice(words, func(i, j int) bool { return words[i].WordIndex < words[j].WordIndex })
		if len(rects) > 0 {
			idx.rects[page.PageNumber] = rects
		}
		if len(words) > 0 {
			idx.words[page.PageNumber] = words
		}
	}
	pages := make([]int, 0, len(idx.rects))
	for page := range idx.rects {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	idx.pages = pages
	return idx
}

// Pages returns the page numbers that carry geometry, ascending.
func (idx *Index) Pages() []int { return idx.pages }

// Rects returns the page's word rects sorted by word index. Nil when the
// page has no usable geometry.
func (idx *Index) Rects(page int) []WordRect { return idx.rects[page] }

// Words returns the page's words in reading order.
func (idx *Index) Words(page int) []PageWord { return idx.words[page] }

// WordTexts returns every page's word list, keyed by page number.
func (idx *Index) WordTexts() map[int][]PageWord { return idx.words }

// PhysicalDims returns the page's native width and height when known.
func (idx *Index) PhysicalDims(page int) (width, height float64, ok bool) {
	d, ok := idx.dims[page]
	return d[0], d[1], ok
}

// Rect returns the rect for one word index on the page.
func (idx *Index) Rect(page, wordIndex int) (WordRect, bool) {
	rects := idx.rects[page]
	i := sort.Search(len(rects), func(i int) bool { return rects[i].WordIndex >= wordIndex })
	if i < len(rects) && rects[i].WordIndex == wordIndex {
		return rects[i], true
	}
	return WordRect{}, false
}

func polygonBounds(polygon []float64) (r2.Rect, bool) {
	if len(polygon) < 4 || len(polygon)%2 != 0 {
		return r2.Rect{}, false
	}
	bounds := r2.EmptyRect()
	for i := 0; i+1 < len(polygon); i += 2 {
		x, y := polygon[i], polygon[i+1]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return r2.Rect{}, false
		}
		bounds = bounds.AddPoint(r2.Point{X: x, Y: y})
	}
	return bounds, true
}

// WordIndexAtPoint resolves page-pixel coordinates to the word whose rect
// contains them. Exact containment only; no fallback.
func WordIndexAtPoint(rects []WordRect, meta PageMeta, x, y float64) (int, bool) {
	p := r2.Point{X: x, Y: y}
	for _, rect := range rects {
		if PixelRect(rect, meta).ContainsPoint(p) {
			return rect.WordIndex, true
		}
	}
	return 0, false
}

// LastWordIndexBeforePoint is the drag fallback for points between words:
// the highest-indexed word whose rect center lies above-and-left of the
// pointer. Equal centers tie-break by ascending word index, so the later
// word wins deterministically.
func LastWordIndexBeforePoint(rects []WordRect, meta PageMeta, x, y float64) (int, bool) {
	best := -1
	found := false
	for _, rect := range rects {
		pr := PixelRect(rect, meta)
		center := pr.Center()
		if center.Y <= y && center.X <= x {
			if !found || rect.WordIndex > best {
				best = rect.WordIndex
				found = true
			}
		}
	}
	return best, found
}

// Range is a raw cross-page word selection as produced by a gesture; start
// may come after end in page or index order.
type Range struct {
	StartPage  int
	StartIndex int
	EndPage    int
	EndIndex   int
}

// Normalize reorders a range so StartPage <= EndPage, and within a single
// page StartIndex <= EndIndex.
func (r Range) Normalize() Range {
	if r.StartPage < r.EndPage {
		return r
	}
	if r.StartPage > r.EndPage {
		return Range{StartPage: r.EndPage, StartIndex: r.EndIndex, EndPage: r.StartPage, EndIndex: r.StartIndex}
	}
	lo, hi := r.StartIndex, r.EndIndex
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{StartPage: r.StartPage, StartIndex: lo, EndPage: r.EndPage, EndIndex: hi}
}

// PageRange resolves the contiguous word sub-range a selection covers on
// one page: the full page for interior pages, clipped at the gesture
// endpoints on the boundary pages. rects must be non-empty and sorted.
func PageRange(rects []WordRect, pageNumber int, sel Range) (int, int) {
	firstIndex := rects[0].WordIndex
	lastIndex := rects[len(rects)-1].WordIndex
	if sel.StartPage == sel.EndPage {
		lo, hi := sel.StartIndex, sel.EndIndex
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi
	}
	if sel.StartPage < sel.EndPage {
		switch pageNumber {
		case sel.StartPage:
			return sel.StartIndex, lastIndex
		case sel.EndPage:
			return firstIndex, sel.EndIndex
		}
		return firstIndex, lastIndex
	}
	switch pageNumber {
	case sel.StartPage:
		return firstIndex, sel.StartIndex
	case sel.EndPage:
		return sel.EndIndex, lastIndex
	}
	return firstIndex, lastIndex
}

// SelectedWordIndices expands a range into the concrete word indices it
// covers, per page. Pages without geometry contribute nothing.
func (idx *Index) SelectedWordIndices(sel Range) map[int][]int {
	sel = sel.Normalize()
	result := map[int][]int{}
	for _, page := range idx.pages {
		if page < sel.StartPage || page > sel.EndPage {
			continue
		}
		rects := idx.rects[page]
		if len(rects) == 0 {
			continue
		}
		lo, hi := PageRange(rects, page, sel)
		var indices []int
		for _, rect := range rects {
			if rect.WordIndex >= lo && rect.WordIndex <= hi {
				indices = append(indices, rect.WordIndex)
			}
		}
		if len(indices) > 0 {
			result[page] = indices
		}
	}
	return result
}

// SelectedText reconstructs the covered text: words joined by spaces within
// a page, pages joined by newlines. Reuses the same per-page range logic as
// highlight rendering so painted and copied content always agree.
func (idx *Index) SelectedText(sel Range) string {
	sel = sel.Normalize()
	pages := make([]int, 0, len(idx.words))
	for page := range idx.words {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	var parts []string
	for _, page := range pages {
		if page < sel.StartPage || page > sel.EndPage {
			continue
		}
		words := idx.words[page]
		if len(words) == 0 {
			continue
		}
		bounds := wordBoundsAsRects(words)
		lo, hi := PageRange(bounds, page, sel)
		var texts []string
		for _, word := range words {
			if word.WordIndex >= lo && word.WordIndex <= hi && word.Text != "" {
				texts = append(texts, word.Text)
			}
		}
		if len(texts) > 0 {
			parts = append(parts, strings.Join(texts, " "))
		}
	}
	return strings.Join(parts, "\n")
}

func wordBoundsAsRects(words []PageWord) []WordRect {
	rects := make([]WordRect, len(words))
	for i, word := range words {
		rects[i] = WordRect{WordIndex: word.WordIndex}
	}
	return rects
}
