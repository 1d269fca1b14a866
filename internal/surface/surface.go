// Package surface lays the document's pages out as a vertical stack of
// character rasters and maps pointer coordinates back to pages. A page's
// raster is its coordinate space: one terminal cell is one pixel, so the
// geometry hit-testing operates directly on cell positions.
package surface

import (
	"math"
	"strings"

	"github.com/askpdf/askpdf/internal/geometry"
)

// zoomSteps are the discrete zoom factors; stepDefault indexes 100%.
var zoomSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

const (
	stepDefault = 2

	// baseColumns is a page's cell width at 100% zoom.
	baseColumns = 76

	// cellAspect compensates for terminal cells being roughly twice as
	// tall as wide, so pages keep their physical proportions.
	cellAspect = 0.5

	// pageGap is the blank rows between stacked pages.
	pageGap = 1
)

// Manager owns the zoom level and the derived per-page cell metrics for
// the open document.
type Manager struct {
	index   *geometry.Index
	step    int
	metas   map[int]geometry.PageMeta
	offsets map[int]int
	height  int
}

func NewManager() *Manager {
	return &Manager{step: stepDefault, metas: map[int]geometry.PageMeta{}, offsets: map[int]int{}}
}

// SetIndex installs a document's geometry and rebuilds the layout. A nil
// index empties the surface.
func (m *Manager) SetIndex(idx *geometry.Index) {
	m.index = idx
	m.step = stepDefault
	m.rebuild()
}

// Zoom returns the current zoom factor.
func (m *Manager) Zoom() float64 { return zoomSteps[m.step] }

// SetZoom snaps to the nearest configured step, for state restore.
func (m *Manager) SetZoom(factor float64) {
	best := stepDefault
	for i, step := range zoomSteps {
		if math.Abs(step-factor) < math.Abs(zoomSteps[best]-factor) {
			best = i
		}
	}
	m.step = best
	m.rebuild()
}

// ZoomIn steps to the next larger factor. Reports whether anything changed.
func (m *Manager) ZoomIn() bool {
	if m.step >= len(zoomSteps)-1 {
		return false
	}
	m.step++
	m.rebuild()
	return true
}

// ZoomOut steps to the next smaller factor.
func (m *Manager) ZoomOut() bool {
	if m.step == 0 {
		return false
	}
	m.step--
	m.rebuild()
	return true
}

func (m *Manager) rebuild() {
	m.metas = map[int]geometry.PageMeta{}
	m.offsets = map[int]int{}
	m.height = 0
	if m.index == nil {
		return
	}
	zoom := zoomSteps[m.step]
	y := 0
	for _, page := range m.index.Pages() {
		width, height, ok := m.index.PhysicalDims(page)
		if !ok || width <= 0 || height <= 0 {
			continue
		}
		cols := int(math.Round(float64(baseColumns) * zoom))
		rows := int(math.Round(float64(cols) * (height / width) * cellAspect))
		if rows < 1 {
			rows = 1
		}
		m.metas[page] = geometry.PageMeta{
			Width:      cols,
			Height:     rows,
			WidthInch:  width,
			HeightInch: height,
		}
		m.offsets[page] = y
		y += rows + pageGap
	}
	if y > 0 {
		m.height = y - pageGap
	}
}

// Meta returns the page's cell metrics at the current zoom.
func (m *Manager) Meta(page int) (geometry.PageMeta, bool) {
	meta, ok := m.metas[page]
	return meta, ok
}

// Offset returns the page's top row within the stacked view.
func (m *Manager) Offset(page int) (int, bool) {
	off, ok := m.offsets[page]
	return off, ok
}

// TotalHeight is the stacked view's full height in rows.
func (m *Manager) TotalHeight() int { return m.height }

// Pages returns the laid-out pages in order.
func (m *Manager) Pages() []int {
	if m.index == nil {
		return nil
	}
	var pages []int
	for _, page := range m.index.Pages() {
		if _, ok := m.metas[page]; ok {
			pages = append(pages, page)
		}
	}
	return pages
}

// PageAt resolves a row in the stacked view to the page covering it and the
// row's position within that page. Rows in the gap between pages resolve to
// nothing.
func (m *Manager) PageAt(row int) (page, localRow int, ok bool) {
	for p, off := range m.offsets {
		meta := m.metas[p]
		if row >= off && row < off+meta.Height {
			return p, row - off, true
		}
	}
	return 0, 0, false
}

// PageAtOrNearest resolves a row like PageAt but snaps gap rows to the
// nearest page above, which is what scroll position tracking wants.
func (m *Manager) PageAtOrNearest(row int) (page int, ok bool) {
	if page, _, ok := m.PageAt(row); ok {
		return page, true
	}
	best := 0
	found := false
	for p, off := range m.offsets {
		if off <= row && (!found || off > m.offsets[best]) {
			best = p
			found = true
		}
	}
	if !found {
		for _, p := range m.Pages() {
			return p, true
		}
		return 0, false
	}
	return best, true
}

// Raster renders the page's words into a plain text grid of exactly
// Height rows by Width columns. Styling is applied downstream; the raster
// is the unstyled content plane.
func (m *Manager) Raster(page int) []string {
	meta, ok := m.metas[page]
	if !ok || m.index == nil {
		return nil
	}
	grid := make([][]rune, meta.Height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", meta.Width))
	}
	words := m.index.Words(page)
	for _, rect := range m.index.Rects(page) {
		text := wordText(words, rect.WordIndex)
		if text == "" {
			continue
		}
		row := int(math.Round((rect.Top + rect.Height/2) * float64(meta.Height)))
		col := int(math.Round(rect.Left * float64(meta.Width)))
		// Rounding can push a word touching the page edge one row past the
		// grid; clamp instead of dropping it.
		if row < 0 {
			row = 0
		}
		if row >= meta.Height {
			row = meta.Height - 1
		}
		for _, r := range text {
			if col < 0 {
				col++
				continue
			}
			if col >= meta.Width {
				break
			}
			grid[row][col] = r
			col++
		}
	}
	lines := make([]string, meta.Height)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return lines
}

func wordText(words []geometry.PageWord, index int) string {
	lo, hi := 0, len(words)
	for lo < hi {
		mid := (lo + hi) / 2
		if words[mid].WordIndex < index {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(words) && words[lo].WordIndex == index {
		return words[lo].Text
	}
	return ""
}
