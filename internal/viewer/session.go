// Package viewer coordinates the per-document engines: geometry, page
// surfaces, the overlay scene, annotations, search and selection. The TUI
// feeds it pointer and key events; the session keeps every overlay layer
// consistent with the state that produced it.
package viewer

import (
	"github.com/atotto/clipboard"

	"github.com/askpdf/askpdf/internal/annotations"
	"github.com/askpdf/askpdf/internal/docmodel"
	"github.com/askpdf/askpdf/internal/geometry"
	"github.com/askpdf/askpdf/internal/overlay"
	"github.com/askpdf/askpdf/internal/search"
	"github.com/askpdf/askpdf/internal/selection"
	"github.com/askpdf/askpdf/internal/surface"
)

// Default annotation colors offered by the popup.
var (
	ColorYellow = "#ffd84d"
	ColorBlue   = "#69d2ff"
	ColorPink   = "#ff8fc8"
)

// writeClipboard is swapped out in tests; clipboard access needs a display.
var writeClipboard = clipboard.WriteAll

// Session is the state of one open document.
type Session struct {
	DocID string

	index   *geometry.Index
	Surface *surface.Manager
	Scene   *overlay.Scene
	Store   *annotations.Store
	Search  *search.Engine
	sel     *selection.Engine

	selected   geometry.Range
	hasSel     bool
	references bool
}

func NewSession() *Session {
	return &Session{
		Surface: surface.NewManager(),
		Scene:   overlay.NewScene(),
		Store:   annotations.NewStore(),
		Search:  search.NewEngine(),
		sel:     selection.NewEngine(),
	}
}

// Open installs a loaded document, replacing any previous one.
func (s *Session) Open(docID string, result *docmodel.ResultPayload, stored docmodel.AnnotationMap) {
	s.DocID = docID
	s.index = geometry.BuildIndex(result)
	s.Surface.SetIndex(s.index)
	s.Scene = overlay.NewScene()
	s.Store.Reset()
	s.Store.Hydrate(stored)
	s.Search.Clear()
	s.Search.SetGeometry(s.index.WordTexts())
	s.sel.Cancel()
	s.selected = geometry.Range{}
	s.hasSel = false
	s.references = false
	s.repaintAnnotations()
}

// Close drops the document.
func (s *Session) Close() {
	s.DocID = ""
	s.index = nil
	s.Surface.SetIndex(nil)
	s.Scene = overlay.NewScene()
	s.Store.Reset()
	s.Search.Clear()
	s.sel.Cancel()
	s.hasSel = false
	s.references = false
}

// Index exposes the geometry for read-only use.
func (s *Session) Index() *geometry.Index { return s.index }

// HasSelection reports whether a completed selection exists.
func (s *Session) HasSelection() bool { return s.hasSel }

// Selection returns the current normalized selection range.
func (s *Session) Selection() (geometry.Range, bool) {
	return s.selected.Normalize(), s.hasSel
}

// PointerDown routes a press at stacked-view coordinates. Any press clears
// reference highlights; a press outside a word also clears the selection.
// Returns whether a selection gesture started.
func (s *Session) PointerDown(x, row int) bool {
	if s.references {
		s.Scene.Clear(overlay.LayerReference)
		s.references = false
	}
	page, localRow, ok := s.Surface.PageAt(row)
	if !ok {
		s.clearSelection()
		return false
	}
	meta, _ := s.Surface.Meta(page)
	if !s.sel.Down(page, s.index.Rects(page), meta, float64(x), float64(localRow)) {
		s.clearSelection()
		return false
	}
	s.clearSelection()
	return true
}

// PointerMove extends an in-flight gesture and repaints the live selection.
func (s *Session) PointerMove(x, row int) {
	if !s.sel.Dragging() {
		return
	}
	page, localRow, ok := s.Surface.PageAt(row)
	if !ok {
		return
	}
	meta, _ := s.Surface.Meta(page)
	if r, live := s.sel.Move(page, s.index.Rects(page), meta, float64(x), float64(localRow)); live {
		s.paintSelection(r)
	}
}

// PointerUp finishes the gesture. Returns whether a selection now exists,
// which is the popup trigger. A release that resolves to no word abandons
// the gesture and clears the live highlight.
func (s *Session) PointerUp(x, row int) bool {
	if !s.sel.Dragging() {
		return false
	}
	page, localRow, ok := s.Surface.PageAt(row)
	if !ok {
		s.sel.Cancel()
		s.clearSelection()
		return false
	}
	meta, _ := s.Surface.Meta(page)
	r, done := s.sel.Up(page, s.index.Rects(page), meta, float64(x), float64(localRow))
	if !done {
		s.clearSelection()
		return false
	}
	s.selected = r
	s.hasSel = true
	s.paintSelection(r)
	return true
}

func (s *Session) clearSelection() {
	s.hasSel = false
	s.selected = geometry.Range{}
	s.Scene.Clear(overlay.LayerSelection)
}

func (s *Session) paintSelection(r geometry.Range) {
	s.Scene.Clear(overlay.LayerSelection)
	for page, indices := range s.index.SelectedWordIndices(r) {
		s.Scene.Paint(overlay.LayerSelection, page, s.spansFor(page, indices, overlay.Style{}, false))
	}
}

func (s *Session) spansFor(page int, indices []int, style overlay.Style, trim bool) []overlay.Span {
	var items []overlay.Item
	for _, index := range indices {
		if rect, ok := s.index.Rect(page, index); ok {
			items = append(items, overlay.Item{Rect: rect, Style: style})
		}
	}
	spans := overlay.Group(items, style != overlay.Style{})
	if trim {
		spans = overlay.TrimToNeighbors(spans, s.index.Rects(page))
	}
	return spans
}

// SelectedText returns the text the current selection covers.
func (s *Session) SelectedText() string {
	if !s.hasSel {
		return ""
	}
	return s.index.SelectedText(s.selected)
}

// CopySelection puts the selected text on the system clipboard.
func (s *Session) CopySelection() error {
	text := s.SelectedText()
	if text == "" {
		return nil
	}
	return writeClipboard(text)
}

// Annotate applies a mode+color to the selected words and drops the
// selection. Returns whether the change should sync to the server.
func (s *Session) Annotate(mode docmodel.Mode, color string) (needSync bool) {
	if !s.hasSel {
		return false
	}
	needSync = s.Store.Apply(s.index.SelectedWordIndices(s.selected), mode, color)
	s.clearSelection()
	s.repaintAnnotations()
	return needSync
}

// RemoveAnnotations peels the newest record off each selected word.
func (s *Session) RemoveAnnotations() (needSync bool) {
	if !s.hasSel {
		return false
	}
	needSync = s.Store.Remove(s.index.SelectedWordIndices(s.selected))
	s.clearSelection()
	s.repaintAnnotations()
	return needSync
}

func (s *Session) repaintAnnotations() {
	s.Scene.Clear(overlay.LayerAnnotation)
	if s.index == nil {
		return
	}
	for _, page := range s.Store.Pages() {
		var items []overlay.Item
		for _, mark := range s.Store.PageMarks(page) {
			rect, ok := s.index.Rect(page, mark.WordIndex)
			if !ok {
				continue
			}
			items = append(items, overlay.Item{
				Rect:  rect,
				Style: overlay.Style{Mode: mark.Mode, Color: mark.Color},
			})
		}
		spans := overlay.TrimToNeighbors(overlay.Group(items, true), s.index.Rects(page))
		s.Scene.Paint(overlay.LayerAnnotation, page, spans)
	}
}

// ShowReferences paints citation highlights. They survive until the next
// pointer press.
func (s *Session) ShowReferences(req docmodel.ReferenceRequest) {
	s.Scene.Clear(overlay.LayerReference)
	s.references = false
	for page, indices := range req.Pages {
		spans := s.spansFor(page, indices, overlay.Style{}, false)
		if len(spans) > 0 {
			s.Scene.Paint(overlay.LayerReference, page, spans)
			s.references = true
		}
	}
}

// ApplySearch runs the query and repaints the search layer. Returns whether
// any matches exist.
func (s *Session) ApplySearch(query string) bool {
	found := s.Search.Apply(query)
	s.repaintSearch()
	return found
}

// NextMatch and PrevMatch move the active match and repaint.
func (s *Session) NextMatch() {
	s.Search.Next()
	s.repaintSearch()
}

func (s *Session) PrevMatch() {
	s.Search.Prev()
	s.repaintSearch()
}

// ClearSearch drops the query and its overlay.
func (s *Session) ClearSearch() {
	s.Search.Clear()
	s.Scene.Clear(overlay.LayerSearch)
}

// StyleActiveMatch marks the span belonging to the active search match so
// the renderer can emphasize it.
const StyleActiveMatch = "active-match"

func (s *Session) repaintSearch() {
	s.Scene.Clear(overlay.LayerSearch)
	pages := map[int]bool{}
	for _, match := range s.Search.Matches() {
		pages[match.Page] = true
	}
	for page := range pages {
		all, active := s.Search.PageWords(page)
		spans := s.spansFor(page, all, overlay.Style{}, false)
		if len(active) > 0 {
			spans = append(spans, s.spansFor(page, active, overlay.Style{Color: StyleActiveMatch}, false)...)
		}
		s.Scene.Paint(overlay.LayerSearch, page, spans)
	}
}

// ActiveMatchRow returns the stacked-view row of the active match, for
// scrolling it into view.
func (s *Session) ActiveMatchRow() (int, bool) {
	match, _, ok := s.Search.Active()
	if !ok || len(match.Words) == 0 {
		return 0, false
	}
	rect, found := s.index.Rect(match.Page, match.Words[0])
	if !found {
		return 0, false
	}
	meta, ok := s.Surface.Meta(match.Page)
	if !ok {
		return 0, false
	}
	offset, _ := s.Surface.Offset(match.Page)
	return offset + int(rect.Top*float64(meta.Height)), true
}
