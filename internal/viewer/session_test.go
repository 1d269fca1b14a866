package viewer

import (
	"testing"

	"github.com/askpdf/askpdf/internal/docmodel"
	"github.com/askpdf/askpdf/internal/overlay"
)

// openTestDoc loads a two page document whose pages are 10x10 units with
// two words each on one line, laid out so that at 100% zoom the words are
// wide, easily hit cell targets.
func openTestDoc(t *testing.T) *Session {
	t.Helper()
	payload := &docmodel.ResultPayload{Pages: []docmodel.Page{
		{
			PageNumber: 1, Width: 10, Height: 10,
			Words: []docmodel.Word{
				{WordIndex: 0, Content: "alpha", Polygon: []float64{1, 1, 4, 1, 4, 2, 1, 2}},
				{WordIndex: 1, Content: "beta", Polygon: []float64{5, 1, 9, 1, 9, 2, 5, 2}},
			},
			Lines: []docmodel.Line{{WordIndexes: []int{0, 1}, Polygon: []float64{1, 1, 9, 1, 9, 2, 1, 2}}},
		},
		{
			PageNumber: 2, Width: 10, Height: 10,
			Words: []docmodel.Word{
				{WordIndex: 2, Content: "gamma", Polygon: []float64{1, 1, 4, 1, 4, 2, 1, 2}},
				{WordIndex: 3, Content: "delta", Polygon: []float64{5, 1, 9, 1, 9, 2, 5, 2}},
			},
			Lines: []docmodel.Line{{WordIndexes: []int{2, 3}, Polygon: []float64{1, 1, 9, 1, 9, 2, 1, 2}}},
		},
	}}
	s := NewSession()
	s.Open("doc-1", payload, nil)
	return s
}

// wordCell returns stacked-view coordinates inside the given word.
func wordCell(t *testing.T, s *Session, page, word int) (int, int) {
	t.Helper()
	rect, ok := s.Index().Rect(page, word)
	if !ok {
		t.Fatalf("no rect for page %d word %d", page, word)
	}
	meta, _ := s.Surface.Meta(page)
	offset, _ := s.Surface.Offset(page)
	x := int((rect.Left + rect.Width/2) * float64(meta.Width))
	y := int((rect.Top + rect.Height/2) * float64(meta.Height))
	return x, offset + y
}

func TestDragSelectsAcrossPages(t *testing.T) {
	t.Parallel()

	s := openTestDoc(t)
	x0, y0 := wordCell(t, s, 1, 1)
	x1, y1 := wordCell(t, s, 2, 2)

	if !s.PointerDown(x0, y0) {
		t.Fatal("press on a word should start a gesture")
	}
	s.PointerMove(x1, y1)
	if !s.PointerUp(x1, y1) {
		t.Fatal("release should complete the selection")
	}

	r, ok := s.Selection()
	if !ok {
		t.Fatal("selection should exist")
	}
	if r.StartPage != 1 || r.StartIndex != 1 || r.EndPage != 2 || r.EndIndex != 2 {
		t.Errorf("selection = %+v", r)
	}
	if got := s.SelectedText(); got != "beta\ngamma" {
		t.Errorf("selected text = %q", got)
	}
	if len(s.Scene.PageSpans(1)) == 0 || len(s.Scene.PageSpans(2)) == 0 {
		t.Error("selection layer should be painted on both pages")
	}
}

func TestPressOffWordClearsSelection(t *testing.T) {
	t.Parallel()

	s := openTestDoc(t)
	x, y := wordCell(t, s, 1, 0)
	s.PointerDown(x, y)
	s.PointerUp(x, y)
	if !s.HasSelection() {
		t.Fatal("single word selection should exist")
	}

	// Press in the page gap.
	meta, _ := s.Surface.Meta(1)
	if s.PointerDown(0, meta.Height) {
		t.Error("gap press must not start a gesture")
	}
	if s.HasSelection() {
		t.Error("gap press should clear the selection")
	}
	if len(s.Scene.PageSpans(1)) != 0 {
		t.Error("selection layer should be cleared")
	}
}

func TestUnresolvableReleaseLeavesNoSelection(t *testing.T) {
	t.Parallel()

	s := openTestDoc(t)
	x, y := wordCell(t, s, 1, 0)

	// Release in the top-left margin, above-and-left of every word center.
	if !s.PointerDown(x, y) {
		t.Fatal("press on a word should start a gesture")
	}
	s.PointerMove(x+1, y)
	if s.PointerUp(0, 0) {
		t.Fatal("unresolvable release must not complete a selection")
	}
	if s.HasSelection() {
		t.Error("no selection should survive the release")
	}
	if len(s.Scene.PageSpans(1)) != 0 {
		t.Error("live selection highlight should be cleared")
	}

	// Same for a release in the page gap.
	s.PointerDown(x, y)
	meta, _ := s.Surface.Meta(1)
	if s.PointerUp(x, meta.Height) {
		t.Fatal("gap release must not complete a selection")
	}
	if s.HasSelection() || len(s.Scene.PageSpans(1)) != 0 {
		t.Error("gap release should leave nothing behind")
	}
}

func TestAnnotateSelectionPaintsAndSyncs(t *testing.T) {
	t.Parallel()

	s := openTestDoc(t)
	x0, y0 := wordCell(t, s, 1, 0)
	x1, y1 := wordCell(t, s, 1, 1)
	s.PointerDown(x0, y0)
	s.PointerUp(x1, y1)

	if !s.Annotate(docmodel.ModeHighlight, ColorYellow) {
		t.Fatal("annotate on a hydrated store should request a sync")
	}
	if s.HasSelection() {
		t.Error("annotating should drop the selection")
	}
	placed := s.Scene.PageSpans(1)
	if len(placed) != 1 {
		t.Fatalf("want one merged annotation span, got %+v", placed)
	}
	if placed[0].Layer != overlay.LayerAnnotation || placed[0].Span.Style.Color != ColorYellow {
		t.Errorf("span = %+v", placed[0])
	}
	if placed[0].Span.FirstWord != 0 || placed[0].Span.LastWord != 1 {
		t.Errorf("span covers %d..%d, want 0..1", placed[0].Span.FirstWord, placed[0].Span.LastWord)
	}

	// Select word 0 again and remove: the record disappears, the span
	// shrinks to word 1.
	s.PointerDown(x0, y0)
	s.PointerUp(x0, y0)
	if !s.RemoveAnnotations() {
		t.Fatal("remove should request a sync")
	}
	placed = s.Scene.PageSpans(1)
	if len(placed) != 1 || placed[0].Span.FirstWord != 1 {
		t.Errorf("after removal spans = %+v", placed)
	}
}

func TestReferencesClearOnNextPress(t *testing.T) {
	t.Parallel()

	s := openTestDoc(t)
	s.ShowReferences(docmodel.ReferenceRequest{Pages: map[int][]int{2: {2, 3}}})
	placed := s.Scene.PageSpans(2)
	if len(placed) != 1 || placed[0].Layer != overlay.LayerReference {
		t.Fatalf("reference layer not painted: %+v", placed)
	}

	s.PointerDown(0, 0)
	if len(s.Scene.PageSpans(2)) != 0 {
		t.Error("a press should clear reference highlights")
	}
}

func TestSearchPaintsMatchesAndLocatesActive(t *testing.T) {
	t.Parallel()

	s := openTestDoc(t)
	if !s.ApplySearch("a") {
		t.Fatal("expected matches for 'a'")
	}
	if len(s.Scene.PageSpans(1)) == 0 || len(s.Scene.PageSpans(2)) == 0 {
		t.Error("search layer should cover both pages")
	}
	row1, ok := s.ActiveMatchRow()
	if !ok {
		t.Fatal("active match should have a row")
	}
	for i := 0; i < len(s.Search.Matches())-1; i++ {
		s.NextMatch()
	}
	rowLast, _ := s.ActiveMatchRow()
	if rowLast <= row1 {
		t.Errorf("last match row %d should be below first match row %d", rowLast, row1)
	}

	s.ClearSearch()
	if len(s.Scene.PageSpans(1)) != 0 {
		t.Error("clearing search should clear its layer")
	}
}

func TestCopySelectionUsesClipboard(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	defer func() { writeClipboard = orig }()

	s := openTestDoc(t)
	x, y := wordCell(t, s, 1, 0)
	s.PointerDown(x, y)
	s.PointerUp(x, y)
	if err := s.CopySelection(); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if copied != "alpha" {
		t.Errorf("copied %q, want alpha", copied)
	}
}
