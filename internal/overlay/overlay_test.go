package overlay

import (
	"math"
	"testing"

	"github.com/askpdf/askpdf/internal/docmodel"
	"github.com/askpdf/askpdf/internal/geometry"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func lineRect(index, line int, left, width float64) geometry.WordRect {
	return geometry.WordRect{
		WordIndex: index,
		LineID:    line,
		Left:      left,
		Top:       float64(line) * 0.1,
		Width:     width,
		Height:    0.05,
	}
}

func TestGroupSplitsOnWordIndexGap(t *testing.T) {
	t.Parallel()

	// Words 1, 2 and 4 on one line: the missing index 3 splits the run even
	// though the rectangles are close enough to touch.
	items := []Item{
		{Rect: lineRect(1, 0, 0.10, 0.08)},
		{Rect: lineRect(2, 0, 0.19, 0.08)},
		{Rect: lineRect(4, 0, 0.28, 0.08)},
	}
	spans := Group(items, false)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if spans[0].FirstWord != 1 || spans[0].LastWord != 2 {
		t.Errorf("first span covers %d..%d, want 1..2", spans[0].FirstWord, spans[0].LastWord)
	}
	if spans[1].FirstWord != 4 || spans[1].LastWord != 4 {
		t.Errorf("second span covers %d..%d, want 4..4", spans[1].FirstWord, spans[1].LastWord)
	}
	// The merged span is the union of its word boxes.
	if !almost(spans[0].Left, 0.10) || !almost(spans[0].Right(), 0.27) {
		t.Errorf("merged bounds = [%v, %v], want [0.10, 0.27]", spans[0].Left, spans[0].Right())
	}
}

func TestGroupSplitsAcrossLines(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Rect: lineRect(1, 0, 0.1, 0.1)},
		{Rect: lineRect(2, 1, 0.0, 0.1)},
	}
	spans := Group(items, false)
	if len(spans) != 2 {
		t.Fatalf("consecutive indices on different lines must not merge: %+v", spans)
	}
}

func TestGroupSeparatesStyles(t *testing.T) {
	t.Parallel()

	yellow := Style{Mode: docmodel.ModeHighlight, Color: "#ffd84d"}
	blue := Style{Mode: docmodel.ModeHighlight, Color: "#69d2ff"}
	items := []Item{
		{Rect: lineRect(1, 0, 0.1, 0.05), Style: yellow},
		{Rect: lineRect(2, 0, 0.16, 0.05), Style: blue},
		{Rect: lineRect(3, 0, 0.22, 0.05), Style: blue},
	}
	spans := Group(items, true)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if spans[0].Style != yellow || spans[1].Style != blue {
		t.Errorf("style assignment wrong: %+v", spans)
	}
	if spans[1].FirstWord != 2 || spans[1].LastWord != 3 {
		t.Errorf("same-style run should merge: %+v", spans[1])
	}
}

func TestTrimToNeighborsMeetsAtMidpoint(t *testing.T) {
	t.Parallel()

	rects := []geometry.WordRect{
		lineRect(1, 0, 0.10, 0.08),
		lineRect(2, 0, 0.20, 0.08),
		lineRect(3, 0, 0.30, 0.08),
	}
	left := Group([]Item{{Rect: rects[0]}, {Rect: rects[1]}}, false)
	right := Group([]Item{{Rect: rects[2]}}, false)

	left = TrimToNeighbors(left, rects)
	right = TrimToNeighbors(right, rects)

	// Gap between word 2 (ends 0.28) and word 3 (starts 0.30): both spans
	// extend to the shared midpoint 0.29, leaving no sliver and no overlap.
	if got := left[0].Right(); !almost(got, 0.29) {
		t.Errorf("left span right edge = %v, want 0.29", got)
	}
	if got := right[0].Left; !almost(got, 0.29) {
		t.Errorf("right span left edge = %v, want 0.29", got)
	}
	// Word 1 has no preceding neighbor: its left edge stays put.
	if !almost(left[0].Left, 0.10) {
		t.Errorf("left span left edge moved: %v", left[0].Left)
	}
}

func TestSceneRepaintIsIdempotent(t *testing.T) {
	t.Parallel()

	scene := NewScene()
	spans := Group([]Item{{Rect: lineRect(1, 0, 0.1, 0.1)}}, false)

	scene.Paint(LayerSelection, 3, spans)
	scene.Paint(LayerSelection, 3, spans)

	if got := scene.PageSpans(3); len(got) != 1 {
		t.Fatalf("repaint duplicated spans: %d", len(got))
	}
	scene.Paint(LayerSelection, 3, nil)
	if got := scene.PageSpans(3); len(got) != 0 {
		t.Fatalf("painting nil should clear the page, got %d spans", len(got))
	}
}

func TestSceneLayersDrawInOrder(t *testing.T) {
	t.Parallel()

	scene := NewScene()
	scene.Paint(LayerSelection, 1, Group([]Item{{Rect: lineRect(1, 0, 0.1, 0.1)}}, false))
	scene.Paint(LayerAnnotation, 1, Group([]Item{{Rect: lineRect(1, 0, 0.1, 0.1)}}, true))
	scene.Paint(LayerSearch, 2, Group([]Item{{Rect: lineRect(9, 0, 0.5, 0.1)}}, false))

	placed := scene.PageSpans(1)
	if len(placed) != 2 {
		t.Fatalf("got %d spans on page 1, want 2", len(placed))
	}
	if placed[0].Layer != LayerAnnotation || placed[1].Layer != LayerSelection {
		t.Errorf("draw order wrong: %v then %v", placed[0].Layer, placed[1].Layer)
	}
	if got := scene.Pages(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Pages = %v, want [1 2]", got)
	}

	scene.Clear(LayerSearch)
	if got := scene.PageSpans(2); len(got) != 0 {
		t.Errorf("clear left %d spans on page 2", len(got))
	}
}
