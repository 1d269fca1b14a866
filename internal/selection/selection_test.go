package selection

import (
	"testing"

	"github.com/askpdf/askpdf/internal/docmodel"
	"github.com/askpdf/askpdf/internal/geometry"
)

// onePage builds a page with three words laid out on one line:
// [10,30) [40,60) [70,90) horizontally, all spanning y 10..20.
func onePage(t *testing.T) ([]geometry.WordRect, geometry.PageMeta) {
	t.Helper()
	payload := &docmodel.ResultPayload{Pages: []docmodel.Page{{
		PageNumber: 1, Width: 100, Height: 100,
		Words: []docmodel.Word{
			{WordIndex: 0, Content: "a", Polygon: []float64{10, 10, 30, 10, 30, 20, 10, 20}},
			{WordIndex: 1, Content: "b", Polygon: []float64{40, 10, 60, 10, 60, 20, 40, 20}},
			{WordIndex: 2, Content: "c", Polygon: []float64{70, 10, 90, 10, 90, 20, 70, 20}},
		},
	}}}
	idx := geometry.BuildIndex(payload)
	return idx.Rects(1), geometry.PageMeta{Width: 100, Height: 100}
}

func TestPressOnWordStartsGesture(t *testing.T) {
	t.Parallel()

	rects, meta := onePage(t)
	e := NewEngine()
	if !e.Down(1, rects, meta, 15, 15) {
		t.Fatal("press on word 0 should start a gesture")
	}
	if !e.Dragging() {
		t.Fatal("engine should be dragging")
	}
	r, ok := e.Up(1, rects, meta, 75, 15)
	if !ok {
		t.Fatal("release should produce a range")
	}
	want := geometry.Range{StartPage: 1, StartIndex: 0, EndPage: 1, EndIndex: 2}
	if r != want {
		t.Errorf("range = %+v, want %+v", r, want)
	}
	if e.Dragging() {
		t.Error("gesture should end on release")
	}
}

func TestPressOffWordIsAMiss(t *testing.T) {
	t.Parallel()

	rects, meta := onePage(t)
	e := NewEngine()
	if e.Down(1, rects, meta, 35, 15) {
		t.Fatal("press in the gutter must not start a gesture")
	}
	if _, ok := e.Move(1, rects, meta, 45, 15); ok {
		t.Error("move without a gesture should report nothing")
	}
	if _, ok := e.Up(1, rects, meta, 45, 15); ok {
		t.Error("release without a gesture should report nothing")
	}
}

func TestMoveFallsBackToPrecedingWord(t *testing.T) {
	t.Parallel()

	rects, meta := onePage(t)
	e := NewEngine()
	e.Down(1, rects, meta, 15, 15)

	// Pointer in the gutter right of word 1's center: nearest preceding
	// word wins.
	r, ok := e.Move(1, rects, meta, 65, 15)
	if !ok {
		t.Fatal("move during a gesture should report a range")
	}
	if r.EndIndex != 1 {
		t.Errorf("end = %d, want fallback to word 1", r.EndIndex)
	}

	// Pointer above-and-left of every word center: endpoint is kept.
	r, _ = e.Move(1, rects, meta, 2, 2)
	if r.EndIndex != 1 {
		t.Errorf("unresolvable point should keep the endpoint, got %d", r.EndIndex)
	}
}

func TestUnresolvableReleaseAbandonsGesture(t *testing.T) {
	t.Parallel()

	rects, meta := onePage(t)
	e := NewEngine()
	if !e.Down(1, rects, meta, 15, 15) {
		t.Fatal("press on word 0 should start a gesture")
	}

	// Release above-and-left of every word center: no exact hit and no
	// preceding word, so the gesture dies without a selection.
	if r, ok := e.Up(1, rects, meta, 2, 2); ok {
		t.Errorf("unresolvable release must not produce a range, got %+v", r)
	}
	if e.Dragging() {
		t.Error("gesture should still end on release")
	}
}

func TestBackwardDragReportsRawOrder(t *testing.T) {
	t.Parallel()

	rects, meta := onePage(t)
	e := NewEngine()
	e.Down(1, rects, meta, 75, 15)
	r, _ := e.Up(1, rects, meta, 15, 15)

	// The engine reports gesture order; consumers normalize.
	if r.StartIndex != 2 || r.EndIndex != 0 {
		t.Errorf("raw range = %+v, want start 2 end 0", r)
	}
	n := r.Normalize()
	if n.StartIndex != 0 || n.EndIndex != 2 {
		t.Errorf("normalized = %+v", n)
	}
}

func TestCancelAbortsGesture(t *testing.T) {
	t.Parallel()

	rects, meta := onePage(t)
	e := NewEngine()
	e.Down(1, rects, meta, 15, 15)
	e.Cancel()
	if _, ok := e.Up(1, rects, meta, 75, 15); ok {
		t.Error("release after cancel should report nothing")
	}
}
