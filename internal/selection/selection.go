// Package selection runs the pointer gesture state machine that turns
// press/drag/release events into a cross-page word range.
package selection

import (
	"github.com/askpdf/askpdf/internal/geometry"
)

// Engine tracks one in-flight drag. A press that does not land on a word
// never becomes a selection; a move endpoint that resolves to no word keeps
// the previous endpoint, so a brief pass over a margin does not collapse
// the range. A release that resolves to no word abandons the gesture.
type Engine struct {
	dragging bool
	start    endpoint
	current  endpoint
}

type endpoint struct {
	page int
	word int
}

func NewEngine() *Engine { return &Engine{} }

// Dragging reports whether a gesture is in flight.
func (e *Engine) Dragging() bool { return e.dragging }

// Down starts a gesture. The press must hit a word exactly; otherwise the
// gesture is a miss and the caller should clear any existing selection.
func (e *Engine) Down(page int, rects []geometry.WordRect, meta geometry.PageMeta, x, y float64) bool {
	word, ok := geometry.WordIndexAtPoint(rects, meta, x, y)
	if !ok {
		e.dragging = false
		return false
	}
	e.dragging = true
	e.start = endpoint{page: page, word: word}
	e.current = e.start
	return true
}

// Move updates the drag endpoint: exact hit first, then the nearest
// preceding word; if neither resolves, the endpoint stays where it was.
// Returns the live range for repainting.
func (e *Engine) Move(page int, rects []geometry.WordRect, meta geometry.PageMeta, x, y float64) (geometry.Range, bool) {
	if !e.dragging {
		return geometry.Range{}, false
	}
	if word, ok := resolve(rects, meta, x, y); ok {
		e.current = endpoint{page: page, word: word}
	}
	return e.rangeNow(), true
}

// Up finishes the gesture. The release point resolves the same way a move
// does, but when it resolves to no word the gesture ends with no selection
// at all.
func (e *Engine) Up(page int, rects []geometry.WordRect, meta geometry.PageMeta, x, y float64) (geometry.Range, bool) {
	if !e.dragging {
		return geometry.Range{}, false
	}
	e.dragging = false
	word, ok := resolve(rects, meta, x, y)
	if !ok {
		return geometry.Range{}, false
	}
	e.current = endpoint{page: page, word: word}
	return e.rangeNow(), true
}

// Cancel aborts any in-flight gesture.
func (e *Engine) Cancel() { e.dragging = false }

func (e *Engine) rangeNow() geometry.Range {
	return geometry.Range{
		StartPage:  e.start.page,
		StartIndex: e.start.word,
		EndPage:    e.current.page,
		EndIndex:   e.current.word,
	}
}

func resolve(rects []geometry.WordRect, meta geometry.PageMeta, x, y float64) (int, bool) {
	if word, ok := geometry.WordIndexAtPoint(rects, meta, x, y); ok {
		return word, true
	}
	return geometry.LastWordIndexBeforePoint(rects, meta, x, y)
}
