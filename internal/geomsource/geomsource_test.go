package geomsource

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func glyph(s string, x, y, w, size float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: size}
}

func TestAssembleWordsMergesAdjacentGlyphRuns(t *testing.T) {
	t.Parallel()

	// "He" "llo" touching, then a gap, then "world" on the same baseline.
	glyphs := []pdf.Text{
		glyph("He", 10, 700, 12, 10),
		glyph("llo", 22, 700, 16, 10),
		glyph("world", 60, 700, 30, 10),
	}
	words := assembleWords(glyphs, 792)
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2: %+v", len(words), words)
	}
	if words[0].text != "Hello" || words[1].text != "world" {
		t.Errorf("texts = %q, %q", words[0].text, words[1].text)
	}
	if words[0].box.left != 10 || words[0].box.right != 38 {
		t.Errorf("merged box = %+v", words[0].box)
	}
	// PDF Y is bottom-up: baseline 700 with size 10 sits at top 82.
	if words[0].box.top != 82 {
		t.Errorf("top = %v, want 82", words[0].box.top)
	}
}

func TestAssembleWordsSplitsOnBaselineChange(t *testing.T) {
	t.Parallel()

	glyphs := []pdf.Text{
		glyph("above", 10, 700, 30, 10),
		glyph("below", 10, 684, 30, 10),
	}
	words := assembleWords(glyphs, 792)
	if len(words) != 2 {
		t.Fatalf("baseline change should split words: %+v", words)
	}
}

func TestAssembleWordsReordersByReadingOrder(t *testing.T) {
	t.Parallel()

	// Content streams do not guarantee reading order.
	glyphs := []pdf.Text{
		glyph("second", 10, 684, 30, 10),
		glyph("first", 10, 700, 30, 10),
	}
	words := assembleWords(glyphs, 792)
	if len(words) != 2 || words[0].text != "first" || words[1].text != "second" {
		t.Fatalf("reading order wrong: %+v", words)
	}
}

func TestAssembleLinesGroupsSharedBaselines(t *testing.T) {
	t.Parallel()

	glyphs := []pdf.Text{
		glyph("one", 10, 700, 20, 10),
		glyph("two", 50, 700, 20, 10),
		glyph("next", 10, 684, 25, 10),
	}
	words := assembleWords(glyphs, 792)
	for i := range words {
		words[i].index = i
	}
	lines := assembleLines(words)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %+v", len(lines), lines)
	}
	if len(lines[0].WordIndexes) != 2 || lines[0].WordIndexes[0] != 0 || lines[0].WordIndexes[1] != 1 {
		t.Errorf("first line indexes = %v", lines[0].WordIndexes)
	}
	if len(lines[0].Polygon) != 8 {
		t.Errorf("line polygon should be a quad, got %v", lines[0].Polygon)
	}
}

func TestExtractMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Extract("/nonexistent/file.pdf"); err == nil {
		t.Fatal("want error for a missing file")
	}
}
