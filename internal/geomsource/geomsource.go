// Package geomsource derives a word-geometry payload from a PDF file
// directly. It is the fallback when the backend has not finished analyzing
// a document: boxes come from the content stream's glyph positions, which
// is cruder than the server's layout analysis but good enough to select
// and search.
package geomsource

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/askpdf/askpdf/internal/docmodel"
)

// Extract reads a PDF and builds a result payload with globally increasing
// word indices. Pages that fail to parse are skipped rather than failing
// the whole document.
func Extract(path string) (*docmodel.ResultPayload, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	payload := &docmodel.ResultPayload{}
	nextIndex := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		p := reader.Page(pageNum)
		if p.V.IsNull() {
			continue
		}
		width, height := pageDims(p)
		if width <= 0 || height <= 0 {
			continue
		}
		glyphs := p.Content().Text
		words := assembleWords(glyphs, height)
		if len(words) == 0 {
			continue
		}

		page := docmodel.Page{PageNumber: pageNum, Width: width, Height: height}
		for i := range words {
			words[i].index = nextIndex
			nextIndex++
			page.Words = append(page.Words, docmodel.Word{
				WordIndex: words[i].index,
				Content:   words[i].text,
				Polygon:   boxPolygon(words[i].box),
			})
		}
		page.Lines = assembleLines(words)
		payload.Pages = append(payload.Pages, page)
	}
	if len(payload.Pages) == 0 {
		return nil, fmt.Errorf("no extractable text in %s", path)
	}
	return payload, nil
}

func pageDims(p pdf.Page) (width, height float64) {
	box := p.V.Key("MediaBox")
	if box.Len() != 4 {
		return 0, 0
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	return math.Abs(x1 - x0), math.Abs(y1 - y0)
}

type box struct {
	left, top, right, bottom float64
}

type word struct {
	text     string
	box      box
	baseline float64
	index    int
}

// assembleWords merges the content stream's positioned glyph runs into
// words. A new word starts on a baseline change or a horizontal gap wider
// than a third of the glyph size. PDF Y grows upward; the output box is
// top-down like the backend's.
func assembleWords(glyphs []pdf.Text, pageHeight float64) []word {
	runs := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			continue
		}
		runs = append(runs, g)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var words []word
	var current *word
	var prevEnd float64
	for _, g := range runs {
		size := g.FontSize
		if size <= 0 {
			size = 10
		}
		top := pageHeight - g.Y - size
		glyphBox := box{left: g.X, top: top, right: g.X + g.W, bottom: top + size}

		sameLine := current != nil && math.Abs(current.baseline-g.Y) < size*0.4
		gap := g.X - prevEnd
		if sameLine && gap <= size/3 && gap > -size {
			current.text += g.S
			current.box = union(current.box, glyphBox)
		} else {
			if current != nil {
				words = append(words, *current)
			}
			current = &word{text: g.S, box: glyphBox, baseline: g.Y}
		}
		prevEnd = g.X + g.W
	}
	if current != nil {
		words = append(words, *current)
	}
	return words
}

// assembleLines groups consecutive words that share a baseline.
func assembleLines(words []word) []docmodel.Line {
	var lines []docmodel.Line
	var bounds box
	var indexes []int
	var baseline float64
	flush := func() {
		if len(indexes) == 0 {
			return
		}
		lines = append(lines, docmodel.Line{
			WordIndexes: append([]int(nil), indexes...),
			Polygon:     boxPolygon(bounds),
		})
		indexes = indexes[:0]
	}
	for _, w := range words {
		height := w.box.bottom - w.box.top
		if len(indexes) > 0 && math.Abs(w.baseline-baseline) < height*0.4 {
			indexes = append(indexes, w.index)
			bounds = union(bounds, w.box)
			continue
		}
		flush()
		indexes = append(indexes, w.index)
		bounds = w.box
		baseline = w.baseline
	}
	flush()
	return lines
}

func union(a, b box) box {
	return box{
		left:   math.Min(a.left, b.left),
		top:    math.Min(a.top, b.top),
		right:  math.Max(a.right, b.right),
		bottom: math.Max(a.bottom, b.bottom),
	}
}

func boxPolygon(b box) []float64 {
	return []float64{b.left, b.top, b.right, b.top, b.right, b.bottom, b.left, b.bottom}
}
