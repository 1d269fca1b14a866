// Package search scans the document text for a query and tracks match
// navigation. Matching runs over each page's words concatenated without
// separators, so a query may straddle word boundaries; a match maps back to
// the word indices whose text it touches.
package search

import (
	"sort"
	"strings"

	"github.com/askpdf/askpdf/internal/geometry"
)

// Match is one occurrence of the query: the page it sits on and the word
// indices it covers, in reading order.
type Match struct {
	Page   int
	Offset int
	Words  []int
}

type wordSpan struct {
	start, end int
	wordIndex  int
}

type pageText struct {
	page  int
	text  string
	spans []wordSpan
}

// Engine holds the per-document text index and the current query state.
type Engine struct {
	pages   []pageText
	query   string
	matches []Match
	active  int
}

func NewEngine() *Engine { return &Engine{} }

// SetGeometry rebuilds the text index from the document's word lists and
// re-runs the current query against it, keeping the active match position
// where possible.
func (e *Engine) SetGeometry(words map[int][]geometry.PageWord) {
	pages := make([]int, 0, len(words))
	for page := range words {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	e.pages = e.pages[:0]
	for _, page := range pages {
		var b strings.Builder
		var spans []wordSpan
		for _, word := range words[page] {
			if word.Text == "" {
				continue
			}
			lower := strings.ToLower(word.Text)
			spans = append(spans, wordSpan{start: b.Len(), end: b.Len() + len(lower), wordIndex: word.WordIndex})
			b.WriteString(lower)
		}
		if len(spans) > 0 {
			e.pages = append(e.pages, pageText{page: page, text: b.String(), spans: spans})
		}
	}
	if e.query != "" {
		query := e.query
		e.query = ""
		e.Apply(query)
	}
}

// Apply sets the query and rescans. A changed query resets the active match
// to the first occurrence; re-applying the same query keeps the current
// position, clamped if the match list shrank. Returns whether any matches
// exist.
func (e *Engine) Apply(query string) bool {
	query = strings.ToLower(query)
	changed := query != e.query
	e.query = query
	e.matches = e.matches[:0]
	if query == "" {
		e.active = 0
		return false
	}
	for _, pt := range e.pages {
		from := 0
		for {
			i := strings.Index(pt.text[from:], query)
			if i < 0 {
				break
			}
			offset := from + i
			words := wordsCovering(pt.spans, offset, offset+len(query))
			if len(words) > 0 {
				e.matches = append(e.matches, Match{Page: pt.page, Offset: offset, Words: words})
			}
			// Advance one byte, not the full match, so overlapping
			// occurrences are all found.
			from = offset + 1
		}
	}
	if changed || e.active >= len(e.matches) {
		e.active = 0
	}
	return len(e.matches) > 0
}

func wordsCovering(spans []wordSpan, start, end int) []int {
	var words []int
	for _, span := range spans {
		if span.start < end && span.end > start {
			words = append(words, span.wordIndex)
		}
	}
	return words
}

// Clear drops the query and all matches.
func (e *Engine) Clear() {
	e.query = ""
	e.matches = e.matches[:0]
	e.active = 0
}

// Query returns the current lowercased query.
func (e *Engine) Query() string { return e.query }

// Matches returns all matches in document order.
func (e *Engine) Matches() []Match { return e.matches }

// Active returns the current match and its position, or ok=false when the
// query has no matches.
func (e *Engine) Active() (match Match, position int, ok bool) {
	if len(e.matches) == 0 {
		return Match{}, 0, false
	}
	return e.matches[e.active], e.active, true
}

// Next advances to the following match, wrapping past the last.
func (e *Engine) Next() {
	if len(e.matches) > 0 {
		e.active = (e.active + 1) % len(e.matches)
	}
}

// Prev steps back to the preceding match, wrapping past the first.
func (e *Engine) Prev() {
	if len(e.matches) > 0 {
		e.active = (e.active - 1 + len(e.matches)) % len(e.matches)
	}
}

// PageWords returns the word indices covered by any match on the page,
// deduplicated and ascending, with the active match's words reported
// separately so the renderer can emphasize them.
func (e *Engine) PageWords(page int) (all, active []int) {
	seen := map[int]bool{}
	for i, match := range e.matches {
		if match.Page != page {
			continue
		}
		for _, word := range match.Words {
			if !seen[word] {
				seen[word] = true
				all = append(all, word)
			}
		}
		if i == e.active {
			active = append(active, match.Words...)
		}
	}
	sort.Ints(all)
	return all, active
}
