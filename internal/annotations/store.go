// Package annotations holds the in-memory annotation state for the open
// document and decides when mutations may be written back.
package annotations

import (
	"sort"
	"time"

	"github.com/askpdf/askpdf/internal/docmodel"
)

// Store is the per-document annotation state. It is owned by the UI event
// loop and is not safe for concurrent mutation; Snapshot hands out deep
// copies for asynchronous write-backs.
//
// Mutations are accepted at any time so the user never loses a gesture, but
// they only report a pending sync once the server's copy has been loaded.
// Writing back before hydration would replace the stored map with a
// near-empty one.
type Store struct {
	records  docmodel.AnnotationMap
	hydrated bool
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{records: docmodel.AnnotationMap{}, now: time.Now}
}

// Reset drops all state, typically on document switch.
func (s *Store) Reset() {
	s.records = docmodel.AnnotationMap{}
	s.hydrated = false
}

// Hydrate installs the server's annotation map and opens the write-back
// gate. A nil map hydrates to empty: a document with no annotations yet is
// still fully loaded.
func (s *Store) Hydrate(m docmodel.AnnotationMap) {
	if m == nil {
		m = docmodel.AnnotationMap{}
	}
	s.records = m.Clone()
	s.hydrated = true
}

// Hydrated reports whether the server state has been loaded.
func (s *Store) Hydrated() bool { return s.hydrated }

// Snapshot returns a deep copy of the current map for a full-replace PUT.
func (s *Store) Snapshot() docmodel.AnnotationMap { return s.records.Clone() }

// Apply annotates every given word with the mode and color. An existing
// record of the same mode on a word is replaced; records of the other mode
// are untouched, so a word can be both highlighted and underlined. Returns
// whether the change should be synced to the server.
func (s *Store) Apply(words map[int][]int, mode docmodel.Mode, color string) (needSync bool) {
	at := s.now()
	for page, indexes := range words {
		if len(indexes) == 0 {
			continue
		}
		pageMap := s.records[page]
		if pageMap == nil {
			pageMap = map[int][]docmodel.Annotation{}
			s.records[page] = pageMap
		}
		for _, word := range indexes {
			kept := pageMap[word][:0]
			for _, rec := range pageMap[word] {
				if rec.Mode != mode {
					kept = append(kept, rec)
				}
			}
			pageMap[word] = append(kept, docmodel.Annotation{
				PageNumber: page,
				WordIndex:  word,
				Color:      color,
				Mode:       mode,
				CreatedAt:  at,
			})
		}
	}
	return s.hydrated
}

// Remove deletes the most recently created record on each given word,
// whatever its mode. Repeating the gesture peels annotations off in reverse
// creation order. Words without records are ignored; the call reports a
// pending sync only when something was actually removed.
func (s *Store) Remove(words map[int][]int) (needSync bool) {
	removed := false
	for page, indexes := range words {
		pageMap := s.records[page]
		if pageMap == nil {
			continue
		}
		for _, word := range indexes {
			list := pageMap[word]
			if len(list) == 0 {
				continue
			}
			victim := 0
			for i := 1; i < len(list); i++ {
				// Ties on CreatedAt fall to the later entry: list order
				// is insertion order.
				if !list[i].CreatedAt.Before(list[victim].CreatedAt) {
					victim = i
				}
			}
			list = append(list[:victim], list[victim+1:]...)
			if len(list) == 0 {
				delete(pageMap, word)
			} else {
				pageMap[word] = list
			}
			removed = true
		}
		if len(pageMap) == 0 {
			delete(s.records, page)
		}
	}
	return removed && s.hydrated
}

// WordMark is one renderable annotation on a word.
type WordMark struct {
	WordIndex int
	Mode      docmodel.Mode
	Color     string
}

// PageMarks returns the page's renderable records, one per word+mode,
// ordered by word index then mode for stable rendering.
func (s *Store) PageMarks(page int) []WordMark {
	pageMap := s.records[page]
	if len(pageMap) == 0 {
		return nil
	}
	var marks []WordMark
	for word, list := range pageMap {
		for _, rec := range list {
			marks = append(marks, WordMark{WordIndex: word, Mode: rec.Mode, Color: rec.Color})
		}
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].WordIndex != marks[j].WordIndex {
			return marks[i].WordIndex < marks[j].WordIndex
		}
		return marks[i].Mode < marks[j].Mode
	})
	return marks
}

// Pages returns the pages that carry at least one record, ascending.
func (s *Store) Pages() []int {
	pages := make([]int, 0, len(s.records))
	for page := range s.records {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}
