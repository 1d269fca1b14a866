// Package docmodel holds the wire contracts shared with the AskPDF backend:
// the document analysis result (pages, words, lines with polygons), the
// annotation payload, and reference-highlight requests issued by the chat UI.
package docmodel

import (
	"encoding/json"
	"time"
)

// Mode is the annotation style applied to a word.
type Mode string

const (
	ModeHighlight Mode = "highlight"
	ModeUnderline Mode = "underline"
)

// ResultPayload is the analysis output for one document. Geometry is in
// page-native units; Width/Height on each page share those units.
type ResultPayload struct {
	Pages []Page `json:"pages"`
}

// Page carries the per-page geometry produced by the backend analyzer.
type Page struct {
	PageNumber int     `json:"pageNumber"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Words      []Word  `json:"words"`
	Lines      []Line  `json:"lines"`
}

// Word is a recognized word with its enclosing polygon. WordIndex is unique
// per document and defines reading order within a page.
type Word struct {
	WordIndex int       `json:"wordIndex"`
	Content   string    `json:"content"`
	Polygon   []float64 `json:"polygon"`
}

// Line groups word indices that share a visual text line.
type Line struct {
	WordIndexes []int     `json:"wordIndexes"`
	Polygon     []float64 `json:"polygon"`
}

// Annotation is one persisted highlight or underline on a single word.
type Annotation struct {
	PageNumber int       `json:"pageNumber"`
	WordIndex  int       `json:"wordIndex"`
	Color      string    `json:"color"`
	Mode       Mode      `json:"mode"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AnnotationMap is the full annotation state of a document:
// page number -> word index -> records in insertion order.
type AnnotationMap map[int]map[int][]Annotation

// AnnotationPayload wraps the map for the GET/PUT annotation endpoints.
// PUT is a full replace, not a patch.
type AnnotationPayload struct {
	Annotations AnnotationMap `json:"annotations"`
}

// Clone returns a deep copy, safe to hand to a concurrent write-back.
func (m AnnotationMap) Clone() AnnotationMap {
	if m == nil {
		return nil
	}
	out := make(AnnotationMap, len(m))
	for page, words := range m {
		wordsCopy := make(map[int][]Annotation, len(words))
		for word, list := range words {
			wordsCopy[word] = append([]Annotation(nil), list...)
		}
		out[page] = wordsCopy
	}
	return out
}

// ReferenceRequest asks the viewer to highlight the cited words, typically
// after the user clicks a citation in a chat answer.
type ReferenceRequest struct {
	Pages map[int][]int `json:"pages"`
}

// Document is one entry in the user's document list.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	PageCount int       `json:"pageCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// The backend has emitted both snake_case and camelCase field names over
// time, so the geometry types accept either spelling on decode.

func (p *Page) UnmarshalJSON(data []byte) error {
	var raw struct {
		PageNumber      *int    `json:"pageNumber"`
		PageNumberSnake *int    `json:"page_number"`
		Width           float64 `json:"width"`
		Height          float64 `json:"height"`
		Words           []Word  `json:"words"`
		Lines           []Line  `json:"lines"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.PageNumber != nil:
		p.PageNumber = *raw.PageNumber
	case raw.PageNumberSnake != nil:
		p.PageNumber = *raw.PageNumberSnake
	}
	p.Width = raw.Width
	p.Height = raw.Height
	p.Words = raw.Words
	p.Lines = raw.Lines
	return nil
}

func (w *Word) UnmarshalJSON(data []byte) error {
	var raw struct {
		WordIndex      *int      `json:"wordIndex"`
		WordIndexSnake *int      `json:"word_index"`
		Index          *int      `json:"index"`
		Content        *string   `json:"content"`
		Text           *string   `json:"text"`
		Polygon        []float64 `json:"polygon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w.WordIndex = -1
	switch {
	case raw.WordIndex != nil:
		w.WordIndex = *raw.WordIndex
	case raw.WordIndexSnake != nil:
		w.WordIndex = *raw.WordIndexSnake
	case raw.Index != nil:
		w.WordIndex = *raw.Index
	}
	switch {
	case raw.Content != nil:
		w.Content = *raw.Content
	case raw.Text != nil:
		w.Content = *raw.Text
	}
	w.Polygon = raw.Polygon
	return nil
}

func (l *Line) UnmarshalJSON(data []byte) error {
	var raw struct {
		WordIndexes      []int     `json:"wordIndexes"`
		WordIndexesSnake []int     `json:"word_indexes"`
		Polygon          []float64 `json:"polygon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.WordIndexes = raw.WordIndexes
	if l.WordIndexes == nil {
		l.WordIndexes = raw.WordIndexesSnake
	}
	l.Polygon = raw.Polygon
	return nil
}
