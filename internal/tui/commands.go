package tui

import (
	"context"
	"errors"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/askpdf/askpdf/internal/backend"
	"github.com/askpdf/askpdf/internal/docmodel"
	"github.com/askpdf/askpdf/internal/geomsource"
)

func logf(format string, args ...any) {
	log.Printf("[tui] "+format, args...)
}

func loadDocumentsCmd(loader *backend.Loader) tea.Cmd {
	return func() tea.Msg {
		ctx := loader.Acquire(context.Background(), backend.ClassList)
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		documents, err := loader.ListDocuments(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return documentsMsg{documents: documents, err: err}
	}
}

func openDocumentCmd(loader *backend.Loader, docID string) tea.Cmd {
	return func() tea.Msg {
		ctx := loader.Acquire(context.Background(), backend.ClassDocument)
		ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
		data, err := loader.LoadDocument(ctx, docID)
		if errors.Is(err, context.Canceled) {
			// A newer open superseded this one; drop it silently.
			return nil
		}
		if err != nil {
			if data, ok := localFallback(ctx, loader, docID); ok {
				logf("analysis result unavailable for %s, extracted geometry locally: %v", docID, err)
				return documentOpenedMsg{docID: docID, data: data}
			}
			return documentOpenedMsg{docID: docID, err: err}
		}
		return documentOpenedMsg{docID: docID, data: data}
	}
}

// localFallback downloads the PDF through the signed-URL cache and derives
// geometry from the file itself, so a document whose analysis has not
// finished is still readable.
func localFallback(ctx context.Context, loader *backend.Loader, docID string) (*backend.DocumentData, bool) {
	path, err := loader.DocumentFile(ctx, docID)
	if err != nil {
		return nil, false
	}
	result, err := geomsource.Extract(path)
	if err != nil {
		logf("local geometry for %s: %v", docID, err)
		return nil, false
	}
	annotations, err := loader.LoadAnnotations(ctx, docID)
	if err != nil {
		// Without the server's map a later write-back would clobber it.
		logf("annotations for %s: %v", docID, err)
		return nil, false
	}
	return &backend.DocumentData{DocID: docID, Result: result, Annotations: annotations}, true
}

// openLocalCmd derives geometry from a PDF on disk, for use without a
// backend. Annotations start empty and hydrated so they behave normally;
// they just have nowhere to sync.
func openLocalCmd(path string) tea.Cmd {
	return func() tea.Msg {
		result, err := geomsource.Extract(path)
		if err != nil {
			return documentOpenedMsg{docID: path, err: err}
		}
		return documentOpenedMsg{
			docID: path,
			data: &backend.DocumentData{
				DocID:       path,
				Result:      result,
				Annotations: docmodel.AnnotationMap{},
			},
		}
	}
}

func saveAnnotationsCmd(loader *backend.Loader, docID string, snapshot docmodel.AnnotationMap) tea.Cmd {
	return func() tea.Msg {
		if loader == nil {
			return annotationsSavedMsg{docID: docID}
		}
		ctx := loader.Acquire(context.Background(), backend.ClassAnnotations)
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		err := loader.SaveAnnotations(ctx, docID, snapshot)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			logf("annotation write-back for %s: %v", docID, err)
		}
		return annotationsSavedMsg{docID: docID, err: err}
	}
}

func askCmd(client *backend.Client, docID, question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		answer, err := client.Ask(ctx, docID, question)
		return answerMsg{docID: docID, answer: answer, err: err}
	}
}
