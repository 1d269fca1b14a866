package backend

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/askpdf/askpdf/internal/docmodel"
)

// Request classes for cancellation. Starting a request in a class aborts
// the class's previous request, so a fast document switch never races a
// slow earlier load.
const (
	ClassDocument    = "document"
	ClassAnnotations = "annotations"
	ClassList        = "list"
)

// DocumentData is everything fetched when a document opens.
type DocumentData struct {
	DocID       string
	Result      *docmodel.ResultPayload
	Annotations docmodel.AnnotationMap
}

// Loader wraps the client with per-class request lifetimes.
type Loader struct {
	client *Client
	cache  *DocumentCache

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewLoader(client *Client) *Loader {
	return &Loader{client: client, cancels: map[string]context.CancelFunc{}}
}

// Acquire returns a context for a new request in the class, cancelling
// whatever the class was running before.
func (l *Loader) Acquire(parent context.Context, class string) context.Context {
	ctx, cancel := context.WithCancel(parent)
	l.mu.Lock()
	if prev, ok := l.cancels[class]; ok {
		prev()
	}
	l.cancels[class] = cancel
	l.mu.Unlock()
	return ctx
}

// CancelAll aborts every in-flight request, typically on shutdown.
func (l *Loader) CancelAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for class, cancel := range l.cancels {
		cancel()
		delete(l.cancels, class)
	}
}

// LoadDocument fetches the analysis result and the annotation map
// concurrently. A result failure fails the load; a failed annotation fetch
// degrades to an empty map, an accepted data-loss risk since later edits
// then overwrite the server copy.
func (l *Loader) LoadDocument(ctx context.Context, docID string) (*DocumentData, error) {
	data := &DocumentData{DocID: docID}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := l.client.FetchResult(ctx, docID)
		if err != nil {
			return err
		}
		data.Result = result
		return nil
	})
	g.Go(func() error {
		annotations, err := l.client.FetchAnnotations(ctx, docID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			data.Annotations = docmodel.AnnotationMap{}
			return nil
		}
		data.Annotations = annotations
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// ListDocuments fetches the document list under the list class.
func (l *Loader) ListDocuments(ctx context.Context) ([]docmodel.Document, error) {
	return l.client.ListDocuments(ctx)
}

// SaveAnnotations writes the full map back. Write-backs are best effort;
// callers log failures and move on, keeping the local state authoritative.
func (l *Loader) SaveAnnotations(ctx context.Context, docID string, m docmodel.AnnotationMap) error {
	return l.client.PutAnnotations(ctx, docID, m)
}

// LoadAnnotations fetches just the annotation map, for the geometry
// fallback path where the full load already failed.
func (l *Loader) LoadAnnotations(ctx context.Context, docID string) (docmodel.AnnotationMap, error) {
	return l.client.FetchAnnotations(ctx, docID)
}

// UseCache attaches a download cache so DocumentFile can serve local PDFs.
func (l *Loader) UseCache(cache *DocumentCache) { l.cache = cache }

// DocumentFile returns a local path to the document's PDF, downloading it
// through the signed-URL cache when needed.
func (l *Loader) DocumentFile(ctx context.Context, docID string) (string, error) {
	if l.cache == nil {
		return "", errors.New("no document cache configured")
	}
	return l.cache.Fetch(ctx, docID, func(ctx context.Context) (string, error) {
		return l.client.SignedDownloadURL(ctx, docID)
	})
}
