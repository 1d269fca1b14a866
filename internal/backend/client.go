// Package backend talks to the AskPDF API: the document list, analysis
// results, annotations, and signed download URLs. Request lifetimes are
// managed by the Loader so that switching documents aborts everything
// still in flight for the previous one.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/askpdf/askpdf/internal/docmodel"
)

const defaultHTTPTimeout = 30 * time.Second

// Client is the AskPDF API client. The access token is attached to every
// request; the server decides what the token may see.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{baseURL: baseURL, token: token, client: httpClient}
}

// ListDocuments returns the caller's documents, newest first as the server
// orders them.
func (c *Client) ListDocuments(ctx context.Context) ([]docmodel.Document, error) {
	var payload struct {
		Documents []docmodel.Document `json:"documents"`
	}
	if err := c.getJSON(ctx, "/documents", &payload); err != nil {
		return nil, err
	}
	return payload.Documents, nil
}

// FetchResult returns a document's analysis result: pages, words, lines.
func (c *Client) FetchResult(ctx context.Context, docID string) (*docmodel.ResultPayload, error) {
	var result docmodel.ResultPayload
	if err := c.getJSON(ctx, "/documents/"+url.PathEscape(docID)+"/result", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchAnnotations returns the document's stored annotation map. A document
// never annotated yields an empty, non-nil map rather than an error.
func (c *Client) FetchAnnotations(ctx context.Context, docID string) (docmodel.AnnotationMap, error) {
	var payload docmodel.AnnotationPayload
	if err := c.getJSON(ctx, "/documents/"+url.PathEscape(docID)+"/annotations", &payload); err != nil {
		return nil, err
	}
	if payload.Annotations == nil {
		payload.Annotations = docmodel.AnnotationMap{}
	}
	return payload.Annotations, nil
}

// PutAnnotations replaces the document's stored annotation map wholesale.
func (c *Client) PutAnnotations(ctx context.Context, docID string, m docmodel.AnnotationMap) error {
	body, err := json.Marshal(docmodel.AnnotationPayload{Annotations: m})
	if err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/documents/"+url.PathEscape(docID)+"/annotations", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	return nil
}

// SignedDownloadURL asks the server for a short-lived URL to the raw PDF.
func (c *Client) SignedDownloadURL(ctx context.Context, docID string) (string, error) {
	var payload struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, "/documents/"+url.PathEscape(docID)+"/download", &payload); err != nil {
		return "", err
	}
	if payload.URL == "" {
		return "", fmt.Errorf("empty download url for document %s", docID)
	}
	return payload.URL, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("askpdf API error: %s (%s)", resp.Status, string(body))
}
