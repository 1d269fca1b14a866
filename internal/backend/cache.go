package backend

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheEnvVar   = "ASKPDF_CACHE_DIR"
	cacheSubdir   = "askpdf/documents"
	cacheTTL      = 24 * time.Hour
	partialSuffix = ".part"
	metaSuffix    = ".meta"

	downloadTimeout = 90 * time.Second
)

// DocumentCache keeps downloaded PDFs on disk so reopening a document does
// not re-download it. Signed URLs expire, so the cache asks for a fresh one
// only when it actually needs bytes; validators stored alongside the file
// let the server answer 304 for unchanged documents.
type DocumentCache struct {
	dir    string
	client *http.Client
}

type cacheMeta struct {
	DocID        string    `json:"docId"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

func NewDocumentCache(client *http.Client) (*DocumentCache, error) {
	dir := os.Getenv(cacheEnvVar)
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "askpdf-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}
	return &DocumentCache{dir: dir, client: client}, nil
}

// Fetch returns a local path to the document's PDF, downloading through the
// signed URL when the cached copy is missing or stale. A failed revalidation
// falls back to the stale copy when one exists.
func (c *DocumentCache) Fetch(ctx context.Context, docID string, signURL func(context.Context) (string, error)) (string, error) {
	pdfPath, metaPath, partialPath := c.pathsFor(docID)

	if info, err := os.Stat(pdfPath); err == nil && time.Since(info.ModTime()) < cacheTTL && info.Size() > 0 {
		return pdfPath, nil
	}

	url, err := signURL(ctx)
	if err != nil {
		if info, statErr := os.Stat(pdfPath); statErr == nil && info.Size() > 0 {
			return pdfPath, nil
		}
		return "", err
	}

	meta, _ := readCacheMeta(metaPath)
	info, _ := os.Stat(pdfPath)
	path, err := c.download(ctx, url, docID, pdfPath, metaPath, partialPath, meta, info)
	if err == nil {
		return path, nil
	}
	if info != nil && info.Size() > 0 {
		return pdfPath, nil
	}
	return "", err
}

func (c *DocumentCache) download(ctx context.Context, url, docID, pdfPath, metaPath, partialPath string, meta cacheMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	var partialSize int64
	if info, err := os.Stat(partialPath); err == nil && info.Size() > 0 {
		partialSize = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", partialSize))
		if meta.ETag != "" {
			req.Header.Set("If-Range", meta.ETag)
		} else if meta.LastModified != "" {
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current != nil && current.Size() > 0 {
			meta.CachedAt = time.Now().UTC()
			writeCacheMeta(metaPath, meta)
			return pdfPath, nil
		}
		return c.download(ctx, url, docID, pdfPath, metaPath, partialPath, cacheMeta{}, nil)
	case http.StatusOK:
		return c.saveBody(resp, docID, pdfPath, metaPath, partialPath, false)
	case http.StatusPartialContent:
		return c.saveBody(resp, docID, pdfPath, metaPath, partialPath, partialSize > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("document download failed: %s (%s)", resp.Status, string(body))
	}
}

func (c *DocumentCache) saveBody(resp *http.Response, docID, pdfPath, metaPath, partialPath string, appendExisting bool) (string, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendExisting {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(partialPath, flags, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(partialPath, pdfPath); err != nil {
		return "", err
	}

	meta := cacheMeta{
		DocID:        docID,
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(pdfPath); err == nil {
		meta.Size = info.Size()
	}
	if err := writeCacheMeta(metaPath, meta); err != nil {
		return "", err
	}
	return pdfPath, nil
}

func (c *DocumentCache) pathsFor(docID string) (string, string, string) {
	key := cacheKey(docID)
	return filepath.Join(c.dir, key+".pdf"), filepath.Join(c.dir, key+metaSuffix), filepath.Join(c.dir, key+partialSuffix)
}

func cacheKey(docID string) string {
	sum := sha1.Sum([]byte(docID))
	return hex.EncodeToString(sum[:])
}

func readCacheMeta(path string) (cacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheMeta{}, err
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeCacheMeta(path string, meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
