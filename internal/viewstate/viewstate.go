// Package viewstate persists per-document viewport state (zoom, scroll
// position, current page) across sessions. Writes are debounced so scroll
// streams do not hammer the disk; the newest state always wins.
package viewstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const saveDelay = 800 * time.Millisecond

// State is one document's remembered viewport.
type State struct {
	Zoom         float64   `json:"zoom"`
	ScrollOffset int       `json:"scrollOffset"`
	Page         int       `json:"page"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store reads and debounce-writes state records, one JSON file per
// document under the state directory.
type Store struct {
	dir   string
	delay time.Duration

	mu      sync.Mutex
	pending map[string]State
	timer   *time.Timer
}

// DefaultDir resolves the state directory: $ASKPDF_STATE_DIR when set,
// otherwise a subdirectory of the user config dir.
func DefaultDir() (string, error) {
	if dir := os.Getenv("ASKPDF_STATE_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "askpdf"), nil
}

// NewStore creates the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir, delay: saveDelay, pending: map[string]State{}}, nil
}

// Load returns the saved state for a document. ok is false when nothing
// has been saved yet.
func (s *Store) Load(docID string) (State, bool, error) {
	s.mu.Lock()
	if st, queued := s.pending[docID]; queued {
		s.mu.Unlock()
		return st, true, nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(s.path(docID))
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read view state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt record is treated as absent rather than fatal.
		log.Printf("[viewstate] discarding corrupt record for %s: %v", docID, err)
		return State{}, false, nil
	}
	return st, true, nil
}

// Save queues a state write. Repeated saves within the debounce window
// coalesce; only the last queued state per document reaches disk.
func (s *Store) Save(docID string, st State) {
	st.UpdatedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[docID] = st
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		if err := s.Flush(); err != nil {
			log.Printf("[viewstate] flush: %v", err)
		}
	})
}

// Flush writes every queued state immediately. Called on quit so the last
// scroll position survives a fast exit.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	batch := s.pending
	s.pending = map[string]State{}
	s.mu.Unlock()

	var firstErr error
	for docID, st := range batch {
		if err := s.write(docID, st); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) write(docID string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode view state: %w", err)
	}
	path := s.path(docID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write view state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit view state: %w", err)
	}
	return nil
}

func (s *Store) path(docID string) string {
	return filepath.Join(s.dir, sanitize(docID)+".json")
}

// sanitize keeps document ids filesystem-safe.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
}
