package viewstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.delay = 5 * time.Millisecond
	return s
}

func TestLoadMissingDocument(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	if _, ok, err := s.Load("never-saved"); err != nil || ok {
		t.Fatalf("missing doc: ok=%v err=%v, want false,nil", ok, err)
	}
}

func TestSaveFlushLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	s.Save("doc-1", State{Zoom: 1.25, ScrollOffset: 420, Page: 7})
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	st, ok, err := s.Load("doc-1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if st.Zoom != 1.25 || st.ScrollOffset != 420 || st.Page != 7 {
		t.Errorf("state = %+v", st)
	}
	if st.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be stamped on save")
	}
}

func TestDebounceCoalescesAndLastWriteWins(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	for i := 1; i <= 20; i++ {
		s.Save("doc-1", State{Zoom: 1.0, ScrollOffset: i, Page: 1})
	}
	time.Sleep(100 * time.Millisecond)

	st, ok, err := s.Load("doc-1")
	if err != nil || !ok {
		t.Fatalf("load after debounce: ok=%v err=%v", ok, err)
	}
	if st.ScrollOffset != 20 {
		t.Errorf("last write should win, got offset %d", st.ScrollOffset)
	}
}

func TestLoadSeesPendingStateBeforeFlush(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	s.delay = time.Hour
	s.Save("doc-1", State{Page: 3})

	st, ok, err := s.Load("doc-1")
	if err != nil || !ok || st.Page != 3 {
		t.Fatalf("pending state should be readable: %+v ok=%v err=%v", st, ok, err)
	}
}

func TestCorruptRecordIsTreatedAsAbsent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "doc-1.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	if _, ok, err := s.Load("doc-1"); err != nil || ok {
		t.Fatalf("corrupt record: ok=%v err=%v, want false,nil", ok, err)
	}
}

func TestSanitizeKeepsIDsFilesystemSafe(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	s.Save("../evil/../../id", State{Page: 1})
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want one file in the state dir, got %d", len(entries))
	}
	if name := entries[0].Name(); filepath.Dir(filepath.Join(s.dir, name)) != s.dir {
		t.Errorf("record escaped the state dir: %s", name)
	}
}
