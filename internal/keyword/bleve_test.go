package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	texts := map[int64]string{
		0: "configure the vector index dimensions in the yaml file",
		1: "authentication tokens expire after one hour",
		2: "the index supports exact inner product search",
	}
	for id, text := range texts {
		if err := idx.Index(ctx, id, text); err != nil {
			t.Fatalf("Index(%d) error = %v", id, err)
		}
	}

	results, err := idx.Search(ctx, "index", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	seen := map[int64]bool{}
	for _, r := range results {
		seen[r.ID] = true
		if r.Score <= 0 {
			t.Errorf("result %d has non-positive score %f", r.ID, r.Score)
		}
	}
	if !seen[0] || !seen[2] {
		t.Errorf("expected handles 0 and 2, got %v", seen)
	}
}

func TestSearchNoMatches(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, 0, "completely unrelated content"); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	results, err := idx.Search(ctx, "qzxv", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, 7, "deployment checklist for staging"); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := idx.Delete(ctx, 7); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	results, err := idx.Search(ctx, "deployment", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results after delete, want 0", len(results))
	}
}

func TestReopenExistingIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyword.bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex() error = %v", err)
	}
	if err := idx.Index(ctx, 3, "persisted across reopen"); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex() reopen error = %v", err)
	}
	defer reopened.Close()

	n, err := reopened.DocCount()
	if err != nil {
		t.Fatalf("DocCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DocCount() = %d, want 1", n)
	}
	results, err := reopened.Search(ctx, "persisted", 5)
	if err != nil {
		t.Fatalf("Search() after reopen error = %v", err)
	}
	if len(results) != 1 || results[0].ID != 3 {
		t.Errorf("Search() after reopen = %v, want handle 3", results)
	}
}
