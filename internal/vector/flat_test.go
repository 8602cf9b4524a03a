package vector

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/pkg/utils"
)

func unitVec(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestFlatIndexAddAssignsSequentialHandles(t *testing.T) {
	idx, err := NewFlatIndex(4)
	if err != nil {
		t.Fatalf("NewFlatIndex() error = %v", err)
	}
	ctx := context.Background()

	first, err := idx.Add(ctx, [][]float32{unitVec(4, 0), unitVec(4, 1)})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	second, err := idx.Add(ctx, [][]float32{unitVec(4, 2)})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	want := [][]int64{{0, 1}, {2}}
	for i, got := range [][]int64{first, second} {
		if len(got) != len(want[i]) {
			t.Fatalf("batch %d: got %d handles, want %d", i, len(got), len(want[i]))
		}
		for j := range got {
			if got[j] != want[i][j] {
				t.Errorf("batch %d handle %d = %d, want %d", i, j, got[j], want[i][j])
			}
		}
	}
	if idx.Size() != 3 {
		t.Errorf("Size() = %d, want 3", idx.Size())
	}
	if idx.NextID() != 3 {
		t.Errorf("NextID() = %d, want 3", idx.NextID())
	}
}

func TestFlatIndexAddDimensionMismatchIsAtomic(t *testing.T) {
	idx, _ := NewFlatIndex(4)
	ctx := context.Background()

	_, err := idx.Add(ctx, [][]float32{unitVec(4, 0), {1, 2}})
	if err == nil {
		t.Fatal("Add() with mismatched vector should fail")
	}
	if idx.Size() != 0 {
		t.Errorf("Size() after failed Add = %d, want 0 (batch must be atomic)", idx.Size())
	}
	if idx.NextID() != 0 {
		t.Errorf("NextID() after failed Add = %d, want 0", idx.NextID())
	}
}

func TestFlatIndexSearchSelfSimilarity(t *testing.T) {
	idx, _ := NewFlatIndex(8)
	ctx := context.Background()

	vecs := make([][]float32, 5)
	for i := range vecs {
		v := make([]float32, 8)
		for j := range v {
			v[j] = float32(math.Sin(float64(i*8 + j + 1)))
		}
		utils.NormalizeL2(v)
		vecs[i] = v
	}
	if _, err := idx.Add(ctx, vecs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	results, err := idx.Search(ctx, vecs[2], 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != 2 {
		t.Errorf("top result ID = %d, want 2", results[0].ID)
	}
	if math.Abs(results[0].Score-1.0) > 1e-5 {
		t.Errorf("self-similarity score = %f, want ~1.0", results[0].Score)
	}
}

func TestFlatIndexSearchOrdering(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()

	// Scores against query (1,0): 0.0, 1.0, 0.6.
	_, err := idx.Add(ctx, [][]float32{{0, 1}, {1, 0}, {0.6, 0.8}})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	wantIDs := []int64{1, 2, 0}
	for i, r := range results {
		if r.ID != wantIDs[i] {
			t.Errorf("result %d ID = %d, want %d", i, r.ID, wantIDs[i])
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestFlatIndexSearchTieBreaksByHandle(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()

	// Duplicate vectors score identically against any query.
	_, err := idx.Add(ctx, [][]float32{{1, 0}, {1, 0}, {1, 0}})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i, r := range results {
		if r.ID != int64(i) {
			t.Errorf("result %d ID = %d, want %d (ties order by ascending handle)", i, r.ID, i)
		}
	}
}

func TestFlatIndexSearchEmpty(t *testing.T) {
	idx, _ := NewFlatIndex(4)

	results, err := idx.Search(context.Background(), unitVec(4, 0), 5)
	if err != nil {
		t.Fatalf("Search() on empty index error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index, want 0", len(results))
	}
}

func TestFlatIndexSearchKLargerThanSize(t *testing.T) {
	idx, _ := NewFlatIndex(4)
	ctx := context.Background()
	if _, err := idx.Add(ctx, [][]float32{unitVec(4, 0), unitVec(4, 1)}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	results, err := idx.Search(ctx, unitVec(4, 0), 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestFlatIndexSearchQueryDimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(4)
	if _, err := idx.Search(context.Background(), []float32{1, 0}, 5); err == nil {
		t.Error("Search() with wrong query dimension should fail")
	}
}

func TestFlatIndexSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "vectors.bin")
	ctx := context.Background()

	idx, _ := NewFlatIndex(8)
	vecs := make([][]float32, 4)
	for i := range vecs {
		v := make([]float32, 8)
		for j := range v {
			v[j] = float32(math.Cos(float64(i*8 + j + 1)))
		}
		utils.NormalizeL2(v)
		vecs[i] = v
	}
	if _, err := idx.Add(ctx, vecs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, _ := NewFlatIndex(8)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Size() != 4 {
		t.Fatalf("Size() after load = %d, want 4", loaded.Size())
	}
	if loaded.NextID() != 4 {
		t.Errorf("NextID() after load = %d, want 4", loaded.NextID())
	}

	for i, vec := range vecs {
		orig, err := idx.Search(ctx, vec, 2)
		if err != nil {
			t.Fatalf("Search(original) error = %v", err)
		}
		got, err := loaded.Search(ctx, vec, 2)
		if err != nil {
			t.Fatalf("Search(loaded) error = %v", err)
		}
		for j := range orig {
			if got[j].ID != orig[j].ID || math.Abs(got[j].Score-orig[j].Score) > 1e-6 {
				t.Errorf("query %d result %d: loaded (%d, %f) != original (%d, %f)",
					i, j, got[j].ID, got[j].Score, orig[j].ID, orig[j].Score)
			}
		}
	}
}

func TestFlatIndexLoadMissingFile(t *testing.T) {
	idx, _ := NewFlatIndex(4)
	if err := idx.Load(filepath.Join(t.TempDir(), "missing.bin")); err != nil {
		t.Errorf("Load() missing file error = %v, want nil", err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size() = %d, want 0", idx.Size())
	}
}

func TestFlatIndexLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	idx, _ := NewFlatIndex(4)
	if err := idx.Load(path); err != nil {
		t.Fatalf("Load() empty file error = %v, want nil", err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size() = %d, want 0", idx.Size())
	}
	if idx.NextID() != 0 {
		t.Errorf("NextID() = %d, want 0", idx.NextID())
	}
}

func TestFlatIndexLoadTruncatedFile(t *testing.T) {
	// A partial header is corruption, not an empty checkpoint.
	path := filepath.Join(t.TempDir(), "vectors.bin")
	if err := os.WriteFile(path, []byte{4, 0}, 0644); err != nil {
		t.Fatal(err)
	}

	idx, _ := NewFlatIndex(4)
	err := idx.Load(path)
	if !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("Load() truncated file error = %v, want ErrCorruptIndex", err)
	}
}

func TestFlatIndexLoadDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	idx, _ := NewFlatIndex(4)
	if _, err := idx.Add(context.Background(), [][]float32{unitVec(4, 0)}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	other, _ := NewFlatIndex(8)
	err := other.Load(path)
	if !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("Load() with wrong dimensions error = %v, want ErrCorruptIndex", err)
	}
}

func TestFactory(t *testing.T) {
	idx, err := New("flat", 16)
	if err != nil {
		t.Fatalf("New(flat) error = %v", err)
	}
	defer idx.Close()
	if idx.Size() != 0 {
		t.Errorf("new index Size() = %d, want 0", idx.Size())
	}

	if _, err := New("hnsw", 16); err == nil {
		t.Error("New(hnsw) should fail")
	}
	if _, err := New("", 16); err != nil {
		t.Errorf("New(\"\") error = %v, want default flat", err)
	}
	if _, err := New("flat", 0); err == nil {
		t.Error("New() with zero dimensions should fail")
	}
}
