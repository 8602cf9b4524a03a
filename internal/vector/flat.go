package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FlatIndex is an exact brute-force inner product index. Vectors are held in
// memory in handle order; handle n is always the vector at position n because
// the index is append-only.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	nextID     int64
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &FlatIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends vectors and returns their handles. The whole batch is validated
// before anything is appended, so a dimension mismatch leaves the index
// unchanged.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) ([]int64, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return nil, fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, len(vectors))
	for i, vec := range vectors {
		stored := make([]float32, f.dimensions)
		copy(stored, vec)
		f.vectors = append(f.vectors, stored)
		ids[i] = f.nextID
		f.nextID++
	}
	return ids, nil
}

// Search scores the query against every stored vector and returns the top k
// by inner product. Equal scores order by ascending handle.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.vectors) == 0 {
		return []Result{}, nil
	}
	scores := make([]Result, len(f.vectors))
	for i, vec := range f.vectors {
		var dot float64
		for j := 0; j < f.dimensions; j++ {
			dot += float64(query[j]) * float64(vec[j])
		}
		scores[i] = Result{ID: int64(i), Score: dot}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ID < scores[j].ID
	})
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Save writes the index to path atomically (temp file plus rename). Format:
// little-endian uint32 dimensions, uint32 count, int64 nextID, then count
// packed float32 rows.
func (f *FlatIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := f.writeTo(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func (f *FlatIndex) writeTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, f.nextID); err != nil {
		return fmt.Errorf("write next id: %w", err)
	}
	for i, vec := range f.vectors {
		if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

// Load replaces the in-memory contents with the file at path. A missing or
// empty file is not an error; the index stays empty. Dimensions must match.
func (f *FlatIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	var dim, count uint32
	var nextID int64
	if err := binary.Read(file, binary.LittleEndian, &dim); err != nil {
		if errors.Is(err, io.EOF) {
			// Zero-byte file, same as no checkpoint at all.
			return nil
		}
		return fmt.Errorf("%w: read dimensions: %v", ErrCorruptIndex, err)
	}
	if int(dim) != f.dimensions {
		return fmt.Errorf("%w: file has dimension %d, index expects %d", ErrCorruptIndex, dim, f.dimensions)
	}
	if err := binary.Read(file, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: read count: %v", ErrCorruptIndex, err)
	}
	if err := binary.Read(file, binary.LittleEndian, &nextID); err != nil {
		return fmt.Errorf("%w: read next id: %v", ErrCorruptIndex, err)
	}
	if nextID != int64(count) {
		return fmt.Errorf("%w: next id %d does not match count %d", ErrCorruptIndex, nextID, count)
	}

	vectors := make([][]float32, 0, count)
	buf := make([]byte, f.dimensions*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(file, buf); err != nil {
			return fmt.Errorf("%w: read vector %d: %v", ErrCorruptIndex, i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = vectors
	f.nextID = nextID
	return nil
}

// Size returns the number of stored vectors.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// NextID returns the handle the next added vector will receive.
func (f *FlatIndex) NextID() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nextID
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
