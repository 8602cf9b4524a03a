package vector

import "fmt"

// IndexType identifies a vector index implementation.
type IndexType string

// IndexTypeFlat is exact brute-force search. The only type for now; the
// Index contract is written so an approximate index can slot in later.
const IndexTypeFlat IndexType = "flat"

// New creates a vector index of the given type.
func New(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		return NewFlatIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat)", indexType)
	}
}
