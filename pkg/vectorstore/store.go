// Package vectorstore provides the immutable, read-only accessor over
// row-major dense vector data both ANN indices are built against.
package vectorstore

import (
	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/vecid"
)

// Store is a read-only accessor: row index -> contiguous d-float
// slice. Implementations only grow by appending rows; a row never
// changes once written, and the store outlives every index built
// over it.
type Store interface {
	// Dimensions returns d.
	Dimensions() int
	// Count returns n, the number of rows currently appended.
	Count() int
	// Get returns the vector for id. The returned slice's lifetime is
	// bound to the store; callers must not retain it past a store
	// mutation (AppendOnly stores only grow, so a prior Get remains
	// valid, but it must not be written through).
	Get(id vecid.ID) ([]float32, error)
}

// AppendableStore extends Store with the write path used by callers
// that own a store directly (e.g. tenant.Engine provisioning either a
// FlatStore or a CompressedStore behind a namespace). The ANN indices
// themselves only ever see the narrower, read-only Store contract.
type AppendableStore interface {
	Store
	Append(vector []float32) (vecid.ID, error)
}

// FlatStore is the flat row-major implementation: a single append-only
// []float32 of length n*d, indexed by id. It is the baseline
// implementation named in the external interfaces (§6): "flat
// row-major array".
type FlatStore struct {
	dim  int
	data []float32
}

// NewFlatStore creates an empty store for vectors of the given
// dimension.
func NewFlatStore(dim int) (*FlatStore, error) {
	if dim <= 0 {
		return nil, ann.ErrInvalidArgument("vectorstore: dimension must be positive, got %d", dim)
	}
	return &FlatStore{dim: dim}, nil
}

// Dimensions returns d.
func (s *FlatStore) Dimensions() int { return s.dim }

// Count returns n.
func (s *FlatStore) Count() int { return len(s.data) / s.dim }

// Append adds a vector, returning its new id. The vector is copied
// into the store's backing array.
func (s *FlatStore) Append(vector []float32) (vecid.ID, error) {
	if len(vector) != s.dim {
		return vecid.Invalid, ann.ErrDimensionMismatch(s.dim, len(vector))
	}
	row := s.Count()
	s.data = append(s.data, vector...)
	return vecid.Of(row), nil
}

// Get returns the vector for id.
func (s *FlatStore) Get(id vecid.ID) ([]float32, error) {
	if !id.Valid() {
		return nil, ann.ErrInvalidID(id)
	}
	row := id.Int()
	if row < 0 || row >= s.Count() {
		return nil, ann.ErrInvalidID(id)
	}
	start := row * s.dim
	return s.data[start : start+s.dim : start+s.dim], nil
}
