package vectorstore

import (
	"fmt"

	"github.com/veccore/annengine/internal/quantization"
	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/vecid"
)

// CompressedStore backs Store with scalar-quantized int8 codes instead
// of raw float32 rows, trading a small amount of recall (distances are
// computed on the dequantized approximation) for a 4x memory
// reduction. It satisfies the same Store interface as FlatStore, so
// either ihci.Tree or blast.Index can be built over it unmodified —
// the ANN cores never know the backing rows are approximate.
//
// The quantizer must be trained (quantization.ScalarQuantizer.Train)
// on a representative sample before vectors are appended; CompressedStore
// does not retrain itself.
type CompressedStore struct {
	dim       int
	quantizer *quantization.ScalarQuantizer
	codes     [][]int8
}

// NewCompressedStore wraps a trained quantizer. q must already have
// had Train called on representative data.
func NewCompressedStore(dim int, q *quantization.ScalarQuantizer) (*CompressedStore, error) {
	if dim <= 0 {
		return nil, ann.ErrInvalidArgument("vectorstore: dimension must be positive, got %d", dim)
	}
	if q == nil {
		return nil, ann.ErrInvalidArgument("vectorstore: quantizer must not be nil")
	}
	return &CompressedStore{dim: dim, quantizer: q}, nil
}

// Dimensions returns d.
func (s *CompressedStore) Dimensions() int { return s.dim }

// Count returns n.
func (s *CompressedStore) Count() int { return len(s.codes) }

// Append quantizes and stores vector, returning its new id.
func (s *CompressedStore) Append(vector []float32) (vecid.ID, error) {
	if len(vector) != s.dim {
		return vecid.Invalid, ann.ErrDimensionMismatch(s.dim, len(vector))
	}
	s.codes = append(s.codes, s.quantizer.Quantize(vector))
	return vecid.Of(len(s.codes) - 1), nil
}

// NewTrainedCompressedStore trains a fresh scalar quantizer on sample
// and returns a CompressedStore ready to accept vectors. Use it when a
// representative sample is available ahead of the first insert (e.g.
// a namespace provisioned for quantized storage supplies its first
// batch of vectors as the training sample).
func NewTrainedCompressedStore(dim int, sample [][]float32) (*CompressedStore, error) {
	if len(sample) == 0 {
		return nil, ann.ErrInvalidArgument("vectorstore: quantization training sample must not be empty")
	}
	q := quantization.NewScalarQuantizer()
	if err := q.Train(sample); err != nil {
		return nil, fmt.Errorf("vectorstore: training quantizer: %w", err)
	}
	return NewCompressedStore(dim, q)
}

// Get dequantizes and returns the approximate vector for id. Unlike
// FlatStore, this allocates on every call since the stored
// representation is not byte-compatible with []float32.
func (s *CompressedStore) Get(id vecid.ID) ([]float32, error) {
	if !id.Valid() {
		return nil, ann.ErrInvalidID(id)
	}
	row := id.Int()
	if row < 0 || row >= len(s.codes) {
		return nil, ann.ErrInvalidID(id)
	}
	return s.quantizer.Dequantize(s.codes[row]), nil
}
