package blast

import (
	"math"

	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/metric"
	"github.com/veccore/annengine/pkg/vecid"
	"github.com/veccore/annengine/pkg/vectorstore"
)

type storeLike = vectorstore.Store

// naturalMetric resolves the same squared-vs-Euclidean units question
// IHCI faces (see ihci.naturalMetric / DESIGN.md): BLAST's eligibility
// comparisons and epicenter selection want directly-comparable
// distances, in natural (non-squared) units, while final query results
// still report the metric's raw value.
type naturalMetric struct {
	*metric.Metric
}

func (m naturalMetric) natural(raw float32) float32 {
	if m.Kind() == metric.SquaredL2 {
		return metric.Sqrt(raw)
	}
	return raw
}

func (m naturalMetric) naturalDistance(a, b []float32) float32 {
	return m.natural(m.MustDistance(a, b))
}

// New constructs an empty BLAST index over store using metric m.
func New(cfg Config, m *metric.Metric, store vectorstore.Store) (*Index, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ann.ErrInvalidArgument("blast: metric must not be nil")
	}
	if store == nil {
		return nil, ann.ErrInvalidArgument("blast: store must not be nil")
	}
	if m.Dimension() != store.Dimensions() {
		return nil, ann.ErrDimensionMismatch(store.Dimensions(), m.Dimension())
	}
	return &Index{
		cfg:    cfg,
		metric: naturalMetric{m},
		store:  store,
		root:   nilHandle,
	}, nil
}

// Len returns the number of vectors inserted.
func (idx *Index) Len() int { return idx.count }

// Dimension returns the configured vector dimension.
func (idx *Index) Dimension() int { return idx.metric.Dimension() }

func (idx *Index) node(h handle) *node { return idx.nodes[h] }

func (idx *Index) newVectorNode(vecID vecid.ID) handle {
	h := handle(len(idx.nodes))
	idx.nodes = append(idx.nodes, newVectorNode(h, vecID, idx.cfg.OutgoingNeighborCount))
	return h
}

func (idx *Index) newBucket(leaf bool) handle {
	h := handle(len(idx.nodes))
	idx.nodes = append(idx.nodes, newBucketNode(h, leaf))
	return h
}

func (idx *Index) vectorOf(id vecid.ID) []float32 {
	v, err := idx.store.Get(id)
	if err != nil {
		return nil
	}
	return v
}

// representativeOf returns the vector used for distance comparisons
// against h: the stored vector itself for a vector node, or the
// bucket's static representative (possibly nil) for a bucket node.
func (idx *Index) representativeOf(h handle) []float32 {
	n := idx.node(h)
	if n.isVector() {
		return idx.vectorOf(n.vecID)
	}
	return n.representative
}

// heatOf returns a node's heat for epicenter tie-breaking. Only
// vector nodes accumulate heat; a bucket child reports zero.
func (idx *Index) heatOf(h handle) uint64 {
	n := idx.node(h)
	if n.isVector() {
		return n.heat
	}
	return 0
}

// distanceToNode is the priority-queue key used during both insert
// traversal and query: exact distance for a vector node, distance to
// the static representative for a bucket node, or "infinite" when that
// representative is still unset.
func (idx *Index) distanceToNode(query []float32, h handle) float32 {
	n := idx.node(h)
	if n.isVector() {
		return idx.metric.naturalDistance(query, idx.vectorOf(n.vecID))
	}
	if n.representative == nil {
		return math.MaxFloat32
	}
	return idx.metric.naturalDistance(query, n.representative)
}

func meanVector(dim int, vecs [][]float32) []float32 {
	out := make([]float32, dim)
	if len(vecs) == 0 {
		return out
	}
	for _, v := range vecs {
		for i := 0; i < dim; i++ {
			out[i] += v[i]
		}
	}
	inv := 1 / float32(len(vecs))
	for i := range out {
		out[i] *= inv
	}
	return out
}

// bucketCentroid returns the mean vector-space position of a bucket:
// the mean of its members' own vectors for a leaf bucket, or the mean
// of its child buckets' centroids for a routing bucket.
func (idx *Index) bucketCentroid(b handle) []float32 {
	n := idx.node(b)
	members := n.members.Slice()
	vecs := make([][]float32, 0, len(members))
	for _, m := range members {
		if n.leafBucket {
			vecs = append(vecs, idx.vectorOf(idx.node(m).vecID))
		} else {
			vecs = append(vecs, idx.bucketCentroid(m))
		}
	}
	return meanVector(idx.Dimension(), vecs)
}

// farthestPair brute-forces the pair of points with maximal pairwise
// distance; bucket capacity bounds keep n small enough for an O(n^2)
// scan to be cheap.
func (idx *Index) farthestPair(points [][]float32) (int, int) {
	if len(points) < 2 {
		return 0, 0
	}
	bi, bj := 0, 1
	best := idx.metric.naturalDistance(points[0], points[1])
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			d := idx.metric.naturalDistance(points[i], points[j])
			if d > best {
				best, bi, bj = d, i, j
			}
		}
	}
	return bi, bj
}
