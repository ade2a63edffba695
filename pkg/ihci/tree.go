package ihci

import (
	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/metric"
	"github.com/veccore/annengine/pkg/vecid"
	"github.com/veccore/annengine/pkg/vectorstore"
)

// storeLike is the subset of vectorstore.Store the tree needs.
type storeLike = vectorstore.Store

// naturalMetric wraps a metric.Metric and resolves the open question
// on squared-vs-Euclidean mixing (see DESIGN.md / spec §9 open
// question 1): sphere radii and all containment arithmetic are kept in
// "natural" distance units — the square root of the metric's raw
// return value for SquaredL2, the raw value unchanged for Cosine — so
// radius and a freshly computed distance are always directly
// comparable. Final query results still report the metric's raw value
// (squared L2, or cosine distance) per §8's testable properties.
type naturalMetric struct {
	*metric.Metric
}

func (m naturalMetric) natural(raw float32) float32 {
	if m.Kind() == metric.SquaredL2 {
		return metric.Sqrt(raw)
	}
	return raw
}

// naturalDistance returns the distance between a and b in natural
// (radius-comparable) units. Dimensions are assumed pre-validated.
func (m naturalMetric) naturalDistance(a, b []float32) float32 {
	return m.natural(m.MustDistance(a, b))
}

// New constructs an empty IHCI tree over store using metric m.
func New(cfg Config, m *metric.Metric, store vectorstore.Store) (*Tree, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ann.ErrInvalidArgument("ihci: metric must not be nil")
	}
	if store == nil {
		return nil, ann.ErrInvalidArgument("ihci: store must not be nil")
	}
	if m.Dimension() != store.Dimensions() {
		return nil, ann.ErrDimensionMismatch(store.Dimensions(), m.Dimension())
	}
	return &Tree{
		cfg:    cfg,
		metric: naturalMetric{m},
		store:  store,
		root:   nilHandle,
	}, nil
}

// Len returns the number of vectors inserted.
func (t *Tree) Len() int {
	if t.root == nilHandle {
		return 0
	}
	return t.nodes[t.root].descCount
}

// Dimension returns the configured vector dimension.
func (t *Tree) Dimension() int { return t.metric.Dimension() }

func (t *Tree) node(h handle) *node { return t.nodes[h] }

func (t *Tree) newLeaf() handle {
	h := handle(len(t.nodes))
	t.nodes = append(t.nodes, newLeafNode(h, t.cfg.LeafNeighborCount))
	return h
}

func (t *Tree) newRouting() handle {
	h := handle(len(t.nodes))
	t.nodes = append(t.nodes, newRoutingNode(h, t.cfg.RoutingMaxChildren))
	return h
}

// enqueueRepair adds h to the repair FIFO, deduping via in_repair_queue.
func (t *Tree) enqueueRepair(h handle) {
	n := t.node(h)
	if n.inRepairQueue || n.disposed {
		return
	}
	n.inRepairQueue = true
	t.repairQueue = append(t.repairQueue, h)
}

// vectorOf fetches the stored vector for id from the backing store,
// returning nil if the lookup fails.
func (t *Tree) vectorOf(id vecid.ID) []float32 {
	v, err := t.store.Get(id)
	if err != nil {
		return nil
	}
	return v
}
