package ihci

import (
	"github.com/veccore/annengine/pkg/container"
	"github.com/veccore/annengine/pkg/vecid"
)

// handle is an arena-relative node reference: an integer index, never
// an owning pointer, so parent/child back-references never form a
// pointer cycle the garbage collector has to reason about (see design
// notes on arena allocation).
type handle int32

const nilHandle handle = -1

type kind uint8

const (
	leafKind kind = iota
	routingKind
)

// node is the polymorphic tagged-union node both Leaf and Routing
// variants share; kind selects which extras are live. disposed is set
// on a leaf that has been replaced by a split and must never be
// queried again.
type node struct {
	id            handle
	kind          kind
	parent        handle
	indexInParent int
	center        []float32 // may be nil/empty until first repair
	radius        float32   // Euclidean upper bound, natural (non-squared) units
	descCount     int
	inRepairQueue bool
	disposed      bool

	// Leaf extras.
	vectors   *container.GrowableVec[vecid.ID]
	neighbors *container.BoundedSortedList[handle] // keys: distance to this leaf's center

	// Routing extras.
	children *container.GrowableVec[handle]
}

func newLeafNode(id handle, neighborCapacity int) *node {
	return &node{
		id:        id,
		kind:      leafKind,
		parent:    nilHandle,
		vectors:   container.NewGrowableVec[vecid.ID](4),
		neighbors: container.NewBoundedSortedList[handle](neighborCapacity),
	}
}

func newRoutingNode(id handle, childCapacity int) *node {
	return &node{
		id:       id,
		kind:     routingKind,
		parent:   nilHandle,
		children: container.NewGrowableVec[handle](childCapacity),
	}
}

func (n *node) isLeaf() bool { return n.kind == leafKind }

// Tree is the IHCI (incremental hierarchical clustering index) tree: a
// dynamic ball-tree with routing-node fan-out, leaf buckets, a
// neighbor graph between leaves, multi-candidate descent, lazy repair,
// and farthest-pair splits.
type Tree struct {
	cfg    Config
	metric naturalMetric
	store  storeLike

	nodes       []*node
	root        handle
	repairQueue []handle
	insertCount int
}
