package blast

import (
	"github.com/veccore/annengine/pkg/container"
	"github.com/veccore/annengine/pkg/vecid"
)

// handle is an arena-relative node reference, mirroring the IHCI tree's
// use of integer handles instead of owning pointers.
type handle int32

const nilHandle handle = -1

type kind uint8

const (
	vectorKind kind = iota
	bucketKind
)

// node is the polymorphic tagged-union node both VectorNode and
// BucketNode variants share; kind selects which extras are live.
type node struct {
	id     handle
	kind   kind
	parent handle

	// Vector extras. heat counts how many times this node has been a
	// traversal winner (popped off the priority queue and linked
	// against) during Insert; it never decays.
	vecID    vecid.ID
	heat     uint64
	outgoing *container.BoundedSortedList[handle] // keys: distance from this vector
	incoming *container.UnboundedList[handle]

	// Bucket extras. leafBucket selects whether members holds vector
	// node handles directly (a leaf bucket) or child bucket handles (a
	// routing bucket). representative is the vector chosen as epicenter
	// when this bucket was materialized by a reorganization: set once at
	// creation and never reassigned afterward. It is nil for the initial
	// root bucket and for a routing bucket promoted with no epicenter of
	// its own — an empty representative is treated as an infinitely
	// distant node wherever distance-to-representative is compared.
	leafBucket     bool
	members        *container.GrowableVec[handle]
	representative []float32
}

func newVectorNode(id handle, vecID vecid.ID, outgoingCapacity int) *node {
	return &node{
		id:       id,
		kind:     vectorKind,
		parent:   nilHandle,
		vecID:    vecID,
		outgoing: container.NewBoundedSortedList[handle](outgoingCapacity),
		incoming: container.NewUnboundedList[handle](),
	}
}

func newBucketNode(id handle, leaf bool) *node {
	return &node{
		id:         id,
		kind:       bucketKind,
		parent:     nilHandle,
		leafBucket: leaf,
		members:    container.NewGrowableVec[handle](4),
	}
}

func (n *node) isVector() bool { return n.kind == vectorKind }
func (n *node) isBucket() bool { return n.kind == bucketKind }

// Index is the BLAST (graph-first hierarchical) index: a neighbor
// graph of vector nodes, organized into capacity-bounded buckets that
// reorganize by relocating a strictly-improving subset of members to a
// freshly materialized sibling bucket whenever a bucket overflows.
type Index struct {
	cfg    Config
	metric naturalMetric
	store  storeLike

	nodes []*node
	root  handle
	count int
}
