package ihci

import "github.com/veccore/annengine/pkg/container"

// RepairOne recomputes one pending node's center and radius from its
// current members, re-sorting its leaf-neighbor list if it is a leaf,
// and re-checking its parent's containment. Repair is idempotent: a
// node with nothing to fix simply gets its bounds recomputed to the
// same values. It reports whether a node was repaired.
func (t *Tree) RepairOne() bool {
	if len(t.repairQueue) == 0 {
		return false
	}
	h := t.repairQueue[0]
	t.repairQueue = t.repairQueue[1:]
	n := t.node(h)
	n.inRepairQueue = false
	if n.disposed {
		return true
	}

	if n.isLeaf() {
		t.repairLeaf(h)
	} else {
		t.recomputeRoutingCenter(h)
	}
	t.recheckParentContainment(h)
	return true
}

// RepairAll drains the repair queue completely.
func (t *Tree) RepairAll() {
	for t.RepairOne() {
	}
}

// repairLeaf recomputes a leaf's center as the arithmetic mean of its
// member vectors (unweighted, unlike a routing node's desc_count
// weighting) and its radius as the max distance to that center, then
// re-sorts its neighbor list against the new center.
func (t *Tree) repairLeaf(h handle) {
	n := t.node(h)
	ids := n.vectors.Slice()
	vecs := make([][]float32, len(ids))
	for i, id := range ids {
		vecs[i] = t.vectorOf(id)
	}
	n.center = meanVector(t.Dimension(), vecs)
	n.descCount = len(ids)

	var radius float32
	for _, v := range vecs {
		d := t.metric.naturalDistance(n.center, v)
		if d > radius {
			radius = d
		}
	}
	n.radius = radius

	t.resortLeafNeighbors(h)
}

func (t *Tree) resortLeafNeighbors(h handle) {
	n := t.node(h)
	old := n.neighbors
	fresh := container.NewBoundedSortedList[handle](old.Capacity)
	for _, nb := range old.Values {
		d := t.metric.naturalDistance(n.center, t.node(nb).center)
		fresh.Insert(d, nb)
	}
	n.neighbors = fresh
}

// recheckParentContainment inflates the parent's radius and enqueues
// it for repair if the just-repaired node's sphere no longer fits —
// the same check Insert performs eagerly, applied lazily here.
func (t *Tree) recheckParentContainment(h handle) {
	n := t.node(h)
	if n.parent == nilHandle {
		return
	}
	pn := t.node(n.parent)
	d := t.metric.naturalDistance(pn.center, n.center)
	needed := d + n.radius
	if needed > pn.radius {
		pn.radius = needed
		t.enqueueRepair(n.parent)
	}
}
