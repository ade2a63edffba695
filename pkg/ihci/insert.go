package ihci

import (
	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/vecid"
)

// Insert descends from the root to a leaf, appends id there, repairs
// the containment invariant incrementally, splits overflowing nodes,
// and enqueues affected nodes for lazy repair (§4.5.2). A failed
// Insert never mutates the tree.
func (t *Tree) Insert(id vecid.ID) error {
	if !id.Valid() {
		return ann.ErrInvalidID(id)
	}
	v, err := t.store.Get(id)
	if err != nil {
		return err
	}

	if t.root == nilHandle {
		t.root = t.newLeaf()
	}

	leaf := t.descendToLeaf(v)
	t.attachToLeaf(leaf, id, v)
	t.propagateDescCount(leaf)
	t.propagateContainment(leaf)

	if t.node(leaf).vectors.Len() > t.cfg.LeafCapacity {
		t.splitLeaf(leaf)
	}

	t.insertCount++
	if t.insertCount%t.cfg.RepairEveryInserts == 0 {
		t.RepairOne()
	}
	if len(t.repairQueue) > t.cfg.RepairQueueHighWatermark {
		t.RepairOne()
	}
	return nil
}

// descendToLeaf walks from root to a leaf, at each routing node picking
// the child whose center minimizes distance to v. Children with an
// empty (unset) center are a last-resort fallback, only chosen when no
// child has a usable center.
func (t *Tree) descendToLeaf(v []float32) handle {
	cur := t.root
	for {
		n := t.node(cur)
		if n.isLeaf() {
			return cur
		}

		best := nilHandle
		bestDist := float32(0)
		fallback := nilHandle

		children := n.children.Slice()
		for _, ch := range children {
			childCenter := t.node(ch).center
			if len(childCenter) == 0 {
				if fallback == nilHandle {
					fallback = ch
				}
				continue
			}
			d := t.metric.naturalDistance(v, childCenter)
			if best == nilHandle || d < bestDist {
				best = ch
				bestDist = d
			}
		}

		if best == nilHandle {
			best = fallback
		}
		cur = best
	}
}

func (t *Tree) attachToLeaf(leaf handle, id vecid.ID, v []float32) {
	n := t.node(leaf)
	n.vectors.Append(id)
	if len(n.center) > 0 {
		d := t.metric.naturalDistance(n.center, v)
		if d > n.radius {
			n.radius = d
		}
	}
}

// propagateDescCount increments desc_count for every ancestor of leaf,
// all the way to the root, unconditionally — this bookkeeping invariant
// holds independent of how far the containment walk below travels.
func (t *Tree) propagateDescCount(leaf handle) {
	t.node(leaf).descCount++
	for p := t.node(leaf).parent; p != nilHandle; p = t.node(p).parent {
		t.node(p).descCount++
	}
}

// propagateContainment walks parents from leaf upward; at each parent,
// if the child's sphere is no longer contained, the parent's radius is
// inflated to restore containment and the parent is enqueued for
// repair. The walk stops at the first parent that already contains the
// child (§4.5.2 step 3).
func (t *Tree) propagateContainment(leaf handle) {
	child := leaf
	parent := t.node(leaf).parent
	for parent != nilHandle {
		cn := t.node(child)
		pn := t.node(parent)
		if len(pn.center) == 0 || len(cn.center) == 0 {
			// Nothing to check without centers; repair will establish
			// both once it runs.
			child = parent
			parent = pn.parent
			continue
		}
		d := t.metric.naturalDistance(pn.center, cn.center)
		needed := d + cn.radius
		if needed <= pn.radius {
			break
		}
		pn.radius = needed
		t.enqueueRepair(parent)
		child = parent
		parent = pn.parent
	}
}
