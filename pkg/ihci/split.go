package ihci

import "github.com/veccore/annengine/pkg/vecid"

// splitLeaf replaces an overflowing leaf with two successor leaves,
// partitioned by a farthest-pair seed split, then rewires the
// leaf-neighbor graph and integrates the successors into the parent
// (§4.5.4).
func (t *Tree) splitLeaf(oldLeaf handle) {
	old := t.node(oldLeaf)
	ids := append([]vecid.ID(nil), old.vectors.Slice()...)
	vecs := make([][]float32, len(ids))
	for i, id := range ids {
		vecs[i] = t.vectorOf(id)
	}

	si, sj := t.farthestPair(vecs)

	var groupA, groupB []vecid.ID
	var vecsA, vecsB [][]float32
	for i, id := range ids {
		da := t.metric.naturalDistance(vecs[i], vecs[si])
		db := t.metric.naturalDistance(vecs[i], vecs[sj])
		if da <= db {
			groupA = append(groupA, id)
			vecsA = append(vecsA, vecs[i])
		} else {
			groupB = append(groupB, id)
			vecsB = append(vecsB, vecs[i])
		}
	}
	if len(groupA) == 0 || len(groupB) == 0 {
		// Degenerate partition (e.g. all-identical vectors): fall back to
		// an index-midpoint split so both successors are non-empty.
		mid := len(ids) / 2
		groupA, vecsA = ids[:mid], vecs[:mid]
		groupB, vecsB = ids[mid:], vecs[mid:]
	}

	leafA := t.newLeaf()
	leafB := t.newLeaf()
	t.populateLeaf(leafA, groupA, vecsA)
	t.populateLeaf(leafB, groupB, vecsB)

	t.rewireLeafNeighbors(oldLeaf, leafA, leafB)

	old.disposed = true
	t.integrateSplit(oldLeaf, leafA, leafB)
}

func (t *Tree) populateLeaf(h handle, ids []vecid.ID, vecs [][]float32) {
	n := t.node(h)
	for _, id := range ids {
		n.vectors.Append(id)
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
}

// rewireLeafNeighbors links the two new leaves to each other at their
// split distance, then redirects every pre-existing neighbor of the
// old leaf to whichever successor is nearer, repairing the reverse
// edge on the neighbor's own list.
func (t *Tree) rewireLeafNeighbors(oldLeaf, leafA, leafB handle) {
	a, b := t.node(leafA), t.node(leafB)
	splitDist := t.metric.naturalDistance(a.center, b.center)
	a.neighbors.Insert(splitDist, leafB)
	b.neighbors.Insert(splitDist, leafA)

	old := t.node(oldLeaf)
	for _, nb := range old.neighbors.Values {
		if nb == leafA || nb == leafB {
			continue
		}
		nbNode := t.node(nb)
		if idx := nbNode.neighbors.IndexOfValue(func(h handle) bool { return h == oldLeaf }); idx >= 0 {
			nbNode.neighbors.Remove(idx)
		}

		dA := t.metric.naturalDistance(nbNode.center, a.center)
		dB := t.metric.naturalDistance(nbNode.center, b.center)
		if dA <= dB {
			nbNode.neighbors.Insert(dA, leafA)
			a.neighbors.Insert(dA, nb)
		} else {
			nbNode.neighbors.Insert(dB, leafB)
			b.neighbors.Insert(dB, nb)
		}
	}
}

// splitRouting replaces an overflowing routing node with two successor
// routing nodes, partitioning its children by a farthest-pair split
// over child centers.
func (t *Tree) splitRouting(oldRouting handle) {
	old := t.node(oldRouting)
	children := append([]handle(nil), old.children.Slice()...)
	centers := make([][]float32, len(children))
	for i, ch := range children {
		centers[i] = t.node(ch).center
	}

	si, sj := t.farthestPair(centers)

	var groupA, groupB []handle
	for i, ch := range children {
		da := t.metric.naturalDistance(centers[i], centers[si])
		db := t.metric.naturalDistance(centers[i], centers[sj])
		if da <= db {
			groupA = append(groupA, ch)
		} else {
			groupB = append(groupB, ch)
		}
	}
	if len(groupA) == 0 || len(groupB) == 0 {
		mid := len(children) / 2
		groupA = children[:mid]
		groupB = children[mid:]
	}

	routingA := t.newRouting()
	routingB := t.newRouting()
	t.populateRouting(routingA, groupA)
	t.populateRouting(routingB, groupB)

	old.disposed = true
	t.integrateSplit(oldRouting, routingA, routingB)
}

func (t *Tree) populateRouting(h handle, children []handle) {
	for _, ch := range children {
		t.addChildToRouting(h, ch)
	}
	t.recomputeRoutingCenter(h)
}

func (t *Tree) addChildToRouting(routing, child handle) {
	pn := t.node(routing)
	idx := pn.children.Len()
	pn.children.Append(child)
	cn := t.node(child)
	cn.parent = routing
	cn.indexInParent = idx
}

// recomputeRoutingCenter sets a routing node's center to the
// desc_count-weighted mean of its children's centers, and its radius
// so every child sphere is fully contained.
func (t *Tree) recomputeRoutingCenter(routing handle) {
	n := t.node(routing)
	dim := t.Dimension()
	center := make([]float32, dim)
	total := 0
	n.descCount = 0
	for _, ch := range n.children.Slice() {
		cn := t.node(ch)
		w := cn.descCount
		if w == 0 {
			w = 1
		}
		for i := 0; i < dim; i++ {
			center[i] += cn.center[i] * float32(w)
		}
		total += w
		n.descCount += cn.descCount
	}
	if total > 0 {
		inv := 1 / float32(total)
		for i := range center {
			center[i] *= inv
		}
	}
	n.center = center

	var radius float32
	for _, ch := range n.children.Slice() {
		cn := t.node(ch)
		d := t.metric.naturalDistance(center, cn.center) + cn.radius
		if d > radius {
			radius = d
		}
	}
	n.radius = radius
}

// integrateSplit replaces old (a disposed leaf or routing node) with
// its two successors in the parent, promoting a new routing root if
// old was the root, and recursively splitting the parent if it now
// overflows.
func (t *Tree) integrateSplit(old, a, b handle) {
	parent := t.node(old).parent
	if parent == nilHandle {
		newRoot := t.newRouting()
		t.addChildToRouting(newRoot, a)
		t.addChildToRouting(newRoot, b)
		t.recomputeRoutingCenter(newRoot)
		t.root = newRoot
		return
	}

	pn := t.node(parent)
	idx := t.node(old).indexInParent
	pn.children.Set(idx, a)
	an := t.node(a)
	an.parent = parent
	an.indexInParent = idx
	t.addChildToRouting(parent, b)
	t.recomputeRoutingCenter(parent)

	if pn.children.Len() > t.cfg.RoutingMaxChildren {
		t.splitRouting(parent)
	}
}

// farthestPair brute-forces the pair of points with maximal pairwise
// distance; leaf and routing fan-out bounds keep n small enough that
// the O(n^2) scan is cheap.
func (t *Tree) farthestPair(points [][]float32) (int, int) {
	bi, bj := 0, 0
	if len(points) < 2 {
		return 0, 0
	}
	bi, bj = 0, 1
	best := t.metric.naturalDistance(points[0], points[1])
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			d := t.metric.naturalDistance(points[i], points[j])
			if d > best {
				best, bi, bj = d, i, j
			}
		}
	}
	return bi, bj
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
