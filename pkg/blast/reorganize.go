package blast

import "math"

// blastReorganize fires when a leaf bucket overflows: it picks an
// epicenter at or above the median distance from the bucket's static
// representative (tie-broken by highest heat), collects candidates
// within neighbor_hops of the epicenter in the vector graph plus the
// bucket's remaining children, keeps only those that strictly improve
// by moving (closer to the epicenter than to their current parent's
// representative), and relocates them into a freshly materialized
// sibling bucket whose own representative is fixed to the epicenter.
func (idx *Index) blastReorganize(bucket handle) {
	b := idx.node(bucket)
	members := append([]handle(nil), b.members.Slice()...)
	if len(members) < 2 {
		return
	}

	epicenter := idx.selectEpicenter(b, members)
	epicenterVec := idx.representativeOf(epicenter)

	candidateSet := make(map[handle]bool, len(members))
	for _, m := range members {
		if m != epicenter {
			candidateSet[m] = true
		}
	}
	for _, h := range idx.collectNeighborHops(epicenter, idx.cfg.NeighborHops) {
		if h != epicenter {
			candidateSet[h] = true
		}
	}

	var moving []handle
	for c := range candidateSet {
		cv := idx.representativeOf(c)
		dEpi := idx.metric.naturalDistance(cv, epicenterVec)
		dOld := idx.currentParentDistance(c, cv)
		if dEpi < dOld {
			moving = append(moving, c)
		}
	}
	if len(moving) == 0 {
		return
	}

	sibling := idx.newBucket(true)
	sn := idx.node(sibling)
	sn.representative = epicenterVec
	for _, m := range moving {
		oldParent := idx.node(m).parent
		if oldParent != nilHandle {
			op := idx.node(oldParent)
			if i := op.members.IndexOf(func(h handle) bool { return h == m }); i >= 0 {
				op.members.SwapRemove(i)
			}
		}
		sn.members.Append(m)
		idx.node(m).parent = sibling
	}

	idx.integrateBucket(bucket, sibling)
}

// selectEpicenter picks the vector that becomes the new sibling
// bucket's static representative: among members at or above the
// median distance from b's own static representative, the one with
// the highest heat. If b has no representative yet (the initial root,
// or a routing bucket promoted without one), heat alone decides.
func (idx *Index) selectEpicenter(b *node, members []handle) handle {
	if b.representative == nil {
		epicenter := members[0]
		for _, m := range members[1:] {
			if idx.heatOf(m) > idx.heatOf(epicenter) {
				epicenter = m
			}
		}
		return epicenter
	}

	type scored struct {
		h handle
		d float32
	}
	scoredList := make([]scored, len(members))
	for i, m := range members {
		scoredList[i] = scored{m, idx.metric.naturalDistance(b.representative, idx.representativeOf(m))}
	}
	for i := 1; i < len(scoredList); i++ {
		for j := i; j > 0 && scoredList[j].d < scoredList[j-1].d; j-- {
			scoredList[j], scoredList[j-1] = scoredList[j-1], scoredList[j]
		}
	}

	medianIdx := len(scoredList) / 2
	epicenter := scoredList[medianIdx].h
	for _, s := range scoredList[medianIdx:] {
		if idx.heatOf(s.h) > idx.heatOf(epicenter) {
			epicenter = s.h
		}
	}
	return epicenter
}

// currentParentDistance returns the distance from c's vector to its
// current parent bucket's static representative, or an infinite
// distance if that bucket has none set yet.
func (idx *Index) currentParentDistance(c handle, cv []float32) float32 {
	parent := idx.node(c).parent
	if parent == nilHandle {
		return math.MaxFloat32
	}
	rep := idx.node(parent).representative
	if rep == nil {
		return math.MaxFloat32
	}
	return idx.metric.naturalDistance(cv, rep)
}

// collectNeighborHops breadth-first walks the vector neighbor graph
// (both outgoing and incoming edges) from start, up to hops edges
// away. Unlike a bucket traversal, this walk is not restricted to any
// bucket's membership — a reorganization candidate may currently live
// in any bucket. start itself is included.
func (idx *Index) collectNeighborHops(start handle, hops int) []handle {
	visited := map[handle]bool{start: true}
	frontier := []handle{start}
	out := []handle{start}

	for h := 0; h < hops; h++ {
		var next []handle
		for _, cur := range frontier {
			n := idx.node(cur)
			for _, nb := range n.outgoing.Values {
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
					out = append(out, nb)
				}
			}
			for _, nb := range n.incoming.Values {
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
					out = append(out, nb)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return out
}

// integrateBucket attaches a freshly materialized sibling next to
// existing under existing's parent, promoting a new non-leaf root if
// existing had none, and recursively splitting the parent if it now
// overflows.
func (idx *Index) integrateBucket(existing, sibling handle) {
	p := idx.node(existing).parent
	if p == nilHandle {
		newRoot := idx.newBucket(false)
		nr := idx.node(newRoot)
		nr.members.Append(existing)
		nr.members.Append(sibling)
		idx.node(existing).parent = newRoot
		idx.node(sibling).parent = newRoot
		idx.root = newRoot
		return
	}

	pn := idx.node(p)
	pn.members.Append(sibling)
	idx.node(sibling).parent = p

	if pn.members.Len() > idx.cfg.BucketCapacity {
		idx.splitBucketLevel(p)
	}
}

// splitBucketLevel handles an overflowing routing bucket the same way
// ihci.splitRouting handles an overflowing routing node: farthest-pair
// partition of the child buckets by centroid, two successor routing
// buckets, recursive integration into the grandparent. Routing buckets
// created here have no representative of their own (nil, matching a
// freshly promoted node's zero value) since they aggregate centroids
// rather than being materialized from a single epicenter.
func (idx *Index) splitBucketLevel(p handle) {
	old := idx.node(p)
	children := append([]handle(nil), old.members.Slice()...)
	centers := make([][]float32, len(children))
	for i, ch := range children {
		centers[i] = idx.bucketCentroid(ch)
	}

	si, sj := idx.farthestPair(centers)

	var groupA, groupB []handle
	for i, ch := range children {
		da := idx.metric.naturalDistance(centers[i], centers[si])
		db := idx.metric.naturalDistance(centers[i], centers[sj])
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

	routingA := idx.newBucket(false)
	routingB := idx.newBucket(false)
	for _, ch := range groupA {
		idx.node(routingA).members.Append(ch)
		idx.node(ch).parent = routingA
	}
	for _, ch := range groupB {
		idx.node(routingB).members.Append(ch)
		idx.node(ch).parent = routingB
	}

	grandparent := old.parent
	if grandparent == nilHandle {
		newRoot := idx.newBucket(false)
		nr := idx.node(newRoot)
		nr.members.Append(routingA)
		nr.members.Append(routingB)
		idx.node(routingA).parent = newRoot
		idx.node(routingB).parent = newRoot
		idx.root = newRoot
		return
	}

	gp := idx.node(grandparent)
	if i := gp.members.IndexOf(func(h handle) bool { return h == p }); i >= 0 {
		gp.members.SwapRemove(i)
	}
	gp.members.Append(routingA)
	gp.members.Append(routingB)
	idx.node(routingA).parent = grandparent
	idx.node(routingB).parent = grandparent

	if gp.members.Len() > idx.cfg.BucketCapacity {
		idx.splitBucketLevel(grandparent)
	}
}
