package blast

import (
	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/topk"
	"github.com/veccore/annengine/pkg/vecid"
)

// Insert adds id to the graph: traverse walks from the root to find the
// target bucket and the window of buckets seen along the way, the new
// vector is attached to the target, window-linked to nearby vectors in
// that window, and the target joins a reorganization if it now
// overflows.
func (idx *Index) Insert(id vecid.ID) error {
	if !id.Valid() {
		return ann.ErrInvalidID(id)
	}
	v, err := idx.store.Get(id)
	if err != nil {
		return err
	}

	nh := idx.newVectorNode(id)
	idx.count++

	if idx.root == nilHandle {
		root := idx.newBucket(true)
		idx.node(root).members.Append(nh)
		idx.node(nh).parent = root
		idx.root = root
		return nil
	}

	target, window := idx.traverse(v)
	idx.node(target).members.Append(nh)
	idx.node(nh).parent = target

	idx.linkWindow(nh, v, idx.windowVectors(window))

	if idx.node(target).members.Len() > idx.cfg.BucketCapacity {
		idx.blastReorganize(target)
	}
	return nil
}

// traverse walks the bucket hierarchy from the root, recording up to
// window_size buckets seen along the way, and stops at the first
// vector-node pop — its parent bucket becomes the insertion target. If
// the priority queue is exhausted without ever reaching a vector (only
// possible for a still-empty routing bucket), the last bucket seen is
// the target, falling back to the root if none was seen at all.
func (idx *Index) traverse(query []float32) (target handle, window []handle) {
	pq := topk.NewMinHeap[handle]()
	visited := make(map[handle]bool)
	pq.Push(idx.root, idx.distanceToNode(query, idx.root))

	lastBucket := nilHandle
	budget := (idx.cfg.BucketCapacity + 1) * 4
	for pq.Len() > 0 && budget > 0 {
		h, _ := pq.Pop()
		budget--
		if visited[h] {
			continue
		}
		visited[h] = true
		n := idx.node(h)

		if n.isVector() {
			n.heat++
			if n.parent != nilHandle {
				return n.parent, window
			}
			break
		}

		lastBucket = h
		if len(window) < idx.cfg.WindowSize {
			window = append(window, h)
		}
		for _, c := range n.members.Slice() {
			if !visited[c] {
				pq.Push(c, idx.distanceToNode(query, c))
			}
		}
	}
	if lastBucket == nilHandle {
		lastBucket = idx.root
	}
	return lastBucket, window
}

// windowVectors collects every vector that is a direct child of a leaf
// bucket in window, deduplicated.
func (idx *Index) windowVectors(window []handle) []handle {
	seen := make(map[handle]bool)
	var out []handle
	for _, b := range window {
		n := idx.node(b)
		if !n.leafBucket {
			continue
		}
		for _, m := range n.members.Slice() {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

type scoredHandle struct {
	h handle
	d float32
}

// sortScored insertion-sorts by ascending distance; candidate lists
// here are always small (bounded by bucket_capacity or window size),
// so an O(n^2) sort is cheap and keeps the result stable on ties.
func sortScored(s []scoredHandle) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].d < s[j-1].d; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// linkWindow computes distances from the new vector v to every
// candidate and bidirectionally links the nearest OutgoingNeighborCount
// of them.
func (idx *Index) linkWindow(nh handle, v []float32, candidates []handle) {
	scored := make([]scoredHandle, 0, len(candidates))
	for _, c := range candidates {
		if c == nh {
			continue
		}
		cv := idx.vectorOf(idx.node(c).vecID)
		scored = append(scored, scoredHandle{c, idx.metric.naturalDistance(v, cv)})
	}
	sortScored(scored)

	n := idx.cfg.OutgoingNeighborCount
	if n > len(scored) {
		n = len(scored)
	}
	for _, s := range scored[:n] {
		idx.link(nh, s.h, s.d)
	}
}

// link establishes a bidirectional edge between a and b at natural
// distance d: each side gets a bounded-sorted-insert into its outgoing
// list, and the partner's incoming list records the edge
// unconditionally (append-if-absent) regardless of whether its own
// outgoing insert was accepted, so traversal can still walk the edge
// in reverse even after an outgoing slot is later evicted.
func (idx *Index) link(a, b handle, d float32) {
	an, bn := idx.node(a), idx.node(b)
	an.outgoing.Insert(d, b)
	bn.outgoing.Insert(d, a)
	bn.incoming.AppendIfAbsent(a, func(h handle) bool { return h == a })
	an.incoming.AppendIfAbsent(b, func(h handle) bool { return h == b })
}
