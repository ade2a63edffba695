// Package topk implements the bounded top-K max-heap both indices use
// to accumulate query results.
package topk

import (
	"container/heap"
	"sort"

	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/vecid"
)

// item is the element type stored in the heap.
type item struct {
	id   vecid.ID
	dist float32
}

// maxHeapSlice is a max-heap keyed by distance (largest on top), used
// so BoundedTopK can evict its current worst entry in O(log K). Ties
// favor evicting the larger id first, which is what makes ToSorted's
// ascending-id tie-break stable.
type maxHeapSlice []item

func (h maxHeapSlice) Len() int { return len(h) }
func (h maxHeapSlice) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist > h[j].dist
	}
	return h[i].id > h[j].id
}
func (h maxHeapSlice) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeapSlice) Push(x interface{}) { *h = append(*h, x.(item)) }
func (h *maxHeapSlice) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// BoundedTopK is a max-heap of size <= K keyed by distance. Add rejects
// anything no better than the current worst once the heap is full.
type BoundedTopK struct {
	k int
	h maxHeapSlice
}

// New creates a BoundedTopK that keeps at most k results. k must be > 0.
func New(k int) *BoundedTopK {
	return &BoundedTopK{k: k, h: make(maxHeapSlice, 0, k)}
}

// Add offers (id, dist) to the bounded set. If the set has fewer than K
// entries it is always accepted; otherwise it is accepted only if dist
// is strictly less than the current worst, which is then evicted.
func (t *BoundedTopK) Add(id vecid.ID, dist float32) {
	if t.h.Len() < t.k {
		heap.Push(&t.h, item{id: id, dist: dist})
		return
	}
	if dist >= t.h[0].dist {
		return
	}
	t.h[0] = item{id: id, dist: dist}
	heap.Fix(&t.h, 0)
}

// HasWorst reports whether the set has reached K entries.
func (t *BoundedTopK) HasWorst() bool { return t.h.Len() == t.k }

// WorstDistance returns the current worst (largest) distance in the
// set. Undefined when HasWorst is false; callers must guard.
func (t *BoundedTopK) WorstDistance() float32 {
	return t.h[0].dist
}

// Len reports the current number of entries.
func (t *BoundedTopK) Len() int { return t.h.Len() }

// ToSorted extracts all entries ascending by distance, ties broken by
// ascending id. The heap is left empty.
func (t *BoundedTopK) ToSorted() []ann.Result {
	out := make([]ann.Result, len(t.h))
	for i, it := range t.h {
		out[i] = ann.Result{ID: it.id, Distance: it.dist}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	t.h = t.h[:0]
	return out
}
