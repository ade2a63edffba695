package topk

// MinHeap is a generic min-heap keyed by a caller-supplied distance,
// the same binary-heap primitive BoundedTopK is built on but exposed
// for the traversal frontiers (IHCI's multi-candidate descent set,
// BLAST's insert/query priority queues) that need arbitrary payloads
// rather than just (id, distance).
type MinHeap[T any] struct {
	s []minItem[T]
}

type minItem[T any] struct {
	value T
	dist  float32
}

// NewMinHeap creates an empty min-heap.
func NewMinHeap[T any]() *MinHeap[T] {
	return &MinHeap[T]{}
}

// Len reports the number of entries.
func (h *MinHeap[T]) Len() int { return len(h.s) }

// Push adds value keyed by dist.
func (h *MinHeap[T]) Push(value T, dist float32) {
	h.s = append(h.s, minItem[T]{value: value, dist: dist})
	h.up(len(h.s) - 1)
}

// Pop removes and returns the minimum-distance entry.
func (h *MinHeap[T]) Pop() (T, float32) {
	top := h.s[0]
	n := len(h.s) - 1
	h.s[0] = h.s[n]
	h.s = h.s[:n]
	if n > 0 {
		h.down(0)
	}
	return top.value, top.dist
}

// Peek returns the minimum-distance entry without removing it.
func (h *MinHeap[T]) Peek() (T, float32) {
	return h.s[0].value, h.s[0].dist
}

func (h *MinHeap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.s[parent].dist <= h.s[i].dist {
			break
		}
		h.s[parent], h.s[i] = h.s[i], h.s[parent]
		i = parent
	}
}

func (h *MinHeap[T]) down(i int) {
	n := len(h.s)
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < n && h.s[l].dist < h.s[smallest].dist {
			smallest = l
		}
		if r < n && h.s[r].dist < h.s[smallest].dist {
			smallest = r
		}
		if smallest == i {
			break
		}
		h.s[smallest], h.s[i] = h.s[i], h.s[smallest]
		i = smallest
	}
}
