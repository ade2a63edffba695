package ihci

import (
	"sort"

	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/topk"
)

// Query returns up to k nearest neighbors of query. It descends the
// tree along routing_width candidate paths at once, sphere-prunes
// leaves whose bound cannot beat the current k-th best, and refines
// each scanned leaf's result by walking its neighbor-graph edges
// (capped at routing_width*4 per leaf) — so a query can recover
// neighbors that live in a sibling leaf the descent itself missed
// (§4.5.3).
func (t *Tree) Query(query []float32, k int) ([]ann.Result, error) {
	if k <= 0 {
		return nil, ann.ErrInvalidArgument("ihci: k must be positive, got %d", k)
	}
	if len(query) != t.Dimension() {
		return nil, ann.ErrDimensionMismatch(t.Dimension(), len(query))
	}
	if t.root == nilHandle {
		return nil, nil
	}

	tk := topk.New(k)
	visited := make(map[handle]bool)

	frontier := []handle{t.root}
	for t.anyRouting(frontier) {
		frontier = t.expandFrontier(query, frontier)
	}

	maxNeighbors := t.cfg.RoutingWidth * 4
	queue := append([]handle(nil), frontier...)
	for len(queue) > 0 {
		leaf := queue[0]
		queue = queue[1:]
		if visited[leaf] {
			continue
		}
		visited[leaf] = true
		if t.prunable(query, leaf, tk) {
			continue
		}

		t.scanLeaf(query, leaf, tk)

		n := t.node(leaf)
		added := 0
		for _, nb := range n.neighbors.Values {
			if visited[nb] || added >= maxNeighbors {
				continue
			}
			queue = append(queue, nb)
			added++
		}
	}

	return tk.ToSorted(), nil
}

func (t *Tree) anyRouting(frontier []handle) bool {
	for _, h := range frontier {
		if !t.node(h).isLeaf() {
			return true
		}
	}
	return false
}

// expandFrontier descends one level: leaves pass through unchanged,
// routing nodes are replaced by their routing_width nearest children.
func (t *Tree) expandFrontier(query []float32, frontier []handle) []handle {
	type scored struct {
		h handle
		d float32
	}
	var next []handle
	for _, h := range frontier {
		n := t.node(h)
		if n.isLeaf() {
			next = append(next, h)
			continue
		}
		children := n.children.Slice()
		cds := make([]scored, len(children))
		for i, ch := range children {
			cds[i] = scored{ch, t.metric.naturalDistance(query, t.node(ch).center)}
		}
		sort.Slice(cds, func(i, j int) bool { return cds[i].d < cds[j].d })
		width := t.cfg.RoutingWidth
		if width > len(cds) {
			width = len(cds)
		}
		for i := 0; i < width; i++ {
			next = append(next, cds[i].h)
		}
	}
	return next
}

// prunable reports whether leaf's sphere cannot contain anything
// closer than the current worst of a full top-k, in natural units.
func (t *Tree) prunable(query []float32, leaf handle, tk *topk.BoundedTopK) bool {
	if !tk.HasWorst() {
		return false
	}
	n := t.node(leaf)
	bound := t.metric.naturalDistance(query, n.center) - n.radius
	return bound > t.metric.natural(tk.WorstDistance())
}

func (t *Tree) scanLeaf(query []float32, leaf handle, tk *topk.BoundedTopK) {
	n := t.node(leaf)
	for _, id := range n.vectors.Slice() {
		v := t.vectorOf(id)
		if v == nil {
			continue
		}
		tk.Add(id, t.metric.MustDistance(query, v))
	}
}
