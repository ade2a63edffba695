package blast

import (
	"fmt"

	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/topk"
)

// Query returns up to k nearest neighbors of query via a best-first
// search over the bucket hierarchy and vector neighbor graph, seeded
// at the root.
func (idx *Index) Query(query []float32, k int) ([]ann.Result, error) {
	results, _, _, err := idx.search(query, k, false)
	return results, err
}

// QueryWithTrace runs the same search as Query but additionally emits
// an ordered diagnostic trace: every pop, every candidate add (with
// the reason it was added), every vector scan, and the termination
// reason. Trace events are only built when trace is requested, keeping
// the untraced path allocation-free for them.
func (idx *Index) QueryWithTrace(query []float32, k int) ([]ann.Result, []ann.TraceEvent, ann.Counters, error) {
	return idx.search(query, k, true)
}

func (idx *Index) search(query []float32, k int, trace bool) ([]ann.Result, []ann.TraceEvent, ann.Counters, error) {
	if k <= 0 {
		return nil, nil, ann.Counters{}, ann.ErrInvalidArgument("blast: k must be positive, got %d", k)
	}
	if len(query) != idx.Dimension() {
		return nil, nil, ann.Counters{}, ann.ErrDimensionMismatch(idx.Dimension(), len(query))
	}
	if idx.root == nilHandle {
		return nil, nil, ann.Counters{}, nil
	}

	tk := topk.New(k)
	visited := make(map[handle]bool)
	pq := topk.NewMinHeap[handle]()
	var events []ann.TraceEvent
	var counters ann.Counters

	seedDist := idx.distanceToNode(query, idx.root)
	pq.Push(idx.root, seedDist)
	counters.CandidatesAdded++
	if trace {
		events = append(events, ann.TraceEvent{Kind: ann.EventAddCandidate, NodePath: idx.nodePath(idx.root), Distance: seedDist, Reason: ann.ReasonSeed})
	}

	maxPops := k * 20
	if maxPops < 200 {
		maxPops = 200
	}

	term := "pq_empty"
	for pq.Len() > 0 {
		if counters.Popped >= maxPops {
			term = "max_visits"
			break
		}
		h, d := pq.Pop()
		if visited[h] {
			continue
		}
		visited[h] = true
		counters.Popped++
		if trace {
			events = append(events, ann.TraceEvent{Kind: ann.EventPopCandidate, NodePath: idx.nodePath(h), Distance: d})
		}

		if tk.HasWorst() && d > idx.metric.natural(tk.WorstDistance()) {
			// Every remaining candidate is at least as far as d (the pq
			// pops in ascending order), so none of them can improve the
			// result either; this is equivalent to draining the queue.
			term = "pq_empty"
			break
		}

		if trace {
			events = append(events, ann.TraceEvent{Kind: ann.EventSetCurrent, NodePath: idx.nodePath(h)})
		}

		n := idx.node(h)
		pushCandidate := func(nb handle, reason ann.AddReason) {
			if visited[nb] {
				return
			}
			nd := idx.distanceToNode(query, nb)
			pq.Push(nb, nd)
			counters.CandidatesAdded++
			if trace {
				events = append(events, ann.TraceEvent{Kind: ann.EventAddCandidate, NodePath: idx.nodePath(nb), Distance: nd, Reason: reason})
			}
		}

		if n.isVector() {
			v := idx.vectorOf(n.vecID)
			raw := idx.metric.MustDistance(query, v)
			tk.Add(n.vecID, raw)
			counters.Scanned++
			if trace {
				events = append(events, ann.TraceEvent{Kind: ann.EventScanVector, NodePath: idx.nodePath(h), Distance: raw})
			}
			for _, nb := range n.outgoing.Values {
				pushCandidate(nb, ann.ReasonNeighbor)
			}
			for _, nb := range n.incoming.Values {
				pushCandidate(nb, ann.ReasonNeighbor)
			}
		} else {
			// Bucket node: expand children. Bucket-to-bucket neighbor
			// edges are not modeled in this design, so outgoing/incoming
			// expansion has nothing to contribute here.
			for _, c := range n.members.Slice() {
				pushCandidate(c, ann.ReasonChild)
			}
		}
	}
	if trace {
		events = append(events, ann.TraceEvent{Kind: ann.EventTerminate, Term: term})
	}

	return tk.ToSorted(), events, counters, nil
}

// nodePath renders a handle for tracing: "V<id>" for a vector node, or
// a slash-delimited bucket path built by walking the bucket hierarchy.
func (idx *Index) nodePath(h handle) string {
	n := idx.node(h)
	if n.isVector() {
		return fmt.Sprintf("V%d", n.vecID.Int())
	}
	path := fmt.Sprintf("B%d", int(h))
	for p := n.parent; p != nilHandle; p = idx.node(p).parent {
		path = fmt.Sprintf("B%d/%s", int(p), path)
	}
	return path
}
