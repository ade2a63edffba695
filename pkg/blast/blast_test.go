package blast

import (
	"math/rand"
	"testing"

	"github.com/veccore/annengine/pkg/metric"
	"github.com/veccore/annengine/pkg/vectorstore"
)

func buildIndex(t *testing.T, dim int, cfg Config) (*Index, *vectorstore.FlatStore) {
	t.Helper()
	store, err := vectorstore.NewFlatStore(dim)
	if err != nil {
		t.Fatalf("NewFlatStore: %v", err)
	}
	m, err := metric.New(dim, metric.SquaredL2)
	if err != nil {
		t.Fatalf("metric.New: %v", err)
	}
	idx, err := New(cfg, m, store)
	if err != nil {
		t.Fatalf("blast.New: %v", err)
	}
	return idx, store
}

func TestQuery2DQuadrants(t *testing.T) {
	idx, store := buildIndex(t, 2, DefaultConfig())

	points := [][]float32{
		{10, 10}, {11, 9}, {9, 11},
		{-10, 10}, {-11, 9}, {-9, 11},
		{-10, -10}, {-11, -9}, {-9, -11},
		{10, -10}, {11, -9}, {9, -11},
	}
	for _, p := range points {
		id, err := store.Append(p)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := idx.Insert(id); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	results, err := idx.Query([]float32{10, 10}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Distance != 0 {
		t.Fatalf("expected exact self-match distance 0, got %v", results[0].Distance)
	}
}

func TestOverflowTriggersBLAST(t *testing.T) {
	const dim = 4
	cfg := DefaultConfig()
	cfg.BucketCapacity = 16
	idx, store := buildIndex(t, dim, cfg)

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		id, err := store.Append(v)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := idx.Insert(id); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	if idx.Len() != 200 {
		t.Fatalf("expected Len()=200, got %d", idx.Len())
	}
	if idx.node(idx.root).leafBucket {
		t.Fatalf("expected root to have been promoted to a routing bucket after overflow")
	}
}

func TestHeatAccumulates(t *testing.T) {
	const dim = 4
	idx, store := buildIndex(t, dim, DefaultConfig())

	rng := rand.New(rand.NewSource(3))
	var ids []int
	for i := 0; i < 50; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		id, err := store.Append(v)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := idx.Insert(id); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, int(id))
	}

	var totalHeat uint64
	for _, n := range idx.nodes {
		if n.isVector() {
			totalHeat += n.heat
		}
	}
	if totalHeat == 0 {
		t.Fatal("expected some nodes to accumulate heat from traversal visits")
	}
}

func TestNeighborGraphPopulated(t *testing.T) {
	const dim = 4
	idx, store := buildIndex(t, dim, DefaultConfig())

	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 30; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		id, err := store.Append(v)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := idx.Insert(id); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	for _, n := range idx.nodes {
		if !n.isVector() || (n.outgoing.Len() == 0 && len(n.incoming.Values) == 0) {
			continue
		}
		if n.outgoing.Len() == 0 {
			t.Fatalf("vector node %d has no outgoing edges", n.id)
		}
		for i := 1; i < len(n.outgoing.Keys); i++ {
			if n.outgoing.Keys[i] < n.outgoing.Keys[i-1] {
				t.Fatalf("vector node %d outgoing edges not ascending by distance", n.id)
			}
		}
	}
}

func TestQueryWithTraceEmitsTerminate(t *testing.T) {
	const dim = 4
	idx, store := buildIndex(t, dim, DefaultConfig())

	rng := rand.New(rand.NewSource(5))
	var last []float32
	for i := 0; i < 20; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		last = v
		id, err := store.Append(v)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := idx.Insert(id); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	_, events, counters, err := idx.QueryWithTrace(last, 3)
	if err != nil {
		t.Fatalf("QueryWithTrace: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected a non-empty trace")
	}
	if events[len(events)-1].Kind != "terminate" {
		t.Fatalf("expected trace to end with a terminate event, got %v", events[len(events)-1].Kind)
	}
	if counters.Scanned == 0 {
		t.Fatal("expected at least one scanned vector")
	}
}
