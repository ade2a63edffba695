package ihci

import (
	"math/rand"
	"testing"

	"github.com/veccore/annengine/pkg/metric"
	"github.com/veccore/annengine/pkg/vectorstore"
)

func buildTree(t *testing.T, dim int, cfg Config) (*Tree, *vectorstore.FlatStore) {
	t.Helper()
	store, err := vectorstore.NewFlatStore(dim)
	if err != nil {
		t.Fatalf("NewFlatStore: %v", err)
	}
	m, err := metric.New(dim, metric.SquaredL2)
	if err != nil {
		t.Fatalf("metric.New: %v", err)
	}
	tree, err := New(cfg, m, store)
	if err != nil {
		t.Fatalf("ihci.New: %v", err)
	}
	return tree, store
}

func TestQueryUnitBasis4D(t *testing.T) {
	tree, store := buildTree(t, 4, DefaultConfig())

	basis := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	for _, v := range basis {
		id, err := store.Append(v)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := tree.Insert(id); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	results, err := tree.Query([]float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Distance != 0 {
		t.Fatalf("expected exact self-match distance 0, got %v", results[0].Distance)
	}
}

func TestQuerySelfMatch500Random8D(t *testing.T) {
	const dim = 8
	cfg := DefaultConfig()
	cfg.LeafCapacity = 16
	cfg.RoutingMaxChildren = 4
	tree, store := buildTree(t, dim, cfg)

	rng := rand.New(rand.NewSource(1))
	vectors := make([][]float32, 500)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		vectors[i] = v
		id, err := store.Append(v)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := tree.Insert(id); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	tree.RepairAll()

	if tree.Len() != 500 {
		t.Fatalf("expected Len()=500, got %d", tree.Len())
	}

	for i, v := range vectors {
		results, err := tree.Query(v, 1)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(results) == 0 {
			t.Fatalf("vector %d: no results", i)
		}
		if results[0].Distance > 1e-4 {
			t.Errorf("vector %d: self-match distance too large: %v", i, results[0].Distance)
		}
	}
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	tree, store := buildTree(t, 4, DefaultConfig())
	id, err := store.Append([]float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tree.Insert(id); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, err := tree.Query([]float32{1, 2, 3}, 1); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
