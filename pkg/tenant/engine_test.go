package tenant

import (
	"testing"

	"github.com/veccore/annengine/pkg/ihci"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager()
	if _, err := m.CreateTenant("ns", DefaultQuota()); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	return m
}

func TestEnsureEngine_ProvisionsOnce(t *testing.T) {
	m := newTestManager(t)
	cfg := EngineConfig{Dimension: 4, Kind: IndexKindIHCI, IHCI: ihci.DefaultConfig()}

	e1, err := m.EnsureEngine("ns", cfg)
	if err != nil {
		t.Fatalf("EnsureEngine: %v", err)
	}
	e2, err := m.EnsureEngine("ns", cfg)
	if err != nil {
		t.Fatalf("EnsureEngine (second call): %v", err)
	}
	if e1 != e2 {
		t.Error("expected EnsureEngine to return the same engine on repeat calls")
	}
}

func TestEnsureEngine_UnknownNamespace(t *testing.T) {
	m := NewManager()
	if _, err := m.EnsureEngine("missing", EngineConfig{Dimension: 4}); err == nil {
		t.Error("expected error for a namespace with no tenant")
	}
}

func TestEngine_InsertAndQuery(t *testing.T) {
	m := newTestManager(t)
	e, err := m.EnsureEngine("ns", EngineConfig{Dimension: 3, Kind: IndexKindIHCI, IHCI: ihci.DefaultConfig()})
	if err != nil {
		t.Fatalf("EnsureEngine: %v", err)
	}

	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, v := range vectors {
		if _, err := e.Insert(v, "", nil); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	results, err := e.Query([]float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Distance > results[1].Distance {
		t.Error("results not ascending by distance")
	}
}

func TestEngine_InsertIndexesText(t *testing.T) {
	m := newTestManager(t)
	e, err := m.EnsureEngine("ns", EngineConfig{Dimension: 2, Kind: IndexKindIHCI, IHCI: ihci.DefaultConfig()})
	if err != nil {
		t.Fatalf("EnsureEngine: %v", err)
	}

	id, err := e.Insert([]float32{1, 2}, "hello world", map[string]interface{}{"category": "a"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	doc := e.Text.GetDocument(uint64(id.Int()))
	if doc == nil {
		t.Fatal("expected text index to contain the inserted document")
	}
	if doc.Metadata["category"] != "a" {
		t.Errorf("expected metadata category 'a', got %v", doc.Metadata["category"])
	}
}

func TestEngine_QueryWithFilter(t *testing.T) {
	m := newTestManager(t)
	e, err := m.EnsureEngine("ns", EngineConfig{Dimension: 2, Kind: IndexKindIHCI, IHCI: ihci.DefaultConfig()})
	if err != nil {
		t.Fatalf("EnsureEngine: %v", err)
	}

	if _, err := e.Insert([]float32{1, 0}, "", map[string]interface{}{"tag": "keep"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := e.Insert([]float32{0.9, 0.1}, "", map[string]interface{}{"tag": "drop"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := e.Query([]float32{1, 0}, 5, func(md map[string]interface{}) bool {
		return md["tag"] == "keep"
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 filtered result, got %d", len(results))
	}
}

func TestEngine_Trace_UnsupportedOnIHCI(t *testing.T) {
	m := newTestManager(t)
	e, err := m.EnsureEngine("ns", EngineConfig{Dimension: 2, Kind: IndexKindIHCI, IHCI: ihci.DefaultConfig()})
	if err != nil {
		t.Fatalf("EnsureEngine: %v", err)
	}
	if _, err := e.Insert([]float32{1, 0}, "", nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, _, _, supported, err := e.Trace([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if supported {
		t.Error("expected IHCI-backed engine to report tracing unsupported")
	}
}

func TestEngine_QuantizedStorage(t *testing.T) {
	m := newTestManager(t)
	sample := [][]float32{{0, 0, 0}, {1, 1, 1}, {-1, -1, -1}, {0.5, -0.5, 0.5}}
	e, err := m.EnsureEngine("ns", EngineConfig{
		Dimension:          3,
		Kind:               IndexKindIHCI,
		IHCI:               ihci.DefaultConfig(),
		Quantized:          true,
		QuantizationSample: sample,
	})
	if err != nil {
		t.Fatalf("EnsureEngine: %v", err)
	}

	id, err := e.Insert([]float32{1, 1, 1}, "", nil)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := e.Store.Get(id)
	if err != nil {
		t.Fatalf("Store.Get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected dequantized vector of length 3, got %d", len(got))
	}

	results, err := e.Query([]float32{1, 1, 1}, 1, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestEngine_QuantizedStorage_RequiresSample(t *testing.T) {
	m := newTestManager(t)
	_, err := m.EnsureEngine("ns", EngineConfig{Dimension: 3, Kind: IndexKindIHCI, IHCI: ihci.DefaultConfig(), Quantized: true})
	if err == nil {
		t.Error("expected an error provisioning a quantized engine with no training sample")
	}
}

func TestTenant_EngineNilBeforeEnsure(t *testing.T) {
	m := newTestManager(t)
	tn, err := m.GetTenant("ns")
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if tn.Engine() != nil {
		t.Error("expected nil engine before EnsureEngine is called")
	}
}
