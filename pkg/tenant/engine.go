package tenant

import (
	"fmt"
	"sync"
	"time"

	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/blast"
	"github.com/veccore/annengine/pkg/ihci"
	"github.com/veccore/annengine/pkg/metric"
	"github.com/veccore/annengine/pkg/search"
	"github.com/veccore/annengine/pkg/vecid"
	"github.com/veccore/annengine/pkg/vectorstore"
)

// IndexKind selects which ANN index design backs a namespace's engine.
type IndexKind string

const (
	IndexKindIHCI  IndexKind = "ihci"
	IndexKindBLAST IndexKind = "blast"
)

// EngineConfig configures a namespace's engine the first time it is
// provisioned. Later calls to EnsureEngine for the same namespace
// reuse the engine already built and ignore the config passed in.
type EngineConfig struct {
	Dimension     int
	Kind          IndexKind
	IHCI          ihci.Config
	BLAST         blast.Config
	CacheCapacity int
	CacheTTL      time.Duration

	// Quantized selects scalar-quantized (int8) storage over the
	// default flat float32 store, trading recall for a 4x memory
	// reduction. QuantizationSample must be non-empty when Quantized
	// is set — it is consumed once, at provisioning time, to train the
	// quantizer (vectorstore.NewTrainedCompressedStore); the namespace
	// cannot switch representations afterward.
	Quantized          bool
	QuantizationSample [][]float32
}

// Engine bundles everything a namespace needs to serve inserts and
// searches: the vector store both ANN index designs are built over
// (either a plain FlatStore or, for a quantized namespace, a
// CompressedStore — both satisfy vectorstore.AppendableStore, so
// neither ANN core nor the rest of Engine need know which backs it),
// the ANN index itself (either one, behind the shared ann.Index
// contract), the BM25 text index, and a cached hybrid search combining
// the two.
type Engine struct {
	Store  vectorstore.AppendableStore
	Index  ann.Index
	Text   *search.FullTextIndex
	Hybrid *search.CachedHybridSearch

	// indexMu serializes access to Index. Neither pkg/ihci nor
	// pkg/blast does any internal locking of their own — they document
	// that callers serialize Insert/Query — so this lock lives here,
	// one layer above the core, and is held only across a single call.
	indexMu sync.Mutex
}

// Insert appends vector to the engine's store and indexes it, along
// with text/metadata into the text index when text is non-empty or
// metadata is non-nil,
// serialized against any concurrent Insert/Query on this engine.
func (e *Engine) Insert(vector []float32, text string, metadata map[string]interface{}) (vecid.ID, error) {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()

	id, err := e.Store.Append(vector)
	if err != nil {
		return vecid.Invalid, err
	}
	if err := e.Index.Insert(id); err != nil {
		return vecid.Invalid, err
	}
	if text != "" || metadata != nil {
		if err := e.Text.Index(&search.Document{ID: uint64(id.Int()), Text: text, Metadata: metadata}); err != nil {
			return id, fmt.Errorf("tenant: indexing text: %w", err)
		}
	}
	return id, nil
}

// Query runs a top-k search against the engine's index, serialized
// against any concurrent Insert/Query on this engine. If filter is
// non-nil, results whose indexed document metadata does not satisfy it
// are excluded (a vector inserted without metadata never matches a
// non-nil filter).
func (e *Engine) Query(query []float32, k int, filter search.FilterFunc) ([]ann.Result, error) {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()

	if filter == nil {
		return e.Index.Query(query, k)
	}

	// Over-fetch against the raw index, then apply the metadata filter
	// client-side using the text index's stored documents — mirrors how
	// HybridSearch.SearchWithFilter cross-references the two indices.
	raw, err := e.Index.Query(query, k*4+16)
	if err != nil {
		return nil, err
	}
	filtered := make([]ann.Result, 0, k)
	for _, r := range raw {
		if doc := e.Text.GetDocument(uint64(r.ID.Int())); doc == nil || !filter(doc.Metadata) {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == k {
			break
		}
	}
	return filtered, nil
}

// HybridSearch runs a combined vector/text search through the engine's
// cached hybrid search, serialized against any concurrent Insert/Query
// on this engine (the cache wraps the same Index that Insert mutates).
// If filter is non-nil the uncached, filtered path is used instead.
func (e *Engine) HybridSearch(queryVector []float32, queryText string, k int, filter search.FilterFunc) []*search.HybridSearchResult {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()
	if filter != nil {
		return e.Hybrid.SearchWithFilter(queryVector, queryText, k, filter)
	}
	return e.Hybrid.Search(queryVector, queryText, k)
}

// Trace runs a traced query against the engine's index and reports
// whether the index supports tracing (only BLAST does).
func (e *Engine) Trace(query []float32, k int) (results []ann.Result, events []ann.TraceEvent, counters ann.Counters, supported bool, err error) {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()

	tracer, ok := e.Index.(interface {
		QueryWithTrace(query []float32, k int) ([]ann.Result, []ann.TraceEvent, ann.Counters, error)
	})
	if !ok {
		return nil, nil, ann.Counters{}, false, nil
	}
	results, events, counters, err = tracer.QueryWithTrace(query, k)
	return results, events, counters, true, err
}

// newEngine builds a fresh Engine from cfg.
func newEngine(cfg EngineConfig) (*Engine, error) {
	var store vectorstore.AppendableStore
	if cfg.Quantized {
		cs, err := vectorstore.NewTrainedCompressedStore(cfg.Dimension, cfg.QuantizationSample)
		if err != nil {
			return nil, fmt.Errorf("tenant: creating compressed store: %w", err)
		}
		store = cs
	} else {
		fs, err := vectorstore.NewFlatStore(cfg.Dimension)
		if err != nil {
			return nil, fmt.Errorf("tenant: creating vector store: %w", err)
		}
		store = fs
	}

	m, err := metric.New(cfg.Dimension, metric.SquaredL2)
	if err != nil {
		return nil, fmt.Errorf("tenant: creating metric: %w", err)
	}

	var idx ann.Index
	switch cfg.Kind {
	case IndexKindBLAST:
		idx, err = blast.New(cfg.BLAST, m, store)
	default:
		idx, err = ihci.New(cfg.IHCI, m, store)
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: creating index: %w", err)
	}

	text := search.NewFullTextIndex()
	cacheCapacity := cfg.CacheCapacity
	if cacheCapacity <= 0 {
		cacheCapacity = 1000
	}
	hybrid := search.NewCachedHybridSearch(idx, text, cacheCapacity, cfg.CacheTTL)

	return &Engine{Store: store, Index: idx, Text: text, Hybrid: hybrid}, nil
}

// EnsureEngine provisions the engine for namespace on first use and
// returns it. Subsequent calls return the already-provisioned engine,
// regardless of cfg — a namespace's dimension and index design are
// fixed at first insert.
func (m *Manager) EnsureEngine(namespace string, cfg EngineConfig) (*Engine, error) {
	t, err := m.GetTenant(namespace)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.engine != nil {
		return t.engine, nil
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	t.engine = engine
	t.Usage.Dimensions = cfg.Dimension
	t.UpdatedAt = time.Now()
	return engine, nil
}

// Engine returns the namespace's already-provisioned engine, or nil if
// EnsureEngine has not yet been called for it.
func (t *Tenant) Engine() *Engine {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.engine
}
