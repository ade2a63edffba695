package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/veccore/annengine/pkg/ann"
	"github.com/veccore/annengine/pkg/observability"
	"github.com/veccore/annengine/pkg/search"
	"github.com/veccore/annengine/pkg/tenant"
	"github.com/veccore/annengine/pkg/vecid"
)

// Handler serves the HTTP surface directly against an in-process tenant
// manager — there is no RPC hop between this package and the index
// cores.
type Handler struct {
	manager    *tenant.Manager
	metrics    *observability.Metrics
	indexKind  tenant.IndexKind
	dimensions int
}

// NewHandler creates a new REST API handler. indexKind/dimensions are
// the defaults used to provision a namespace's engine the first time a
// vector is inserted into it.
func NewHandler(manager *tenant.Manager, metrics *observability.Metrics, indexKind tenant.IndexKind, dimensions int) *Handler {
	return &Handler{
		manager:    manager,
		metrics:    metrics,
		indexKind:  indexKind,
		dimensions: dimensions,
	}
}

type insertRequest struct {
	Namespace string                 `json:"namespace"`
	Vector    []float32              `json:"vector"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Text      string                 `json:"text,omitempty"`
}

type insertResponse struct {
	ID string `json:"id"`
}

type searchRequest struct {
	Namespace   string                 `json:"namespace"`
	QueryVector []float32              `json:"query_vector"`
	K           int                    `json:"k"`
	Filter      map[string]interface{} `json:"filter,omitempty"`
	FilterExpr  *filterSpec            `json:"filter_expr,omitempty"`
}

type searchResultDTO struct {
	ID       string  `json:"id"`
	Distance float32 `json:"distance"`
}

type searchResponse struct {
	Results []searchResultDTO `json:"results"`
}

type hybridSearchRequest struct {
	Namespace   string                 `json:"namespace"`
	QueryVector []float32              `json:"query_vector"`
	QueryText   string                 `json:"query_text"`
	K           int                    `json:"k"`
	Filter      map[string]interface{} `json:"filter,omitempty"`
	FilterExpr  *filterSpec            `json:"filter_expr,omitempty"`
}

type hybridResultDTO struct {
	ID          string                 `json:"id"`
	VectorScore float32                `json:"vector_score"`
	TextScore   float64                `json:"text_score"`
	FusedScore  float64                `json:"fused_score"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type hybridSearchResponse struct {
	Results []hybridResultDTO `json:"results"`
}

type batchInsertRequest struct {
	Namespace string          `json:"namespace"`
	Vectors   []insertRequest `json:"vectors"`
}

type batchInsertResponse struct {
	IDs    []string `json:"ids"`
	Failed int      `json:"failed"`
}

type statsResponse struct {
	Namespace  string `json:"namespace"`
	VectorKind string `json:"index_kind,omitempty"`
	Vectors    int64  `json:"vectors"`
	Dimensions int    `json:"dimensions"`
	CacheHits  int64  `json:"cache_hits,omitempty"`
	CacheSize  int    `json:"cache_size,omitempty"`
}

type traceRequest struct {
	QueryVector []float32 `json:"query_vector"`
	K           int       `json:"k"`
}

type traceResponse struct {
	Results  []searchResultDTO `json:"results"`
	Events   []ann.TraceEvent  `json:"events"`
	Counters ann.Counters      `json:"counters"`
}

// equalityFilter builds a FilterFunc requiring every key in want to be
// present in a document's metadata with an equal value. A nil/empty
// want yields a nil filter (no filtering).
func equalityFilter(want map[string]interface{}) search.FilterFunc {
	if len(want) == 0 {
		return nil
	}
	return func(metadata map[string]interface{}) bool {
		for k, v := range want {
			if metadata[k] != v {
				return false
			}
		}
		return true
	}
}

// HealthCheck handles GET /v1/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// GetStats handles GET /v1/stats and GET /v1/stats/{namespace}
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/stats")
	namespace := strings.TrimPrefix(path, "/")

	if namespace == "" {
		tenants := h.manager.ListTenants()
		stats := make([]statsResponse, 0, len(tenants))
		for _, t := range tenants {
			stats = append(stats, h.namespaceStats(t))
		}
		writeJSON(w, stats, http.StatusOK)
		return
	}

	t, err := h.manager.GetTenant(namespace)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, h.namespaceStats(t), http.StatusOK)
}

func (h *Handler) namespaceStats(t *tenant.Tenant) statsResponse {
	s := statsResponse{
		Namespace:  t.Namespace,
		Vectors:    t.Usage.VectorCount,
		Dimensions: t.Usage.Dimensions,
	}
	if e := t.Engine(); e != nil {
		s.Vectors = int64(e.Store.Count())
		s.Dimensions = e.Store.Dimensions()
		cs := e.Hybrid.CacheStats()
		s.CacheHits = cs.Hits
		s.CacheSize = cs.Size
	}
	return s
}

// Insert handles POST /v1/vectors
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	id, err := h.insertOne(req)
	if err != nil {
		writeAnnError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordInsert(req.Namespace, 1)
	}
	writeJSON(w, insertResponse{ID: id.String()}, http.StatusCreated)
}

func (h *Handler) insertOne(req insertRequest) (vecid.ID, error) {
	if req.Namespace == "" {
		return vecid.Invalid, ann.ErrInvalidArgument("namespace is required")
	}
	engine, err := h.manager.EnsureEngine(req.Namespace, tenant.EngineConfig{
		Dimension: h.dimensions,
		Kind:      h.indexKind,
	})
	if err != nil {
		return vecid.Invalid, err
	}
	id, err := engine.Insert(req.Vector, req.Text, req.Metadata)
	if err != nil {
		return vecid.Invalid, err
	}
	if t, err := h.manager.GetTenant(req.Namespace); err == nil {
		t.IncrementVectorCount(1)
	}
	return id, nil
}

// Search handles POST /v1/vectors/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	t, err := h.manager.GetTenant(req.Namespace)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := t.CheckRateLimit(); err != nil {
		writeError(w, err.Error(), http.StatusTooManyRequests)
		return
	}
	engine := t.Engine()
	if engine == nil {
		writeJSON(w, searchResponse{Results: []searchResultDTO{}}, http.StatusOK)
		return
	}

	filterFn, err := filterFuncFor(req.FilterExpr, req.Filter)
	if err != nil {
		writeError(w, fmt.Sprintf("Invalid filter: %v", err), http.StatusBadRequest)
		return
	}

	results, err := engine.Query(req.QueryVector, req.K, filterFn)
	if err != nil {
		writeAnnError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSearch(0, len(results))
	}
	writeJSON(w, searchResponse{Results: toSearchResultDTOs(results)}, http.StatusOK)
}

func toSearchResultDTOs(results []ann.Result) []searchResultDTO {
	out := make([]searchResultDTO, len(results))
	for i, r := range results {
		out[i] = searchResultDTO{ID: r.ID.String(), Distance: r.Distance}
	}
	return out
}

// HybridSearch handles POST /v1/vectors/hybrid-search
func (h *Handler) HybridSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req hybridSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	t, err := h.manager.GetTenant(req.Namespace)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := t.CheckRateLimit(); err != nil {
		writeError(w, err.Error(), http.StatusTooManyRequests)
		return
	}
	engine := t.Engine()
	if engine == nil {
		writeJSON(w, hybridSearchResponse{Results: []hybridResultDTO{}}, http.StatusOK)
		return
	}

	filterFn, err := filterFuncFor(req.FilterExpr, req.Filter)
	if err != nil {
		writeError(w, fmt.Sprintf("Invalid filter: %v", err), http.StatusBadRequest)
		return
	}

	results := engine.HybridSearch(req.QueryVector, req.QueryText, req.K, filterFn)

	dtos := make([]hybridResultDTO, len(results))
	for i, r := range results {
		dtos[i] = hybridResultDTO{
			ID:          fmt.Sprintf("V%d", r.ID),
			VectorScore: r.VectorScore,
			TextScore:   r.TextScore,
			FusedScore:  r.FusedScore,
			Metadata:    r.Metadata,
		}
	}
	if h.metrics != nil {
		h.metrics.RecordSearch(0, len(dtos))
	}
	writeJSON(w, hybridSearchResponse{Results: dtos}, http.StatusOK)
}

// BatchInsert handles POST /v1/vectors/batch
func (h *Handler) BatchInsert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req batchInsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Namespace == "" {
		writeError(w, "namespace is required", http.StatusBadRequest)
		return
	}

	ids := make([]string, 0, len(req.Vectors))
	failed := 0
	for _, v := range req.Vectors {
		if v.Namespace == "" {
			v.Namespace = req.Namespace
		}
		id, err := h.insertOne(v)
		if err != nil {
			failed++
			continue
		}
		ids = append(ids, id.String())
	}

	if h.metrics != nil && len(ids) > 0 {
		h.metrics.RecordBatchInsert(0, len(ids))
	}
	writeJSON(w, batchInsertResponse{IDs: ids, Failed: failed}, http.StatusCreated)
}

// DeleteNamespace handles DELETE /v1/namespaces/{namespace}
func (h *Handler) DeleteNamespace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	namespace := strings.TrimPrefix(r.URL.Path, "/v1/namespaces/")
	namespace = strings.TrimSuffix(namespace, "/trace")
	if namespace == "" {
		writeError(w, "namespace is required", http.StatusBadRequest)
		return
	}

	if err := h.manager.DeleteTenant(namespace); err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"namespace": namespace, "status": "deleted"}, http.StatusOK)
}

// Trace handles POST /v1/namespaces/{namespace}/trace with a JSON
// {query_vector, k} body. A GET request is also accepted, but it reads
// only k from the query string and carries no query vector. Only
// BLAST-backed namespaces support tracing; any other namespace gets a 400.
func (h *Handler) Trace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/namespaces/")
	namespace := strings.TrimSuffix(path, "/trace")
	if namespace == "" {
		writeError(w, "namespace is required", http.StatusBadRequest)
		return
	}

	t, err := h.manager.GetTenant(namespace)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	engine := t.Engine()
	if engine == nil {
		writeError(w, "namespace has no indexed vectors yet", http.StatusBadRequest)
		return
	}

	var req traceRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	} else {
		req.K = ParseIntQuery(r, "k", 10)
	}

	results, events, counters, supported, err := engine.Trace(req.QueryVector, req.K)
	if err != nil {
		writeAnnError(w, err)
		return
	}
	if !supported {
		writeError(w, "namespace is not backed by a traceable index", http.StatusBadRequest)
		return
	}

	writeJSON(w, traceResponse{
		Results:  toSearchResultDTOs(results),
		Events:   events,
		Counters: counters,
	}, http.StatusOK)
}

// writeAnnError maps the core error taxonomy to an HTTP status per the
// REST error mapping: 400 for InvalidArgument/DimensionMismatch/InvalidID,
// 500 for anything else (unknown namespace is handled by its own 404 at
// the call site, before reaching the core).
func writeAnnError(w http.ResponseWriter, err error) {
	var annErr *ann.Error
	if errors.As(err, &annErr) {
		switch annErr.Kind {
		case ann.InvalidArgument, ann.DimensionMismatch, ann.InvalidID:
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	writeError(w, err.Error(), http.StatusInternalServerError)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// ServeDocs serves the OpenAPI/Swagger documentation
func ServeDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	content, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		writeError(w, "OpenAPI spec not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// ServeSwaggerUI serves the Swagger UI HTML page
func ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	html := `<!DOCTYPE html>
<html>
<head>
    <title>Vector DB API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: "/docs/openapi.yaml",
                dom_id: '#swagger-ui',
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.SwaggerUIStandalonePreset
                ],
                layout: "BaseLayout"
            });
        };
    </script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// ParseIntQuery parses an integer query parameter
func ParseIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
