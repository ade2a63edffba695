package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/veccore/annengine/pkg/observability"
	"github.com/veccore/annengine/pkg/tenant"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	manager := tenant.NewManager()
	if _, err := manager.CreateTenant("default", tenant.DefaultQuota()); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	return NewHandler(manager, observability.NewMetrics(), tenant.IndexKindIHCI, 3)
}

func doRequest(h http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandler_HealthCheck(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h.HealthCheck, http.MethodGet, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Insert_MissingNamespace(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h.Insert, http.MethodPost, `{"vector":[1,2,3]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing namespace, got %d", rec.Code)
	}
}

func TestHandler_InsertAndSearch(t *testing.T) {
	h := newTestHandler(t)

	insertRec := doRequest(h.Insert, http.MethodPost, `{"namespace":"default","vector":[1,0,0],"text":"hello"}`)
	if insertRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", insertRec.Code, insertRec.Body.String())
	}

	searchRec := doRequest(h.Search, http.MethodPost, `{"namespace":"default","query_vector":[1,0,0],"k":1}`)
	if searchRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", searchRec.Code, searchRec.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(searchRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(resp.Results))
	}
}

func TestHandler_Search_FilterExpr(t *testing.T) {
	h := newTestHandler(t)

	doRequest(h.Insert, http.MethodPost, `{"namespace":"default","vector":[1,0,0],"metadata":{"tag":"keep","price":5}}`)
	doRequest(h.Insert, http.MethodPost, `{"namespace":"default","vector":[0.9,0.1,0],"metadata":{"tag":"drop","price":50}}`)

	body := `{"namespace":"default","query_vector":[1,0,0],"k":5,"filter_expr":{
		"op":"and",
		"filters":[
			{"op":"eq","field":"tag","value":"keep"},
			{"op":"lt","field":"price","value":10}
		]
	}}`
	rec := doRequest(h.Search, http.MethodPost, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 filtered result, got %d", len(resp.Results))
	}
}

func TestHandler_Search_FilterExprUnknownOperator(t *testing.T) {
	h := newTestHandler(t)
	doRequest(h.Insert, http.MethodPost, `{"namespace":"default","vector":[1,0,0]}`)

	body := `{"namespace":"default","query_vector":[1,0,0],"k":5,"filter_expr":{"op":"bogus","field":"tag","value":"x"}}`
	rec := doRequest(h.Search, http.MethodPost, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown filter operator, got %d", rec.Code)
	}
}

func TestHandler_Search_UnknownNamespace(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h.Search, http.MethodPost, `{"namespace":"nope","query_vector":[1,0,0],"k":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown namespace, got %d", rec.Code)
	}
}

func TestHandler_HybridSearch(t *testing.T) {
	h := newTestHandler(t)
	doRequest(h.Insert, http.MethodPost, `{"namespace":"default","vector":[1,0,0],"text":"machine learning"}`)

	rec := doRequest(h.HybridSearch, http.MethodPost, `{"namespace":"default","query_vector":[1,0,0],"query_text":"machine","k":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_BatchInsert(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h.BatchInsert, http.MethodPost,
		`{"namespace":"default","vectors":[{"vector":[1,0,0]},{"vector":[0,1,0]}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp batchInsertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.IDs) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(resp.IDs))
	}
}

func TestHandler_DeleteNamespace(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/v1/namespaces/default", nil)
	rec := httptest.NewRecorder()
	h.DeleteNamespace(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := h.manager.GetTenant("default"); err == nil {
		t.Error("expected namespace to be gone after delete")
	}
}

func TestHandler_Stats(t *testing.T) {
	h := newTestHandler(t)
	doRequest(h.Insert, http.MethodPost, `{"namespace":"default","vector":[1,0,0]}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats/default", nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
