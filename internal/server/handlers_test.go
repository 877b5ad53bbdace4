package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/mmachatschek/meilisearch/internal/config"
	"github.com/mmachatschek/meilisearch/internal/index"
	"github.com/mmachatschek/meilisearch/internal/models"
	"github.com/mmachatschek/meilisearch/internal/schema"
	"github.com/mmachatschek/meilisearch/internal/search"
	"github.com/mmachatschek/meilisearch/internal/store"
)

const testSchema = `
identifier: id
attributes:
  - name: id
    displayed: true
  - name: title
    displayed: true
    indexed: true
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sc, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	idx, err := index.NewMemBleveIndex(sc)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })

	ctx := context.Background()
	doc := &models.Document{ID: "1", Fields: []models.Field{
		{Name: "id", Value: "1"},
		{Name: "title", Value: "hello world"},
	}}
	if err := st.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}

	engine := search.NewEngine(st, idx, sc)
	return NewServer(engine, st, idx, &config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop())
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	body, _ := json.Marshal(map[string]interface{}{"query": "world", "limit": 10})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp search.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	hit := resp.Results[0]
	if hit.ID != "1" {
		t.Errorf("hit id = %q", hit.ID)
	}
	var title *search.AttributeView
	for i := range hit.Attributes {
		if hit.Attributes[i].Name == "title" {
			title = &hit.Attributes[i]
		}
	}
	if title == nil {
		t.Fatalf("no title view in %+v", hit.Attributes)
	}
	if title.Text != "hello world" {
		t.Errorf("title text = %q", title.Text)
	}
	if len(title.Areas) == 0 || title.Areas[0] != 0 || title.Areas[len(title.Areas)-1] != len(title.Text) {
		t.Errorf("title areas = %v", title.Areas)
	}
}

func TestHandleSearchRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"empty query", `{"query": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleGetAndDeleteDocument(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var doc models.Document
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if v, _ := doc.Get("title"); v != "hello world" {
		t.Errorf("title = %q", v)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/documents/1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestHandleHealthAndStatus(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status status = %d", rec.Code)
	}
	var status map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status["documents"].(float64) != 1 {
		t.Errorf("documents = %v", status["documents"])
	}
}
