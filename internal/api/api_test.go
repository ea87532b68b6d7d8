package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/eqflat/eqflat/pkg/pipeline"
)

const testDefinition = `
name      = "loop"
indep_var = "t"

[[blocks]]
name      = "source"
outputs   = ["out"]
equations = ["out = 1"]

[[blocks]]
name      = "plant"
inputs    = ["x"]
outputs   = ["y"]
equations = ["y = x + a"]

[[systems]]
name    = "loop"
members = ["source", "plant"]

[[systems.connections]]
input  = "plant.x"
output = "source.out"
`

func testServer() *Server {
	logger := log.New(io.Discard)
	return NewServer(pipeline.NewRunner(nil, nil, logger), logger)
}

func TestHealthz(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReduce(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/reduce", strings.NewReader(testDefinition))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var resp reduceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID == "" {
		t.Error("run_id is empty")
	}
	if resp.Block.Name != "loop" {
		t.Errorf("block name = %q, want %q", resp.Block.Name, "loop")
	}
	if len(resp.Block.Equations) == 0 {
		t.Error("block has no equations")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestReduce_QueryToggles(t *testing.T) {
	srv := testServer()
	body := `
name      = "m"
indep_var = "t"

[[blocks]]
name      = "m"
inputs    = ["u"]
outputs   = ["y"]
equations = ["y = u + 1", "z = p * 2"]
`
	req := httptest.NewRequest(http.MethodPost, "/v1/reduce?prune=true", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp reduceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Block.Removed) != 1 {
		t.Errorf("removed = %v, want the pruned equation", resp.Block.Removed)
	}
}

func TestReduce_MalformedDefinition(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/reduce", strings.NewReader("not toml at all ["))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error.Code == "" {
		t.Error("error code is empty")
	}
	if resp.RequestID == "" {
		t.Error("request_id is empty")
	}
}

func TestReduce_SymbolCollision(t *testing.T) {
	srv := testServer()
	body := `
name      = "m"
indep_var = "t"

[[blocks]]
name      = "m"
outputs   = ["y"]
equations = ["y = 1", "y = 2"]
`
	req := httptest.NewRequest(http.MethodPost, "/v1/reduce", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusUnprocessableEntity, rec.Body)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error.Code != "SYMBOL_COLLISION" {
		t.Errorf("error code = %q, want SYMBOL_COLLISION", resp.Error.Code)
	}
}

func TestGraph_DOT(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/graph", strings.NewReader(testDefinition))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if !strings.HasPrefix(rec.Body.String(), "digraph G {") {
		t.Errorf("body is not DOT:\n%s", rec.Body)
	}
}

func TestGraph_BadFormat(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/graph?format=gif", strings.NewReader(testDefinition))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
