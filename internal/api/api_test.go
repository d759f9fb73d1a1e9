package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"

	"github.com/bcnelson/servicetag-watcher/internal/api"
	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage/memory"
	"github.com/bcnelson/servicetag-watcher/internal/storage/storagetest"
)

// testServer creates a test server with in-memory storage
type testServer struct {
	handler http.Handler
	store   *memory.Store
	dataDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	dataDir := t.TempDir()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("servicetag_services_total 2\n"))
	})

	return &testServer{
		handler: api.NewRouter(store, dataDir, metrics, log.NewNopLogger()),
		store:   store,
		dataDir: dataDir,
	}
}

func (ts *testServer) request(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(ts.dataDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("GET", "/health", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("GET", "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "servicetag_services_total 2\n" {
		t.Errorf("Unexpected body: %s", rr.Body.String())
	}
}

func TestCurrentSnapshot(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("GET", "/api/v1/current", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 before any run, got %d", rr.Code)
	}

	if err := ts.store.PutCurrent(context.Background(), storagetest.Dataset(5)); err != nil {
		t.Fatal(err)
	}

	rr = ts.request("GET", "/api/v1/current", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
	var ds domain.Dataset
	if err := json.Unmarshal(rr.Body.Bytes(), &ds); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if ds.ChangeNumber != 5 || len(ds.Values) != 2 {
		t.Errorf("Unexpected snapshot: %+v", ds)
	}

	etag := rr.Header().Get("ETag")
	if etag != `"snapshot-current-5"` {
		t.Errorf("Unexpected ETag %s", etag)
	}
	rr = ts.request("GET", "/api/v1/current", map[string]string{"If-None-Match": etag})
	if rr.Code != http.StatusNotModified {
		t.Errorf("Expected status 304, got %d", rr.Code)
	}
}

func TestCorruptCurrentSnapshot(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SetCurrentRaw([]byte("{"))

	rr := ts.request("GET", "/api/v1/current", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
	var apiErr domain.APIError
	_ = json.Unmarshal(rr.Body.Bytes(), &apiErr)
	if apiErr.Message != "stored snapshot is corrupt" {
		t.Errorf("Unexpected message %q", apiErr.Message)
	}
}

func TestSnapshots(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	for i, date := range []string{"2024-03-04", "2024-02-26"} {
		if err := ts.store.PutHistorical(ctx, date, storagetest.Dataset(i+1)); err != nil {
			t.Fatal(err)
		}
	}

	rr := ts.request("GET", "/api/v1/snapshots", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var list struct {
		Dates []string `json:"dates"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if list.Total != 2 || list.Dates[0] != "2024-02-26" {
		t.Errorf("Unexpected list: %+v", list)
	}

	rr = ts.request("GET", "/api/v1/snapshots/2024-02-26", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var ds domain.Dataset
	_ = json.Unmarshal(rr.Body.Bytes(), &ds)
	if ds.ChangeNumber != 2 {
		t.Errorf("Expected change number 2, got %d", ds.ChangeNumber)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/snapshots/2024-01-01", http.StatusNotFound},
		{"/api/v1/snapshots/yesterday", http.StatusBadRequest},
		{"/api/v1/snapshots/2024-02-30", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := ts.request("GET", tt.path, nil)
		if rr.Code != tt.want {
			t.Errorf("GET %s: expected status %d, got %d", tt.path, tt.want, rr.Code)
		}
	}
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("GET", "/api/v1/summary", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}

	ts.writeFile(t, "summary.json", `{"total_services":2,"total_ip_ranges":7,"available_dates":["2024-03-04"]}`)

	rr = ts.request("GET", "/api/v1/summary", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var s domain.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &s); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if s.TotalIPRanges != 7 || len(s.AvailableDates) != 1 {
		t.Errorf("Unexpected summary: %+v", s)
	}
}

func TestDataFiles(t *testing.T) {
	ts := newTestServer(t)
	ts.writeFile(t, "changes/latest-changes.json", `{"total_changes":0}`)
	ts.writeFile(t, "changes/2024-03-04-changes.patch", "--- a/Storage\n")
	ts.writeFile(t, "snapshots.db", "sqlite")

	rr := ts.request("GET", "/data/changes/latest-changes.json", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != `{"total_changes":0}` {
		t.Errorf("Unexpected body: %s", rr.Body.String())
	}

	rr = ts.request("GET", "/data/changes/2024-03-04-changes.patch", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200 for patch, got %d", rr.Code)
	}

	for _, path := range []string{"/data/snapshots.db", "/data/changes/", "/data/changes/missing.json"} {
		rr := ts.request("GET", path, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected status 404, got %d", path, rr.Code)
		}
	}
}
