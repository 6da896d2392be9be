package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seqtools/degbrowser/internal/catalog"
	"github.com/seqtools/degbrowser/internal/loader"
	"github.com/seqtools/degbrowser/internal/query"
	degtest "github.com/seqtools/degbrowser/internal/testing"
)

// newTestServer builds a server over the default fixture tree with auth
// disabled unless cfg mutates it.
func newTestServer(t *testing.T, mutate func(*loader.Config)) *httptest.Server {
	t.Helper()

	cfg := loader.DefaultConfig()
	cfg.Results.Dir = degtest.DefaultTree(t)
	cfg.Auth.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	cat, err := catalog.Open(cfg.Results.Dir)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	qs, err := query.New(query.DefaultConfig())
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}
	t.Cleanup(func() { qs.Close() })

	ts := httptest.NewServer(New(cfg, cat, qs).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("GET %s: decode: %v", path, err)
		}
	}
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)

	var body map[string]interface{}
	resp := get(t, ts, "/healthz", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" || body["datasets"].(float64) != 2 {
		t.Errorf("body = %v", body)
	}
}

func TestDatasets(t *testing.T) {
	ts := newTestServer(t, nil)

	var out []datasetInfo
	get(t, ts, "/api/datasets", &out)
	if len(out) != 2 {
		t.Fatalf("got %d datasets, want 2", len(out))
	}
	if out[0].Category != "primary" || out[1].Category != "secondary" {
		t.Errorf("categories = %s, %s", out[0].Category, out[1].Category)
	}
	if !strings.Contains(out[0].DisplayName, "KO vs WT") {
		t.Errorf("DisplayName = %q", out[0].DisplayName)
	}
}

func TestVolcano(t *testing.T) {
	ts := newTestServer(t, nil)

	var out struct {
		PColumn string `json:"p_column"`
		Counts  struct {
			Up   int `json:"up"`
			Down int `json:"down"`
		} `json:"counts"`
		Points []map[string]interface{} `json:"points"`
	}
	resp := get(t, ts, "/api/volcano?dataset=primary/20240115_KO_vs_WT_results", &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.PColumn != "padj" {
		t.Errorf("p_column = %q, want padj", out.PColumn)
	}
	if out.Counts.Down == 0 {
		t.Errorf("counts = %+v, want at least one down gene", out.Counts)
	}
	if len(out.Points) != 4 {
		t.Errorf("points = %d, want 4", len(out.Points))
	}
}

func TestVolcanoBadParams(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing dataset", "/api/volcano", http.StatusBadRequest},
		{"traversal", "/api/volcano?dataset=primary/../../etc/passwd", http.StatusBadRequest},
		{"unknown dataset", "/api/volcano?dataset=primary/nope_results", http.StatusNotFound},
		{"bad fdr", "/api/volcano?dataset=primary/20240115_KO_vs_WT_results&fdr=2", http.StatusBadRequest},
		{"bad lfc", "/api/volcano?dataset=primary/20240115_KO_vs_WT_results&lfc=-1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			resp := get(t, ts, tt.path, &body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %v)", resp.StatusCode, tt.want, body)
			}
			if body["error"] == "" {
				t.Errorf("error body missing")
			}
		})
	}
}

func TestScatter(t *testing.T) {
	ts := newTestServer(t, nil)

	var out struct {
		XName       string                   `json:"x_name"`
		Correlation *float64                 `json:"correlation"`
		Points      []map[string]interface{} `json:"points"`
	}
	path := "/api/scatter?x=primary/20240115_KO_vs_WT_results&y=secondary/20240116_HET_vs_WT_results"
	resp := get(t, ts, path, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.XName != "KO_vs_WT" {
		t.Errorf("x_name = %q", out.XName)
	}
	// Lifr and Actb are shared between the fixture trees.
	if len(out.Points) != 2 {
		t.Errorf("points = %d, want 2", len(out.Points))
	}
	if out.Correlation == nil {
		t.Errorf("correlation = nil, want value")
	}
}

func TestScatterSameDataset(t *testing.T) {
	ts := newTestServer(t, nil)

	id := "primary/20240115_KO_vs_WT_results"
	resp := get(t, ts, "/api/scatter?x="+id+"&y="+id, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVenn(t *testing.T) {
	ts := newTestServer(t, nil)

	var out struct {
		Names   []string `json:"names"`
		Regions []struct {
			Label string   `json:"label"`
			Count int      `json:"count"`
			Genes []string `json:"genes"`
		} `json:"regions"`
	}
	path := "/api/venn?datasets=primary/20240115_KO_vs_WT_results,secondary/20240116_HET_vs_WT_results"
	resp := get(t, ts, path, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(out.Regions) != 3 {
		t.Fatalf("regions = %d, want 3", len(out.Regions))
	}
	overlap := out.Regions[2]
	if overlap.Label != "Overlap" || overlap.Count != 1 || overlap.Genes[0] != "Lifr" {
		t.Errorf("overlap = %+v", overlap)
	}
}

func TestVennSVG(t *testing.T) {
	ts := newTestServer(t, nil)

	path := "/api/venn.svg?datasets=primary/20240115_KO_vs_WT_results,secondary/20240116_HET_vs_WT_results"
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestTable(t *testing.T) {
	ts := newTestServer(t, nil)

	var out struct {
		Total int                      `json:"total"`
		Rows  []map[string]interface{} `json:"rows"`
	}
	path := "/api/table?dataset=primary/20240115_KO_vs_WT_results&sort=padj&desc=0&page_size=2"
	resp := get(t, ts, path, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.Total != 4 || len(out.Rows) != 2 {
		t.Fatalf("total = %d rows = %d, want 4 and 2", out.Total, len(out.Rows))
	}
	if out.Rows[0]["gene"] != "Lifr" {
		t.Errorf("first gene = %v, want Lifr (smallest padj)", out.Rows[0]["gene"])
	}
}

func TestSQL(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/api/sql", "application/json",
		strings.NewReader(`{"sql":"SELECT 1 AS one"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || len(out.Rows) != 1 || out.Rows[0][0] != "1" {
		t.Errorf("status = %d, out = %+v", resp.StatusCode, out)
	}
}

func TestSQLRejectsWrites(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/api/sql", "application/json",
		strings.NewReader(`{"sql":"DROP TABLE genes"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExportVolcanoCSV(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/export/volcano?dataset=primary/20240115_KO_vs_WT_results")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "KO_vs_WT_volcano_export.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, func(cfg *loader.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.Username = "admin"
		cfg.Auth.Password = "sekrit"
	})

	// No credentials: 401 with a challenge.
	resp := get(t, ts, "/api/datasets", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Errorf("missing WWW-Authenticate challenge")
	}

	// Healthz stays open.
	if resp := get(t, ts, "/healthz", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	// Correct credentials pass and set a session cookie.
	req, _ := http.NewRequest("GET", ts.URL+"/api/datasets", nil)
	req.SetBasicAuth("admin", "sekrit")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("authed status = %d, want 200", authed.StatusCode)
	}
	if len(authed.Cookies()) == 0 {
		t.Errorf("no session cookie set after basic auth")
	}
}

func TestAuthRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *loader.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.Password = "sekrit"
	})

	for i := 0; i < 10; i++ {
		req, _ := http.NewRequest("GET", ts.URL+"/api/datasets", nil)
		req.SetBasicAuth("admin", "wrong")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest("GET", ts.URL+"/api/datasets", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status after limit = %d, want 429", resp.StatusCode)
	}
}

func TestDashboardRenders(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}
