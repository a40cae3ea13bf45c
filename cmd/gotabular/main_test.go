package main

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/hyperifyio/gotabular/internal/app"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<table><tr><th>City</th><th>Population</th></tr>
<tr><td>Oulu</td><td>215,000</td></tr><tr><td>Turku</td><td>205000</td></tr></table>`))
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "2" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`[{"error":"page out of range"}]`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"rows":[{"k":"a","v":1},{"k":"b","v":2.5}]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, app.BuildVersion) {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestExtract_CSSToCSV(t *testing.T) {
	srv := newServer(t)
	out, err := execute(t, "extract", srv.URL+"/page", "--css", "table", "--type", "population=integer")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "city,population\nOulu,NA\nTurku,205000\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestExtract_KeyPathAndQuery(t *testing.T) {
	srv := newServer(t)
	out, err := execute(t, "extract", srv.URL+"/api", "--path", "data.rows", "--query", "page=2", "-f", "jsonl", "--type", "v=real")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "{\"k\":\"a\",\"v\":1}\n{\"k\":\"b\",\"v\":2.5}\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestExtract_ErrorBody(t *testing.T) {
	srv := newServer(t)
	if _, err := execute(t, "extract", srv.URL+"/api", "--path", ""); err == nil {
		t.Fatalf("expected an error for a 400 response")
	}
	out, err := execute(t, "extract", srv.URL+"/api", "--path", "", "--accept-error-body")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out != "error\npage out of range\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExtract_RequiresOneSelector(t *testing.T) {
	if _, err := execute(t, "extract", "https://example.org"); err == nil {
		t.Fatalf("expected an error without a selector")
	}
	if _, err := execute(t, "extract", "https://example.org", "--css", "t", "--path", "a"); err == nil {
		t.Fatalf("expected an error with two selectors")
	}
}

func TestRun_JobFile(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	cfgPath := filepath.Join(dir, "jobs.yaml")
	content := "concurrency: 2\noutput: {format: csv}\njobs:\n" +
		"  - {name: cities, url: \"" + srv.URL + "/page\", css: table, types: {population: integer}}\n" +
		"  - {name: kv, url: \"" + srv.URL + "/api\", query: {page: \"2\"}, path: data.rows}\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "run", "--config", cfgPath, "--out", outDir); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range []string{"cities.csv", "kv.csv"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestRun_FailingJobExitsWithError(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "jobs.json")
	content := `{"jobs":[{"name":"bad","url":"` + srv.URL + `/api","path":""},{"name":"good","url":"` + srv.URL + `/page","css":"table"}]}`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "run", "-c", cfgPath)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(out, "Oulu") {
		t.Fatalf("good job should still be exported, got %q", out)
	}
}

func TestExtract_VerboseFromEnv(t *testing.T) {
	srv := newServer(t)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	if _, err := execute(t, "extract", srv.URL+"/page", "--css", "table"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Fatalf("level=%v, want info", got)
	}

	t.Setenv("GOTABULAR_VERBOSE", "true")
	if _, err := execute(t, "extract", srv.URL+"/page", "--css", "table"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Fatalf("level=%v, want debug", got)
	}
}

func TestFetch_IgnoresOutputSettings(t *testing.T) {
	srv := newServer(t)
	t.Setenv("GOTABULAR_OUTPUT_FORMAT", "sqlite")
	t.Setenv("GOTABULAR_DB_FILE", "")
	out, err := execute(t, "fetch", srv.URL+"/page")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out, "Status:       200") || !strings.Contains(out, "text/html") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestQuery_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "flights.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{
		`CREATE TABLE flights (carrier TEXT, dep_delay INTEGER)`,
		`INSERT INTO flights VALUES ('AA', 20), ('AA', 5), ('UA', 30), ('AA', NULL)`,
	} {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	out, err := execute(t, "query", "--db", dbPath, "--table", "flights",
		"--select", "carrier,dep_delay", "--where", "carrier=AA", "--where", "dep_delay>=10",
		"--type", "dep_delay=integer")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out != "carrier,dep_delay\nAA,20\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseWhere(t *testing.T) {
	cases := map[string]app.WhereSpec{
		"carrier=AA":  {Column: "carrier", Op: "=", Value: "AA"},
		"delay>=15":   {Column: "delay", Op: ">=", Value: "15"},
		"delay<>0":    {Column: "delay", Op: "<>", Value: "0"},
		"name~Hel%":   {Column: "name", Op: "like", Value: "Hel%"},
		"wind!null":   {Column: "wind", Op: "notnull"},
		"wind?null":   {Column: "wind", Op: "null"},
		"note=a<b":    {Column: "note", Op: "=", Value: "a<b"},
		" tail = N1 ": {Column: "tail", Op: "=", Value: "N1"},
	}
	for in, want := range cases {
		got, err := parseWhere(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %+v, want %+v", in, got, want)
		}
	}
	for _, bad := range []string{"carrier", "=AA", "wind!nullx"} {
		if _, err := parseWhere(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
