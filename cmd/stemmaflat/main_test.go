package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/stemmaflat/internal/config"
	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/pipeline"
	"github.com/hyperjump/stemmaflat/internal/storage"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"Եդեսիա", "-limit", "5"},
			expected: []string{"-limit", "5", "Եդեսիա"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-limit", "5", "Եդեսիա"},
			expected: []string{"-limit", "5", "Եդեսիա"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"Եդեսիա"},
			expected: []string{"Եդեսիա"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "timestamp then strict flag",
			args:     []string{"20240115", "--strict"},
			expected: []string{"--strict", "20240115"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"Ուռհա"}, "Ուռհա"},
		{"multiple words", []string{"ի", "թուին"}, "ի թուին"},
		{"single quoted phrase", []string{"ի թուին"}, "ի թուին"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	clean := &models.Report{}
	warned := &models.Report{Warnings: []models.Warning{{Kind: models.WarningMissingTitle}}}
	tests := []struct {
		name    string
		reports []*models.Report
		failed  bool
		strict  bool
		want    int
	}{
		{"clean run", []*models.Report{clean}, false, false, exitOK},
		{"warnings tolerated", []*models.Report{clean, warned}, false, false, exitOK},
		{"warnings in strict mode", []*models.Report{clean, warned}, false, true, exitWarnings},
		{"strict without warnings", []*models.Report{clean}, false, true, exitOK},
		{"failure wins", []*models.Report{warned}, true, true, exitFailure},
		{"nothing ran", nil, true, false, exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.reports, tt.failed, tt.strict); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateTimestamp(t *testing.T) {
	for _, ts := range []string{"20240115", "2024-01-15T10:00", "v1"} {
		if err := validateTimestamp(ts); err != nil {
			t.Errorf("validateTimestamp(%q) = %v", ts, err)
		}
	}
	for _, ts := range []string{"", " ", "..", "a/b", `a\b`} {
		if err := validateTimestamp(ts); err == nil {
			t.Errorf("validateTimestamp(%q) should fail", ts)
		}
	}
}

func TestGeneratorsFor(t *testing.T) {
	names := func(cmd string) []string {
		var out []string
		for _, g := range generatorsFor(cmd) {
			out = append(out, g.name)
		}
		return out
	}
	if got := names("all"); !reflect.DeepEqual(got, []string{"tei", "store", "locations", "graphs"}) {
		t.Errorf("all = %v", got)
	}
	if needsTimestamp(generatorsFor("store")) {
		t.Error("store should not need a timestamp")
	}
	for _, cmd := range []string{"tei", "locations", "graphs", "all"} {
		if !needsTimestamp(generatorsFor(cmd)) {
			t.Errorf("%s should need a timestamp", cmd)
		}
	}
	if generatorsFor("serve") != nil {
		t.Error("serve is not a generator")
	}
}

func TestNewClient(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tradition/t1/sections" {
			http.NotFound(w, r)
			return
		}
		gotUser, gotPass, _ = r.BasicAuth()
		fmt.Fprint(w, `[{"id": 7}]`)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Repository.Username = "editor"
	cfg.Repository.Password = "secret"
	client := newClient(cfg, zap.NewNop())
	if client.BaseURL() != srv.URL+"/tradition/t1" {
		t.Errorf("base url = %s", client.BaseURL())
	}
	sections, err := client.Sections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 1 || sections[0].ID != "7" {
		t.Errorf("sections = %+v", sections)
	}
	if gotUser != "editor" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
}

func testConfig(t *testing.T, repoURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{Repository: config.RepositoryConfig{URL: repoURL, TraditionID: "t1"}}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestSearchViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/search" {
			http.NotFound(w, r)
			return
		}
		var q models.SearchQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.Query == "" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(models.SearchResponse{
			Query: q.Query,
			Total: 1,
			Hits:  []*models.SearchHit{{SectionID: "3", Rank: 1}},
		})
	}))
	defer srv.Close()

	resp, err := searchViaHTTP(srv.URL+"/", &models.SearchQuery{Query: "Ուռհա"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Hits[0].SectionID != "3" {
		t.Errorf("response = %+v", resp)
	}

	if _, err := searchViaHTTP(srv.URL, &models.SearchQuery{}); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v, want server 400", err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
repository:
  url: "http://localhost:8000/stemmarest"
  tradition_id: "t1"
storage:
  database_path: "./runs.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

// fakeRepository serves a one-section tradition "t1" without titles.
func fakeRepository(t *testing.T, sectionsStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tradition/t1/sections":
			if sectionsStatus != http.StatusOK {
				w.WriteHeader(sectionsStatus)
				return
			}
			fmt.Fprint(w, `[{"id": 1}]`)
		case "/tradition/t1/section/1/readings":
			fmt.Fprint(w, `[
				{"id": 10, "rank": 0, "text": "#START#", "is_start": true},
				{"id": 11, "rank": 1, "text": "Ի", "is_lemma": true},
				{"id": 12, "rank": 2, "text": "թուին", "is_lemma": true},
				{"id": 13, "rank": 3, "text": "#END#", "is_end": true}]`)
		case "/tradition/t1/section/1/annotations":
			fmt.Fprint(w, `[]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, repoURL string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
repository:
  url: %q
  tradition_id: "t1"
output:
  root: "./out"
fetch:
  retries: 1
  rate_limit: 1000
storage:
  database_path: "./state/runs.db"
  bleve_index_path: "./state/bleve"
`, repoURL)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func TestRunGenerate_TEI(t *testing.T) {
	srv := fakeRepository(t, http.StatusOK)
	configPath, dir := writeConfig(t, srv.URL)

	if code := runGenerate("tei", []string{"--config", configPath, "20240115"}); code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	teiPath := filepath.Join(pipeline.TEIDir(filepath.Join(dir, "out"), "20240115"), pipeline.TEIFile)
	data, err := os.ReadFile(teiPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `<div xml:id="section_1">`) {
		t.Errorf("tei = %s", data)
	}

	runs, err := storage.NewSQLiteStorage(filepath.Join(dir, "state", "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer runs.Close()
	list, err := runs.ListReports(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Command != "tei" || list[0].Timestamp != "20240115" {
		t.Errorf("runs = %+v", list)
	}
}

func TestRunGenerate_StrictFailsOnWarnings(t *testing.T) {
	srv := fakeRepository(t, http.StatusOK)
	configPath, _ := writeConfig(t, srv.URL)

	// The section has no titles, which is reported.
	if code := runGenerate("tei", []string{"20240115", "--strict", "--config", configPath}); code != exitWarnings {
		t.Errorf("exit code = %d, want %d", code, exitWarnings)
	}
}

func TestRunGenerate_Failures(t *testing.T) {
	srv := fakeRepository(t, http.StatusInternalServerError)
	configPath, _ := writeConfig(t, srv.URL)

	if code := runGenerate("tei", []string{"--config", configPath, "20240115"}); code != exitFailure {
		t.Errorf("unreachable sections: exit code = %d, want %d", code, exitFailure)
	}
	if code := runGenerate("tei", []string{"--config", configPath}); code != exitFailure {
		t.Errorf("missing timestamp: exit code = %d, want %d", code, exitFailure)
	}
	if code := runGenerate("tei", []string{"--config", configPath, "../escape"}); code != exitFailure {
		t.Errorf("bad timestamp: exit code = %d, want %d", code, exitFailure)
	}
	if code := runGenerate("store", []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}); code != exitFailure {
		t.Errorf("missing config: exit code = %d, want %d", code, exitFailure)
	}
}
