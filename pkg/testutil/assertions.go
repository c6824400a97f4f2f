package testutil

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// AssertNodeCount checks the snapshot has the expected number of nodes.
func AssertNodeCount(t *testing.T, snap model.Snapshot, expected int) {
	t.Helper()
	if len(snap.Nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(snap.Nodes))
	}
}

// AssertNoDuplicateIDs checks that no two nodes share an id.
func AssertNoDuplicateIDs(t *testing.T, snap model.Snapshot) {
	t.Helper()
	seen := make(map[string]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if seen[n.ID] {
			t.Errorf("duplicate node id: %s", n.ID)
		}
		seen[n.ID] = true
	}
}

// AssertKeysMatch checks that keys is exactly the node id set of snap.
func AssertKeysMatch[V any](t *testing.T, snap model.Snapshot, keys map[string]V) {
	t.Helper()
	want := NodeIDs(snap)
	got := make([]string, 0, len(keys))
	for k := range keys {
		got = append(got, k)
	}
	sort.Strings(got)
	if strings.Join(want, ",") != strings.Join(got, ",") {
		t.Errorf("key set mismatch:\nwant %v\ngot  %v", want, got)
	}
}

// AssertFinite fails when v is NaN or infinite.
func AssertFinite(t *testing.T, label string, v float64) {
	t.Helper()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Errorf("%s is not finite: %v", label, v)
	}
}

// AssertJSONEqual compares two values by their JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()
	want, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	got, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(want) != string(got) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", want, got)
	}
}

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file, or rewrites the
// file when GENERATE_GOLDEN is set.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()
	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Skipf("golden file %s missing; run with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}
	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// WriteDatasetFile writes snap as a JSON dataset file in dir and returns the
// path. The file is what the file store reads.
func WriteDatasetFile(t *testing.T, dir string, snap model.Snapshot, projects []model.Project) string {
	t.Helper()
	doc := struct {
		Projects []model.Project `json:"projects"`
		Nodes    []model.Node    `json:"nodes"`
		Edges    []model.Edge    `json:"edges"`
	}{projects, snap.Nodes, snap.Edges}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal dataset: %v", err)
	}
	path := filepath.Join(dir, "case.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
	return path
}

// NodeIDs returns the sorted node ids of snap.
func NodeIDs(snap model.Snapshot) []string {
	ids := make([]string, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}
