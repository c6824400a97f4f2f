package datasource_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/casegraph/internal/datasource"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
)

func newFileStore(t *testing.T, snap model.Snapshot, projects []model.Project) *datasource.FileStore {
	t.Helper()
	path := testutil.WriteDatasetFile(t, t.TempDir(), snap, projects)
	s, err := datasource.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestFileStore_FullGraph(t *testing.T) {
	s := newFileStore(t, testutil.CaseFixture(), nil)
	ctx := context.Background()

	snap, err := s.FullGraph(ctx, 0, "")
	if err != nil {
		t.Fatalf("FullGraph: %v", err)
	}
	testutil.AssertNodeCount(t, snap, 5)
	if snap.EdgeCount() != 5 {
		t.Errorf("expected 5 edges, got %d", snap.EdgeCount())
	}

	limited, err := s.FullGraph(ctx, 2, "")
	if err != nil {
		t.Fatalf("FullGraph limit 2: %v", err)
	}
	if limited.EdgeCount() != 2 {
		t.Errorf("expected limit to cap edges at 2, got %d", limited.EdgeCount())
	}
	if err := limited.Validate(); err != nil {
		t.Errorf("limited snapshot invalid: %v", err)
	}
}

func TestFileStore_FullGraphScoped(t *testing.T) {
	s := newFileStore(t, testutil.CaseFixture(), nil)
	ctx := context.Background()

	snap, err := s.FullGraph(ctx, 0, "case-7")
	if err != nil {
		t.Fatalf("FullGraph: %v", err)
	}
	if snap.EdgeCount() != 5 {
		t.Errorf("expected 5 scoped edges, got %d", snap.EdgeCount())
	}

	other, err := s.FullGraph(ctx, 0, "case-9")
	if err != nil {
		t.Fatalf("FullGraph other: %v", err)
	}
	if !other.IsEmpty() {
		t.Errorf("expected empty snapshot for unknown project, got %d nodes", other.NodeCount())
	}
	if other.Nodes == nil || other.Edges == nil {
		t.Error("empty snapshot should carry non-nil slices")
	}
}

func TestFileStore_DanglingPassesThrough(t *testing.T) {
	snap := testutil.WithDangling(testutil.CaseFixture(), "n1")
	s := newFileStore(t, snap, nil)

	got, err := s.FullGraph(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("FullGraph: %v", err)
	}
	if got.EdgeCount() != 6 {
		t.Fatalf("expected dangling edge to be returned, got %d edges", got.EdgeCount())
	}
	if got.HasNode("ghost") {
		t.Error("dangling target must not be invented as a node")
	}
}

func TestFileStore_ProjectGraph(t *testing.T) {
	s := newFileStore(t, testutil.CaseFixture(), nil)
	ctx := context.Background()

	snap, err := s.ProjectGraph(ctx, "case-7", 0)
	if err != nil {
		t.Fatalf("ProjectGraph: %v", err)
	}
	if !snap.HasNode("p1") {
		t.Error("project graph should include the project hub")
	}
	testutil.AssertNoDuplicateIDs(t, snap)

	_, err = s.ProjectGraph(ctx, "missing", 0)
	if !errors.Is(err, datasource.ErrNoGraph) {
		t.Errorf("expected ErrNoGraph, got %v", err)
	}
}

func TestFileStore_ProjectGraphHubOnly(t *testing.T) {
	snap := model.Snapshot{
		Nodes: []model.Node{{ID: "p2", Label: model.LabelProject, Properties: map[string]any{"project_id": "lonely"}}},
		Edges: []model.Edge{},
	}
	s := newFileStore(t, snap, nil)

	got, err := s.ProjectGraph(context.Background(), "lonely", 0)
	if err != nil {
		t.Fatalf("ProjectGraph: %v", err)
	}
	if got.NodeCount() != 1 || got.EdgeCount() != 0 {
		t.Errorf("expected the bare hub, got %d nodes %d edges", got.NodeCount(), got.EdgeCount())
	}
}

func TestFileStore_SearchGraph(t *testing.T) {
	s := newFileStore(t, testutil.CaseFixture(), nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		term      string
		depth     int
		wantNodes []string
		wantEdges int
	}{
		{"one hop", "vikram", 1, []string{"n1", "n2", "n3", "p1"}, 4},
		{"two hops", "VIKRAM", 2, []string{"n1", "n2", "n3", "n4", "p1"}, 5},
		{"depth clamped up", "login", 0, []string{"n2", "n4"}, 1},
		{"no match", "zzz", 3, []string{}, 0},
		{"blank", "  ", 3, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := s.SearchGraph(ctx, tt.term, tt.depth)
			if err != nil {
				t.Fatalf("SearchGraph: %v", err)
			}
			if got := testutil.NodeIDs(snap); !reflect.DeepEqual(got, tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", got, tt.wantNodes)
			}
			if snap.EdgeCount() != tt.wantEdges {
				t.Errorf("edges = %d, want %d", snap.EdgeCount(), tt.wantEdges)
			}
			if err := snap.Validate(); err != nil {
				t.Errorf("search result invalid: %v", err)
			}
		})
	}
}

func TestFileStore_LabelGraph(t *testing.T) {
	s := newFileStore(t, testutil.CaseFixture(), nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		label     model.Label
		depth     int
		limit     int
		wantNodes []string
		wantEdges int
	}{
		{"direct neighbours", model.LabelURL, 1, 0, []string{"n2", "n4"}, 1},
		{"two hops", model.LabelPhoneNumber, 2, 0, []string{"n1", "n2", "n3", "p1"}, 4},
		{"limit counts relationships", model.LabelPerson, 1, 2, []string{"n1", "n2", "n3", "n4", "p1"}, 2},
		{"depth clamped up", model.LabelURL, 0, 0, []string{"n2", "n4"}, 1},
		{"label with no nodes", model.LabelFile, 3, 0, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := s.LabelGraph(ctx, tt.label, tt.depth, tt.limit)
			if err != nil {
				t.Fatalf("LabelGraph: %v", err)
			}
			if got := testutil.NodeIDs(snap); !reflect.DeepEqual(got, tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", got, tt.wantNodes)
			}
			if snap.EdgeCount() != tt.wantEdges {
				t.Errorf("edges = %d, want %d", snap.EdgeCount(), tt.wantEdges)
			}
			if err := snap.Validate(); err != nil {
				t.Errorf("label result invalid: %v", err)
			}
		})
	}

	if _, err := s.LabelGraph(ctx, model.Label("Suspect"), 1, 0); !errors.Is(err, datasource.ErrUnknownLabel) {
		t.Errorf("expected ErrUnknownLabel, got %v", err)
	}
}

func TestFileStore_Projects(t *testing.T) {
	s := newFileStore(t, testutil.CaseFixture(), nil)

	projects, err := s.Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	p := projects[0]
	if p.ID != "case-7" || p.Name != "Case 7" {
		t.Errorf("unexpected project %+v", p)
	}
	if p.ExtractionID != "case-7" {
		t.Errorf("extraction id should default to project id, got %q", p.ExtractionID)
	}
	if p.NodeCount != 2 {
		t.Errorf("expected 2 members, got %d", p.NodeCount)
	}
}

func TestFileStore_DeclaredProjectsOrdered(t *testing.T) {
	declared := []model.Project{
		{ID: "old", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "new", Name: "Newest", CreatedAt: "2025-06-01T00:00:00Z"},
	}
	s := newFileStore(t, testutil.CaseFixture(), declared)

	projects, err := s.Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != "new" {
		t.Fatalf("expected newest first, got %+v", projects)
	}
	if projects[1].Name != "old" {
		t.Errorf("missing name should default to id, got %q", projects[1].Name)
	}
}

func TestFileStore_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDatasetFile(t, dir, testutil.CaseFixture(), nil)
	s, err := datasource.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	testutil.WriteDatasetFile(t, dir, testutil.QuickChain(3), nil)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	snap, err := s.FullGraph(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("FullGraph: %v", err)
	}
	if snap.NodeCount() != 3 {
		t.Errorf("expected reloaded chain of 3, got %d nodes", snap.NodeCount())
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	s := newFileStore(t, testutil.CaseFixture(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.FullGraph(ctx, 0, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewFileStore_BadInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := datasource.NewFileStore(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	_, err := datasource.NewFileStore(bad)
	if err == nil || !strings.Contains(err.Error(), "parsing dataset") {
		t.Errorf("expected parse error, got %v", err)
	}
}
