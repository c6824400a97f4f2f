package ui

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/casegraph/pkg/highlight"
	"github.com/vanderheijden86/casegraph/pkg/layout"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
)

func buildScene(snap model.Snapshot, sel highlight.Selection, zoom float64) scene.Scene {
	return scene.Build(scene.Input{
		Snapshot:  snap,
		Positions: layout.Compute(snap, 640, 384, layout.DefaultOptions()),
		Hints:     highlight.Derive(snap, sel),
		Width:     640,
		Height:    384,
		Zoom:      zoom,
	})
}

func TestRasterizePlacesEveryNode(t *testing.T) {
	sc := buildScene(testutil.CaseFixture(), highlight.None(), 1)
	g := rasterize(sc, 80, 24, "")

	if len(g.nodeAt) != 5 {
		t.Fatalf("expected 5 nodes on the grid, got %v", g.nodeAt)
	}
	lines := g.plain()
	if len(lines) != 24 {
		t.Fatalf("expected 24 lines, got %d", len(lines))
	}
	for i, l := range lines {
		if w := runewidth.StringWidth(l); w != 80 {
			t.Errorf("line %d is %d cells wide", i, w)
		}
	}
}

func TestRasterizeLabelsSmallGraphs(t *testing.T) {
	g := rasterize(buildScene(testutil.Single(), highlight.None(), 1), 40, 10, "")
	pos, ok := g.nodeAt["4:test:n0"]
	if !ok {
		t.Fatal("single node missing from the grid")
	}
	line := []rune(g.plain()[pos[1]])
	if line[pos[0]] != '●' || string(line[pos[0]+2:pos[0]+4]) != "n0" {
		t.Errorf("expected glyph then label, got %q", string(line))
	}
}

func TestRasterizeSelection(t *testing.T) {
	sc := buildScene(testutil.CaseFixture(), highlight.Of("n1"), 1)
	g := rasterize(sc, 160, 48, "")
	out := strings.Join(g.plain(), "\n")

	if strings.Count(out, "◉") != 1 {
		t.Errorf("expected one selected glyph:\n%s", out)
	}
	if !strings.Contains(out, "○") {
		t.Error("nodes outside the neighbourhood should be drawn dimmed")
	}
	if strings.Contains(out, "https://") {
		t.Error("dimmed nodes are not labelled while a selection is active")
	}
}

func TestRasterizeCursor(t *testing.T) {
	sc := buildScene(testutil.CaseFixture(), highlight.None(), 1)
	g := rasterize(sc, 80, 24, "n2")
	pos := g.nodeAt["n2"]
	if cl := g.at(pos[0], pos[1]); cl.kind != cellCursor {
		t.Errorf("cursor node kind = %d", cl.kind)
	}
}

func TestRasterizeEmptyAndTiny(t *testing.T) {
	sc := buildScene(model.EmptySnapshot(), highlight.None(), 1)
	for _, l := range rasterize(sc, 10, 3, "").plain() {
		if strings.TrimSpace(l) != "" {
			t.Errorf("empty scene should render blank, got %q", l)
		}
	}
	if g := rasterize(buildScene(testutil.CaseFixture(), highlight.None(), 1), 0, 0, ""); len(g.plain()) != 0 {
		t.Error("zero-size grid should have no lines")
	}
}

func TestRasterizeZoomClipsNodes(t *testing.T) {
	snap := testutil.QuickStar(12)
	in := rasterize(buildScene(snap, highlight.None(), 1), 80, 24, "")
	zoomed := rasterize(buildScene(snap, highlight.None(), 5), 80, 24, "")
	if len(zoomed.nodeAt) >= len(in.nodeAt) {
		t.Errorf("zooming in should push outer nodes off the grid: %d vs %d", len(zoomed.nodeAt), len(in.nodeAt))
	}
}

func TestRasterizeWideLabels(t *testing.T) {
	snap := model.Snapshot{
		Nodes: []model.Node{{ID: "a", Label: model.LabelLocation, Properties: map[string]any{"name": "東京都渋谷区"}}},
		Edges: []model.Edge{},
	}
	g := rasterize(buildScene(snap, highlight.None(), 1), 40, 10, "")
	for i, l := range g.plain() {
		if w := runewidth.StringWidth(l); w != 40 {
			t.Errorf("line %d is %d cells wide: %q", i, w, l)
		}
	}
	if !strings.Contains(strings.Join(g.plain(), ""), "東京") {
		t.Error("wide label should be drawn")
	}
}

func TestEdgeRune(t *testing.T) {
	tests := []struct {
		dc, dr int
		want   rune
	}{
		{10, 0, '─'},
		{10, 2, '─'},
		{0, 5, '│'},
		{1, 6, '│'},
		{4, 4, '╲'},
		{-4, -4, '╲'},
		{4, -4, '╱'},
	}
	for _, tt := range tests {
		if got := edgeRune(tt.dc, tt.dr); got != tt.want {
			t.Errorf("edgeRune(%d,%d) = %c, want %c", tt.dc, tt.dr, got, tt.want)
		}
	}
}

func TestLineKeepsHotEdges(t *testing.T) {
	g := newGrid(10, 1)
	g.line(0, 0, 9, 0, cellEdgeHot)
	g.line(0, 0, 9, 0, cellEdgeDimmed)
	for c := 0; c < 10; c++ {
		if g.at(c, 0).kind != cellEdgeHot {
			t.Fatalf("cell %d downgraded to %d", c, g.at(c, 0).kind)
		}
	}
}

func TestRenderPlainRenderer(t *testing.T) {
	th := DefaultTheme(lipgloss.NewRenderer(io.Discard))
	g := rasterize(buildScene(testutil.CaseFixture(), highlight.None(), 1), 60, 12, "")
	if got, want := g.render(th), strings.Join(g.plain(), "\n"); got != want {
		t.Errorf("without colors render should equal plain text\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Vikram Rao", 6); got != "Vikra…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("東京都", 4); runewidth.StringWidth(got) > 4 {
		t.Errorf("wide truncate too wide: %q", got)
	}
	if truncate("abc", 0) != "" || truncate("abc", 1) != "…" || truncate("abc", 3) != "abc" {
		t.Error("truncate edge cases")
	}
}

func TestCycleFilter(t *testing.T) {
	ps := []model.Project{{ID: "case-7"}, {ID: "case-9"}, {ID: ""}}
	tests := []struct {
		current string
		dir     int
		want    string
	}{
		{"all", 1, "case-7"},
		{"case-7", 1, "case-9"},
		{"case-9", 1, "all"},
		{"all", -1, "case-9"},
		{"case-9", 0, "case-9"},
		{"gone", 1, "case-7"},
	}
	for _, tt := range tests {
		if got := cycleFilter(ps, tt.current, tt.dir); got != tt.want {
			t.Errorf("cycleFilter(%q, %d) = %q, want %q", tt.current, tt.dir, got, tt.want)
		}
	}
	if got := cycleFilter(nil, "all", 1); got != "all" {
		t.Errorf("no projects should stay on all, got %q", got)
	}
}

func TestRenderProjectBar(t *testing.T) {
	th := DefaultTheme(lipgloss.NewRenderer(io.Discard))
	ps := []model.Project{{ID: "case-7", Name: "Case 7"}, {ID: "case-9"}}

	bar := renderProjectBar(ps, "case-9", false, 80, th)
	for _, want := range []string{"all projects", "Case 7", "case-9"} {
		if !strings.Contains(bar, want) {
			t.Errorf("bar missing %q: %q", want, bar)
		}
	}
	// The active tab stays visible when the bar is cut.
	if narrow := renderProjectBar(ps, "case-9", false, 10, th); !strings.Contains(narrow, "case-9") {
		t.Errorf("narrow bar lost the active tab: %q", narrow)
	}
}

func TestNodeMarkdown(t *testing.T) {
	snap := testutil.CaseFixture()
	md := nodeMarkdown(snap, "n1", true)
	for _, want := range []string{"## Vikram Rao", "**Person**", "`n1`", "selected", "of 5 by PageRank", "| name | Vikram Rao |", "Relationships (3)", "→ `HAS_PHONE`"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if md := nodeMarkdown(snap, "n2", false); !strings.Contains(md, "← `CALLED` Vikram Rao") {
		t.Errorf("incoming edges should point back:\n%s", md)
	}
	if md := nodeMarkdown(snap, "missing", false); !strings.Contains(md, "No node") {
		t.Errorf("unknown node message missing: %s", md)
	}
}

func TestDetailPaneCaches(t *testing.T) {
	p := newDetailPane(40)
	snap := testutil.CaseFixture()
	first := p.render(snap, 1, "n1", false)
	if first == "" || p.render(snap, 1, "n1", false) != first {
		t.Error("identical input should reuse the rendered output")
	}
	if p.render(snap, 1, "n2", false) == first {
		t.Error("a different node should re-render")
	}
}

func TestDetailPaneRefreshedProperties(t *testing.T) {
	p := newDetailPane(40)
	before := testutil.CaseFixture()
	if out := p.render(before, 1, "n1", false); !strings.Contains(out, "Rao") {
		t.Fatalf("expected the original name:\n%s", out)
	}

	// Same ids and counts, edited property, committed under a new generation.
	after := testutil.CaseFixture()
	after.Nodes[1].Properties = map[string]any{"name": "Vikram Mehta", "project_id": "case-7"}
	out := p.render(after, 2, "n1", false)
	if !strings.Contains(out, "Mehta") || strings.Contains(out, "Rao") {
		t.Errorf("refreshed properties should re-render:\n%s", out)
	}
}

func TestCycleLabel(t *testing.T) {
	last := model.Labels[len(model.Labels)-1]
	tests := []struct {
		current model.Label
		dir     int
		want    model.Label
	}{
		{"", 1, model.Labels[0]},
		{model.Labels[0], 1, model.Labels[1]},
		{last, 1, ""},
		{"", -1, last},
		{model.Labels[0], -1, ""},
		{model.Label("Suspect"), 1, model.Labels[0]},
	}
	for _, tt := range tests {
		if got := cycleLabel(tt.current, tt.dir); got != tt.want {
			t.Errorf("cycleLabel(%q, %d) = %q, want %q", tt.current, tt.dir, got, tt.want)
		}
	}
}
