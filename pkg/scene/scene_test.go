package scene

import (
	"math"
	"testing"

	"github.com/vanderheijden86/casegraph/pkg/highlight"
	"github.com/vanderheijden86/casegraph/pkg/layout"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
)

func buildFixture(t *testing.T, sel highlight.Selection) (model.Snapshot, Scene) {
	t.Helper()
	snap := testutil.WithDangling(testutil.CaseFixture(), "n4")
	pos := layout.Compute(snap, 800, 600, layout.DefaultOptions())
	sc := Build(Input{
		Snapshot:  snap,
		Positions: pos,
		Hints:     highlight.Derive(snap, sel),
		Width:     800,
		Height:    600,
		Zoom:      1,
		Title:     "Case 7",
	})
	return snap, sc
}

func TestBuildSummary(t *testing.T) {
	_, sc := buildFixture(t, highlight.None())
	want := Summary{NodeCount: 5, EdgeCount: 5, DanglingEdges: 1, Components: 1, Title: "Case 7"}
	if sc.Summary != want {
		t.Errorf("summary = %+v, want %+v", sc.Summary, want)
	}
	for _, e := range sc.Edges {
		if e.Target == "ghost" {
			t.Error("dangling edge must not be drawn")
		}
		if e.LabelText != "" {
			t.Errorf("edge %s->%s shows a label without selection", e.Source, e.Target)
		}
	}
}

func TestBuildSelection(t *testing.T) {
	_, sc := buildFixture(t, highlight.Of("n1"))

	n1, ok := sc.Node("n1")
	if !ok {
		t.Fatal("n1 missing from scene")
	}
	if !n1.Selected || n1.Dimmed {
		t.Errorf("n1 should be selected and bright: %+v", n1)
	}
	// n1 has three non-dangling edges.
	if n1.Radius != BaseRadius+3*RadiusPerEdge+SelectedBoost {
		t.Errorf("unexpected radius %v", n1.Radius)
	}
	if n4, _ := sc.Node("n4"); !n4.Dimmed {
		t.Error("n4 is not a neighbour of n1 and should be dimmed")
	}
	if sc.Summary.Selected != "n1" {
		t.Errorf("summary selected = %q", sc.Summary.Selected)
	}

	labelled := 0
	for _, e := range sc.Edges {
		if e.Highlighted {
			labelled++
			if e.LabelText == "" || e.Opacity != highlight.OpacityHighlighted {
				t.Errorf("highlighted edge missing label or opacity: %+v", e)
			}
		} else if e.Opacity != highlight.OpacityDimmed {
			t.Errorf("non-highlighted edge opacity %v", e.Opacity)
		}
	}
	if labelled != 3 {
		t.Errorf("expected 3 highlighted edges, got %d", labelled)
	}
}

func TestBuildEmpty(t *testing.T) {
	sc := Build(Input{Snapshot: model.EmptySnapshot(), Positions: layout.Positions{}, Width: 0, Height: 0})
	if len(sc.Nodes) != 0 || len(sc.Edges) != 0 {
		t.Errorf("expected empty scene, got %d nodes %d edges", len(sc.Nodes), len(sc.Edges))
	}
	if sc.Width != layout.FallbackWidth || sc.Zoom != MinZoom {
		t.Errorf("unexpected canvas %vx%v zoom %v", sc.Width, sc.Height, sc.Zoom)
	}
}

func TestStyleClasses(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{NodeClass(model.LabelPhoneNumber), "node-phone-number"},
		{NodeClass(model.LabelURL), "node-url"},
		{NodeClass("Spaceship"), "node-unknown"},
		{EdgeClass(model.RelBelongsToOrg), "edge-belongs-to-org"},
		{EdgeClass(""), "edge-unknown"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestRadius(t *testing.T) {
	if Radius(0, false) != 6 {
		t.Error("isolated node radius should be 6")
	}
	if Radius(20, false) != Radius(MaxRadiusEdges, false) {
		t.Error("radius should cap at MaxRadiusEdges")
	}
	if Radius(2, true) != 6+3+3 {
		t.Errorf("selected radius = %v", Radius(2, true))
	}
}

func TestLabelText(t *testing.T) {
	if got := LabelText("Vikram Rao"); got != "Vikram Rao" {
		t.Errorf("short names are kept, got %q", got)
	}
	if got := LabelText("https://example.org/login"); got != "https://exampl…" {
		t.Errorf("got %q", got)
	}
	if got := LabelText("ननननननननननननननन"); len([]rune(got)) != MaxLabelRunes+1 {
		t.Errorf("truncation must count runes, got %q", got)
	}
}

func TestClampZoomAndProject(t *testing.T) {
	tests := map[float64]float64{0.01: MinZoom, 1: 1, 9: MaxZoom, math.NaN(): 1, math.Inf(1): 1}
	for in, want := range tests {
		if got := ClampZoom(in); got != want {
			t.Errorf("ClampZoom(%v) = %v, want %v", in, got, want)
		}
	}

	sc := Scene{Width: 800, Height: 600, Zoom: 2}
	x, y := sc.Project(500, 300)
	if x != 600 || y != 300 {
		t.Errorf("Project = (%v, %v), want (600, 300)", x, y)
	}
	x, y = sc.Project(400, 300)
	if x != 400 || y != 300 {
		t.Error("the center must be a fixed point of zoom")
	}
}
