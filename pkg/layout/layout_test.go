package layout

import (
	"fmt"
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
)

func inCanvas(t *testing.T, id string, p Point, w, h, margin float64) {
	t.Helper()
	testutil.AssertFinite(t, id+".x", p.X)
	testutil.AssertFinite(t, id+".y", p.Y)
	if p.X < margin || p.X > w-margin || p.Y < margin || p.Y > h-margin {
		t.Errorf("%s at (%.2f, %.2f) outside [%.0f, %.0f]x[%.0f, %.0f]", id, p.X, p.Y, margin, w-margin, margin, h-margin)
	}
}

func TestComputeEmpty(t *testing.T) {
	pos := Compute(model.EmptySnapshot(), 800, 600, DefaultOptions())
	if len(pos) != 0 {
		t.Fatalf("expected empty positions, got %d", len(pos))
	}
}

func TestComputeSingleNode(t *testing.T) {
	snap := testutil.Single()
	pos := Compute(snap, 800, 600, DefaultOptions())
	if len(pos) != 1 {
		t.Fatalf("expected 1 position, got %d", len(pos))
	}
	inCanvas(t, "n0", pos[snap.Nodes[0].ID], 800, 600, DefaultMargin)
}

func TestComputeDanglingEdgeIgnored(t *testing.T) {
	base := model.Snapshot{
		Nodes: []model.Node{{ID: "A", Label: model.LabelPerson}, {ID: "B", Label: model.LabelDevice}},
		Edges: []model.Edge{{Source: "A", Target: "B", Type: model.RelOwnsDevice}},
	}
	withGhost := testutil.WithDangling(base, "A")

	got := Compute(withGhost, 800, 600, DefaultOptions())
	want := Compute(base, 800, 600, DefaultOptions())

	testutil.AssertKeysMatch(t, base, got)
	if _, ok := got["ghost"]; ok {
		t.Error("dangling target must not receive a position")
	}
	for id, p := range want {
		if got[id] != p {
			t.Errorf("dangling edge changed %s: %v vs %v", id, got[id], p)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	snap := testutil.QuickRandom(60, 0.05)
	a := Compute(snap, 1024, 768, DefaultOptions())
	b := Compute(snap, 1024, 768, DefaultOptions())
	for id, p := range a {
		if b[id] != p {
			t.Fatalf("position for %s differs between runs: %v vs %v", id, p, b[id])
		}
	}
}

func TestComputeBadDimensionsFallback(t *testing.T) {
	snap := testutil.QuickStar(4)
	want := Compute(snap, FallbackWidth, FallbackHeight, DefaultOptions())

	tests := []struct {
		name string
		w, h float64
	}{
		{"zero", 0, 0},
		{"negative", -10, 400},
		{"nan", math.NaN(), 600},
		{"inf", 800, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(snap, tt.w, tt.h, DefaultOptions())
			for id, p := range want {
				if got[id] != p {
					t.Errorf("%s: expected fallback layout, %v vs %v", id, got[id], p)
				}
			}
		})
	}
}

func TestComputeTinyCanvasCollapses(t *testing.T) {
	snap := testutil.QuickChain(3)
	pos := Compute(snap, 50, 300, DefaultOptions())
	for id, p := range pos {
		if p.X != 25 {
			t.Errorf("%s: expected x collapsed to 25, got %v", id, p.X)
		}
		if p.Y < DefaultMargin || p.Y > 300-DefaultMargin {
			t.Errorf("%s: y %v outside margins", id, p.Y)
		}
	}
}

func TestComputeCoincidentNodesSeparate(t *testing.T) {
	snap := testutil.QuickChain(2)
	// Zero radius factor seeds every node at the center.
	opts := DefaultOptions()
	opts.RadiusFactor = 1e-300
	pos := Compute(snap, 800, 600, opts)
	a, b := pos[snap.Nodes[0].ID], pos[snap.Nodes[1].ID]
	if a == b {
		t.Fatalf("coincident nodes were not pushed apart: %v", a)
	}
}

func TestComputeEdgesPullTogether(t *testing.T) {
	gen := testutil.NewDefault()
	free := gen.ToSnapshot(gen.Disconnected(2, 1))
	linked := model.Snapshot{
		Nodes: free.Nodes,
		Edges: []model.Edge{{Source: free.Nodes[0].ID, Target: free.Nodes[1].ID, Type: model.RelCalled}},
	}
	dist := func(p Positions) float64 {
		a, b := p[free.Nodes[0].ID], p[free.Nodes[1].ID]
		return math.Hypot(a.X-b.X, a.Y-b.Y)
	}
	dFree := dist(Compute(free, 800, 600, DefaultOptions()))
	dLinked := dist(Compute(linked, 800, 600, DefaultOptions()))
	if dLinked >= dFree {
		t.Errorf("expected linked nodes closer than free ones: %.2f vs %.2f", dLinked, dFree)
	}
}

func TestComputeDuplicateIDsFirstWins(t *testing.T) {
	snap := model.Snapshot{Nodes: []model.Node{{ID: "a"}, {ID: "b"}, {ID: "a"}}}
	pos := Compute(snap, 800, 600, DefaultOptions())
	if len(pos) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(pos))
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	got := Options{Repulsion: 100, Damping: 1.5, Gravity: math.NaN()}.withDefaults()
	if got.Repulsion != 100 {
		t.Errorf("explicit repulsion should be kept, got %v", got.Repulsion)
	}
	if got.Damping != DefaultDamping {
		t.Errorf("damping >= 1 should fall back, got %v", got.Damping)
	}
	if got.Gravity != DefaultGravity {
		t.Errorf("NaN gravity should fall back, got %v", got.Gravity)
	}
	if got.Iterations != DefaultIterations {
		t.Errorf("zero iterations should fall back, got %d", got.Iterations)
	}
}

func TestIsInteractive(t *testing.T) {
	if !IsInteractive(InteractiveNodeLimit) || IsInteractive(InteractiveNodeLimit+1) {
		t.Error("IsInteractive boundary mismatch")
	}
}

func TestBounds(t *testing.T) {
	p := Positions{"a": {X: 10, Y: 50}, "b": {X: 30, Y: 20}}
	lo, hi := p.Bounds()
	if lo != (Point{10, 20}) || hi != (Point{30, 50}) {
		t.Errorf("unexpected bounds %v %v", lo, hi)
	}
}

func snapshotGen() *rapid.Generator[model.Snapshot] {
	return rapid.Custom(func(t *rapid.T) model.Snapshot {
		n := rapid.IntRange(0, 40).Draw(t, "nodes")
		snap := model.Snapshot{}
		for i := 0; i < n; i++ {
			snap.Nodes = append(snap.Nodes, model.Node{ID: fmt.Sprintf("n%d", i), Label: model.LabelPerson})
		}
		m := rapid.IntRange(0, 60).Draw(t, "edges")
		for i := 0; i < m; i++ {
			// Indexes past n produce dangling edges on purpose.
			s := rapid.IntRange(0, n+2).Draw(t, "src")
			d := rapid.IntRange(0, n+2).Draw(t, "dst")
			snap.Edges = append(snap.Edges, model.Edge{
				Source: fmt.Sprintf("n%d", s),
				Target: fmt.Sprintf("n%d", d),
				Type:   model.RelMessaged,
			})
		}
		return snap
	})
}

func TestComputeProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		snap := snapshotGen().Draw(rt, "snap")
		w := rapid.Float64Range(100, 2000).Draw(rt, "w")
		h := rapid.Float64Range(100, 2000).Draw(rt, "h")

		pos := Compute(snap, w, h, DefaultOptions())
		if len(pos) != len(snap.Nodes) {
			rt.Fatalf("expected %d positions, got %d", len(snap.Nodes), len(pos))
		}
		for _, n := range snap.Nodes {
			p, ok := pos[n.ID]
			if !ok {
				rt.Fatalf("missing position for %s", n.ID)
			}
			if math.IsNaN(p.X) || math.IsNaN(p.Y) {
				rt.Fatalf("NaN position for %s", n.ID)
			}
			if p.X < DefaultMargin || p.X > w-DefaultMargin || p.Y < DefaultMargin || p.Y > h-DefaultMargin {
				rt.Fatalf("%s at %v outside canvas %.0fx%.0f", n.ID, p, w, h)
			}
		}

		again := Compute(snap, w, h, DefaultOptions())
		for id, p := range pos {
			if again[id] != p {
				rt.Fatalf("non-deterministic position for %s", id)
			}
		}
	})
}

func TestComputeInteractiveBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}
	snap := testutil.QuickRandom(200, 0.01)
	start := time.Now()
	Compute(snap, 1200, 800, DefaultOptions())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("200-node layout took %v", elapsed)
	}
}

func BenchmarkComputeInteractiveLimit(b *testing.B) {
	snap := testutil.QuickRandom(InteractiveNodeLimit, 0.004)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(snap, 1600, 1000, DefaultOptions())
	}
}

func BenchmarkCompute100(b *testing.B) {
	snap := testutil.QuickRandom(100, 0.02)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(snap, 800, 600, DefaultOptions())
	}
}
