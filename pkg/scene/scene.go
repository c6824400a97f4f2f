// Package scene assembles the renderer input: positioned, styled nodes and
// edges plus a summary, built from a snapshot, its layout and the current
// highlight hints.
package scene

import (
	"math"

	"github.com/vanderheijden86/casegraph/pkg/analysis"
	"github.com/vanderheijden86/casegraph/pkg/highlight"
	"github.com/vanderheijden86/casegraph/pkg/layout"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Zoom bounds.
const (
	MinZoom = 0.2
	MaxZoom = 5.0
)

// Node sizing and labelling.
const (
	BaseRadius     = 6.0
	RadiusPerEdge  = 1.5
	MaxRadiusEdges = 8
	SelectedBoost  = 3.0
	MaxLabelRunes  = 14
)

// Node is a positioned, styled entity.
type Node struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Radius     float64 `json:"radius"`
	StyleClass string  `json:"style_class"`
	LabelText  string  `json:"label_text"`
	Dimmed     bool    `json:"dimmed"`
	Selected   bool    `json:"selected,omitempty"`
}

// Edge is a positioned, styled relationship. LabelText is only set while
// the edge is highlighted.
type Edge struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	StyleClass  string  `json:"style_class"`
	Opacity     float64 `json:"opacity"`
	Highlighted bool    `json:"highlighted"`
	LabelText   string  `json:"label_text,omitempty"`
}

// Summary describes the whole scene for headers and status bars.
type Summary struct {
	NodeCount     int    `json:"node_count"`
	EdgeCount     int    `json:"edge_count"`
	DanglingEdges int    `json:"dangling_edges"`
	Components    int    `json:"components"`
	Selected      string `json:"selected,omitempty"`
	Title         string `json:"title"`
}

// Scene is the complete renderer input.
type Scene struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Zoom    float64 `json:"zoom"`
	Nodes   []Node  `json:"nodes"`
	Edges   []Edge  `json:"edges"`
	Summary Summary `json:"summary"`
}

// Input bundles what Build needs.
type Input struct {
	Snapshot  model.Snapshot
	Positions layout.Positions
	Hints     highlight.Hints
	Width     float64
	Height    float64
	Zoom      float64
	Title     string
}

// ClampZoom bounds z to [MinZoom, MaxZoom]. Non-finite values reset to 1.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 1
	}
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// Build assembles a scene. Nodes keep snapshot order; dangling edges are left
// out and only counted in the summary.
func Build(in Input) Scene {
	defer metrics.Timer(metrics.SceneBuild)()

	size := layout.Canvas(in.Width, in.Height)
	center := size.Center()
	g := analysis.Build(in.Snapshot)

	sc := Scene{
		Width:  size.Width,
		Height: size.Height,
		Zoom:   ClampZoom(in.Zoom),
		Nodes:  make([]Node, 0, len(in.Snapshot.Nodes)),
		Edges:  make([]Edge, 0, len(in.Snapshot.Edges)),
	}

	seen := make(map[string]bool, len(in.Snapshot.Nodes))
	for _, n := range in.Snapshot.Nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		p, ok := in.Positions[n.ID]
		if !ok {
			p = center
		}
		selected := in.Hints.Selected == n.ID
		sc.Nodes = append(sc.Nodes, Node{
			ID:         n.ID,
			X:          p.X,
			Y:          p.Y,
			Radius:     Radius(g.Degree(n.ID), selected),
			StyleClass: NodeClass(n.Label),
			LabelText:  LabelText(n.DisplayName()),
			Dimmed:     in.Hints.NodeDimmed(n.ID),
			Selected:   selected,
		})
	}

	index := in.Snapshot.NodeIndex()
	for i, e := range in.Snapshot.Edges {
		if e.Dangling(index) {
			continue
		}
		a, b := in.Positions[e.Source], in.Positions[e.Target]
		edge := Edge{
			Source:      e.Source,
			Target:      e.Target,
			X1:          a.X,
			Y1:          a.Y,
			X2:          b.X,
			Y2:          b.Y,
			StyleClass:  EdgeClass(e.Type),
			Opacity:     highlight.OpacityIdle,
			Highlighted: hintAt(in.Hints.EdgeHighlighted, i),
		}
		if i < len(in.Hints.EdgeOpacity) {
			edge.Opacity = in.Hints.EdgeOpacity[i]
		}
		if hintAt(in.Hints.EdgeLabel, i) {
			edge.LabelText = string(e.Type)
		}
		sc.Edges = append(sc.Edges, edge)
	}

	sc.Summary = Summary{
		NodeCount:     len(sc.Nodes),
		EdgeCount:     len(sc.Edges),
		DanglingEdges: g.DanglingEdges(),
		Components:    len(g.Components()),
		Selected:      in.Hints.Selected,
		Title:         in.Title,
	}
	return sc
}

func hintAt(v []bool, i int) bool {
	return i < len(v) && v[i]
}

// Project maps layout coordinates to view coordinates by scaling about the
// canvas center.
func (s Scene) Project(x, y float64) (float64, float64) {
	cx, cy := s.Width/2, s.Height/2
	z := s.Zoom
	if z == 0 {
		z = 1
	}
	return cx + (x-cx)*z, cy + (y-cy)*z
}

// Node returns the scene node with the given id.
func (s Scene) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Radius sizes a node by its degree, capped at MaxRadiusEdges, with a boost
// for the selected node.
func Radius(degree int, selected bool) float64 {
	r := BaseRadius + RadiusPerEdge*float64(min(max(degree, 0), MaxRadiusEdges))
	if selected {
		r += SelectedBoost
	}
	return r
}

// NodeClass returns the style class for a label, node-unknown outside the
// closed label set.
func NodeClass(l model.Label) string {
	return "node-" + model.Kebab(string(l.Normalize()))
}

// EdgeClass returns the style class for a relationship type.
func EdgeClass(t model.RelType) string {
	if t == "" {
		return "edge-unknown"
	}
	return "edge-" + model.Kebab(string(t))
}

// LabelText truncates a display name to MaxLabelRunes runes plus an
// ellipsis.
func LabelText(name string) string {
	r := []rune(name)
	if len(r) <= MaxLabelRunes {
		return name
	}
	return string(r[:MaxLabelRunes]) + "…"
}
