package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/casegraph/pkg/scene"
)

// Terminal cells are roughly twice as tall as wide; layout runs in pixel
// units, so each cell stands for this many pixels.
const (
	cellWidth  = 8
	cellHeight = 16
)

// labelAllBelow labels every node when the graph is small enough to stay
// readable.
const labelAllBelow = 30

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellEdgeDimmed
	cellEdge
	cellEdgeHot
	cellLabel
	cellNode
	cellCursor
	cellWide // right half of a wide rune
)

type cell struct {
	r      rune
	kind   cellKind
	class  string
	dimmed bool
}

// grid is a rasterized scene, one cell per terminal character.
type grid struct {
	cols, rows int
	cells      []cell
	// nodeAt maps node ids to their cell, for tests and hit checks.
	nodeAt map[string][2]int
}

func newGrid(cols, rows int) *grid {
	cols, rows = max(cols, 0), max(rows, 0)
	g := &grid{cols: cols, rows: rows, cells: make([]cell, cols*rows), nodeAt: make(map[string][2]int)}
	for i := range g.cells {
		g.cells[i].r = ' '
	}
	return g
}

func (g *grid) at(c, r int) *cell {
	if c < 0 || r < 0 || c >= g.cols || r >= g.rows {
		return nil
	}
	return &g.cells[r*g.cols+c]
}

// toCell maps scene coordinates to a cell, applying zoom.
func toCell(sc scene.Scene, x, y float64, cols, rows int) (int, int) {
	px, py := sc.Project(x, y)
	if sc.Width <= 0 || sc.Height <= 0 {
		return -1, -1
	}
	return int(math.Floor(px / sc.Width * float64(cols))), int(math.Floor(py / sc.Height * float64(rows)))
}

// edgeRune picks a line glyph for a segment slope in cell units.
func edgeRune(dc, dr int) rune {
	adx, ady := abs(dc), abs(dr)
	switch {
	case ady*2 <= adx:
		return '─'
	case adx*2 <= ady:
		return '│'
	case (dc > 0) == (dr > 0):
		return '╲'
	default:
		return '╱'
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// line draws a Bresenham segment, never overwriting nodes or labels and
// only upgrading weaker edge cells.
func (g *grid) line(c0, r0, c1, r1 int, kind cellKind) {
	glyph := edgeRune(c1-c0, r1-r0)
	dc, dr := abs(c1-c0), -abs(r1-r0)
	sc, sr := 1, 1
	if c0 > c1 {
		sc = -1
	}
	if r0 > r1 {
		sr = -1
	}
	e := dc + dr
	// Endpoints hold node glyphs; clip very long off-canvas segments.
	for steps := 0; steps < 4*(g.cols+g.rows)+8; steps++ {
		if cl := g.at(c0, r0); cl != nil && cl.kind < kind && cl.kind <= cellEdgeHot {
			cl.r, cl.kind = glyph, kind
		}
		if c0 == c1 && r0 == r1 {
			return
		}
		e2 := 2 * e
		if e2 >= dr {
			e += dr
			c0 += sc
		}
		if e2 <= dc {
			e += dc
			r0 += sr
		}
	}
}

// text writes s starting at (c, r) over empty and edge cells only.
func (g *grid) text(c, r int, s string) {
	for _, ch := range s {
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			continue
		}
		first, second := g.at(c, r), g.at(c+w-1, r)
		if first == nil || second == nil || first.kind >= cellLabel || second.kind >= cellLabel {
			return
		}
		first.r, first.kind = ch, cellLabel
		if w == 2 {
			second.r, second.kind = 0, cellWide
		}
		c += w
	}
}

func nodeGlyph(n scene.Node) rune {
	switch {
	case n.Selected:
		return '◉'
	case n.Dimmed:
		return '○'
	default:
		return '●'
	}
}

// rasterize lays the scene out on a cols×rows grid. cursor names the node
// under the keyboard cursor, if any.
func rasterize(sc scene.Scene, cols, rows int, cursor string) *grid {
	g := newGrid(cols, rows)
	if cols == 0 || rows == 0 {
		return g
	}

	// Weak edges first so highlighted ones win shared cells.
	for _, pass := range []cellKind{cellEdgeDimmed, cellEdge, cellEdgeHot} {
		for _, e := range sc.Edges {
			kind := cellEdge
			switch {
			case e.Highlighted:
				kind = cellEdgeHot
			case e.Opacity < 0.5:
				kind = cellEdgeDimmed
			}
			if kind != pass {
				continue
			}
			c0, r0 := toCell(sc, e.X1, e.Y1, cols, rows)
			c1, r1 := toCell(sc, e.X2, e.Y2, cols, rows)
			g.line(c0, r0, c1, r1, kind)
		}
	}

	labelAll := len(sc.Nodes) <= labelAllBelow
	for _, n := range sc.Nodes {
		c, r := toCell(sc, n.X, n.Y, cols, rows)
		cl := g.at(c, r)
		if cl == nil {
			continue
		}
		cl.r, cl.kind, cl.class, cl.dimmed = nodeGlyph(n), cellNode, n.StyleClass, n.Dimmed
		if n.ID == cursor {
			cl.kind = cellCursor
		}
		g.nodeAt[n.ID] = [2]int{c, r}
	}
	for _, n := range sc.Nodes {
		pos, ok := g.nodeAt[n.ID]
		if !ok || n.LabelText == "" {
			continue
		}
		if n.Selected || n.ID == cursor || (labelAll && !n.Dimmed) || (sc.Summary.Selected != "" && !n.Dimmed) {
			g.text(pos[0]+2, pos[1], n.LabelText)
		}
	}
	return g
}

// plain returns the grid as unstyled text, one line per row.
func (g *grid) plain() []string {
	lines := make([]string, g.rows)
	var sb strings.Builder
	for r := 0; r < g.rows; r++ {
		sb.Reset()
		for c := 0; c < g.cols; c++ {
			if cl := g.cells[r*g.cols+c]; cl.kind != cellWide {
				sb.WriteRune(cl.r)
			}
		}
		lines[r] = sb.String()
	}
	return lines
}

func (t Theme) cellStyle(cl cell) lipgloss.Style {
	switch cl.kind {
	case cellEdgeDimmed:
		return t.EdgeDimmed
	case cellEdge:
		return t.EdgeNormal
	case cellEdgeHot:
		return t.EdgeHot
	case cellLabel:
		return t.NodeLabel
	case cellNode:
		return t.NodeStyle(cl.class, cl.dimmed)
	case cellCursor:
		return t.Cursor.Inherit(t.NodeStyle(cl.class, false))
	default:
		return t.Renderer.NewStyle()
	}
}

// render styles the grid, batching runs of identically styled cells.
func (g *grid) render(t Theme) string {
	var out strings.Builder
	var run strings.Builder
	for r := 0; r < g.rows; r++ {
		if r > 0 {
			out.WriteByte('\n')
		}
		var prev cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if prev.kind == cellEmpty {
				out.WriteString(run.String())
			} else {
				out.WriteString(t.cellStyle(prev).Render(run.String()))
			}
			run.Reset()
		}
		for c := 0; c < g.cols; c++ {
			cl := g.cells[r*g.cols+c]
			if cl.kind == cellWide {
				continue
			}
			if run.Len() > 0 && (cl.kind != prev.kind || cl.class != prev.class || cl.dimmed != prev.dimmed) {
				flush()
			}
			prev = cl
			run.WriteRune(cl.r)
		}
		flush()
	}
	return out.String()
}
