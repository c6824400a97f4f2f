// Package layout computes 2D node positions for an entity graph with a
// deterministic force-directed simulation.
//
// Every node repels every other node (inverse square), every edge pulls its
// endpoints together (linear spring) and a weak gravity keeps the graph near
// the canvas center. Positions are clamped to the canvas minus a margin after
// each step.
package layout

import (
	"math"
	"time"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Point is a position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Positions maps node ids to their computed location. It always holds
// exactly the node ids of the snapshot it was computed for.
type Positions map[string]Point

// Size is a usable canvas size.
type Size struct {
	Width  float64
	Height float64
}

// Center returns the canvas midpoint.
func (s Size) Center() Point {
	return Point{X: s.Width / 2, Y: s.Height / 2}
}

// Canvas sanitizes raw canvas dimensions. Non-positive or non-finite values
// fall back to FallbackWidth x FallbackHeight.
func Canvas(width, height float64) Size {
	if !usable(width) || !usable(height) {
		return Size{Width: FallbackWidth, Height: FallbackHeight}
	}
	return Size{Width: width, Height: height}
}

type body struct {
	pos, vel, force Point
}

// Compute lays out snap on a width x height canvas. Dangling edges are
// ignored. The result is bit-for-bit deterministic for identical inputs.
func Compute(snap model.Snapshot, width, height float64, opts Options) Positions {
	defer metrics.Timer(metrics.LayoutCompute)()
	start := time.Now()

	opts = opts.withDefaults()
	size := Canvas(width, height)

	ids := make([]string, 0, len(snap.Nodes))
	index := make(map[string]int, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if _, dup := index[n.ID]; dup {
			continue
		}
		index[n.ID] = len(ids)
		ids = append(ids, n.ID)
	}
	if len(ids) == 0 {
		return Positions{}
	}

	springs := make([][2]int, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		s, okS := index[e.Source]
		t, okT := index[e.Target]
		if !okS || !okT || s == t {
			continue
		}
		springs = append(springs, [2]int{s, t})
	}

	bodies := seed(len(ids), size, opts)
	center := size.Center()
	for it := 0; it < opts.Iterations; it++ {
		step(bodies, springs, center, size, opts)
	}

	out := make(Positions, len(ids))
	for i, id := range ids {
		out[id] = bodies[i].pos
	}
	debug.LogTiming("layout.Compute", time.Since(start))
	return out
}

// seed places node i at angle 2πi/n on a circle around the canvas center.
func seed(n int, size Size, opts Options) []body {
	bodies := make([]body, n)
	center := size.Center()
	radius := opts.RadiusFactor * math.Min(size.Width, size.Height)
	for i := range bodies {
		angle := 2 * math.Pi * float64(i) / float64(n)
		bodies[i].pos = Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return bodies
}

func step(bodies []body, springs [][2]int, center Point, size Size, opts Options) {
	for i := range bodies {
		bodies[i].force = Point{}
	}

	// Repulsion between every unordered pair. Coincident nodes are pushed
	// apart along +x, as if they were one unit apart.
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			dx := bodies[j].pos.X - bodies[i].pos.X
			dy := bodies[j].pos.Y - bodies[i].pos.Y
			d := math.Sqrt(dx*dx + dy*dy)
			if d == 0 {
				d, dx, dy = 1, 1, 0
			}
			f := opts.Repulsion / (d * d)
			fx, fy := f*dx/d, f*dy/d
			bodies[j].force.X += fx
			bodies[j].force.Y += fy
			bodies[i].force.X -= fx
			bodies[i].force.Y -= fy
		}
	}

	for _, sp := range springs {
		a, b := &bodies[sp[0]], &bodies[sp[1]]
		dx := b.pos.X - a.pos.X
		dy := b.pos.Y - a.pos.Y
		d := math.Sqrt(dx*dx + dy*dy)
		if d == 0 {
			continue
		}
		f := opts.Attraction * d
		fx, fy := f*dx/d, f*dy/d
		a.force.X += fx
		a.force.Y += fy
		b.force.X -= fx
		b.force.Y -= fy
	}

	for i := range bodies {
		b := &bodies[i]
		b.force.X += opts.Gravity * (center.X - b.pos.X)
		b.force.Y += opts.Gravity * (center.Y - b.pos.Y)

		b.vel.X += b.force.X
		b.vel.Y += b.force.Y
		b.pos.X += b.vel.X
		b.pos.Y += b.vel.Y
		b.vel.X *= opts.Damping
		b.vel.Y *= opts.Damping

		b.pos.X = clamp(b.pos.X, opts.Margin, size.Width, center.X)
		b.pos.Y = clamp(b.pos.Y, opts.Margin, size.Height, center.Y)
		if !finite(b.vel.X) || !finite(b.vel.Y) {
			b.vel = Point{}
		}
	}
}

// clamp bounds v to [margin, dim-margin]. When the canvas is narrower than
// two margins the range collapses to its midpoint.
func clamp(v, margin, dim, mid float64) float64 {
	if !finite(v) {
		return mid
	}
	lo, hi := margin, dim-margin
	if hi < lo {
		return dim / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Bounds returns the bounding box of p. Empty positions yield a zero box.
func (p Positions) Bounds() (min, max Point) {
	first := true
	for _, pt := range p {
		if first {
			min, max = pt, pt
			first = false
			continue
		}
		min.X = math.Min(min.X, pt.X)
		min.Y = math.Min(min.Y, pt.Y)
		max.X = math.Max(max.X, pt.X)
		max.Y = math.Max(max.Y, pt.Y)
	}
	return min, max
}
