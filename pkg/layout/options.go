package layout

import "math"

// Default simulation constants.
const (
	DefaultIterations   = 80
	DefaultRepulsion    = 5000.0
	DefaultAttraction   = 0.005
	DefaultGravity      = 0.01
	DefaultDamping      = 0.85
	DefaultMargin       = 40.0
	DefaultRadiusFactor = 0.38

	// FallbackWidth and FallbackHeight replace unusable canvas dimensions.
	FallbackWidth  = 800.0
	FallbackHeight = 600.0

	// InteractiveNodeLimit is the node count up to which a full layout is
	// expected to finish well inside an interactive frame budget (~300ms).
	InteractiveNodeLimit = 500
)

// Options tunes the force simulation. Zero-valued fields fall back to the
// package defaults.
type Options struct {
	Iterations   int
	Repulsion    float64
	Attraction   float64
	Gravity      float64
	Damping      float64
	Margin       float64
	RadiusFactor float64
}

// DefaultOptions returns the standard simulation constants.
func DefaultOptions() Options {
	return Options{
		Iterations:   DefaultIterations,
		Repulsion:    DefaultRepulsion,
		Attraction:   DefaultAttraction,
		Gravity:      DefaultGravity,
		Damping:      DefaultDamping,
		Margin:       DefaultMargin,
		RadiusFactor: DefaultRadiusFactor,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Iterations <= 0 {
		o.Iterations = d.Iterations
	}
	if !usable(o.Repulsion) {
		o.Repulsion = d.Repulsion
	}
	if !usable(o.Attraction) {
		o.Attraction = d.Attraction
	}
	if !usable(o.Gravity) {
		o.Gravity = d.Gravity
	}
	if !usable(o.Damping) || o.Damping >= 1 {
		o.Damping = d.Damping
	}
	if !usable(o.Margin) {
		o.Margin = d.Margin
	}
	if !usable(o.RadiusFactor) {
		o.RadiusFactor = d.RadiusFactor
	}
	return o
}

// IsInteractive reports whether a graph of n nodes is within the interactive
// layout ceiling.
func IsInteractive(n int) bool {
	return n <= InteractiveNodeLimit
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
