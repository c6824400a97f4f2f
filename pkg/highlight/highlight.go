// Package highlight derives render emphasis from the current node selection:
// which nodes and edges stay bright, which are dimmed and which edges show
// their relationship label.
package highlight

import (
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Edge opacities.
const (
	OpacityHighlighted = 0.9
	OpacityDimmed      = 0.06
	OpacityIdle        = 0.25
)

// Selection is at most one selected node id.
type Selection struct {
	id     string
	active bool
}

// None returns the empty selection.
func None() Selection { return Selection{} }

// Of returns a selection of id.
func Of(id string) Selection { return Selection{id: id, active: true} }

// ID returns the selected id and whether anything is selected.
func (s Selection) ID() (string, bool) { return s.id, s.active }

// Active reports whether a node is selected.
func (s Selection) Active() bool { return s.active }

// Toggle returns the selection after the user clicks nodeID: clicking the
// selected node clears it, any other node replaces it.
func Toggle(current Selection, nodeID string) Selection {
	if current.active && current.id == nodeID {
		return None()
	}
	return Of(nodeID)
}

// Hints is the emphasis derived for one snapshot and selection. Edge slices
// are indexed like snapshot.Edges.
type Hints struct {
	// Selected is the effective selection; empty when the selection is
	// none or refers to a node outside the snapshot.
	Selected string

	HighlightedNodes map[string]bool
	DimmedNodes      map[string]bool

	ConnectedEdges  []int
	EdgeHighlighted []bool
	EdgeDimmed      []bool
	EdgeOpacity     []float64
	EdgeLabel       []bool
}

// HasSelection reports whether the hints were derived from an active,
// present selection.
func (h Hints) HasSelection() bool { return h.Selected != "" }

// NodeDimmed reports whether id should be drawn dimmed.
func (h Hints) NodeDimmed(id string) bool { return h.DimmedNodes[id] }

// NodeHighlighted reports whether id is the selection or one of its
// neighbours.
func (h Hints) NodeHighlighted(id string) bool { return h.HighlightedNodes[id] }

// Derive computes hints for snap under sel. Dangling edges never count as
// connections. A selection whose node is absent derives exactly like none.
func Derive(snap model.Snapshot, sel Selection) Hints {
	defer metrics.Timer(metrics.HighlightDerive)()

	index := snap.NodeIndex()
	h := Hints{
		HighlightedNodes: map[string]bool{},
		DimmedNodes:      map[string]bool{},
		EdgeHighlighted:  make([]bool, len(snap.Edges)),
		EdgeDimmed:       make([]bool, len(snap.Edges)),
		EdgeOpacity:      make([]float64, len(snap.Edges)),
		EdgeLabel:        make([]bool, len(snap.Edges)),
	}

	id, ok := sel.ID()
	if _, present := index[id]; !ok || !present {
		for i := range snap.Edges {
			h.EdgeOpacity[i] = OpacityIdle
		}
		return h
	}

	h.Selected = id
	h.HighlightedNodes[id] = true
	for i, e := range snap.Edges {
		if e.Dangling(index) || !e.Touches(id) {
			continue
		}
		h.ConnectedEdges = append(h.ConnectedEdges, i)
		h.HighlightedNodes[e.Other(id)] = true
	}

	for i := range snap.Edges {
		h.EdgeDimmed[i] = true
		h.EdgeOpacity[i] = OpacityDimmed
	}
	for _, i := range h.ConnectedEdges {
		h.EdgeHighlighted[i] = true
		h.EdgeDimmed[i] = false
		h.EdgeOpacity[i] = OpacityHighlighted
		h.EdgeLabel[i] = true
	}
	for _, n := range snap.Nodes {
		if !h.HighlightedNodes[n.ID] {
			h.DimmedNodes[n.ID] = true
		}
	}
	return h
}
