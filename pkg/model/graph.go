// Package model defines the entity graph shared by every casegraph component:
// nodes, typed relationships, immutable snapshots and case projects.
package model

import (
	"fmt"
	"strings"
)

// Node is an entity vertex in the relationship graph.
type Node struct {
	ID         string         `json:"id"`
	Label      Label          `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge is a directed, typed relationship between two nodes. ID is the
// store's relationship id when it has one.
type Edge struct {
	ID         string         `json:"id,omitempty"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       RelType        `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Snapshot is a node and edge set fetched at one point in time. Snapshots are
// treated as immutable once produced; a new fetch replaces the whole value.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// EmptySnapshot returns a snapshot with no nodes and no edges. The slices are
// non-nil so the wire form is {"nodes":[],"edges":[]}.
func EmptySnapshot() Snapshot {
	return Snapshot{Nodes: []Node{}, Edges: []Edge{}}
}

// NodeCount returns the number of nodes.
func (s Snapshot) NodeCount() int { return len(s.Nodes) }

// EdgeCount returns the number of edges, dangling ones included.
func (s Snapshot) EdgeCount() int { return len(s.Edges) }

// IsEmpty reports whether the snapshot has no nodes.
func (s Snapshot) IsEmpty() bool { return len(s.Nodes) == 0 }

// NodeIndex maps node ids to their position in Nodes. When ids repeat the
// first occurrence wins.
func (s Snapshot) NodeIndex() map[string]int {
	idx := make(map[string]int, len(s.Nodes))
	for i, n := range s.Nodes {
		if _, ok := idx[n.ID]; !ok {
			idx[n.ID] = i
		}
	}
	return idx
}

// Node returns the node with the given id.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode reports whether id is part of the snapshot.
func (s Snapshot) HasNode(id string) bool {
	_, ok := s.Node(id)
	return ok
}

// Dangling reports whether e references a node id missing from index.
func (e Edge) Dangling(index map[string]int) bool {
	_, okS := index[e.Source]
	_, okT := index[e.Target]
	return !okS || !okT
}

// Touches reports whether id is either endpoint of e.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Other returns the endpoint of e that is not id. For self-loops it returns id.
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// Dedupe returns a copy of s with repeated node ids removed (first occurrence
// wins). Edges are kept as-is, dangling ones included.
func (s Snapshot) Dedupe() Snapshot {
	out := Snapshot{
		Nodes: make([]Node, 0, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
	}
	seen := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out.Nodes = append(out.Nodes, n)
	}
	copy(out.Edges, s.Edges)
	return out
}

// Validate checks structural well-formedness: non-empty, unique node ids and
// non-empty edge endpoints. Dangling edges are legal and are not reported.
func (s Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Nodes))
	for i, n := range s.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("node %d: empty id", i)
		}
		if seen[n.ID] {
			return fmt.Errorf("node %d: duplicate id %q", i, n.ID)
		}
		seen[n.ID] = true
	}
	for i, e := range s.Edges {
		if e.Source == "" || e.Target == "" {
			return fmt.Errorf("edge %d: empty endpoint", i)
		}
	}
	return nil
}
