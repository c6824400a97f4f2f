// Package testutil provides snapshot fixture generators for various graph
// topologies. All generators produce deterministic output for reproducible
// tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// GraphFixture is an abstract graph: node names plus index pairs.
type GraphFixture struct {
	Description string   `json:"description"`
	Nodes       []string `json:"nodes"`
	Edges       [][2]int `json:"edges"` // [source_idx, target_idx]
	Connected   bool     `json:"connected,omitempty"`
}

// GeneratorConfig controls snapshot generation.
type GeneratorConfig struct {
	Seed       int64           // Random seed for determinism (0 = fixed default)
	IDPrefix   string          // Prefix for node ids (default: "4:test:")
	LabelMix   []model.Label   // Label distribution (nil = all Person)
	RelTypeMix []model.RelType // Relationship distribution (nil = all CALLED)
	ProjectID  string          // When set, every node gets a project_id property
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:       42,
		IDPrefix:   "4:test:",
		LabelMix:   []model.Label{model.LabelPerson},
		RelTypeMix: []model.RelType{model.RelCalled},
	}
}

// Generator creates snapshot fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "4:test:"
	}
	if len(cfg.LabelMix) == 0 {
		cfg.LabelMix = []model.Label{model.LabelPerson}
	}
	if len(cfg.RelTypeMix) == 0 {
		cfg.RelTypeMix = []model.RelType{model.RelCalled}
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Graph Topology Generators
// ============================================================================

// Chain creates n0 -> n1 -> ... -> n{size-1}.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := names("n", size)
	var edges [][2]int
	for i := 1; i < size; i++ {
		edges = append(edges, [2]int{i - 1, i})
	}
	return GraphFixture{
		Description: fmt.Sprintf("Linear chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Connected:   true,
	}
}

// Star creates a hub with edges to every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := append([]string{"hub"}, names("spoke", spokes)...)
	edges := make([][2]int, spokes)
	for i := 1; i <= spokes; i++ {
		edges[i-1] = [2]int{0, i}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Star with hub and %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Connected:   true,
	}
}

// Cycle creates n0 -> n1 -> ... -> n{size-1} -> n0.
func (g *Generator) Cycle(size int) GraphFixture {
	nodes := names("n", size)
	edges := make([][2]int, size)
	for i := 0; i < size; i++ {
		edges[i] = [2]int{i, (i + 1) % size}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Cycle of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Connected:   true,
	}
}

// SelfLoop creates a single node with a self-referential edge.
func (g *Generator) SelfLoop() GraphFixture {
	return GraphFixture{
		Description: "Single node with self-loop",
		Nodes:       []string{"n0"},
		Edges:       [][2]int{{0, 0}},
		Connected:   true,
	}
}

// Tree creates a tree with given depth where each inner node has breadth
// children.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}
	nodes := []string{"n0"}
	var edges [][2]int
	level := []int{0}
	for d := 0; d < depth; d++ {
		var next []int
		for _, parent := range level {
			for b := 0; b < breadth; b++ {
				child := len(nodes)
				nodes = append(nodes, fmt.Sprintf("n%d", child))
				edges = append(edges, [2]int{parent, child})
				next = append(next, child)
			}
		}
		level = next
	}
	return GraphFixture{
		Description: fmt.Sprintf("Tree with depth=%d, breadth=%d (%d nodes)", depth, breadth, len(nodes)),
		Nodes:       nodes,
		Edges:       edges,
		Connected:   true,
	}
}

// Disconnected creates isolated chains of componentSize nodes each.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int
	for c := 0; c < components; c++ {
		for i := 0; i < componentSize; i++ {
			if i > 0 {
				edges = append(edges, [2]int{len(nodes) - 1, len(nodes)})
			}
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected chains of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// Complete connects every earlier node to every later node.
func (g *Generator) Complete(size int) GraphFixture {
	nodes := names("n", size)
	edges := make([][2]int, 0, size*(size-1)/2)
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Complete graph with %d nodes (%d edges)", size, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
		Connected:   true,
	}
}

// Random creates a random graph where each ordered pair i<j gets an edge
// with probability density.
func (g *Generator) Random(size int, density float64) GraphFixture {
	density = max(0, min(1, density))
	nodes := names("n", size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Random graph with %d nodes, density=%.2f (%d edges)", size, density, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// ============================================================================
// Snapshot conversion
// ============================================================================

// ToSnapshot converts a GraphFixture into a model.Snapshot. Labels and
// relationship types are drawn from the configured mixes.
func (g *Generator) ToSnapshot(gf GraphFixture) model.Snapshot {
	snap := model.Snapshot{
		Nodes: make([]model.Node, len(gf.Nodes)),
		Edges: make([]model.Edge, len(gf.Edges)),
	}
	for i, name := range gf.Nodes {
		props := map[string]any{"name": name}
		if g.cfg.ProjectID != "" {
			props["project_id"] = g.cfg.ProjectID
		}
		snap.Nodes[i] = model.Node{
			ID:         g.cfg.IDPrefix + name,
			Label:      g.cfg.LabelMix[g.rng.Intn(len(g.cfg.LabelMix))],
			Properties: props,
		}
	}
	for i, e := range gf.Edges {
		snap.Edges[i] = model.Edge{
			Source: snap.Nodes[e[0]].ID,
			Target: snap.Nodes[e[1]].ID,
			Type:   g.cfg.RelTypeMix[g.rng.Intn(len(g.cfg.RelTypeMix))],
		}
	}
	return snap
}

// WithDangling returns a copy of snap with one extra edge per source id
// pointing at a node that does not exist.
func WithDangling(snap model.Snapshot, sources ...string) model.Snapshot {
	out := model.Snapshot{
		Nodes: append([]model.Node(nil), snap.Nodes...),
		Edges: append([]model.Edge(nil), snap.Edges...),
	}
	for _, s := range sources {
		out.Edges = append(out.Edges, model.Edge{Source: s, Target: "ghost", Type: model.RelMentionedIn})
	}
	return out
}

func names(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

// ============================================================================
// Quick helpers
// ============================================================================

// QuickChain returns a chain snapshot with default config.
func QuickChain(size int) model.Snapshot {
	g := NewDefault()
	return g.ToSnapshot(g.Chain(size))
}

// QuickStar returns a star snapshot with default config.
func QuickStar(spokes int) model.Snapshot {
	g := NewDefault()
	return g.ToSnapshot(g.Star(spokes))
}

// QuickDisconnected returns disconnected chains with default config.
func QuickDisconnected(components, size int) model.Snapshot {
	g := NewDefault()
	return g.ToSnapshot(g.Disconnected(components, size))
}

// QuickRandom returns a random snapshot with default config.
func QuickRandom(size int, density float64) model.Snapshot {
	g := NewDefault()
	return g.ToSnapshot(g.Random(size, density))
}

// Single returns a snapshot with one node and no edges.
func Single() model.Snapshot {
	return model.Snapshot{
		Nodes: []model.Node{{ID: "4:test:n0", Label: model.LabelPerson, Properties: map[string]any{"name": "n0"}}},
		Edges: []model.Edge{},
	}
}

// CaseFixture is the small two-device case used across package tests:
// a project hub, two people sharing a phone number and a visited URL.
func CaseFixture() model.Snapshot {
	return model.Snapshot{
		Nodes: []model.Node{
			{ID: "p1", Label: model.LabelProject, Properties: map[string]any{"project_id": "case-7", "name": "Case 7"}},
			{ID: "n1", Label: model.LabelPerson, Properties: map[string]any{"name": "Vikram Rao", "project_id": "case-7"}},
			{ID: "n2", Label: model.LabelPerson, Properties: map[string]any{"name": "Anita Desai", "project_id": "case-7"}},
			{ID: "n3", Label: model.LabelPhoneNumber, Properties: map[string]any{"number": "+91 98200 11111", "project_id": "case-7"}},
			{ID: "n4", Label: model.LabelURL, Properties: map[string]any{"address": "https://example.org/login", "project_id": "case-7"}},
		},
		Edges: []model.Edge{
			{Source: "n1", Target: "p1", Type: model.RelPartOf},
			{Source: "n2", Target: "p1", Type: model.RelPartOf},
			{Source: "n1", Target: "n3", Type: model.RelHasPhone},
			{Source: "n1", Target: "n2", Type: model.RelCalled},
			{Source: "n2", Target: "n4", Type: model.RelVisited},
		},
	}
}
