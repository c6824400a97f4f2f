// Package analysis provides graph measures over an entity snapshot: degree,
// connected components, bounded-depth neighbourhoods and PageRank.
//
// Dangling edges and self-loops are excluded when the gonum graphs are
// built; callers can still count dangling edges via DanglingEdges.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// EntityGraph wraps a snapshot in gonum graphs keyed by dense int64 ids.
type EntityGraph struct {
	undirected *simple.UndirectedGraph
	directed   *simple.DirectedGraph
	idToNode   map[string]int64
	nodeToID   map[int64]string
	order      []string
	degree     map[string]int
	dangling   int
}

// Build indexes snap. Duplicate node ids keep their first occurrence.
func Build(snap model.Snapshot) *EntityGraph {
	g := &EntityGraph{
		undirected: simple.NewUndirectedGraph(),
		directed:   simple.NewDirectedGraph(),
		idToNode:   make(map[string]int64, len(snap.Nodes)),
		nodeToID:   make(map[int64]string, len(snap.Nodes)),
		degree:     make(map[string]int, len(snap.Nodes)),
	}
	for _, n := range snap.Nodes {
		if _, dup := g.idToNode[n.ID]; dup {
			continue
		}
		id := int64(len(g.order))
		g.idToNode[n.ID] = id
		g.nodeToID[id] = n.ID
		g.order = append(g.order, n.ID)
		g.degree[n.ID] = 0
		g.undirected.AddNode(simple.Node(id))
		g.directed.AddNode(simple.Node(id))
	}

	for _, e := range snap.Edges {
		u, okU := g.idToNode[e.Source]
		v, okV := g.idToNode[e.Target]
		if !okU || !okV {
			g.dangling++
			continue
		}
		g.degree[e.Source]++
		if u == v {
			continue
		}
		g.degree[e.Target]++
		g.undirected.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
		g.directed.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
	}
	return g
}

// Degree returns the number of non-dangling edges incident to id. Parallel
// edges count separately; a self-loop counts once.
func (g *EntityGraph) Degree(id string) int {
	return g.degree[id]
}

// DanglingEdges returns how many edges referenced a missing endpoint.
func (g *EntityGraph) DanglingEdges() int {
	return g.dangling
}

// Components returns the connected components (ignoring direction), each
// listed in snapshot order, ordered by their first member.
func (g *EntityGraph) Components() [][]string {
	raw := topo.ConnectedComponents(g.undirected)
	out := make([][]string, 0, len(raw))
	for _, comp := range raw {
		ids := make([]int64, len(comp))
		for i, n := range comp {
			ids[i] = n.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = g.nodeToID[id]
		}
		out = append(out, names)
	}
	sort.Slice(out, func(i, j int) bool {
		return g.idToNode[out[i][0]] < g.idToNode[out[j][0]]
	})
	return out
}

// Neighbourhood returns every node within depth hops of any seed, ignoring
// edge direction, in snapshot order. Seeds unknown to the graph are skipped.
// Depth 0 returns the known seeds themselves.
func (g *EntityGraph) Neighbourhood(seeds []string, depth int) []string {
	if depth < 0 {
		depth = 0
	}
	reached := make(map[int64]bool)
	for _, s := range seeds {
		start, ok := g.idToNode[s]
		if !ok {
			continue
		}
		var bf traverse.BreadthFirst
		bf.Walk(g.undirected, simple.Node(start), func(n graph.Node, d int) bool {
			if d > depth {
				return true
			}
			reached[n.ID()] = true
			return false
		})
	}
	out := make([]string, 0, len(reached))
	for _, id := range g.order {
		if reached[g.idToNode[id]] {
			out = append(out, id)
		}
	}
	return out
}

// Ranked is a node id with a score.
type Ranked struct {
	ID    string
	Score float64
}

// PageRank scores every node over the directed relationship graph and
// returns them best first. Ties keep snapshot order.
func (g *EntityGraph) PageRank() []Ranked {
	if len(g.order) == 0 {
		return nil
	}
	scores := network.PageRank(g.directed, 0.85, 1e-6)
	out := make([]Ranked, len(g.order))
	for i, id := range g.order {
		out[i] = Ranked{ID: id, Score: scores[g.idToNode[id]]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
