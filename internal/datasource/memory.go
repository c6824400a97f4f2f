package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/casegraph/pkg/analysis"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// dataset answers store queries over a graph held in memory. The file store
// uses it directly; the SQLite store uses it for search expansion.
type dataset struct {
	snap     model.Snapshot
	index    map[string]int
	projects []model.Project
}

func newDataset(snap model.Snapshot, projects []model.Project) *dataset {
	snap = snap.Dedupe()
	return &dataset{snap: snap, index: snap.NodeIndex(), projects: projects}
}

func projectOf(n model.Node) string {
	v, ok := n.Properties["project_id"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// inScope reports whether id exists and belongs to pid ("" matches any).
func (d *dataset) inScope(id, pid string) bool {
	i, ok := d.index[id]
	if !ok {
		return false
	}
	return pid == "" || projectOf(d.snap.Nodes[i]) == pid
}

// edges collects up to limit relationships whose source is in scope and whose
// target is in scope or unknown. Unknown targets are passed through as
// dangling edges. Nodes are listed in order of first appearance.
func (d *dataset) edges(limit int, pid string) model.Snapshot {
	out := model.EmptySnapshot()
	seen := make(map[string]bool)
	add := func(id string) {
		if i, ok := d.index[id]; ok && !seen[id] {
			seen[id] = true
			out.Nodes = append(out.Nodes, d.snap.Nodes[i])
		}
	}
	for _, e := range d.snap.Edges {
		if len(out.Edges) >= limit {
			break
		}
		if !d.inScope(e.Source, pid) {
			continue
		}
		if _, known := d.index[e.Target]; known && !d.inScope(e.Target, pid) {
			continue
		}
		out.Edges = append(out.Edges, e)
		add(e.Source)
		add(e.Target)
	}
	return out
}

func (d *dataset) full(limit int, pid string) model.Snapshot {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return d.edges(limit, pid)
}

func (d *dataset) project(pid string, limit int) (model.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := d.edges(limit, pid)
	for _, n := range d.snap.Nodes {
		if n.Label == model.LabelProject && projectOf(n) == pid && !out.HasNode(n.ID) {
			out.Nodes = append(out.Nodes, n)
		}
	}
	if out.IsEmpty() {
		return model.EmptySnapshot(), ErrNoGraph
	}
	return out, nil
}

// matches reports whether any property of n contains needle, compared in
// lower case.
func matches(n model.Node, needle string) bool {
	for _, v := range n.Properties {
		if v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
			return true
		}
	}
	return false
}

func (d *dataset) search(name string, depth int) model.Snapshot {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return model.EmptySnapshot()
	}
	var seeds []string
	for _, n := range d.snap.Nodes {
		if matches(n, needle) {
			seeds = append(seeds, n.ID)
		}
	}
	if len(seeds) == 0 {
		return model.EmptySnapshot()
	}

	return d.around(seeds, depth, SearchLimit)
}

// around returns the nodes within depth hops of seeds and up to limit
// relationships among them.
func (d *dataset) around(seeds []string, depth, limit int) model.Snapshot {
	reached := analysis.Build(d.snap).Neighbourhood(seeds, ClampDepth(depth))
	keep := make(map[string]bool, len(reached))
	out := model.EmptySnapshot()
	for _, id := range reached {
		keep[id] = true
		out.Nodes = append(out.Nodes, d.snap.Nodes[d.index[id]])
	}
	for _, e := range d.snap.Edges {
		if len(out.Edges) >= limit {
			break
		}
		if keep[e.Source] && keep[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// label answers LabelGraph. Isolated nodes of the label are kept so an
// entity type with no relationships still shows up.
func (d *dataset) label(label model.Label, depth, limit int) (model.Snapshot, error) {
	if !label.IsKnown() {
		return model.EmptySnapshot(), fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	if limit <= 0 {
		limit = LabelLimit
	}
	var seeds []string
	for _, n := range d.snap.Nodes {
		if n.Label == label {
			seeds = append(seeds, n.ID)
		}
	}
	if len(seeds) == 0 {
		return model.EmptySnapshot(), nil
	}
	return d.around(seeds, depth, limit), nil
}

// projectList returns the declared projects, or derives them from Project
// hub nodes when none were declared. Node counts cover PART_OF members that
// are not pages.
func (d *dataset) projectList() []model.Project {
	members := make(map[string]int)
	for _, e := range d.snap.Edges {
		if e.Type != model.RelPartOf {
			continue
		}
		src, okS := d.index[e.Source]
		dst, okT := d.index[e.Target]
		if !okS || !okT || d.snap.Nodes[src].Label == model.LabelPage {
			continue
		}
		members[projectOf(d.snap.Nodes[dst])]++
	}

	projects := append([]model.Project(nil), d.projects...)
	if len(projects) == 0 {
		for _, n := range d.snap.Nodes {
			if n.Label != model.LabelProject {
				continue
			}
			p := model.Project{ID: projectOf(n), Name: stringProp(n, "name")}
			p.ExtractionID = stringProp(n, "extraction_id")
			p.CreatedAt = stringProp(n, "created_at")
			p.PageCount = intProp(n, "page_count")
			projects = append(projects, p)
		}
	}
	for i := range projects {
		if projects[i].NodeCount == 0 {
			projects[i].NodeCount = members[projects[i].ID]
		}
		fillProjectDefaults(&projects[i])
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt > projects[j].CreatedAt
	})
	return projects
}

// fillProjectDefaults mirrors the API: a missing name or extraction id falls
// back to the project id.
func fillProjectDefaults(p *model.Project) {
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.ExtractionID == "" {
		p.ExtractionID = p.ID
	}
}

func stringProp(n model.Node, key string) string {
	v, ok := n.Properties[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func intProp(n model.Node, key string) int {
	switch v := n.Properties[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
