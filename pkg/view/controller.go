// Package view owns the interactive state of the graph view: which scope is
// shown, the current snapshot and its layout, the selection and the zoom.
// It sequences gateway fetches so that only the most recently issued request
// is ever applied.
package view

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/gateway"
	"github.com/vanderheijden86/casegraph/pkg/highlight"
	"github.com/vanderheijden86/casegraph/pkg/layout"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
)

// Fetcher is the part of the gateway the controller needs.
type Fetcher interface {
	FetchFullGraph(ctx context.Context, limit int, projectID string) (gateway.Result, error)
	FetchProjectGraph(ctx context.Context, projectID string, limit int) (gateway.Result, error)
	FetchSearchSubgraph(ctx context.Context, name string, depth int) (gateway.Result, error)
	FetchLabelSubgraph(ctx context.Context, label model.Label, depth, limit int) (gateway.Result, error)
}

// Kind is the query shape of a Request.
type Kind int

const (
	KindFull Kind = iota
	KindProject
	KindSearch
	KindLabel
)

func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindProject:
		return "project"
	case KindSearch:
		return "search"
	case KindLabel:
		return "label"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request describes one fetch. Gen orders requests; only the latest one may
// be committed.
type Request struct {
	Gen       uint64
	Kind      Kind
	ProjectID string
	Term      string
	Label     model.Label
	Limit     int
	Depth     int
	Width     float64
	Height    float64
	Layout    layout.Options
}

// Result is a resolved Request: the snapshot and its positions, or an error.
type Result struct {
	Request   Request
	Snapshot  model.Snapshot
	Positions layout.Positions
	Err       error
}

// Config holds the fixed parameters of every request.
type Config struct {
	Limit  int
	Depth  int
	Width  float64
	Height float64
	Layout layout.Options
}

// DefaultConfig returns the limits the dashboard uses.
func DefaultConfig() Config {
	return Config{
		Limit:  500,
		Depth:  2,
		Width:  layout.FallbackWidth,
		Height: layout.FallbackHeight,
		Layout: layout.DefaultOptions(),
	}
}

// State is a copy of the controller state.
type State struct {
	ProjectFilter string
	SearchTerm    string
	Searching     bool
	// LabelFilter is the entity label shown in label mode, "" otherwise.
	LabelFilter model.Label
	Zoom        float64
	Snapshot    model.Snapshot
	Positions   layout.Positions
	Width       float64
	Height      float64
	Selection   highlight.Selection
	Hints       highlight.Hints
	Err         error
	Loading     bool
	Generation  uint64
	// Interactive is false when the committed graph has more nodes than
	// layout.InteractiveNodeLimit. The graph is still laid out and shown.
	Interactive bool
}

// Controller is safe for concurrent use.
type Controller struct {
	fetcher Fetcher

	mu    sync.Mutex
	cfg   Config
	state State
}

// New returns a controller showing nothing, filtered to all projects.
func New(f Fetcher, cfg Config) *Controller {
	size := layout.Canvas(cfg.Width, cfg.Height)
	cfg.Width, cfg.Height = size.Width, size.Height
	empty := model.EmptySnapshot()
	return &Controller{
		fetcher: f,
		cfg:     cfg,
		state: State{
			ProjectFilter: model.FilterAll,
			Zoom:          1,
			Snapshot:      empty,
			Positions:     layout.Positions{},
			Width:         size.Width,
			Height:        size.Height,
			Selection:     highlight.None(),
			Hints:         highlight.Derive(empty, highlight.None()),
			Interactive:   true,
		},
	}
}

// issue builds a request for the current mode. Callers hold mu.
func (c *Controller) issue() Request {
	c.state.Generation++
	c.state.Loading = true
	req := Request{
		Gen:    c.state.Generation,
		Limit:  c.cfg.Limit,
		Depth:  c.cfg.Depth,
		Width:  c.cfg.Width,
		Height: c.cfg.Height,
		Layout: c.cfg.Layout,
	}
	switch {
	case c.state.Searching:
		req.Kind = KindSearch
		req.Term = c.state.SearchTerm
	case c.state.LabelFilter != "":
		req.Kind = KindLabel
		req.Label = c.state.LabelFilter
	case c.state.ProjectFilter == model.FilterAll:
		req.Kind = KindFull
	default:
		req.Kind = KindProject
		req.ProjectID = c.state.ProjectFilter
	}
	debug.Log("view: issue gen=%d %s %q%s%s", req.Gen, req.Kind, req.ProjectID, req.Term, req.Label)
	return req
}

// SetProjectFilter shows one project, or every project for "all" or "".
// It leaves search and label mode.
func (c *Controller) SetProjectFilter(filter string) (Request, bool) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = model.FilterAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ProjectFilter = filter
	c.state.Searching = false
	c.state.SearchTerm = ""
	c.state.LabelFilter = ""
	return c.issue(), true
}

// ShowLabel enters label mode: every entity of one label and its
// neighbourhood. Names match the label set ignoring case; an unknown name is
// still issued so the fetch error reaches State.Err. An empty name leaves
// label mode, or does nothing when not in it. Search mode is left.
func (c *Controller) ShowLabel(name string) (Request, bool) {
	label, _ := model.ParseLabel(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if label == "" {
		if c.state.LabelFilter == "" {
			return Request{}, false
		}
		c.state.LabelFilter = ""
		return c.issue(), true
	}
	c.state.LabelFilter = label
	c.state.Searching = false
	c.state.SearchTerm = ""
	return c.issue(), true
}

// Search enters search mode for a non-empty term. An empty term leaves
// search mode and refetches the project filter, or does nothing when not
// searching.
func (c *Controller) Search(term string) (Request, bool) {
	term = strings.TrimSpace(term)
	c.mu.Lock()
	defer c.mu.Unlock()
	if term != "" {
		c.state.SearchTerm = term
		c.state.Searching = true
		c.state.LabelFilter = ""
		return c.issue(), true
	}
	if !c.state.Searching {
		return Request{}, false
	}
	c.state.Searching = false
	c.state.SearchTerm = ""
	return c.issue(), true
}

// Refresh refetches the current mode.
func (c *Controller) Refresh() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issue(), true
}

// SetCanvas changes the canvas used by later requests. The current
// positions keep the size they were computed for until the next commit.
func (c *Controller) SetCanvas(width, height float64) {
	size := layout.Canvas(width, height)
	c.mu.Lock()
	c.cfg.Width, c.cfg.Height = size.Width, size.Height
	c.mu.Unlock()
}

// SetZoom clamps and applies z, returning the applied value. Layout is not
// affected.
func (c *Controller) SetZoom(z float64) float64 {
	z = scene.ClampZoom(z)
	c.mu.Lock()
	c.state.Zoom = z
	c.mu.Unlock()
	return z
}

// Select toggles the selection of id. Ids absent from the current snapshot
// are ignored.
func (c *Controller) Select(id string) highlight.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Snapshot.HasNode(id) {
		debug.Log("view: ignoring selection of unknown node %q", id)
		return c.state.Selection
	}
	c.state.Selection = highlight.Toggle(c.state.Selection, id)
	c.state.Hints = highlight.Derive(c.state.Snapshot, c.state.Selection)
	return c.state.Selection
}

// ClearSelection deselects any node.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Selection.Active() {
		return
	}
	c.state.Selection = highlight.None()
	c.state.Hints = highlight.Derive(c.state.Snapshot, c.state.Selection)
}

// Resolve runs req's fetch and lays out the result. It does not touch the
// controller state and may run on any goroutine.
func (c *Controller) Resolve(ctx context.Context, req Request) Result {
	res := Result{Request: req}
	var (
		fetched gateway.Result
		err     error
	)
	switch req.Kind {
	case KindSearch:
		fetched, err = c.fetcher.FetchSearchSubgraph(ctx, req.Term, req.Depth)
	case KindLabel:
		fetched, err = c.fetcher.FetchLabelSubgraph(ctx, req.Label, req.Depth, req.Limit)
	case KindProject:
		fetched, err = c.fetcher.FetchProjectGraph(ctx, req.ProjectID, req.Limit)
	default:
		fetched, err = c.fetcher.FetchFullGraph(ctx, req.Limit, "")
	}
	if err != nil {
		res.Err = err
		return res
	}
	res.Snapshot = fetched.Snapshot
	res.Positions = layout.Compute(fetched.Snapshot, req.Width, req.Height, req.Layout)
	return res
}

// Commit applies res if it answers the latest request and reports whether
// it did. A failed fetch clears the graph and records the error.
func (c *Controller) Commit(res Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Request.Gen != c.state.Generation {
		metrics.StaleResults.Inc()
		debug.Log("view: dropping stale gen=%d (latest %d)", res.Request.Gen, c.state.Generation)
		return false
	}

	if res.Err != nil {
		c.state.Snapshot = model.EmptySnapshot()
		c.state.Positions = layout.Positions{}
		c.state.Err = res.Err
	} else {
		c.state.Snapshot = res.Snapshot
		c.state.Positions = res.Positions
		c.state.Err = nil
	}
	size := layout.Canvas(res.Request.Width, res.Request.Height)
	c.state.Width, c.state.Height = size.Width, size.Height
	c.state.Selection = highlight.None()
	c.state.Hints = highlight.Derive(c.state.Snapshot, c.state.Selection)
	c.state.Loading = false
	n := c.state.Snapshot.NodeCount()
	c.state.Interactive = layout.IsInteractive(n)
	debug.LogIf(!c.state.Interactive, "view: %d nodes exceeds the interactive limit of %d", n, layout.InteractiveNodeLimit)
	metrics.SnapshotNodes.Set(float64(n))
	return true
}

// Do resolves and commits req on the calling goroutine.
func (c *Controller) Do(ctx context.Context, req Request) bool {
	return c.Commit(c.Resolve(ctx, req))
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Positions = maps.Clone(c.state.Positions)
	return s
}

// Title names the current scope for headers.
func (s State) Title() string {
	switch {
	case s.Searching:
		return fmt.Sprintf("search: %s", s.SearchTerm)
	case s.LabelFilter != "":
		return fmt.Sprintf("label: %s", s.LabelFilter)
	case s.ProjectFilter == model.FilterAll:
		return "all projects"
	default:
		return fmt.Sprintf("project: %s", s.ProjectFilter)
	}
}

// Scene builds the renderer input for the current state.
func (c *Controller) Scene() scene.Scene {
	s := c.State()
	return scene.Build(scene.Input{
		Snapshot:  s.Snapshot,
		Positions: s.Positions,
		Hints:     s.Hints,
		Width:     s.Width,
		Height:    s.Height,
		Zoom:      s.Zoom,
		Title:     s.Title(),
	})
}
