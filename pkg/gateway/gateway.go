// Package gateway issues graph queries against a datasource.Store and
// normalizes their results into snapshots the layout and view layers can use.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/casegraph/internal/datasource"
	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Op names a gateway operation in errors and metrics.
type Op string

const (
	OpFull     Op = "full"
	OpProject  Op = "project"
	OpSearch   Op = "search"
	OpLabel    Op = "label"
	OpProjects Op = "projects"
)

var (
	// ErrEmptySearch is returned for a blank search name. No query is issued.
	ErrEmptySearch = errors.New("search name is empty")
	// ErrUnknownLabel is returned for a label outside the closed entity set.
	// No query is issued.
	ErrUnknownLabel = datasource.ErrUnknownLabel
)

// FetchError wraps a store failure with the operation and scope that failed.
type FetchError struct {
	Op    Op     // operation that failed
	Scope string // project id, "all", the search name or the label
	Err   error  // the underlying store error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch for %q failed: %v", e.Op, e.Scope, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Result is one fetched snapshot with its counts.
type Result struct {
	Snapshot  model.Snapshot
	NodeCount int
	EdgeCount int
}

func newResult(snap model.Snapshot) Result {
	snap = snap.Dedupe()
	return Result{Snapshot: snap, NodeCount: snap.NodeCount(), EdgeCount: snap.EdgeCount()}
}

// Gateway is safe for concurrent use.
type Gateway struct {
	store        datasource.Store
	defaultLimit int
	projects     singleflight.Group
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithDefaultLimit sets the limit used when a caller passes limit <= 0.
func WithDefaultLimit(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.defaultLimit = n
		}
	}
}

// New returns a gateway over store.
func New(store datasource.Store, opts ...Option) *Gateway {
	g := &Gateway{store: store, defaultLimit: datasource.DefaultLimit}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) limit(n int) int {
	if n <= 0 {
		return g.defaultLimit
	}
	return n
}

// FetchFullGraph returns up to limit relationships across all projects, or
// across one project when projectID is not empty.
func (g *Gateway) FetchFullGraph(ctx context.Context, limit int, projectID string) (Result, error) {
	defer metrics.Timer(metrics.GatewayFetch)()

	scope := projectID
	if scope == "" {
		scope = model.FilterAll
	}
	snap, err := g.store.FullGraph(ctx, g.limit(limit), projectID)
	return g.finish(OpFull, scope, snap, err)
}

// FetchProjectGraph returns a project's graph. A project without a stored
// graph yields an empty snapshot, not an error.
func (g *Gateway) FetchProjectGraph(ctx context.Context, projectID string, limit int) (Result, error) {
	defer metrics.Timer(metrics.GatewayFetch)()

	snap, err := g.store.ProjectGraph(ctx, projectID, g.limit(limit))
	if errors.Is(err, datasource.ErrNoGraph) {
		debug.Log("gateway: project %q has no graph", projectID)
		snap, err = model.EmptySnapshot(), nil
	}
	return g.finish(OpProject, projectID, snap, err)
}

// FetchSearchSubgraph returns the nodes within depth hops of every entity
// matching name. Depth is clamped to [1, 5].
func (g *Gateway) FetchSearchSubgraph(ctx context.Context, name string, depth int) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, ErrEmptySearch
	}
	defer metrics.Timer(metrics.GatewayFetch)()

	snap, err := g.store.SearchGraph(ctx, name, datasource.ClampDepth(depth))
	return g.finish(OpSearch, name, snap, err)
}

// FetchLabelSubgraph returns the relationships around every entity of one
// label, extended to depth hops. Depth is clamped to [1, 5]; limit <= 0 uses
// the store's label default.
func (g *Gateway) FetchLabelSubgraph(ctx context.Context, label model.Label, depth, limit int) (Result, error) {
	if !label.IsKnown() {
		metrics.GatewayFetches.WithLabelValues(string(OpLabel), "rejected").Inc()
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	defer metrics.Timer(metrics.GatewayFetch)()

	snap, err := g.store.LabelGraph(ctx, label, datasource.ClampDepth(depth), limit)
	return g.finish(OpLabel, string(label), snap, err)
}

// ListProjects returns the case projects, newest first. Concurrent callers
// share one store query.
func (g *Gateway) ListProjects(ctx context.Context) ([]model.Project, error) {
	defer metrics.Timer(metrics.GatewayFetch)()

	v, err, shared := g.projects.Do("projects", func() (any, error) {
		return g.store.Projects(ctx)
	})
	if err != nil {
		metrics.GatewayFetches.WithLabelValues(string(OpProjects), "error").Inc()
		return nil, &FetchError{Op: OpProjects, Scope: model.FilterAll, Err: err}
	}
	projects := v.([]model.Project)
	outcome := "ok"
	if len(projects) == 0 {
		outcome = "empty"
	}
	metrics.GatewayFetches.WithLabelValues(string(OpProjects), outcome).Inc()
	debug.LogIf(shared, "gateway: projects result shared")

	out := make([]model.Project, len(projects))
	copy(out, projects)
	return out, nil
}

func (g *Gateway) finish(op Op, scope string, snap model.Snapshot, err error) (Result, error) {
	if err != nil {
		metrics.GatewayFetches.WithLabelValues(string(op), "error").Inc()
		debug.Log("gateway: %s %q failed: %v", op, scope, err)
		return Result{}, &FetchError{Op: op, Scope: scope, Err: err}
	}
	res := newResult(snap)

	outcome := "ok"
	if res.Snapshot.IsEmpty() {
		outcome = "empty"
	}
	metrics.GatewayFetches.WithLabelValues(string(op), outcome).Inc()
	debug.Log("gateway: %s %q -> %d nodes, %d edges", op, scope, res.NodeCount, res.EdgeCount)
	return res, nil
}
