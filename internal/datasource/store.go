package datasource

import (
	"context"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Store is a read-only client of the graph store. Implementations return
// ErrNoGraph only from ProjectGraph, when the project has no graph and no hub
// node. Limits count relationships, as the store queries do.
type Store interface {
	// FullGraph returns up to limit relationships with their endpoints,
	// optionally restricted to one project.
	FullGraph(ctx context.Context, limit int, projectID string) (model.Snapshot, error)
	// ProjectGraph returns a project's relationships plus its hub node.
	ProjectGraph(ctx context.Context, projectID string, limit int) (model.Snapshot, error)
	// SearchGraph returns the subgraph within depth hops of every node with a
	// property containing name (case-insensitive).
	SearchGraph(ctx context.Context, name string, depth int) (model.Snapshot, error)
	// LabelGraph returns the relationships touching nodes labelled label,
	// extended to depth hops around them. Labels outside the closed set fail
	// with ErrUnknownLabel.
	LabelGraph(ctx context.Context, label model.Label, depth, limit int) (model.Snapshot, error)
	// Projects lists the case projects, newest first.
	Projects(ctx context.Context) ([]model.Project, error)
	// Close releases connections and file handles.
	Close() error
}
