package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// FakeStore is an in-memory datasource.Store. Each query returns Snapshot
// unless the matching hook is set. Calls are recorded as "op:arg".
type FakeStore struct {
	Snapshot     model.Snapshot
	ProjectList  []model.Project
	FullHook     func(ctx context.Context, limit int, projectID string) (model.Snapshot, error)
	ProjectHook  func(ctx context.Context, projectID string, limit int) (model.Snapshot, error)
	SearchHook   func(ctx context.Context, name string, depth int) (model.Snapshot, error)
	LabelHook    func(ctx context.Context, label model.Label, depth, limit int) (model.Snapshot, error)
	ProjectsHook func(ctx context.Context) ([]model.Project, error)
	CloseCalled  bool

	mu    sync.Mutex
	calls []string
}

// NewFakeStore returns a store serving snap for every graph query.
func NewFakeStore(snap model.Snapshot) *FakeStore {
	return &FakeStore{Snapshot: snap}
}

func (f *FakeStore) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded calls in order.
func (f *FakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeStore) FullGraph(ctx context.Context, limit int, projectID string) (model.Snapshot, error) {
	f.record("full:%s:%d", projectID, limit)
	if f.FullHook != nil {
		return f.FullHook(ctx, limit, projectID)
	}
	return f.Snapshot, nil
}

func (f *FakeStore) ProjectGraph(ctx context.Context, projectID string, limit int) (model.Snapshot, error) {
	f.record("project:%s:%d", projectID, limit)
	if f.ProjectHook != nil {
		return f.ProjectHook(ctx, projectID, limit)
	}
	return f.Snapshot, nil
}

func (f *FakeStore) SearchGraph(ctx context.Context, name string, depth int) (model.Snapshot, error) {
	f.record("search:%s:%d", name, depth)
	if f.SearchHook != nil {
		return f.SearchHook(ctx, name, depth)
	}
	return f.Snapshot, nil
}

func (f *FakeStore) LabelGraph(ctx context.Context, label model.Label, depth, limit int) (model.Snapshot, error) {
	f.record("label:%s:%d:%d", label, depth, limit)
	if f.LabelHook != nil {
		return f.LabelHook(ctx, label, depth, limit)
	}
	return f.Snapshot, nil
}

func (f *FakeStore) Projects(ctx context.Context) ([]model.Project, error) {
	f.record("projects")
	if f.ProjectsHook != nil {
		return f.ProjectsHook(ctx)
	}
	return f.ProjectList, nil
}

func (f *FakeStore) Close() error {
	f.CloseCalled = true
	return nil
}
