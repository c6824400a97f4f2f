package gateway_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vanderheijden86/casegraph/internal/datasource"
	"github.com/vanderheijden86/casegraph/pkg/gateway"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
)

func TestFetchFullGraph(t *testing.T) {
	store := testutil.NewFakeStore(testutil.CaseFixture())
	gw := gateway.New(store)

	res, err := gw.FetchFullGraph(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("FetchFullGraph: %v", err)
	}
	if res.NodeCount != 5 || res.EdgeCount != 5 {
		t.Errorf("counts = %d/%d, want 5/5", res.NodeCount, res.EdgeCount)
	}
	if got := store.Calls(); len(got) != 1 || got[0] != "full::500" {
		t.Errorf("expected default limit 500, calls %v", got)
	}

	if _, err := gw.FetchFullGraph(context.Background(), 25, "case-7"); err != nil {
		t.Fatalf("FetchFullGraph scoped: %v", err)
	}
	if got := store.Calls()[1]; got != "full:case-7:25" {
		t.Errorf("unexpected call %q", got)
	}
}

func TestWithDefaultLimit(t *testing.T) {
	store := testutil.NewFakeStore(testutil.Single())
	gw := gateway.New(store, gateway.WithDefaultLimit(50), gateway.WithDefaultLimit(-1))

	if _, err := gw.FetchProjectGraph(context.Background(), "p", -3); err != nil {
		t.Fatal(err)
	}
	if got := store.Calls()[0]; got != "project:p:50" {
		t.Errorf("unexpected call %q", got)
	}
}

func TestFetchDedupesNodes(t *testing.T) {
	snap := testutil.CaseFixture()
	snap.Nodes = append(snap.Nodes, model.Node{ID: "n1", Label: model.LabelDevice})
	gw := gateway.New(testutil.NewFakeStore(snap))

	res, err := gw.FetchFullGraph(context.Background(), 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.NodeCount != 5 {
		t.Errorf("expected duplicate dropped, got %d nodes", res.NodeCount)
	}
	testutil.AssertNoDuplicateIDs(t, res.Snapshot)
	if n, _ := res.Snapshot.Node("n1"); n.Label != model.LabelPerson {
		t.Errorf("first occurrence should win, got %q", n.Label)
	}
}

func TestFetchProjectGraph_NoGraphIsEmpty(t *testing.T) {
	store := &testutil.FakeStore{
		ProjectHook: func(context.Context, string, int) (model.Snapshot, error) {
			return model.Snapshot{}, datasource.ErrNoGraph
		},
	}
	gw := gateway.New(store)
	before := promtest.ToFloat64(metrics.GatewayFetches.WithLabelValues("project", "empty"))

	res, err := gw.FetchProjectGraph(context.Background(), "nonexistent", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.Snapshot.IsEmpty() || res.Snapshot.Nodes == nil || res.Snapshot.Edges == nil {
		t.Errorf("expected explicit empty snapshot, got %+v", res.Snapshot)
	}
	if after := promtest.ToFloat64(metrics.GatewayFetches.WithLabelValues("project", "empty")); after != before+1 {
		t.Errorf("empty outcome counter = %v, want %v", after, before+1)
	}
}

func TestFetchError(t *testing.T) {
	boom := errors.New("bolt: connection refused")
	store := &testutil.FakeStore{
		FullHook: func(context.Context, int, string) (model.Snapshot, error) {
			return model.Snapshot{}, boom
		},
		ProjectHook: func(context.Context, string, int) (model.Snapshot, error) {
			return model.Snapshot{}, &datasource.StatusError{Code: 500}
		},
	}
	gw := gateway.New(store)

	_, err := gw.FetchFullGraph(context.Background(), 0, "")
	var fe *gateway.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T %v", err, err)
	}
	if fe.Op != gateway.OpFull || fe.Scope != model.FilterAll {
		t.Errorf("unexpected op/scope %s/%s", fe.Op, fe.Scope)
	}
	if !errors.Is(err, boom) {
		t.Error("FetchError should unwrap to the store error")
	}

	_, err = gw.FetchProjectGraph(context.Background(), "case-7", 0)
	var se *datasource.StatusError
	if !errors.As(err, &se) || se.Code != 500 {
		t.Errorf("expected wrapped StatusError, got %v", err)
	}
	if err.Error() != `project fetch for "case-7" failed: unexpected status 500` {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestFetchSearchSubgraph(t *testing.T) {
	store := testutil.NewFakeStore(testutil.CaseFixture())
	gw := gateway.New(store)

	if _, err := gw.FetchSearchSubgraph(context.Background(), "  Vikram ", 9); err != nil {
		t.Fatal(err)
	}
	if got := store.Calls()[0]; got != "search:Vikram:5" {
		t.Errorf("expected trimmed name and clamped depth, got %q", got)
	}

	_, err := gw.FetchSearchSubgraph(context.Background(), " \t", 2)
	if !errors.Is(err, gateway.ErrEmptySearch) {
		t.Errorf("expected ErrEmptySearch, got %v", err)
	}
	if len(store.Calls()) != 1 {
		t.Error("blank search must not reach the store")
	}
}

func TestFetchLabelSubgraph(t *testing.T) {
	store := testutil.NewFakeStore(testutil.CaseFixture())
	gw := gateway.New(store)
	ctx := context.Background()

	res, err := gw.FetchLabelSubgraph(ctx, model.LabelPerson, 0, 0)
	if err != nil {
		t.Fatalf("FetchLabelSubgraph: %v", err)
	}
	if res.NodeCount != 5 {
		t.Errorf("NodeCount = %d, want 5", res.NodeCount)
	}
	if got := store.Calls()[0]; got != "label:Person:1:0" {
		t.Errorf("expected clamped depth and store default limit, got %q", got)
	}

	before := promtest.ToFloat64(metrics.GatewayFetches.WithLabelValues("label", "rejected"))
	_, err = gw.FetchLabelSubgraph(ctx, model.Label("Suspect"), 2, 10)
	if !errors.Is(err, gateway.ErrUnknownLabel) {
		t.Errorf("expected ErrUnknownLabel, got %v", err)
	}
	if len(store.Calls()) != 1 {
		t.Error("unknown label must not reach the store")
	}
	if got := promtest.ToFloat64(metrics.GatewayFetches.WithLabelValues("label", "rejected")); got != before+1 {
		t.Errorf("rejected counter = %v, want %v", got, before+1)
	}

	store.LabelHook = func(context.Context, model.Label, int, int) (model.Snapshot, error) {
		return model.Snapshot{}, errors.New("bolt down")
	}
	_, err = gw.FetchLabelSubgraph(ctx, model.LabelDevice, 3, 10)
	var fe *gateway.FetchError
	if !errors.As(err, &fe) || fe.Op != gateway.OpLabel || fe.Scope != "Device" {
		t.Errorf("expected label FetchError, got %v", err)
	}
}

func TestListProjects(t *testing.T) {
	store := testutil.NewFakeStore(model.EmptySnapshot())
	store.ProjectList = []model.Project{{ID: "case-7", Name: "Case 7"}}
	gw := gateway.New(store)

	projects, err := gw.ListProjects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	projects[0].Name = "mutated"
	if store.ProjectList[0].Name != "Case 7" {
		t.Error("callers must get their own copy")
	}
}

func TestListProjects_SharedAcrossCallers(t *testing.T) {
	var queries atomic.Int32
	release := make(chan struct{})
	store := &testutil.FakeStore{
		ProjectsHook: func(context.Context) ([]model.Project, error) {
			queries.Add(1)
			<-release
			return []model.Project{{ID: "a"}}, nil
		},
	}
	gw := gateway.New(store)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := gw.ListProjects(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := queries.Load(); n < 1 || n > 4 {
		t.Fatalf("unexpected query count %d", n)
	}
	if n := queries.Load(); n != 1 {
		t.Logf("callers not fully coalesced (%d queries); scheduler started some late", n)
	}
}

func TestListProjects_Error(t *testing.T) {
	store := &testutil.FakeStore{
		ProjectsHook: func(context.Context) ([]model.Project, error) {
			return nil, errors.New("down")
		},
	}
	_, err := gateway.New(store).ListProjects(context.Background())
	var fe *gateway.FetchError
	if !errors.As(err, &fe) || fe.Op != gateway.OpProjects {
		t.Errorf("expected projects FetchError, got %v", err)
	}
}
