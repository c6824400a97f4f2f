package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// GraphResponse is the wire form of every /graph query.
type GraphResponse struct {
	Nodes     []model.Node `json:"nodes"`
	Edges     []model.Edge `json:"edges"`
	NodeCount int          `json:"node_count"`
	EdgeCount int          `json:"edge_count"`
}

// HTTPStore queries the dashboard REST API.
type HTTPStore struct {
	base   *url.URL
	token  string
	client *http.Client
}

// NewHTTPStore validates opts.BaseURL, e.g. http://localhost:8000/api/v1.
func NewHTTPStore(opts Options) (*HTTPStore, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{base: u, token: opts.Token, client: &http.Client{Timeout: timeout}}, nil
}

// FullGraph implements Store.
func (s *HTTPStore) FullGraph(ctx context.Context, limit int, projectID string) (model.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if projectID != "" {
		q.Set("project_id", projectID)
	}
	return s.graph(ctx, "/graph/full", q)
}

// projectNotFound is how the API words a 404 for a project without a graph.
const projectNotFound = "Project not found"

// ProjectGraph implements Store. Only the API's own "Project not found" 404
// means the project has no graph; any other 404 (a wrong base URL, a proxy)
// stays a StatusError.
func (s *HTTPStore) ProjectGraph(ctx context.Context, projectID string, limit int) (model.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	snap, err := s.graph(ctx, "/graph/project/"+url.PathEscape(projectID), url.Values{"limit": {strconv.Itoa(limit)}})
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound && strings.HasPrefix(se.Detail(), projectNotFound) {
		return model.EmptySnapshot(), ErrNoGraph
	}
	return snap, err
}

// LabelGraph implements Store.
func (s *HTTPStore) LabelGraph(ctx context.Context, label model.Label, depth, limit int) (model.Snapshot, error) {
	if !label.IsKnown() {
		return model.EmptySnapshot(), fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	if limit <= 0 {
		limit = LabelLimit
	}
	q := url.Values{"depth": {strconv.Itoa(ClampDepth(depth))}, "limit": {strconv.Itoa(limit)}}
	snap, err := s.graph(ctx, "/graph/entity/"+url.PathEscape(string(label)), q)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusBadRequest {
		return model.EmptySnapshot(), fmt.Errorf("%w: %q: %s", ErrUnknownLabel, label, se.Detail())
	}
	return snap, err
}

// SearchGraph implements Store.
func (s *HTTPStore) SearchGraph(ctx context.Context, name string, depth int) (model.Snapshot, error) {
	q := url.Values{"depth": {strconv.Itoa(ClampDepth(depth))}}
	return s.graph(ctx, "/graph/search/"+url.PathEscape(name), q)
}

// Projects implements Store.
func (s *HTTPStore) Projects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := s.get(ctx, "/graph/projects", nil, &projects); err != nil {
		return nil, err
	}
	for i := range projects {
		fillProjectDefaults(&projects[i])
	}
	return projects, nil
}

// Close implements Store.
func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTPStore) graph(ctx context.Context, path string, q url.Values) (model.Snapshot, error) {
	var resp GraphResponse
	if err := s.get(ctx, path, q, &resp); err != nil {
		return model.Snapshot{}, err
	}
	snap := model.Snapshot{Nodes: resp.Nodes, Edges: resp.Edges}
	if snap.Nodes == nil {
		snap.Nodes = []model.Node{}
	}
	if snap.Edges == nil {
		snap.Edges = []model.Edge{}
	}
	return snap, nil
}

func (s *HTTPStore) get(ctx context.Context, path string, q url.Values, out any) error {
	// path segments are already escaped by the caller
	target := s.base.String() + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	debug.Log("http store: GET %s -> %d (%v)", path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
