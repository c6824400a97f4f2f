package datasource

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// CypherRunner executes one Cypher query and buffers the whole result.
type CypherRunner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// driverRunner runs queries through neo4j.ExecuteQuery against one database.
type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	res, err := neo4j.ExecuteQuery(ctx, r.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(r.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return res, nil
}

// Neo4jStore queries a live Neo4j database.
type Neo4jStore struct {
	runner CypherRunner
	driver neo4j.DriverWithContext
}

// NewNeo4jStore connects to opts.URI and verifies connectivity.
func NewNeo4jStore(ctx context.Context, opts Options) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.User, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j %s unreachable: %w", opts.URI, err)
	}
	db := opts.Database
	if db == "" {
		db = "neo4j"
	}
	return &Neo4jStore{runner: &driverRunner{driver: driver, database: db}, driver: driver}, nil
}

// NewNeo4jStoreWithRunner builds a store over an existing runner.
func NewNeo4jStoreWithRunner(r CypherRunner) *Neo4jStore {
	return &Neo4jStore{runner: r}
}

// Close implements Store.
func (s *Neo4jStore) Close() error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(context.Background())
}

const (
	fullGraphCypher = `MATCH (n)-[r]->(m) RETURN n, r, m LIMIT $limit`

	scopedGraphCypher = `MATCH (n)-[r]->(m) ` +
		`WHERE n.project_id = $pid AND m.project_id = $pid ` +
		`RETURN n, r, m LIMIT $limit`

	searchSeedCypher = `MATCH (n)-[r]-(m) ` +
		`WHERE any(prop IN keys(n) WHERE toLower(toString(n[prop])) CONTAINS toLower($name)) ` +
		`RETURN n, r, m LIMIT $limit`

	// The hop range is not parameterisable in Cypher; %d is a clamped int.
	searchExpandCypher = `MATCH (seed)-[*1..%d]-(hop)-[r2]-(m2) ` +
		`WHERE any(prop IN keys(seed) WHERE toLower(toString(seed[prop])) CONTAINS toLower($name)) ` +
		`RETURN hop AS n, r2 AS r, m2 AS m LIMIT $limit`

	// Labels cannot be parameters either; %s is a label from the closed set.
	labelSeedCypher = `MATCH (n:%s) OPTIONAL MATCH (n)-[r]-(m) RETURN n, r, m LIMIT $limit`

	labelExpandCypher = `MATCH (n:%s)-[*1..%d]-(hop)-[r2]-(m2) ` +
		`RETURN hop AS n, r2 AS r, m2 AS m LIMIT $limit`

	projectsCypher = `MATCH (pr:Project) ` +
		`OPTIONAL MATCH (n)-[:PART_OF]->(pr) ` +
		`WHERE NOT 'Page' IN labels(n) ` +
		`RETURN pr.project_id AS project_id, pr.name AS name, pr.extraction_id AS extraction_id, ` +
		`pr.page_count AS page_count, pr.created_at AS created_at, count(n) AS node_count ` +
		`ORDER BY pr.created_at DESC`
)

// FullGraph implements Store.
func (s *Neo4jStore) FullGraph(ctx context.Context, limit int, projectID string) (model.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if projectID != "" {
		return s.graph(ctx, scopedGraphCypher, map[string]any{"pid": projectID, "limit": limit})
	}
	return s.graph(ctx, fullGraphCypher, map[string]any{"limit": limit})
}

// ProjectGraph implements Store. The relationship query and the hub lookup
// run concurrently.
func (s *Neo4jStore) ProjectGraph(ctx context.Context, projectID string, limit int) (model.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	hubQuery, hubParams, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("pr", string(model.LabelProject)).WithProperties(map[string]interface{}{"project_id": projectID})).
		Return("pr").
		Build()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("could not build query: %w", err)
	}

	var body, hubs model.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		body, err = s.graph(gctx, scopedGraphCypher, map[string]any{"pid": projectID, "limit": limit})
		return err
	})
	g.Go(func() error {
		var err error
		hubs, err = s.graph(gctx, hubQuery, hubParams)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, err
	}

	snap := merge(body, hubs)
	if snap.IsEmpty() {
		return model.EmptySnapshot(), ErrNoGraph
	}
	return snap, nil
}

// SearchGraph implements Store. Seeds and their direct relationships come
// from one query; hops beyond the first come from a second one.
func (s *Neo4jStore) SearchGraph(ctx context.Context, name string, depth int) (model.Snapshot, error) {
	depth = ClampDepth(depth)
	params := map[string]any{"name": name, "limit": SearchLimit}

	var seed, expand model.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		seed, err = s.graph(gctx, searchSeedCypher, params)
		return err
	})
	if depth > 1 {
		g.Go(func() error {
			var err error
			expand, err = s.graph(gctx, fmt.Sprintf(searchExpandCypher, depth-1), params)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, err
	}
	return merge(seed, expand), nil
}

// LabelGraph implements Store. Only labels from the closed set reach the
// query text.
func (s *Neo4jStore) LabelGraph(ctx context.Context, label model.Label, depth, limit int) (model.Snapshot, error) {
	if !label.IsKnown() {
		return model.EmptySnapshot(), fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	if limit <= 0 {
		limit = LabelLimit
	}
	depth = ClampDepth(depth)
	params := map[string]any{"limit": limit}

	var seed, expand model.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		seed, err = s.graph(gctx, fmt.Sprintf(labelSeedCypher, label), params)
		return err
	})
	if depth > 1 {
		g.Go(func() error {
			var err error
			expand, err = s.graph(gctx, fmt.Sprintf(labelExpandCypher, label, depth-1), params)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, err
	}
	return merge(seed, expand), nil
}

// Projects implements Store.
func (s *Neo4jStore) Projects(ctx context.Context) ([]model.Project, error) {
	res, err := s.runner.Run(ctx, projectsCypher, nil)
	if err != nil {
		return nil, err
	}
	projects := make([]model.Project, 0, len(res.Records))
	for _, rec := range res.Records {
		p := model.Project{
			ID:           recordString(rec, "project_id"),
			Name:         recordString(rec, "name"),
			ExtractionID: recordString(rec, "extraction_id"),
			PageCount:    recordInt(rec, "page_count"),
			NodeCount:    recordInt(rec, "node_count"),
			CreatedAt:    recordString(rec, "created_at"),
		}
		if p.ID == "" {
			continue
		}
		fillProjectDefaults(&p)
		projects = append(projects, p)
	}
	return projects, nil
}

// graph runs query and maps every returned node and relationship,
// de-duplicated by element id.
func (s *Neo4jStore) graph(ctx context.Context, query string, params map[string]any) (model.Snapshot, error) {
	res, err := s.runner.Run(ctx, query, params)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap := recordsToSnapshot(res.Records)
	debug.Log("neo4j: %d records -> %d nodes, %d edges", len(res.Records), len(snap.Nodes), len(snap.Edges))
	return snap, nil
}

func recordsToSnapshot(records []*neo4j.Record) model.Snapshot {
	snap := model.EmptySnapshot()
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)
	for _, rec := range records {
		for _, value := range rec.Values {
			switch v := value.(type) {
			case neo4j.Node:
				if seenNodes[v.ElementId] {
					continue
				}
				seenNodes[v.ElementId] = true
				label := model.LabelUnknown
				if len(v.Labels) > 0 {
					label = model.Label(v.Labels[0])
				}
				snap.Nodes = append(snap.Nodes, model.Node{ID: v.ElementId, Label: label, Properties: v.Props})
			case neo4j.Relationship:
				if seenEdges[v.ElementId] {
					continue
				}
				seenEdges[v.ElementId] = true
				snap.Edges = append(snap.Edges, model.Edge{
					ID:         v.ElementId,
					Source:     v.StartElementId,
					Target:     v.EndElementId,
					Type:       model.RelType(v.Type),
					Properties: v.Props,
				})
			}
		}
	}
	return snap
}

// merge appends b to a, skipping nodes and relationships a already has.
func merge(a, b model.Snapshot) model.Snapshot {
	out := model.Snapshot{
		Nodes: append(append([]model.Node{}, a.Nodes...), b.Nodes...),
		Edges: make([]model.Edge, 0, len(a.Edges)+len(b.Edges)),
	}
	seen := make(map[string]bool)
	for _, e := range append(append([]model.Edge{}, a.Edges...), b.Edges...) {
		if e.ID != "" {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
		}
		out.Edges = append(out.Edges, e)
	}
	return out.Dedupe()
}

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func recordInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
