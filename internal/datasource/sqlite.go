package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// SQLiteStore serves queries from an offline case file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens a case file read-only.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Read performance only; failures are harmless.
	for _, pragma := range []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite store: %s: %v", pragma, err)
		}
	}

	var version string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s is not a case file: %w", path, err)
	}
	debug.Log("sqlite store: %s schema v%s", path, version)

	return &SQLiteStore{db: db, path: path}, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the case file path.
func (s *SQLiteStore) Path() string { return s.path }

const scopedEdgesSQL = `
	SELECT e.source, e.target, e.type, e.properties
	FROM edges e
	JOIN nodes s ON s.id = e.source
	LEFT JOIN nodes t ON t.id = e.target
	WHERE ?1 = '' OR (s.project_id = ?1 AND (t.id IS NULL OR t.project_id = ?1))
	ORDER BY e.id
	LIMIT ?2
`

// FullGraph implements Store.
func (s *SQLiteStore) FullGraph(ctx context.Context, limit int, projectID string) (model.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.scoped(ctx, projectID, limit)
}

// ProjectGraph implements Store.
func (s *SQLiteStore) ProjectGraph(ctx context.Context, projectID string, limit int) (model.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	snap, err := s.scoped(ctx, projectID, limit)
	if err != nil {
		return model.Snapshot{}, err
	}

	hubs, err := s.queryNodes(ctx,
		`SELECT id, label, properties FROM nodes WHERE label = ? AND project_id = ?`,
		string(model.LabelProject), projectID)
	if err != nil {
		return model.Snapshot{}, err
	}
	for _, h := range hubs {
		if !snap.HasNode(h.ID) {
			snap.Nodes = append(snap.Nodes, h)
		}
	}
	if snap.IsEmpty() {
		return model.EmptySnapshot(), ErrNoGraph
	}
	return snap, nil
}

// SearchGraph implements Store. Matching and hop expansion run in memory
// over the whole case file.
func (s *SQLiteStore) SearchGraph(ctx context.Context, name string, depth int) (model.Snapshot, error) {
	d, err := s.loadAll(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	return d.search(name, depth), nil
}

// LabelGraph implements Store.
func (s *SQLiteStore) LabelGraph(ctx context.Context, label model.Label, depth, limit int) (model.Snapshot, error) {
	if !label.IsKnown() {
		return model.EmptySnapshot(), fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	d, err := s.loadAll(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	return d.label(label, depth, limit)
}

// Projects implements Store.
func (s *SQLiteStore) Projects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.project_id, p.name, p.extraction_id, p.page_count, p.created_at,
			(SELECT count(*) FROM edges e
				JOIN nodes n ON n.id = e.source
				JOIN nodes h ON h.id = e.target
				WHERE e.type = 'PART_OF' AND n.label != 'Page' AND h.project_id = p.project_id
			) AS node_count
		FROM projects p
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.ExtractionID, &p.PageCount, &p.CreatedAt, &p.NodeCount); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		fillProjectDefaults(&p)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	if len(projects) > 0 {
		return projects, nil
	}

	d, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return d.projectList(), nil
}

func (s *SQLiteStore) scoped(ctx context.Context, projectID string, limit int) (model.Snapshot, error) {
	edges, err := s.queryEdges(ctx, scopedEdgesSQL, projectID, limit)
	if err != nil {
		return model.Snapshot{}, err
	}

	var ids []string
	seen := make(map[string]bool)
	for _, e := range edges {
		for _, id := range []string{e.Source, e.Target} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	nodes, err := s.nodesByID(ctx, ids)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{Nodes: nodes, Edges: edges}, nil
}

// nodesByID loads the given nodes in the order of ids, skipping unknown ids.
func (s *SQLiteStore) nodesByID(ctx context.Context, ids []string) ([]model.Node, error) {
	nodes := make([]model.Node, 0, len(ids))
	if len(ids) == 0 {
		return nodes, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, label, properties FROM nodes WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	found, err := s.queryNodes(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Node, len(found))
	for _, n := range found {
		byID[n.ID] = n
	}
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (s *SQLiteStore) loadAll(ctx context.Context) (*dataset, error) {
	nodes, err := s.queryNodes(ctx, `SELECT id, label, properties FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	edges, err := s.queryEdges(ctx, `SELECT source, target, type, properties FROM edges ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return newDataset(model.Snapshot{Nodes: nodes, Edges: edges}, nil), nil
}

func (s *SQLiteStore) queryNodes(ctx context.Context, query string, args ...any) ([]model.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		var n model.Node
		var label, props string
		if err := rows.Scan(&n.ID, &label, &props); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Label = model.Label(label)
		if n.Properties, err = decodeProps(props); err != nil {
			return nil, fmt.Errorf("decode node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteStore) queryEdges(ctx context.Context, query string, args ...any) ([]model.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	edges := []model.Edge{}
	for rows.Next() {
		var e model.Edge
		var typ, props string
		if err := rows.Scan(&e.Source, &e.Target, &typ, &props); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Type = model.RelType(typ)
		if e.Properties, err = decodeProps(props); err != nil {
			return nil, fmt.Errorf("decode edge %s->%s: %w", e.Source, e.Target, err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
