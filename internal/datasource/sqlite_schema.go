package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// SchemaVersion is stored in the meta table of every case file.
const SchemaVersion = 1

// CreateSchema creates the case file tables and indexes.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"projects", `
			CREATE TABLE IF NOT EXISTS projects (
				project_id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				extraction_id TEXT NOT NULL DEFAULT '',
				page_count INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL DEFAULT ''
			)`},
		{"nodes", `
			CREATE TABLE IF NOT EXISTS nodes (
				id TEXT PRIMARY KEY,
				label TEXT NOT NULL,
				project_id TEXT NOT NULL DEFAULT '',
				properties TEXT NOT NULL DEFAULT '{}'
			)`},
		{"edges", `
			CREATE TABLE IF NOT EXISTS edges (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				source TEXT NOT NULL,
				target TEXT NOT NULL,
				type TEXT NOT NULL,
				properties TEXT NOT NULL DEFAULT '{}'
			)`},
		{"meta", `
			CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`},
		{"idx_nodes_project", `CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id)`},
		{"idx_edges_source", `CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source)`},
		{"idx_edges_target", `CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target)`},
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

// SaveSnapshot writes snap and projects to a fresh case file at path,
// replacing any existing file. When projects is empty they are derived from
// the Project hub nodes in snap.
func SaveSnapshot(ctx context.Context, path string, snap model.Snapshot, projects []model.Project) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing existing case file: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if err := CreateSchema(ctx, db); err != nil {
		return err
	}

	d := newDataset(snap, projects)
	if len(projects) == 0 {
		projects = d.projectList()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertProjects(ctx, tx, projects); err != nil {
		return err
	}
	if err := insertNodes(ctx, tx, d.snap.Nodes); err != nil {
		return err
	}
	if err := insertEdges(ctx, tx, d.snap.Edges); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('schema_version', ?)`, fmt.Sprint(SchemaVersion)); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	return tx.Commit()
}

func insertProjects(ctx context.Context, tx *sql.Tx, projects []model.Project) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO projects (project_id, name, extraction_id, page_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare projects: %w", err)
	}
	defer stmt.Close()
	for _, p := range projects {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.ExtractionID, p.PageCount, p.CreatedAt); err != nil {
			return fmt.Errorf("insert project %s: %w", p.ID, err)
		}
	}
	return nil
}

func insertNodes(ctx context.Context, tx *sql.Tx, nodes []model.Node) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (id, label, project_id, properties) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare nodes: %w", err)
	}
	defer stmt.Close()
	for _, n := range nodes {
		props, err := encodeProps(n.Properties)
		if err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, n.ID, string(n.Label), projectOf(n), props); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, edges []model.Edge) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (source, target, type, properties) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare edges: %w", err)
	}
	defer stmt.Close()
	for _, e := range edges {
		props, err := encodeProps(e.Properties)
		if err != nil {
			return fmt.Errorf("encode edge %s->%s: %w", e.Source, e.Target, err)
		}
		if _, err := stmt.ExecContext(ctx, e.Source, e.Target, string(e.Type), props); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return nil
}

func encodeProps(props map[string]any) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeProps(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, err
	}
	return props, nil
}
