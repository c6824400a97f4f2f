package datasource

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Dataset is the on-disk JSON document read by FileStore. A /graph/export
// response from the dashboard API has the same shape.
type Dataset struct {
	Projects []model.Project `json:"projects,omitempty"`
	Nodes    []model.Node    `json:"nodes"`
	Edges    []model.Edge    `json:"edges"`
}

// FileStore serves queries from a JSON dataset file. The file is re-read
// whenever its modification time changes, so edits show up on Refresh.
type FileStore struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	data    *dataset
}

// NewFileStore opens and parses the dataset at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadDataset parses a dataset file.
func ReadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading dataset: %w", err)
	}
	var doc Dataset
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Dataset{}, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	return doc, nil
}

func (s *FileStore) load() (*dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", s.path, err)
	}
	if s.data != nil && info.ModTime().Equal(s.modTime) {
		return s.data, nil
	}

	doc, err := ReadDataset(s.path)
	if err != nil {
		return nil, err
	}
	s.data = newDataset(model.Snapshot{Nodes: doc.Nodes, Edges: doc.Edges}, doc.Projects)
	s.modTime = info.ModTime()
	debug.Log("file store: loaded %d nodes, %d edges from %s", len(doc.Nodes), len(doc.Edges), s.path)
	return s.data, nil
}

// FullGraph implements Store.
func (s *FileStore) FullGraph(ctx context.Context, limit int, projectID string) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	d, err := s.load()
	if err != nil {
		return model.Snapshot{}, err
	}
	return d.full(limit, projectID), nil
}

// ProjectGraph implements Store.
func (s *FileStore) ProjectGraph(ctx context.Context, projectID string, limit int) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	d, err := s.load()
	if err != nil {
		return model.Snapshot{}, err
	}
	return d.project(projectID, limit)
}

// SearchGraph implements Store.
func (s *FileStore) SearchGraph(ctx context.Context, name string, depth int) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	d, err := s.load()
	if err != nil {
		return model.Snapshot{}, err
	}
	return d.search(name, depth), nil
}

// LabelGraph implements Store.
func (s *FileStore) LabelGraph(ctx context.Context, label model.Label, depth, limit int) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	d, err := s.load()
	if err != nil {
		return model.Snapshot{}, err
	}
	return d.label(label, depth, limit)
}

// Projects implements Store.
func (s *FileStore) Projects(ctx context.Context) ([]model.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := s.load()
	if err != nil {
		return nil, err
	}
	return d.projectList(), nil
}

// Path returns the dataset file path.
func (s *FileStore) Path() string { return s.path }

// Close implements Store.
func (s *FileStore) Close() error { return nil }
