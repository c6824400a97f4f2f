// Package datasource provides clients for the external graph store that
// holds case entities and relationships. A Neo4j database, the dashboard REST
// API, an offline SQLite case file and a JSON dataset file all satisfy Store.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// SourceType identifies the kind of graph store.
type SourceType string

const (
	// SourceTypeNeo4j is a live Neo4j database reached over bolt.
	SourceTypeNeo4j SourceType = "neo4j"
	// SourceTypeHTTP is the dashboard REST API (/graph/...).
	SourceTypeHTTP SourceType = "http"
	// SourceTypeSQLite is an offline case file written by cg -save-db.
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeFile is a JSON dataset {projects, nodes, edges}.
	SourceTypeFile SourceType = "file"
)

// Query limits applied by every store.
const (
	DefaultLimit = 500
	SearchLimit  = 300
	LabelLimit   = 200
	MinDepth     = 1
	MaxDepth     = 5
)

var (
	// ErrNoGraph reports that the requested scope holds no graph at all.
	// The gateway turns it into an empty snapshot.
	ErrNoGraph = errors.New("no graph for scope")
	// ErrUnknownSource reports an unsupported SourceType.
	ErrUnknownSource = errors.New("unknown source type")
	// ErrUnknownLabel reports a label outside the closed entity set. Stores
	// reject it before a label reaches a query.
	ErrUnknownLabel = errors.New("unknown entity label")
)

// StatusError is a non-2xx response from the REST API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, body)
}

// Detail returns the "detail" field of a JSON error body, or "" when the body
// is not one.
func (e *StatusError) Detail() string {
	var doc struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal([]byte(e.Body), &doc) != nil {
		return ""
	}
	return doc.Detail
}

// Options selects and configures a store.
type Options struct {
	Type SourceType

	// Neo4j
	URI      string
	User     string
	Password string
	Database string

	// REST API
	BaseURL string
	Token   string
	Timeout time.Duration

	// SQLite case file or JSON dataset
	Path string
}

// Open returns the store described by opts. Neo4j connectivity is verified
// before returning.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case SourceTypeNeo4j:
		return NewNeo4jStore(ctx, opts)
	case SourceTypeHTTP:
		return NewHTTPStore(opts)
	case SourceTypeSQLite:
		if err := requireFile(opts.Path); err != nil {
			return nil, err
		}
		return NewSQLiteStore(opts.Path)
	case SourceTypeFile:
		if err := requireFile(opts.Path); err != nil {
			return nil, err
		}
		return NewFileStore(opts.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, opts.Type)
	}
}

// IsFileBacked reports whether the store reads a local file that can be
// watched for changes.
func (t SourceType) IsFileBacked() bool {
	return t == SourceTypeSQLite || t == SourceTypeFile
}

// ParseSourceType validates a user-supplied source name.
func ParseSourceType(s string) (SourceType, error) {
	switch t := SourceType(strings.ToLower(strings.TrimSpace(s))); t {
	case SourceTypeNeo4j, SourceTypeHTTP, SourceTypeSQLite, SourceTypeFile:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

func requireFile(path string) error {
	if path == "" {
		return fmt.Errorf("data path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// ClampDepth bounds a search depth to [MinDepth, MaxDepth].
func ClampDepth(depth int) int {
	return max(MinDepth, min(MaxDepth, depth))
}
