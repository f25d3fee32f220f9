// Package registry defines the document registry and query log: the
// filename-keyed listing of ingested regulations that backs the UI.
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Document is a registered regulation PDF. Identity is the filename:
// re-uploading the same filename supersedes the previous entry.
type Document struct {
	Filename        string
	Owner           string
	Title           string
	PageCount       int
	ChunkCount      int
	NeedsStructured bool
	ClassifyReason  string
	UploadedAt      time.Time
}

// QueryLogEntry records one user question for the admin analytics panel.
type QueryLogEntry struct {
	ID       int64
	Username string
	Question string
	AskedAt  time.Time
}

// Registry defines operations for document persistence.
type Registry interface {
	// Upsert inserts the document, replacing any existing entry with the
	// same filename. There is never more than one row per filename.
	Upsert(ctx context.Context, doc *Document) error

	// Get returns a document by filename, or ErrNotFound.
	Get(ctx context.Context, filename string) (*Document, error)

	// List returns all registered documents, most recent first.
	List(ctx context.Context) ([]*Document, error)

	// Delete removes a document by filename.
	Delete(ctx context.Context, filename string) error
}

// QueryLog defines operations for the analytics query log.
type QueryLog interface {
	LogQuery(ctx context.Context, username, question string) error
	RecentQueries(ctx context.Context, limit int) ([]*QueryLogEntry, error)
}
