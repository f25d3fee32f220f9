// Package vectorstore provides interfaces and implementations for vector similarity search.
package vectorstore

import (
	"context"
)

// Point is an embedded chunk ready for storage.
type Point struct {
	ID      string
	Vector  []float32
	Source  string // owning document filename
	Page    int    // 0 when extraction was not page-scoped
	Title   string
	Content string
}

// Candidate is a retrieval result: a stored chunk plus its retrieval-stage
// relevance signal. Candidates are produced fresh per query and never persisted.
type Candidate struct {
	ID      string
	Source  string
	Page    int
	Title   string
	Content string
	Score   float32
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// EnsureCollection creates the regulation collection if it does not exist.
	EnsureCollection(ctx context.Context, dimension int) error

	// Upsert inserts or updates embedded chunks.
	Upsert(ctx context.Context, points []Point) error

	// MMRSearch performs diversity-aware similarity search: it fetches fetchK
	// nearest points and selects k of them by Maximal Marginal Relevance.
	// lambda in [0,1] trades relevance (1) against diversity (0).
	MMRSearch(ctx context.Context, vector []float32, k, fetchK int, lambda float32) ([]Candidate, error)

	// Delete removes every chunk whose source matches the given filename.
	Delete(ctx context.Context, source string) error
}
