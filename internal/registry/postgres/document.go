package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kampusasistani/rag/internal/registry"
)

// DocumentRepo implements registry.Registry
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new document registry backed by PostgreSQL.
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Upsert inserts or replaces the registry entry for the document's filename.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *registry.Document) error {
	query := `
		INSERT INTO documents (filename, owner, title, page_count, chunk_count, needs_structured, classify_reason, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (filename) DO UPDATE SET
			owner = EXCLUDED.owner,
			title = EXCLUDED.title,
			page_count = EXCLUDED.page_count,
			chunk_count = EXCLUDED.chunk_count,
			needs_structured = EXCLUDED.needs_structured,
			classify_reason = EXCLUDED.classify_reason,
			uploaded_at = EXCLUDED.uploaded_at
	`
	_, err := r.db.Pool.Exec(ctx, query,
		doc.Filename, doc.Owner, doc.Title, doc.PageCount, doc.ChunkCount,
		doc.NeedsStructured, doc.ClassifyReason, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// Get retrieves a document by filename.
func (r *DocumentRepo) Get(ctx context.Context, filename string) (*registry.Document, error) {
	query := `
		SELECT filename, owner, title, page_count, chunk_count, needs_structured, classify_reason, uploaded_at
		FROM documents
		WHERE filename = $1
	`
	var doc registry.Document
	err := r.db.Pool.QueryRow(ctx, query, filename).Scan(
		&doc.Filename, &doc.Owner, &doc.Title, &doc.PageCount, &doc.ChunkCount,
		&doc.NeedsStructured, &doc.ClassifyReason, &doc.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registry.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// List returns all registered documents, most recent upload first.
func (r *DocumentRepo) List(ctx context.Context) ([]*registry.Document, error) {
	query := `
		SELECT filename, owner, title, page_count, chunk_count, needs_structured, classify_reason, uploaded_at
		FROM documents
		ORDER BY uploaded_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*registry.Document
	for rows.Next() {
		var doc registry.Document
		if err := rows.Scan(
			&doc.Filename, &doc.Owner, &doc.Title, &doc.PageCount, &doc.ChunkCount,
			&doc.NeedsStructured, &doc.ClassifyReason, &doc.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document by filename.
func (r *DocumentRepo) Delete(ctx context.Context, filename string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM documents WHERE filename = $1`, filename)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registry.ErrNotFound
	}
	return nil
}

var _ registry.Registry = (*DocumentRepo)(nil)
