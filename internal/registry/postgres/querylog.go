package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kampusasistani/rag/internal/registry"
)

// QueryLogRepo implements registry.QueryLog
type QueryLogRepo struct {
	db *DB
}

// NewQueryLogRepo creates a new query log backed by PostgreSQL.
func NewQueryLogRepo(db *DB) *QueryLogRepo {
	return &QueryLogRepo{db: db}
}

// LogQuery records one user question.
func (r *QueryLogRepo) LogQuery(ctx context.Context, username, question string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO query_log (username, question, asked_at) VALUES ($1, $2, $3)`,
		username, question, time.Now())
	if err != nil {
		return fmt.Errorf("failed to log query: %w", err)
	}
	return nil
}

// RecentQueries returns the latest logged questions, newest first.
func (r *QueryLogRepo) RecentQueries(ctx context.Context, limit int) ([]*registry.QueryLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, username, question, asked_at FROM query_log ORDER BY asked_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var entries []*registry.QueryLogEntry
	for rows.Next() {
		var e registry.QueryLogEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Question, &e.AskedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query log entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate query log: %w", err)
	}
	return entries, nil
}

var _ registry.QueryLog = (*QueryLogRepo)(nil)
