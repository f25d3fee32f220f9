package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kampusasistani/rag/internal/embedder"
	"github.com/kampusasistani/rag/internal/vectorstore"
)

// Indexer embeds chunks and writes them to the vector store in bounded,
// paced batches to respect embedding-API rate limits.
type Indexer struct {
	embedder  embedder.Embedder
	store     vectorstore.VectorStore
	batchSize int
	delay     time.Duration
	logger    *slog.Logger
}

// NewIndexer creates an Indexer with the given batch pacing.
func NewIndexer(emb embedder.Embedder, store vectorstore.VectorStore, batchSize int, delay time.Duration) *Indexer {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Indexer{
		embedder:  emb,
		store:     store,
		batchSize: batchSize,
		delay:     delay,
		logger:    slog.Default(),
	}
}

// Upsert embeds and stores the given chunks. Vector store failures are
// terminal: a partially indexed document is surfaced, never papered over.
func (ix *Indexer) Upsert(ctx context.Context, chunks []Chunk) error {
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if start > 0 && ix.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ix.delay):
			}
		}

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch starting at chunk %d: %w", start, err)
		}

		points := make([]vectorstore.Point, len(batch))
		for i, chunk := range batch {
			points[i] = vectorstore.Point{
				ID:      chunk.ID,
				Vector:  vectors[i],
				Source:  chunk.Source,
				Page:    chunk.Page,
				Title:   chunk.Title,
				Content: chunk.Content,
			}
		}

		if err := ix.store.Upsert(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch starting at chunk %d: %w", start, err)
		}
	}
	return nil
}

// Delete removes a document's vectors. Failures are logged, not fatal: the
// registry removal is authoritative for listing purposes even when vector
// cleanup lags behind.
func (ix *Indexer) Delete(ctx context.Context, source string) {
	if err := ix.store.Delete(ctx, source); err != nil {
		ix.logger.Error("failed to delete document vectors", "source", source, "error", err)
	}
}
