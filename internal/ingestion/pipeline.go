package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kampusasistani/rag/internal/classify"
	"github.com/kampusasistani/rag/internal/extract"
	"github.com/kampusasistani/rag/internal/pdf"
	"github.com/kampusasistani/rag/internal/registry"
)

// Result holds the outcome of ingesting one document.
type Result struct {
	Document *registry.Document
	Verdict  classify.Verdict
	Chunks   int
}

// Pipeline orchestrates ingestion: classify, extract, chunk, index, register.
// Documents are processed one at a time; every stage degrades to a safer
// fallback on internal failure, except vector store unavailability, which is
// terminal and surfaced.
type Pipeline struct {
	classifier classify.Classifier
	fast       extract.Extractor
	structured extract.Extractor
	chunker    *Chunker
	indexer    *Indexer
	registry   registry.Registry
	logger     *slog.Logger
	loader     func(path string) (*pdf.Document, error)
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	classifier classify.Classifier,
	fast, structured extract.Extractor,
	chunker *Chunker,
	indexer *Indexer,
	reg registry.Registry,
) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		fast:       fast,
		structured: structured,
		chunker:    chunker,
		indexer:    indexer,
		registry:   reg,
		logger:     slog.Default(),
		loader:     pdf.Load,
	}
}

// Ingest processes one uploaded PDF end to end. Re-uploading a filename
// supersedes the previous version: old vectors are removed before the new
// ones are written, and the registry row is replaced, not duplicated.
func (p *Pipeline) Ingest(ctx context.Context, path, owner string) (*Result, error) {
	doc, err := p.loader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	verdict := p.classifier.Classify(doc)
	p.logger.Info("classified document",
		"document", doc.Filename,
		"needs_structured", verdict.NeedsStructured,
		"reason", verdict.Reason)

	extractor := p.fast
	if verdict.NeedsStructured {
		extractor = p.structured
	}
	pages := extractor.Extract(ctx, doc)

	if totalText(pages) == 0 {
		return nil, fmt.Errorf("no text could be extracted from %s", doc.Filename)
	}

	chunks := p.chunker.ChunkDocument(doc.Filename, pages)
	p.logger.Info("chunked document", "document", doc.Filename, "chunks", len(chunks))

	// Supersede: drop the previous version's vectors before indexing.
	p.indexer.Delete(ctx, doc.Filename)

	if err := p.indexer.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", doc.Filename, err)
	}

	entry := &registry.Document{
		Filename:        doc.Filename,
		Owner:           owner,
		Title:           DetectTitle(pages),
		PageCount:       len(doc.Pages),
		ChunkCount:      len(chunks),
		NeedsStructured: verdict.NeedsStructured,
		ClassifyReason:  verdict.Reason,
		UploadedAt:      time.Now(),
	}
	if err := p.registry.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", doc.Filename, err)
	}

	return &Result{Document: entry, Verdict: verdict, Chunks: len(chunks)}, nil
}

// Delete removes a document everywhere: registry first (authoritative for
// listing), then vectors (best effort, logged on failure).
func (p *Pipeline) Delete(ctx context.Context, filename string) error {
	if err := p.registry.Delete(ctx, filename); err != nil {
		return err
	}
	p.indexer.Delete(ctx, filename)
	return nil
}

func totalText(pages []extract.PageText) int {
	total := 0
	for _, page := range pages {
		total += len(strings.TrimSpace(page.Text))
	}
	return total
}
