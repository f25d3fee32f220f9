// Package service implements the application layer behind the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kampusasistani/rag/internal/blob"
	"github.com/kampusasistani/rag/internal/ingestion"
	"github.com/kampusasistani/rag/internal/registry"
)

// DocumentService manages the regulation corpus: uploads, listing, deletion.
// Ingestion is synchronous; the upload call returns only after the document
// is chunked, indexed and registered.
type DocumentService struct {
	blobs    blob.Store
	pipeline *ingestion.Pipeline
	registry registry.Registry
	logger   *slog.Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(blobs blob.Store, pipeline *ingestion.Pipeline, reg registry.Registry, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{blobs: blobs, pipeline: pipeline, registry: reg, logger: logger}
}

// Upload stores the PDF and runs the full ingestion pipeline. Re-uploading an
// existing filename replaces the previous version.
func (s *DocumentService) Upload(ctx context.Context, filename, owner string, r io.Reader) (*ingestion.Result, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, fmt.Errorf("only PDF uploads are accepted, got %q", filename)
	}

	path, err := s.blobs.Save(filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	result, err := s.pipeline.Ingest(ctx, path, owner)
	if err != nil {
		// Keep the stored file out of the corpus if ingestion failed.
		if rmErr := s.blobs.Delete(filename); rmErr != nil {
			s.logger.Warn("failed to remove file after ingestion error", "file", filename, "error", rmErr)
		}
		return nil, err
	}

	s.logger.Info("document ingested",
		"document", result.Document.Filename,
		"pages", result.Document.PageCount,
		"chunks", result.Chunks,
		"structured", result.Verdict.NeedsStructured)
	return result, nil
}

// List returns all registered documents, most recent first.
func (s *DocumentService) List(ctx context.Context) ([]*registry.Document, error) {
	return s.registry.List(ctx)
}

// Delete removes a document from the registry, the vector store and disk.
// Registry removal is authoritative; the file delete is best effort.
func (s *DocumentService) Delete(ctx context.Context, filename string) error {
	if err := s.pipeline.Delete(ctx, filename); err != nil {
		return err
	}
	if err := s.blobs.Delete(filename); err != nil {
		s.logger.Warn("failed to remove stored file", "file", filename, "error", err)
	}
	return nil
}
