// Package extract turns loaded PDF documents into text, choosing between the
// fast text-layer path and the vision-based structure-preserving path.
package extract

import (
	"context"

	"github.com/kampusasistani/rag/internal/pdf"
)

// PageText is the extraction output of one page.
type PageText struct {
	Page       int
	Text       string
	Structured bool // true when the vision path produced this page
}

// Extractor extracts best-effort text from a document. Implementations never
// fail the whole document: a page that cannot be processed degrades to its
// text layer, or to empty text if none exists.
type Extractor interface {
	Extract(ctx context.Context, doc *pdf.Document) []PageText
}
