package extract

import (
	"context"

	"github.com/kampusasistani/rag/internal/pdf"
)

// FastExtractor returns each page's text layer as-is. O(1) external calls.
type FastExtractor struct{}

// Extract concatenates the already-parsed text layer page by page.
func (FastExtractor) Extract(_ context.Context, doc *pdf.Document) []PageText {
	if doc == nil {
		return nil
	}
	pages := make([]PageText, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		pages = append(pages, PageText{Page: p.Number, Text: p.Text})
	}
	return pages
}

var _ Extractor = FastExtractor{}
