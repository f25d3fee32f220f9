package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kampusasistani/rag/internal/llm"
	"github.com/kampusasistani/rag/internal/pdf"
)

// visionInstruction is the page transcription brief for the vision model.
// Header propagation matters most: a flat transcription that separates a
// table's governing heading from its data rows makes the rows unanswerable
// after chunking.
const visionInstruction = `Transcribe this regulation page to text. The page may be in Turkish.
Rules:
1. Reproduce every table as a markdown table.
2. Repeat each table's governing heading inside every data row, so each row is understandable on its own.
3. Attach footnotes directly after the clause they annotate.
4. Fix obviously corrupted characters (mojibake) to proper Turkish letters.
Output only the transcribed text, no commentary.`

// StructuredExtractor renders each page to an image and asks a vision-capable
// model to transcribe it with table structure preserved. Extraction composes
// at the page level: a failed or empty vision response falls back to that
// page's text layer, so one bad page cannot blank a document.
type StructuredExtractor struct {
	Renderer pdf.Renderer
	Vision   llm.LLM

	// PageDelay is the fixed sleep between per-page vision calls. The vision
	// API is rate limited; latency is traded for quota safety.
	PageDelay time.Duration

	Logger *slog.Logger
}

// NewStructuredExtractor creates the vision-backed extractor.
func NewStructuredExtractor(renderer pdf.Renderer, vision llm.LLM, pageDelay time.Duration) *StructuredExtractor {
	return &StructuredExtractor{
		Renderer:  renderer,
		Vision:    vision,
		PageDelay: pageDelay,
		Logger:    slog.Default(),
	}
}

// Extract processes pages sequentially, pacing between vision calls.
func (e *StructuredExtractor) Extract(ctx context.Context, doc *pdf.Document) []PageText {
	if doc == nil {
		return nil
	}

	pages := make([]PageText, 0, len(doc.Pages))
	for i, p := range doc.Pages {
		if i > 0 && e.PageDelay > 0 {
			select {
			case <-ctx.Done():
				// Remaining pages degrade to their text layer.
				pages = append(pages, PageText{Page: p.Number, Text: p.Text})
				continue
			case <-time.After(e.PageDelay):
			}
		}

		pages = append(pages, e.extractPage(ctx, doc, p))
	}
	return pages
}

func (e *StructuredExtractor) extractPage(ctx context.Context, doc *pdf.Document, p pdf.Page) PageText {
	fallback := PageText{Page: p.Number, Text: p.Text}

	image, err := e.Renderer.RenderPage(ctx, doc.Path, p.Number)
	if err != nil {
		e.Logger.Warn("page render failed, using text layer",
			"document", doc.Filename, "page", p.Number, "error", err)
		return fallback
	}

	text, err := e.Vision.GenerateVision(ctx, visionInstruction, image, llm.GenerateOptions{
		Temperature: 0.1,
	})
	if err != nil {
		e.Logger.Warn("vision extraction failed, using text layer",
			"document", doc.Filename, "page", p.Number, "error", err)
		return fallback
	}

	text = strings.TrimSpace(text)
	if text == "" {
		e.Logger.Warn("vision extraction returned empty page, using text layer",
			"document", doc.Filename, "page", p.Number)
		return fallback
	}

	return PageText{Page: p.Number, Text: text, Structured: true}
}

var _ Extractor = (*StructuredExtractor)(nil)
