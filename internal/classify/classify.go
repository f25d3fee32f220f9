// Package classify decides whether a document needs the slow, structure
// preserving extraction path or whether the plain text layer is good enough.
package classify

import (
	"fmt"
	"math"
	"strings"

	"github.com/kampusasistani/rag/internal/pdf"
)

// Verdict is the per-document classification result. It is computed once at
// ingestion time and never revisited per query.
type Verdict struct {
	NeedsStructured bool
	Reason          string
}

// Classifier inspects a document's leading pages and returns a Verdict.
type Classifier interface {
	Classify(doc *pdf.Document) Verdict
}

// Config holds the layout heuristics thresholds.
type Config struct {
	// SamplePages is how many leading pages to inspect. Regulation PDFs are
	// homogeneous; sampling past the first few pages buys nothing.
	SamplePages int

	// ColumnBuckets is the minimum number of distinct left-edge x buckets
	// that must each hold BucketMinRows blocks before a page counts as
	// tabular. Short indented lists produce a second bucket with only a
	// handful of rows; sustained columns fill several.
	ColumnBuckets int
	BucketMinRows int

	// DrawOpLimit flags pages whose drawn line/rectangle count exceeds it
	// (ruled tables draw their grid even when text alignment looks flat).
	DrawOpLimit int

	// BucketTolerance rounds x coordinates into alignment buckets, in page
	// units (points).
	BucketTolerance float64
}

// DefaultConfig mirrors the tuned production thresholds.
func DefaultConfig() Config {
	return Config{
		SamplePages:     3,
		ColumnBuckets:   3,
		BucketMinRows:   15,
		DrawOpLimit:     40,
		BucketTolerance: 10,
	}
}

// functionWords are high-frequency words that appear in any real page of
// Turkish or English prose. A page with substantial text but none of these is
// almost certainly suffering from character-encoding corruption.
var functionWords = []string{
	// Turkish
	"ve", "bir", "bu", "ile", "için", "olarak", "veya", "olan", "madde",
	// English
	"the", "and", "of", "to", "in", "is", "for",
}

// minCorruptionTextLen is the minimum page text length before the corruption
// check applies; shorter pages (cover pages, blanks) are inconclusive.
const minCorruptionTextLen = 50

// LayoutClassifier is the production Classifier built on text geometry and
// drawn-primitive counts.
type LayoutClassifier struct {
	cfg Config
}

// NewLayoutClassifier creates a classifier, applying defaults for zero fields.
func NewLayoutClassifier(cfg Config) *LayoutClassifier {
	def := DefaultConfig()
	if cfg.SamplePages <= 0 {
		cfg.SamplePages = def.SamplePages
	}
	if cfg.ColumnBuckets <= 0 {
		cfg.ColumnBuckets = def.ColumnBuckets
	}
	if cfg.BucketMinRows <= 0 {
		cfg.BucketMinRows = def.BucketMinRows
	}
	if cfg.DrawOpLimit <= 0 {
		cfg.DrawOpLimit = def.DrawOpLimit
	}
	if cfg.BucketTolerance <= 0 {
		cfg.BucketTolerance = def.BucketTolerance
	}
	return &LayoutClassifier{cfg: cfg}
}

// Classify returns the document verdict: the OR of all sampled page flags.
// It never panics; an internal failure assumes the expensive path, because
// over-extracting is recoverable and silently mangled tables are not.
func (c *LayoutClassifier) Classify(doc *pdf.Document) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{
				NeedsStructured: true,
				Reason:          "layout analysis failed; assuming structured extraction is required",
			}
		}
	}()

	if doc == nil || len(doc.Pages) == 0 {
		return Verdict{NeedsStructured: false, Reason: "document has no pages"}
	}

	sample := c.cfg.SamplePages
	if sample > len(doc.Pages) {
		sample = len(doc.Pages)
	}

	for _, page := range doc.Pages[:sample] {
		if flagged, reason := c.classifyPage(page); flagged {
			return Verdict{NeedsStructured: true, Reason: reason}
		}
	}

	return Verdict{
		NeedsStructured: false,
		Reason:          fmt.Sprintf("first %d pages show plain single-column text", sample),
	}
}

func (c *LayoutClassifier) classifyPage(page pdf.Page) (bool, string) {
	if cols := c.alignedColumns(page.Blocks); cols >= c.cfg.ColumnBuckets {
		return true, fmt.Sprintf(
			"page %d has %d aligned text columns, suggesting a table or multi-column layout",
			page.Number, cols)
	}

	if page.DrawOps > c.cfg.DrawOpLimit {
		return true, fmt.Sprintf(
			"page %d contains %d drawn lines/rectangles (limit %d), suggesting a ruled table",
			page.Number, page.DrawOps, c.cfg.DrawOpLimit)
	}

	if c.looksCorrupted(page.Text) {
		return true, fmt.Sprintf(
			"page %d text contains no common function words, suggesting encoding corruption",
			page.Number)
	}

	return false, ""
}

// alignedColumns counts distinct left-edge buckets that each hold at least
// BucketMinRows blocks.
func (c *LayoutClassifier) alignedColumns(blocks []pdf.TextBlock) int {
	if len(blocks) == 0 {
		return 0
	}

	buckets := make(map[int]int)
	for _, b := range blocks {
		key := int(math.Round(b.X / c.cfg.BucketTolerance))
		buckets[key]++
	}

	cols := 0
	for _, n := range buckets {
		if n >= c.cfg.BucketMinRows {
			cols++
		}
	}
	return cols
}

func (c *LayoutClassifier) looksCorrupted(text string) bool {
	if len(text) <= minCorruptionTextLen {
		return false
	}
	lower := strings.ToLower(text)
	words := make(map[string]struct{})
	for _, w := range strings.Fields(lower) {
		words[strings.Trim(w, ".,;:()[]'\"")] = struct{}{}
	}
	for _, fw := range functionWords {
		if _, ok := words[fw]; ok {
			return false
		}
	}
	return true
}

var _ Classifier = (*LayoutClassifier)(nil)
