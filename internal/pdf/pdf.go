// Package pdf loads PDF documents: per-page text, text geometry, and drawn
// primitive counts used by the layout classifier.
package pdf

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextBlock is a horizontal run of text on a page. X is the left edge of the
// run in page coordinates.
type TextBlock struct {
	X    float64
	Y    float64
	Text string
}

// Page holds the extracted text layer and layout features of one page.
type Page struct {
	Number  int // 1-based
	Text    string
	Blocks  []TextBlock
	DrawOps int // drawn rectangles and path segments (table grids, rules)
}

// Document is a loaded PDF ready for classification and extraction.
type Document struct {
	Filename string
	Path     string
	Pages    []Page
}

// rowGapFactor controls when two text items on the same baseline are split
// into separate blocks: a horizontal gap wider than this many font sizes
// starts a new block.
const rowGapFactor = 2.0

// Load opens a PDF and extracts text plus layout features for every page.
// Geometry extraction is best effort: a page whose content stream cannot be
// interpreted still contributes its plain text (or an empty page), so a
// damaged page never fails the whole document.
func Load(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	doc := &Document{
		Filename: filepath.Base(path),
		Path:     path,
	}

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		doc.Pages = append(doc.Pages, loadPage(reader, i))
	}

	return doc, nil
}

func loadPage(reader *pdf.Reader, number int) Page {
	page := Page{Number: number}

	p := reader.Page(number)
	if p.V.IsNull() {
		return page
	}

	// Content interpretation can panic on malformed streams; degrade to an
	// empty feature set rather than aborting the load.
	func() {
		defer func() { _ = recover() }()

		content := p.Content()
		page.Blocks = groupBlocks(content.Text)
		page.DrawOps = len(content.Rect) + countPathOps(p)
	}()

	func() {
		defer func() { _ = recover() }()

		text, err := p.GetPlainText(nil)
		if err == nil {
			page.Text = strings.TrimSpace(text)
		}
	}()

	// Fall back to concatenated text items when the font-aware extraction
	// produced nothing but geometry did.
	if page.Text == "" && len(page.Blocks) > 0 {
		var sb strings.Builder
		for _, b := range page.Blocks {
			sb.WriteString(b.Text)
			sb.WriteString("\n")
		}
		page.Text = strings.TrimSpace(sb.String())
	}

	return page
}

// groupBlocks merges raw text items into left-edge anchored runs. Items are
// first bucketed into rows by baseline, then split on wide horizontal gaps so
// each column of a tabular layout yields its own block.
func groupBlocks(items []pdf.Text) []TextBlock {
	if len(items) == 0 {
		return nil
	}

	rows := make(map[int][]pdf.Text)
	for _, item := range items {
		key := int(math.Round(item.Y))
		rows[key] = append(rows[key], item)
	}

	keys := make([]int, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	// Top of page first
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	var blocks []TextBlock
	for _, k := range keys {
		row := rows[k]
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })

		var cur strings.Builder
		curX := row[0].X
		prevEnd := row[0].X

		flush := func(y float64) {
			text := strings.TrimSpace(cur.String())
			if text != "" {
				blocks = append(blocks, TextBlock{X: curX, Y: y, Text: text})
			}
			cur.Reset()
		}

		for _, item := range row {
			gap := item.X - prevEnd
			limit := item.FontSize * rowGapFactor
			if limit <= 0 {
				limit = 10
			}
			if cur.Len() > 0 && gap > limit {
				flush(item.Y)
				curX = item.X
			}
			cur.WriteString(item.S)
			prevEnd = item.X + item.W
		}
		flush(row[0].Y)
	}

	return blocks
}

// countPathOps scans the raw content stream for line-drawing operators that
// the text interpreter ignores. Table grids show up as long runs of "m"/"l"
// segments even when no "re" rectangles are present.
func countPathOps(p pdf.Page) (count int) {
	defer func() { _ = recover() }()

	contents := p.V.Key("Contents")
	streams := []pdf.Value{contents}
	if contents.Kind() == pdf.Array {
		streams = streams[:0]
		for i := 0; i < contents.Len(); i++ {
			streams = append(streams, contents.Index(i))
		}
	}

	for _, stream := range streams {
		if stream.Kind() != pdf.Stream {
			continue
		}
		data, err := io.ReadAll(stream.Reader())
		if err != nil {
			continue
		}
		count += countOps(string(data))
	}
	return count
}

func countOps(stream string) int {
	count := 0
	fields := strings.Fields(stream)
	for _, tok := range fields {
		switch tok {
		case "l", "m", "re":
			count++
		}
	}
	return count
}
