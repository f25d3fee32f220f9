// Package ingestion handles document processing: chunking, indexing, and
// pipeline orchestration from upload to registered document.
package ingestion

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kampusasistani/rag/internal/extract"
)

// Chunk is a retrieval-sized unit of document text with provenance metadata.
type Chunk struct {
	ID      string // vector store row id
	Source  string // owning document filename
	Page    int    // 1-based page, 0 if unknown
	Title   string // detected or official title
	Content string
}

// truncationMarker is appended when a chunk had to be cut to fit the vector
// store payload ceiling. Oversized content is never silently dropped.
const truncationMarker = " (truncated)"

// headerSampleLen is how much of the document's opening text is used for the
// provenance header when no title line can be detected.
const headerSampleLen = 300

// separators lists split boundaries in priority order. Regulation texts are
// article-structured: "MADDE 12 -" style markers come before paragraph,
// sentence, and whitespace splits. The empty string means a hard byte split.
var separators = []string{
	"\nMADDE ", "\nMadde ", "\nBÖLÜM ", "\nGEÇİCİ MADDE ",
	"\n\n", "\n", ". ", " ", "",
}

// ChunkerConfig holds chunking configuration.
type ChunkerConfig struct {
	TargetSize      int // target chunk size in bytes
	Overlap         int // bytes of trailing context carried into the next chunk
	MaxPayloadBytes int // hard per-chunk ceiling required by the vector store
}

// Chunker splits extracted page text into retrieval units.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a Chunker. Zero sizes and a negative overlap fall back
// to defaults; an explicit zero overlap is honored.
func NewChunker(config ChunkerConfig) *Chunker {
	if config.TargetSize <= 0 {
		config.TargetSize = 1000
	}
	if config.Overlap < 0 || config.Overlap >= config.TargetSize {
		config.Overlap = config.TargetSize / 5
	}
	if config.MaxPayloadBytes <= 0 {
		config.MaxPayloadBytes = 10000
	}
	return &Chunker{config: config}
}

// ChunkDocument splits the extracted pages of one document. Every chunk is
// prefixed with a short identifying header so it carries its own provenance
// after splitting, and is capped at the store payload ceiling.
func (c *Chunker) ChunkDocument(source string, pages []extract.PageText) []Chunk {
	title := DetectTitle(pages)
	header := c.header(source, title, pages)

	var chunks []Chunk
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		for _, piece := range c.split(text, separators) {
			content := header + piece
			chunks = append(chunks, Chunk{
				ID:      uuid.New().String(),
				Source:  source,
				Page:    page.Page,
				Title:   title,
				Content: c.enforceCeiling(content),
			})
		}
	}
	return chunks
}

// DetectTitle returns the first short non-empty line of the document, which
// in regulation PDFs is almost always the official title.
func DetectTitle(pages []extract.PageText) string {
	for _, page := range pages {
		for _, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if utf8.RuneCountInString(line) <= 120 {
				return line
			}
			return ""
		}
	}
	return ""
}

func (c *Chunker) header(source, title string, pages []extract.PageText) string {
	ident := title
	if ident == "" {
		var sb strings.Builder
		for _, page := range pages {
			sb.WriteString(page.Text)
			if sb.Len() >= headerSampleLen {
				break
			}
		}
		ident = strings.Join(strings.Fields(truncateBytes(sb.String(), headerSampleLen)), " ")
	}
	if ident == "" {
		return "[Kaynak: " + source + "]\n"
	}
	return "[Kaynak: " + source + " — " + ident + "]\n"
}

// split recursively divides text at the highest-priority separator present,
// then merges the resulting pieces back up to the target size with overlap.
// Overlap exists to avoid severing a rule from its numeric qualifier across a
// chunk boundary.
func (c *Chunker) split(text string, seps []string) []string {
	if len(text) <= c.config.TargetSize {
		return []string{text}
	}

	sep, rest := pickSeparator(text, seps)
	var pieces []string
	if sep == "" {
		pieces = hardSplit(text, c.config.TargetSize)
	} else {
		for i, part := range strings.Split(text, sep) {
			if i > 0 && keepSeparator(sep) {
				part = strings.TrimPrefix(sep, "\n") + part
			}
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if len(part) > c.config.TargetSize {
				pieces = append(pieces, c.split(part, rest)...)
			} else {
				pieces = append(pieces, part)
			}
		}
	}

	return c.merge(pieces)
}

// keepSeparator reports whether the separator is a structural marker whose
// text must stay attached to the following piece ("MADDE 5" must not lose its
// "MADDE" prefix).
func keepSeparator(sep string) bool {
	return strings.TrimSpace(sep) != "" && sep != ". "
}

func pickSeparator(text string, seps []string) (string, []string) {
	for i, s := range seps {
		if s == "" {
			return "", nil
		}
		if strings.Contains(text, s) {
			return s, seps[i+1:]
		}
	}
	return "", nil
}

// merge greedily combines small pieces into target-sized chunks, carrying an
// overlap suffix from each chunk into the next.
func (c *Chunker) merge(pieces []string) []string {
	var out []string
	var cur strings.Builder

	flush := func() string {
		chunk := strings.TrimSpace(cur.String())
		if chunk != "" {
			out = append(out, chunk)
		}
		cur.Reset()
		return chunk
	}

	for _, piece := range pieces {
		if cur.Len() > 0 && cur.Len()+1+len(piece) > c.config.TargetSize {
			flushed := flush()
			if tail := overlapTail(flushed, c.config.Overlap); tail != "" {
				cur.WriteString(tail)
			}
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(piece)
	}
	flush()

	return out
}

// overlapTail returns the last n bytes of s, cut forward to a rune boundary
// and trimmed to a word start.
func overlapTail(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	tail := s[start:]
	if idx := strings.IndexByte(tail, ' '); idx >= 0 {
		tail = tail[idx+1:]
	}
	return tail
}

// hardSplit cuts text into size-bounded pieces at rune boundaries; last
// resort when no separator exists.
func hardSplit(text string, size int) []string {
	var pieces []string
	for len(text) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		pieces = append(pieces, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

// enforceCeiling truncates content exceeding the vector store payload limit,
// marking the cut instead of rejecting the chunk.
func (c *Chunker) enforceCeiling(content string) string {
	max := c.config.MaxPayloadBytes
	if len(content) <= max {
		return content
	}
	budget := max - len(truncationMarker)
	if budget < 0 {
		budget = 0
	}
	return truncateBytes(content, budget) + truncationMarker
}

// truncateBytes cuts s to at most n bytes at a rune boundary.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
