package classify

import (
	"strings"
	"testing"

	"github.com/kampusasistani/rag/internal/pdf"
)

func prosePage(number int) pdf.Page {
	text := strings.Repeat("Bu madde öğrencilerin kayıt yenileme işlemleri için geçerli olan kuralları belirler. ", 5)
	blocks := make([]pdf.TextBlock, 0, 20)
	for i := 0; i < 20; i++ {
		blocks = append(blocks, pdf.TextBlock{X: 72, Y: float64(700 - i*14), Text: "satır"})
	}
	return pdf.Page{Number: number, Text: text, Blocks: blocks, DrawOps: 4}
}

func TestClassify_PlainProsePage(t *testing.T) {
	c := NewLayoutClassifier(DefaultConfig())

	doc := &pdf.Document{Filename: "yonetmelik.pdf", Pages: []pdf.Page{prosePage(1), prosePage(2)}}
	verdict := c.Classify(doc)

	if verdict.NeedsStructured {
		t.Errorf("expected plain prose to stay on the fast path, got reason %q", verdict.Reason)
	}
	if verdict.Reason == "" {
		t.Error("expected a human-readable reason")
	}
}

func TestClassify_AlignedColumns(t *testing.T) {
	c := NewLayoutClassifier(DefaultConfig())

	// Three sustained left edges, 20 rows each: a table layout.
	var blocks []pdf.TextBlock
	for row := 0; row < 20; row++ {
		y := float64(700 - row*14)
		blocks = append(blocks,
			pdf.TextBlock{X: 72, Y: y, Text: "Ders"},
			pdf.TextBlock{X: 250, Y: y, Text: "Kredi"},
			pdf.TextBlock{X: 420, Y: y, Text: "AKTS"},
		)
	}
	page := pdf.Page{Number: 1, Text: "ders kredi ve akts tablosu için bu sayfa", Blocks: blocks}

	verdict := c.Classify(&pdf.Document{Filename: "mufredat.pdf", Pages: []pdf.Page{page}})

	if !verdict.NeedsStructured {
		t.Fatal("expected a three-column page to need structured extraction")
	}
	if !strings.Contains(verdict.Reason, "aligned text columns") {
		t.Errorf("expected column reason, got %q", verdict.Reason)
	}
}

func TestClassify_TwoColumnsBelowThreshold(t *testing.T) {
	c := NewLayoutClassifier(DefaultConfig())

	// Only two sustained columns: below the three-bucket threshold.
	var blocks []pdf.TextBlock
	for row := 0; row < 20; row++ {
		y := float64(700 - row*14)
		blocks = append(blocks,
			pdf.TextBlock{X: 72, Y: y, Text: "madde"},
			pdf.TextBlock{X: 300, Y: y, Text: "açıklama"},
		)
	}
	page := pdf.Page{Number: 1, Text: "bu sayfa iki sütunlu bir liste için yeterli ve uygun", Blocks: blocks}

	verdict := c.Classify(&pdf.Document{Filename: "liste.pdf", Pages: []pdf.Page{page}})

	if verdict.NeedsStructured {
		t.Errorf("two columns should stay below threshold, got reason %q", verdict.Reason)
	}
}

func TestClassify_RuledTable(t *testing.T) {
	c := NewLayoutClassifier(DefaultConfig())

	page := prosePage(1)
	page.DrawOps = 120

	verdict := c.Classify(&pdf.Document{Filename: "cizelge.pdf", Pages: []pdf.Page{page}})

	if !verdict.NeedsStructured {
		t.Fatal("expected a heavily ruled page to need structured extraction")
	}
	if !strings.Contains(verdict.Reason, "ruled table") {
		t.Errorf("expected ruled-table reason, got %q", verdict.Reason)
	}
}

func TestClassify_CorruptedText(t *testing.T) {
	c := NewLayoutClassifier(DefaultConfig())

	page := pdf.Page{
		Number: 1,
		Text:   strings.Repeat("þðý¢ø¥ æœ§ ", 20),
	}

	verdict := c.Classify(&pdf.Document{Filename: "bozuk.pdf", Pages: []pdf.Page{page}})

	if !verdict.NeedsStructured {
		t.Fatal("expected corrupted text to need structured extraction")
	}
	if !strings.Contains(verdict.Reason, "corruption") {
		t.Errorf("expected corruption reason, got %q", verdict.Reason)
	}
}

func TestClassify_SamplesOnlyLeadingPages(t *testing.T) {
	c := NewLayoutClassifier(Config{SamplePages: 2})

	tablePage := prosePage(3)
	tablePage.DrawOps = 500

	doc := &pdf.Document{
		Filename: "karma.pdf",
		Pages:    []pdf.Page{prosePage(1), prosePage(2), tablePage},
	}

	if verdict := c.Classify(doc); verdict.NeedsStructured {
		t.Errorf("page beyond the sample window should not flag the document, got %q", verdict.Reason)
	}
}

func TestClassify_EmptyDocument(t *testing.T) {
	c := NewLayoutClassifier(DefaultConfig())

	if verdict := c.Classify(nil); verdict.NeedsStructured {
		t.Error("nil document should not need structured extraction")
	}
	if verdict := c.Classify(&pdf.Document{}); verdict.NeedsStructured {
		t.Error("empty document should not need structured extraction")
	}
}
