package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/kampusasistani/rag/internal/classify"
	"github.com/kampusasistani/rag/internal/extract"
	"github.com/kampusasistani/rag/internal/pdf"
	"github.com/kampusasistani/rag/internal/registry"
	"github.com/kampusasistani/rag/internal/vectorstore"
)

// fakeEmbedder returns constant vectors without network calls.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimension() int    { return 3 }
func (fakeEmbedder) ModelName() string { return "fake" }

// fakeStore keeps points in memory, keyed by id.
type fakeStore struct {
	points map[string]vectorstore.Point
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: make(map[string]vectorstore.Point)}
}

func (s *fakeStore) EnsureCollection(_ context.Context, _ int) error { return nil }

func (s *fakeStore) Upsert(_ context.Context, points []vectorstore.Point) error {
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

func (s *fakeStore) MMRSearch(_ context.Context, _ []float32, k, _ int, _ float32) ([]vectorstore.Candidate, error) {
	var out []vectorstore.Candidate
	for _, p := range s.points {
		if len(out) >= k {
			break
		}
		out = append(out, vectorstore.Candidate{
			ID: p.ID, Source: p.Source, Page: p.Page, Title: p.Title, Content: p.Content, Score: 1,
		})
	}
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, source string) error {
	for id, p := range s.points {
		if p.Source == source {
			delete(s.points, id)
		}
	}
	return nil
}

// fakeRegistry is an in-memory registry.Registry keyed by filename.
type fakeRegistry struct {
	docs map[string]*registry.Document
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{docs: make(map[string]*registry.Document)}
}

func (r *fakeRegistry) Upsert(_ context.Context, doc *registry.Document) error {
	r.docs[doc.Filename] = doc
	return nil
}

func (r *fakeRegistry) Get(_ context.Context, filename string) (*registry.Document, error) {
	doc, ok := r.docs[filename]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return doc, nil
}

func (r *fakeRegistry) List(_ context.Context) ([]*registry.Document, error) {
	var out []*registry.Document
	for _, d := range r.docs {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeRegistry) Delete(_ context.Context, filename string) error {
	if _, ok := r.docs[filename]; !ok {
		return registry.ErrNotFound
	}
	delete(r.docs, filename)
	return nil
}

func testDocument(filename, text string) *pdf.Document {
	return &pdf.Document{
		Filename: filename,
		Path:     "/tmp/" + filename,
		Pages:    []pdf.Page{{Number: 1, Text: text}},
	}
}

func newTestPipeline(store *fakeStore, reg *fakeRegistry, doc *pdf.Document) *Pipeline {
	p := NewPipeline(
		classify.NewLayoutClassifier(classify.DefaultConfig()),
		extract.FastExtractor{},
		extract.FastExtractor{},
		NewChunker(ChunkerConfig{}),
		NewIndexer(fakeEmbedder{}, store, 16, 0),
		reg,
	)
	p.loader = func(string) (*pdf.Document, error) { return doc, nil }
	return p
}

func TestPipeline_Ingest(t *testing.T) {
	store := newFakeStore()
	reg := newFakeRegistry()
	doc := testDocument("yonetmelik.pdf", "Lisans Eğitim Yönetmeliği\nMADDE 1 - Bu yönetmelik kayıt işlemlerini düzenler.")
	p := newTestPipeline(store, reg, doc)

	result, err := p.Ingest(context.Background(), "/tmp/yonetmelik.pdf", "admin")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if result.Chunks == 0 || len(store.points) == 0 {
		t.Fatal("expected chunks to reach the vector store")
	}
	if result.Document.Title != "Lisans Eğitim Yönetmeliği" {
		t.Errorf("unexpected title %q", result.Document.Title)
	}
	if result.Document.Owner != "admin" {
		t.Errorf("unexpected owner %q", result.Document.Owner)
	}
	if _, err := reg.Get(context.Background(), "yonetmelik.pdf"); err != nil {
		t.Errorf("document not registered: %v", err)
	}
}

func TestPipeline_ReingestSupersedes(t *testing.T) {
	store := newFakeStore()
	reg := newFakeRegistry()
	doc := testDocument("yonetmelik.pdf", "Eski sürüm metni. MADDE 1 - Eski kural.")
	p := newTestPipeline(store, reg, doc)

	if _, err := p.Ingest(context.Background(), "/tmp/yonetmelik.pdf", "admin"); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	firstCount := len(store.points)

	// Same filename, new content: the old vectors must be superseded.
	*doc = *testDocument("yonetmelik.pdf", "Yeni sürüm metni. MADDE 1 - Yeni kural burada yer alır.")
	if _, err := p.Ingest(context.Background(), "/tmp/yonetmelik.pdf", "admin"); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	docs, _ := reg.List(context.Background())
	if len(docs) != 1 {
		t.Fatalf("expected exactly one registry row after re-ingest, got %d", len(docs))
	}

	for _, point := range store.points {
		if strings.Contains(point.Content, "Eski sürüm") {
			t.Error("old version's vectors survived re-ingest")
		}
	}
	if firstCount == 0 || len(store.points) == 0 {
		t.Fatal("expected vectors before and after re-ingest")
	}
}

func TestPipeline_DeleteRemovesChunksFromSearch(t *testing.T) {
	store := newFakeStore()
	reg := newFakeRegistry()
	doc := testDocument("silinecek.pdf", "Bu belge silinecek. MADDE 1 - Geçici kural.")
	p := newTestPipeline(store, reg, doc)

	if _, err := p.Ingest(context.Background(), "/tmp/silinecek.pdf", "admin"); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if err := p.Delete(context.Background(), "silinecek.pdf"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	results, err := store.MMRSearch(context.Background(), []float32{1, 0, 0}, 10, 40, 0.5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for _, c := range results {
		if c.Source == "silinecek.pdf" {
			t.Error("deleted document still appears in search results")
		}
	}

	if _, err := reg.Get(context.Background(), "silinecek.pdf"); err != registry.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPipeline_DeleteUnknownDocument(t *testing.T) {
	p := newTestPipeline(newFakeStore(), newFakeRegistry(), testDocument("x.pdf", "metin"))

	if err := p.Delete(context.Background(), "yok.pdf"); err != registry.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPipeline_EmptyDocumentRejected(t *testing.T) {
	store := newFakeStore()
	reg := newFakeRegistry()
	doc := testDocument("bos.pdf", "   ")
	p := newTestPipeline(store, reg, doc)

	if _, err := p.Ingest(context.Background(), "/tmp/bos.pdf", "admin"); err == nil {
		t.Fatal("expected an error for a document with no extractable text")
	}
	if len(store.points) != 0 {
		t.Error("no vectors should be written for an empty document")
	}
}
