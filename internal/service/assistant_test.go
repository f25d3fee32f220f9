package service

import (
	"context"
	"testing"

	"github.com/kampusasistani/rag/internal/answer"
	"github.com/kampusasistani/rag/internal/conversation"
	"github.com/kampusasistani/rag/internal/planner"
	"github.com/kampusasistani/rag/internal/registry"
	"github.com/kampusasistani/rag/internal/reranker"
	"github.com/kampusasistani/rag/internal/retriever"
	"github.com/kampusasistani/rag/internal/vectorstore"
)

type fakePlanner struct {
	fallback bool
}

func (p fakePlanner) Plan(_ context.Context, question string, _ *conversation.Context) planner.Plan {
	return planner.Plan{
		Question:     question,
		Expanded:     question + "\nlisansüstü mezuniyet koşulları",
		Kind:         planner.KindNumeric,
		Strategy:     planner.StrategyTerminology,
		FallbackUsed: p.fallback,
	}
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimension() int    { return 2 }
func (fakeEmbedder) ModelName() string { return "fake" }

type fakeStore struct {
	results []vectorstore.Candidate
}

func (s *fakeStore) EnsureCollection(_ context.Context, _ int) error       { return nil }
func (s *fakeStore) Upsert(_ context.Context, _ []vectorstore.Point) error { return nil }
func (s *fakeStore) Delete(_ context.Context, _ string) error              { return nil }

func (s *fakeStore) MMRSearch(_ context.Context, _ []float32, _, _ int, _ float32) ([]vectorstore.Candidate, error) {
	return s.results, nil
}

type fakeReranker struct{}

func (fakeReranker) Rerank(_ context.Context, _ string, candidates []vectorstore.Candidate, keep int) (reranker.Selection, error) {
	if len(candidates) > keep {
		candidates = candidates[:keep]
	}
	return reranker.Selection{Candidates: candidates}, nil
}

type fakeSynthesizer struct{}

func (fakeSynthesizer) Synthesize(_ context.Context, _ string, candidates []vectorstore.Candidate, _ *conversation.Context) (answer.Answer, error) {
	if len(candidates) == 0 {
		return answer.Answer{Text: "İlgili dökümanlarda bu konu hakkında bir bilgiye ulaşılamamıştır.", IsNegative: true}, nil
	}
	return answer.Answer{
		Text:    "Mezuniyet için 240 AKTS gerekir.",
		Sources: answer.CollectSources(candidates),
	}, nil
}

type fakeQueryLog struct {
	entries []registry.QueryLogEntry
}

func (l *fakeQueryLog) LogQuery(_ context.Context, username, question string) error {
	l.entries = append(l.entries, registry.QueryLogEntry{Username: username, Question: question})
	return nil
}

func (l *fakeQueryLog) RecentQueries(_ context.Context, limit int) ([]*registry.QueryLogEntry, error) {
	var out []*registry.QueryLogEntry
	for i := range l.entries {
		if len(out) >= limit {
			break
		}
		out = append(out, &l.entries[i])
	}
	return out, nil
}

func newTestAssistant(results []vectorstore.Candidate, log *fakeQueryLog) *AssistantService {
	ret := retriever.New(fakeEmbedder{}, &fakeStore{results: results}, retriever.Config{K: 8, MergedCap: 12})
	return NewAssistantService(
		fakePlanner{},
		ret,
		fakeReranker{},
		fakeSynthesizer{},
		conversation.NewStore(20, 0),
		log,
		5,
		nil,
	)
}

func TestAsk_FullPipeline(t *testing.T) {
	results := []vectorstore.Candidate{
		{ID: "1", Source: "lisansustu.pdf", Page: 7, Content: "MADDE 30 - Doktora için 240 AKTS.", Score: 0.9},
	}
	log := &fakeQueryLog{}
	s := newTestAssistant(results, log)

	got, err := s.Ask(context.Background(), "ogrenci1", "oturum1", "Doktora mezuniyeti için kaç AKTS?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if got.Answer.IsNegative {
		t.Error("expected a substantive answer")
	}
	if len(got.Answer.Sources) != 1 || got.Answer.Sources[0].Filename != "lisansustu.pdf" {
		t.Errorf("unexpected sources %+v", got.Answer.Sources)
	}
	if got.Strategy != planner.StrategyTerminology {
		t.Errorf("unexpected strategy %v", got.Strategy)
	}
	if got.CandidatesScanned != 1 {
		t.Errorf("expected 1 candidate, got %d", got.CandidatesScanned)
	}

	if len(log.entries) != 1 || log.entries[0].Username != "ogrenci1" {
		t.Errorf("query not logged, got %+v", log.entries)
	}
}

func TestAsk_EmptyCorpusGivesNegativeAnswer(t *testing.T) {
	s := newTestAssistant(nil, &fakeQueryLog{})

	got, err := s.Ask(context.Background(), "ogrenci1", "oturum1", "Uzay hukuku dersi var mı?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if !got.Answer.IsNegative || len(got.Answer.Sources) != 0 {
		t.Errorf("expected a negative, citation-free answer, got %+v", got.Answer)
	}
}

func TestAsk_RejectsEmptyQuestion(t *testing.T) {
	s := newTestAssistant(nil, &fakeQueryLog{})

	if _, err := s.Ask(context.Background(), "ogrenci1", "oturum1", "   "); err == nil {
		t.Fatal("expected an error for an empty question")
	}
}

func TestAsk_ConversationAccumulates(t *testing.T) {
	results := []vectorstore.Candidate{
		{ID: "1", Source: "lisansustu.pdf", Page: 7, Content: "MADDE 30", Score: 0.9},
	}
	s := newTestAssistant(results, &fakeQueryLog{})

	if _, err := s.Ask(context.Background(), "u", "oturum1", "İlk soru kaç kredi?"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if _, err := s.Ask(context.Background(), "u", "oturum1", "Peki doktora için?"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	conv := s.conversations.Get("oturum1")
	if conv.Len() != 4 {
		t.Errorf("expected 4 conversation messages (2 turns), got %d", conv.Len())
	}
}
