// Package answer turns reranked regulation passages into a grounded reply.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kampusasistani/rag/internal/conversation"
	"github.com/kampusasistani/rag/internal/llm"
	"github.com/kampusasistani/rag/internal/vectorstore"
)

// negativePhrases mark a reply as "not found in the documents". When the
// model admits it could not answer, citing sources anyway would lend false
// authority to passages that did not actually contain the answer.
var negativePhrases = []string{
	"bilgiye ulaşılamamıştır",
	"bilgiye ulaşılamadı",
	"rastlayamadım",
	"bilgi bulunmamaktadır",
	"bilgi bulunamadı",
	"not found",
	"no information",
}

const synthesisTemplate = `Sen üniversite mevzuatları ve yönetmelikleri konusunda uzman bir hukuk danışmanısın.
Aşağıdaki bağlamı ve varsa önceki konuşmaları temel alarak soruyu cevapla.

TEMEL KURALLAR:
1. SADAKAT: Sadece sana verilen metne sadık kal. Metinde olmayan bir kuralı asla uydurma.
2. BULAMAMA DURUMU: Eğer cevap metinde kesin olarak geçmiyorsa, "İlgili dökümanlarda bu konu hakkında bir bilgiye ulaşılamamıştır." de.
3. HESAPLAMA: Eğer metinde sayılar veya süreler varsa (örn: 5 iş günü, 240 AKTS), bunları kullanıcıya net bir şekilde belirt.
4. ÖNCELİK: Aynı konuda hem özel bir yönerge hem genel bir yönetmelik varsa, özel yönergeyi esas al ve bunu belirt.
5. BÜTÜNLÜK: Cevabın parçaları farklı doküman parçalarına dağılmışsa bunları birleştirerek tam bir cevap ver.
6. KAYNAK: Cevabı ilgili madde ve doküman adlarını referans göstererek ver.
7. ÜSLUP: Resmi, yardımcı ve net bir dil kullan.

%s
Bağlam (Doküman Parçaları):
%s

Soru: %s

Cevap:`

// Source is one cited document with the pages that contributed.
type Source struct {
	Filename string `json:"filename"`
	Pages    []int  `json:"pages"`
}

// Answer is a synthesized reply. IsNegative reports that the model declared
// the documents do not contain the answer; negative answers carry no sources.
type Answer struct {
	Text       string   `json:"text"`
	Sources    []Source `json:"sources"`
	IsNegative bool     `json:"is_negative"`
}

// Synthesizer generates the final answer from selected passages.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, candidates []vectorstore.Candidate, conv *conversation.Context) (Answer, error)
}

// LLMSynthesizer prompts the model with the selected passages and the recent
// conversation turns.
type LLMSynthesizer struct {
	llmClient llm.LLM
	logger    *slog.Logger
}

// NewLLMSynthesizer creates an LLM-backed synthesizer.
func NewLLMSynthesizer(llmClient llm.LLM, logger *slog.Logger) *LLMSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSynthesizer{llmClient: llmClient, logger: logger}
}

// Synthesize builds the grounded prompt, generates the reply and derives the
// citation list from the passages that went in.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, question string, candidates []vectorstore.Candidate, conv *conversation.Context) (Answer, error) {
	if len(candidates) == 0 {
		return Answer{
			Text:       "İlgili dökümanlarda bu konu hakkında bir bilgiye ulaşılamamıştır.",
			IsNegative: true,
		}, nil
	}

	history := ""
	if recent := conv.FormatForPrompt(4); recent != "" {
		history = "Sohbet Geçmişi:\n" + recent + "\n"
	}

	prompt := fmt.Sprintf(synthesisTemplate, history, formatContext(candidates), question)

	text, err := s.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Temperature: 0.1,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("answer generation failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Answer{}, fmt.Errorf("answer generation returned empty response")
	}

	if IsNegative(text) {
		s.logger.Info("answer declared no information, suppressing citations")
		return Answer{Text: text, IsNegative: true}, nil
	}

	return Answer{Text: text, Sources: CollectSources(candidates)}, nil
}

func formatContext(candidates []vectorstore.Candidate) string {
	var sb strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&sb, "--- %s (Sayfa %d) ---\n%s\n\n", c.Source, c.Page, c.Content)
	}
	return strings.TrimSpace(sb.String())
}

// IsNegative reports whether the reply admits the answer was not found.
func IsNegative(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range negativePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// CollectSources aggregates candidates into one Source per filename with a
// sorted, deduplicated page list.
func CollectSources(candidates []vectorstore.Candidate) []Source {
	pagesByFile := make(map[string]map[int]struct{})
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		pages, ok := pagesByFile[c.Source]
		if !ok {
			pages = make(map[int]struct{})
			pagesByFile[c.Source] = pages
			order = append(order, c.Source)
		}
		pages[c.Page] = struct{}{}
	}

	sources := make([]Source, 0, len(order))
	for _, filename := range order {
		pages := make([]int, 0, len(pagesByFile[filename]))
		for p := range pagesByFile[filename] {
			pages = append(pages, p)
		}
		sort.Ints(pages)
		sources = append(sources, Source{Filename: filename, Pages: pages})
	}
	return sources
}

// Ensure LLMSynthesizer implements Synthesizer interface.
var _ Synthesizer = (*LLMSynthesizer)(nil)
