package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kampusasistani/rag/internal/conversation"
	"github.com/kampusasistani/rag/internal/llm"
)

const terminologyPrompt = `Sen üniversite mevzuatı arama asistanısın. Aşağıdaki soruyu incele ve
hangi mevzuat kapsamına girdiğini belirle (lisans, lisansüstü/doktora, staj/uygulama, yatay geçiş vb.).
O kapsama ait resmi yönetmelik kategorisi anahtar kelimelerini üret.

Soru: %s

Sadece 3-6 anahtar kelimeyi virgülle ayırarak yaz, başka hiçbir şey yazma.`

const hydePrompt = `Sen üniversite yönetmelikleri konusunda uzman bir hukuk danışmanısın.
Aşağıdaki soruya bir yönetmelik maddesi üslubuyla kısa (tek paragraf) ve makul bir cevap taslağı yaz.
Taslağın doğru olması gerekmiyor; yalnızca gerçek yönetmelik metinlerine benzemesi yeterli.

Soru: %s

Sadece cevap paragrafını yaz.`

// LLMPlanner is the production Planner: terminology expansion for numeric
// questions, hypothetical-answer expansion (HyDE) for the rest.
type LLMPlanner struct {
	client llm.LLM
	logger *slog.Logger
}

// NewLLMPlanner creates a planner backed by the given completion client.
func NewLLMPlanner(client llm.LLM) *LLMPlanner {
	return &LLMPlanner{client: client, logger: slog.Default()}
}

// Plan expands the question. Any LLM failure degrades to the raw question;
// the pipeline never blocks on planner failure.
func (p *LLMPlanner) Plan(ctx context.Context, question string, conv *conversation.Context) Plan {
	plan := Plan{
		Question: question,
		Expanded: question,
		Kind:     ClassifyQuestion(question),
		Strategy: StrategyNone,
	}

	var prompt string
	switch plan.Kind {
	case KindNumeric:
		prompt = fmt.Sprintf(terminologyPrompt, p.contextualize(question, conv))
	default:
		prompt = fmt.Sprintf(hydePrompt, p.contextualize(question, conv))
	}

	response, err := p.client.Generate(ctx, prompt, llm.GenerateOptions{Temperature: 0.3})
	if err != nil {
		p.logger.Warn("query expansion failed, using raw question", "error", err)
		plan.FallbackUsed = true
		return plan
	}

	response = strings.TrimSpace(response)
	if response == "" {
		plan.FallbackUsed = true
		return plan
	}

	// The original question is always retained; the expansion only biases
	// embedding similarity toward the right lexical neighborhood.
	plan.Expanded = question + "\n" + response
	if plan.Kind == KindNumeric {
		plan.Strategy = StrategyTerminology
	} else {
		plan.Strategy = StrategyHyde
	}
	return plan
}

// contextualize prefixes recent conversation turns so follow-up questions
// ("peki doktora için?") expand with their antecedent in view.
func (p *LLMPlanner) contextualize(question string, conv *conversation.Context) string {
	history := conv.FormatForPrompt(4)
	if history == "" {
		return question
	}
	return "Önceki konuşma:\n" + history + "\nGüncel soru: " + question
}

var _ Planner = (*LLMPlanner)(nil)
