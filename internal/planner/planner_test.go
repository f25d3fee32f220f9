package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kampusasistani/rag/internal/conversation"
	"github.com/kampusasistani/rag/internal/llm"
)

type fakeLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func (f *fakeLLM) GenerateVision(_ context.Context, _ string, _ []byte, _ llm.GenerateOptions) (string, error) {
	return f.response, f.err
}

func TestClassifyQuestion(t *testing.T) {
	cases := []struct {
		question string
		want     Kind
	}{
		{"Mezuniyet için kaç AKTS gerekiyor?", KindNumeric},
		{"What are the graduation requirements for a PhD?", KindNumeric},
		{"Devamsızlık sınırı yüzde kaç?", KindNumeric},
		{"Yatay geçiş başvurusu nasıl yapılır?", KindQualitative},
		{"Ders kaydını nasıl sildirebilirim?", KindQualitative},
	}

	for _, tc := range cases {
		if got := ClassifyQuestion(tc.question); got != tc.want {
			t.Errorf("ClassifyQuestion(%q) = %v, want %v", tc.question, got, tc.want)
		}
	}
}

func TestPlan_NumericTakesTerminologyBranch(t *testing.T) {
	client := &fakeLLM{response: "doktora, lisansüstü eğitim yönetmeliği, mezuniyet koşulları, tez savunması"}
	p := NewLLMPlanner(client)

	plan := p.Plan(context.Background(), "What are the graduation requirements for a PhD?", conversation.NewContext(10))

	if plan.Kind != KindNumeric {
		t.Errorf("expected numeric kind, got %v", plan.Kind)
	}
	if plan.Strategy != StrategyTerminology {
		t.Errorf("expected terminology strategy, got %v", plan.Strategy)
	}
	if plan.FallbackUsed {
		t.Error("successful expansion must not flag fallback")
	}
	if !strings.Contains(plan.Expanded, "What are the graduation requirements for a PhD?") {
		t.Error("expansion must retain the original question")
	}
	if !strings.Contains(plan.Expanded, "lisansüstü") {
		t.Error("expansion should append the graduate-level qualifier terms")
	}
	if !strings.Contains(client.lastPrompt, "anahtar kelime") {
		t.Error("numeric questions should use the terminology prompt")
	}
}

func TestPlan_QualitativeTakesHydeBranch(t *testing.T) {
	client := &fakeLLM{response: "Yatay geçiş başvuruları ilgili yönetim kurulu kararıyla sonuçlandırılır."}
	p := NewLLMPlanner(client)

	plan := p.Plan(context.Background(), "Yatay geçiş başvurusu nasıl yapılır?", conversation.NewContext(10))

	if plan.Strategy != StrategyHyde {
		t.Errorf("expected hyde strategy, got %v", plan.Strategy)
	}
	if !strings.Contains(client.lastPrompt, "cevap taslağı") {
		t.Error("qualitative questions should use the hypothetical-answer prompt")
	}
}

func TestPlan_LLMFailureFallsBackToRawQuestion(t *testing.T) {
	p := NewLLMPlanner(&fakeLLM{err: errors.New("quota exceeded")})

	question := "Mezuniyet için kaç kredi gerekiyor?"
	plan := p.Plan(context.Background(), question, conversation.NewContext(10))

	if !plan.FallbackUsed {
		t.Error("LLM failure must flag fallback")
	}
	if plan.Expanded != question {
		t.Errorf("fallback must keep the raw question, got %q", plan.Expanded)
	}
	if plan.Strategy != StrategyNone {
		t.Errorf("fallback strategy should be none, got %v", plan.Strategy)
	}
}

func TestPlan_EmptyResponseFallsBack(t *testing.T) {
	p := NewLLMPlanner(&fakeLLM{response: "   "})

	plan := p.Plan(context.Background(), "Staj kaç gün sürer?", conversation.NewContext(10))

	if !plan.FallbackUsed || plan.Expanded != "Staj kaç gün sürer?" {
		t.Errorf("empty expansion should fall back, got %+v", plan)
	}
}

func TestPlan_FollowUpCarriesConversation(t *testing.T) {
	client := &fakeLLM{response: "doktora, tez, savunma"}
	p := NewLLMPlanner(client)

	conv := conversation.NewContext(10)
	conv.AddUser("Yüksek lisans mezuniyet koşulları nelerdir?")
	conv.AddAssistant("Yüksek lisans için 120 AKTS gerekir.")

	p.Plan(context.Background(), "Peki doktora için kaç AKTS?", conv)

	if !strings.Contains(client.lastPrompt, "Yüksek lisans mezuniyet koşulları") {
		t.Error("follow-up expansion should include the previous turn")
	}
}
