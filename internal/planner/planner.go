// Package planner rewrites the user's informal question into a retrieval
// query, choosing an expansion strategy by question type.
package planner

import (
	"context"
	"strings"

	"github.com/kampusasistani/rag/internal/conversation"
)

// Kind classifies the question for strategy selection.
type Kind string

const (
	// KindNumeric marks factual questions asking for figures, counts,
	// credits, or thresholds. These expand best through canonical
	// regulation terminology.
	KindNumeric Kind = "numeric"

	// KindQualitative marks rule/procedure questions. These expand best
	// through a hypothetical answer paragraph (HyDE).
	KindQualitative Kind = "qualitative"
)

// Strategy names the expansion that produced a plan.
type Strategy string

const (
	StrategyTerminology Strategy = "terminology"
	StrategyHyde        Strategy = "hyde"
	StrategyNone        Strategy = "none" // planner fell back to the raw question
)

// Plan is the planner output. Expanded always contains the original
// question: expansion appends, never replaces.
type Plan struct {
	Question     string
	Expanded     string
	Kind         Kind
	Strategy     Strategy
	FallbackUsed bool
}

// Planner expands a question for retrieval. Implementations never block the
// pipeline: on failure they return the unmodified question with
// FallbackUsed set.
type Planner interface {
	Plan(ctx context.Context, question string, conv *conversation.Context) Plan
}

// numericKeywords route a question to the terminology-expansion branch.
// Turkish first (the corpus language), then the English equivalents.
var numericKeywords = []string{
	"kaç", "yüzde", "kredi", "akts", "puan", "not ortalaması", "ortalama",
	"gün", "süre", "ücret", "kontenjan", "mezuniyet", "koşul", "şart",
	"how many", "how much", "percentage", "percent", "credit", "credits",
	"score", "gpa", "requirement", "requirements", "deadline", "minimum", "maximum",
}

// ClassifyQuestion decides the expansion strategy with a lightweight keyword
// scan; no LLM call is spent on routing.
func ClassifyQuestion(question string) Kind {
	lower := strings.ToLower(question)
	for _, kw := range numericKeywords {
		if strings.Contains(lower, kw) {
			return KindNumeric
		}
	}
	return KindQualitative
}
