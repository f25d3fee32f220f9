package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kampusasistani/rag/internal/llm"
	"github.com/kampusasistani/rag/internal/vectorstore"
)

// candidatePreviewLen bounds how much of each chunk the selection prompt
// carries; full chunks would blow the context window at high candidate counts.
const candidatePreviewLen = 500

// LLMReranker asks the model to pick the relevant candidates by index rather
// than score them. Selection is more robust than numeric scoring for small
// models: the output is a short JSON array and there is no calibration issue.
type LLMReranker struct {
	llmClient llm.LLM
	logger    *slog.Logger
}

// NewLLMReranker creates an LLM-backed reranker.
func NewLLMReranker(llmClient llm.LLM, logger *slog.Logger) *LLMReranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMReranker{llmClient: llmClient, logger: logger}
}

type selectionResponse struct {
	Selected []int `json:"selected"`
}

// Rerank asks the LLM which candidates answer the question and returns them
// in the model's preference order. On any LLM or parse failure it falls back
// to the first keep candidates in retrieval order and flags the fallback.
func (r *LLMReranker) Rerank(ctx context.Context, question string, candidates []vectorstore.Candidate, keep int) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, nil
	}
	if keep <= 0 || keep > len(candidates) {
		keep = len(candidates)
	}

	prompt := buildSelectionPrompt(question, candidates, keep)

	response, err := r.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Temperature: 0.1,
		MaxTokens:   512,
	})
	if err != nil {
		r.logger.Warn("reranker LLM call failed, keeping retrieval order", "error", err)
		return fallback(candidates, keep), nil
	}

	indices, err := parseSelection(response, len(candidates))
	if err != nil {
		r.logger.Warn("reranker returned unparseable selection, keeping retrieval order", "error", err)
		return fallback(candidates, keep), nil
	}
	if len(indices) == 0 {
		r.logger.Warn("reranker selected no candidates, keeping retrieval order")
		return fallback(candidates, keep), nil
	}

	if len(indices) > keep {
		indices = indices[:keep]
	}
	selected := make([]vectorstore.Candidate, 0, len(indices))
	for _, idx := range indices {
		selected = append(selected, candidates[idx])
	}
	return Selection{Candidates: selected}, nil
}

func buildSelectionPrompt(question string, candidates []vectorstore.Candidate, keep int) string {
	var sb strings.Builder

	sb.WriteString("You select regulation passages that answer a student's question.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nCandidate passages:\n")

	for i, c := range candidates {
		content := c.Content
		if len(content) > candidatePreviewLen {
			content = content[:candidatePreviewLen] + "..."
		}
		sb.WriteString(fmt.Sprintf("[%d] (source: %s, page %d) %s\n\n", i, c.Source, c.Page, content))
	}

	fmt.Fprintf(&sb, `Pick at most %d passages, best first, applying these rules:
1. The passage must govern the education level and programme the question is about. A passage about undergraduate rules does not answer a graduate question even when the wording matches.
2. When a specific directive and a general regulation both apply, prefer the specific directive.
3. For questions asking amounts, credits, grades or deadlines, prefer passages that contain the actual figures.

Output ONLY valid JSON in this exact format, nothing else:
{"selected": [2, 0, 5]}`, keep)

	return sb.String()
}

// parseSelection extracts the selected indices, tolerating markdown fences
// around the JSON. Out-of-range and duplicate indices are dropped.
func parseSelection(response string, numCandidates int) ([]int, error) {
	response = stripFences(response)

	var parsed selectionResponse
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse selection response: %w", err)
	}

	seen := make(map[int]struct{}, len(parsed.Selected))
	indices := make([]int, 0, len(parsed.Selected))
	for _, idx := range parsed.Selected {
		if idx < 0 || idx >= numCandidates {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	return indices, nil
}

func stripFences(response string) string {
	response = strings.TrimSpace(response)
	if idx := strings.Index(response, "```json"); idx != -1 {
		start := idx + 7
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	} else if idx := strings.Index(response, "```"); idx != -1 {
		start := idx + 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	}
	return strings.TrimSpace(response)
}

func fallback(candidates []vectorstore.Candidate, keep int) Selection {
	if len(candidates) > keep {
		candidates = candidates[:keep]
	}
	out := make([]vectorstore.Candidate, len(candidates))
	copy(out, candidates)
	return Selection{Candidates: out, FallbackUsed: true}
}

// Ensure LLMReranker implements Reranker interface.
var _ Reranker = (*LLMReranker)(nil)
