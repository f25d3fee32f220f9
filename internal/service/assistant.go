package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kampusasistani/rag/internal/answer"
	"github.com/kampusasistani/rag/internal/conversation"
	"github.com/kampusasistani/rag/internal/planner"
	"github.com/kampusasistani/rag/internal/registry"
	"github.com/kampusasistani/rag/internal/reranker"
	"github.com/kampusasistani/rag/internal/retriever"
)

// AskResult is one answered question with pipeline diagnostics.
type AskResult struct {
	Answer            answer.Answer
	Strategy          planner.Strategy
	PlannerFallback   bool
	RerankerFallback  bool
	CandidatesScanned int
}

// AssistantService answers questions over the ingested corpus. Each stage of
// the query pipeline degrades independently: a failed planner falls back to
// the raw question, a failed reranker keeps retrieval order. Only retrieval
// and synthesis failures surface to the caller.
type AssistantService struct {
	planner       planner.Planner
	retriever     *retriever.HybridRetriever
	reranker      reranker.Reranker
	synthesizer   answer.Synthesizer
	conversations *conversation.Store
	queryLog      registry.QueryLog
	rerankKeep    int
	logger        *slog.Logger
}

// NewAssistantService creates an AssistantService.
func NewAssistantService(
	pl planner.Planner,
	ret *retriever.HybridRetriever,
	rr reranker.Reranker,
	syn answer.Synthesizer,
	conversations *conversation.Store,
	queryLog registry.QueryLog,
	rerankKeep int,
	logger *slog.Logger,
) *AssistantService {
	if rerankKeep <= 0 {
		rerankKeep = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssistantService{
		planner:       pl,
		retriever:     ret,
		reranker:      rr,
		synthesizer:   syn,
		conversations: conversations,
		queryLog:      queryLog,
		rerankKeep:    rerankKeep,
		logger:        logger,
	}
}

// Ask runs the full query pipeline for one question.
func (s *AssistantService) Ask(ctx context.Context, username, sessionID, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	if s.queryLog != nil {
		if err := s.queryLog.LogQuery(ctx, username, question); err != nil {
			s.logger.Warn("failed to log query", "error", err)
		}
	}

	conv := s.conversations.Get(sessionID)

	plan := s.planner.Plan(ctx, question, conv)
	if plan.FallbackUsed {
		s.logger.Warn("query planner fell back to raw question", "strategy", plan.Strategy)
	}

	candidates, err := s.retriever.Retrieve(ctx, question, plan.Expanded)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	selection, err := s.reranker.Rerank(ctx, question, candidates, s.rerankKeep)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}

	ans, err := s.synthesizer.Synthesize(ctx, question, selection.Candidates, conv)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	conv.AddUser(question)
	conv.AddAssistant(ans.Text)

	return &AskResult{
		Answer:            ans,
		Strategy:          plan.Strategy,
		PlannerFallback:   plan.FallbackUsed,
		RerankerFallback:  selection.FallbackUsed,
		CandidatesScanned: len(candidates),
	}, nil
}

// RecentQueries returns the latest logged questions for the analytics panel.
func (s *AssistantService) RecentQueries(ctx context.Context, limit int) ([]*registry.QueryLogEntry, error) {
	if s.queryLog == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return s.queryLog.RecentQueries(ctx, limit)
}
