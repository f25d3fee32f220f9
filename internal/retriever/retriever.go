// Package retriever runs diversity-aware hybrid retrieval: the raw question
// and the planner-expanded query are searched separately and merged.
package retriever

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kampusasistani/rag/internal/embedder"
	"github.com/kampusasistani/rag/internal/vectorstore"
)

// dedupePrefixLen is how many bytes of chunk content participate in the
// dedupe key. Two runs returning the same physical chunk must collapse to one
// entry even if the store assigned different row ids across re-ingestions.
const dedupePrefixLen = 64

// Config holds retrieval tuning.
type Config struct {
	K         int     // candidates per search run
	FetchK    int     // initial fetch pool per run, before MMR selection
	Lambda    float32 // MMR relevance/diversity trade-off
	MergedCap int     // merged set ceiling, bounds downstream rerank cost
}

// HybridRetriever merges two MMR searches over the shared vector store.
type HybridRetriever struct {
	embedder embedder.Embedder
	store    vectorstore.VectorStore
	cfg      Config
}

// New creates a HybridRetriever.
func New(emb embedder.Embedder, store vectorstore.VectorStore, cfg Config) *HybridRetriever {
	if cfg.K <= 0 {
		cfg.K = 8
	}
	if cfg.FetchK < cfg.K {
		cfg.FetchK = cfg.K * 5
	}
	if cfg.Lambda <= 0 || cfg.Lambda > 1 {
		cfg.Lambda = 0.5
	}
	if cfg.MergedCap <= 0 {
		cfg.MergedCap = 12
	}
	return &HybridRetriever{embedder: emb, store: store, cfg: cfg}
}

// Retrieve searches the raw question and the expanded query, merges both
// result sets, and dedupes them on (source, page, content prefix).
func (r *HybridRetriever) Retrieve(ctx context.Context, raw, expanded string) ([]vectorstore.Candidate, error) {
	first, err := r.search(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("raw-query search failed: %w", err)
	}

	merged := first
	if expanded != "" && expanded != raw {
		second, err := r.search(ctx, expanded)
		if err != nil {
			return nil, fmt.Errorf("expanded-query search failed: %w", err)
		}
		merged = append(merged, second...)
	}

	deduped := Dedupe(merged)
	if len(deduped) > r.cfg.MergedCap {
		deduped = deduped[:r.cfg.MergedCap]
	}
	return deduped, nil
}

func (r *HybridRetriever) search(ctx context.Context, query string) ([]vectorstore.Candidate, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return r.store.MMRSearch(ctx, vector, r.cfg.K, r.cfg.FetchK, r.cfg.Lambda)
}

// Dedupe removes duplicate candidates, keeping first (highest ranked)
// occurrence of each (source, page, content-prefix) tuple.
func Dedupe(candidates []vectorstore.Candidate) []vectorstore.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]vectorstore.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := dedupeKey(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func dedupeKey(c vectorstore.Candidate) string {
	prefix := c.Content
	if len(prefix) > dedupePrefixLen {
		prefix = prefix[:dedupePrefixLen]
	}
	return c.Source + "|" + strconv.Itoa(c.Page) + "|" + prefix
}
