// Package reranker filters retrieval candidates before answer synthesis.
//
// Retrieval ranks by embedding similarity alone, which cannot tell a
// doctoral-programme article from an identically phrased undergraduate one.
// The reranker sees the question and every candidate together and keeps only
// the passages that actually govern the asked situation.
package reranker

import (
	"context"

	"github.com/kampusasistani/rag/internal/vectorstore"
)

// Selection is the reranker outcome. FallbackUsed reports whether the LLM
// selection failed and the result is simply the top candidates in their
// original retrieval order.
type Selection struct {
	Candidates   []vectorstore.Candidate
	FallbackUsed bool
}

// Reranker narrows a merged candidate set down to the passages worth citing.
type Reranker interface {
	Rerank(ctx context.Context, question string, candidates []vectorstore.Candidate, keep int) (Selection, error)
}
