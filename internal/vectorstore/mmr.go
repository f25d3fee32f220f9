package vectorstore

import "math"

// scoredVector pairs a fetched candidate with its stored embedding for MMR
// selection.
type scoredVector struct {
	Candidate Candidate
	Vector    []float32
}

// selectMMR picks k entries by Maximal Marginal Relevance: each step takes
// the entry maximizing lambda*relevance - (1-lambda)*max-similarity-to-chosen.
// Entries must arrive sorted by descending relevance score.
func selectMMR(entries []scoredVector, k int, lambda float32) []Candidate {
	if k <= 0 || len(entries) == 0 {
		return nil
	}
	if k >= len(entries) {
		out := make([]Candidate, len(entries))
		for i, e := range entries {
			out[i] = e.Candidate
		}
		return out
	}

	selected := make([]scoredVector, 0, k)
	remaining := make([]scoredVector, len(entries))
	copy(remaining, entries)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := float32(math.Inf(-1))

		for i, cand := range remaining {
			redundancy := float32(0)
			for _, sel := range selected {
				if sim := cosineSimilarity(cand.Vector, sel.Vector); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*cand.Candidate.Score - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]Candidate, len(selected))
	for i, e := range selected {
		out[i] = e.Candidate
	}
	return out
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
