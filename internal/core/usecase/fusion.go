package usecase

import "github.com/startupscout/scout/internal/core/domain"

// fuseSources merges the three ranked source lists into one deduplicated
// candidate list keyed by decision key. Per-source 1-based ranks are
// recorded independently, the best similarity seen wins, and first-seen
// insertion order is preserved so later stable sorts break ties the same
// way on every run.
func fuseSources(vector, lexical, substring []domain.RetrievedDecision) []domain.Candidate {
	index := make(map[string]int, len(vector)+len(lexical)+len(substring))
	candidates := make([]domain.Candidate, 0, len(vector)+len(lexical)+len(substring))

	upsert := func(d domain.RetrievedDecision) *domain.Candidate {
		key := d.Key()
		if i, ok := index[key]; ok {
			c := &candidates[i]
			if d.Similarity > c.Similarity {
				c.Similarity = d.Similarity
				c.Decision = d.Decision
			}
			if d.LexicalScore > c.LexicalScore {
				c.LexicalScore = d.LexicalScore
			}
			return c
		}
		index[key] = len(candidates)
		candidates = append(candidates, domain.Candidate{
			Decision:     d.Decision,
			Similarity:   d.Similarity,
			LexicalScore: d.LexicalScore,
		})
		return &candidates[len(candidates)-1]
	}

	for rank, d := range vector {
		upsert(d).VectorRank = rank + 1
	}
	for rank, d := range lexical {
		upsert(d).LexicalRank = rank + 1
	}
	for rank, d := range substring {
		upsert(d).SubstringRank = rank + 1
	}
	return candidates
}

// rrfTerm is the reciprocal-rank-fusion contribution of one source.
// K discounts the importance of exact rank position, especially for low
// ranks; rank 0 means the source never returned the document.
func rrfTerm(k, rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return 1.0 / float64(k+rank)
}

// fusionScore sums the three per-source RRF terms, rewarding documents
// found by multiple sources without requiring them to agree on order.
func fusionScore(c domain.Candidate, k int) float64 {
	if k <= 0 {
		k = 60
	}
	return rrfTerm(k, c.VectorRank) + rrfTerm(k, c.LexicalRank) + rrfTerm(k, c.SubstringRank)
}
