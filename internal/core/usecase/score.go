package usecase

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/startupscout/scout/internal/core/domain"
)

// ScoreWeights blends the per-candidate signals into one composite.
// The exact values are tuning, not contract: what must hold is that
// every component contributes within its stated range and that more
// evidence never lowers a score.
type ScoreWeights struct {
	Rerank     float64
	RRF        float64
	Similarity float64
	Keyword    float64
	Recency    float64

	// BinaryRecency switches the recency component from the continuous
	// decay to a plain presence check, matching the lite pipeline.
	BinaryRecency bool
}

// DefaultWeights is the full pipeline blend with a dominant reranker.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Rerank:     0.50,
		RRF:        0.22,
		Similarity: 0.18,
		Keyword:    0.07,
		Recency:    0.03,
	}
}

// LiteWeights drops the reranker term; the remaining signals carry the
// ordering on their own, with recency reduced to a presence bit.
func LiteWeights() ScoreWeights {
	return ScoreWeights{
		RRF:           0.22,
		Similarity:    0.18,
		Keyword:       0.07,
		Recency:       0.03,
		BinaryRecency: true,
	}
}

// keywordScore counts case-insensitive occurrences of every keyword
// (phrases and unigrams alike) in the text, saturating at five hits.
// Monotonically non-decreasing in occurrence count, bounded to [0,1].
func keywordScore(text string, keywords []string) float64 {
	if text == "" || len(keywords) == 0 {
		return 0
	}
	t := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		hits += strings.Count(t, kw)
	}
	score := float64(hits) / 5.0
	if score > 1 {
		return 1
	}
	return score
}

var (
	percentPattern = regexp.MustCompile(`\b\d{1,3}(?:\.\d+)?\s*%`)
	moneyPattern   = regexp.MustCompile(`\$\s?\d{1,3}(?:[,\d]{0,3})*(?:\.\d+)?\b`)
	countPattern   = regexp.MustCompile(`\b\d{2,}\b`)
	periodPattern  = regexp.MustCompile(`(?i)\b\d{1,2}\s*(?:day|week|month|quarter|year)s?\b`)
)

// evidenceBonus rewards concrete numeric content: percentages, dollar
// amounts, sizable counts, and short time windows. Capped at 0.05 so it
// nudges but never dominates the ranking.
func evidenceBonus(text string) float64 {
	if text == "" {
		return 0
	}
	bonus := 0.0
	if percentPattern.MatchString(text) {
		bonus += 0.02
	}
	if moneyPattern.MatchString(text) {
		bonus += 0.02
	}
	if countPattern.MatchString(text) {
		bonus += 0.01
	}
	if periodPattern.MatchString(text) {
		bonus += 0.01
	}
	if bonus > 0.05 {
		return 0.05
	}
	return bonus
}

// recencyScore decays linearly from 1.0 for fresh rows to a floor of
// 0.3 at one year; a zero timestamp scores nothing.
func recencyScore(fetchedAt time.Time, now time.Time) float64 {
	if fetchedAt.IsZero() {
		return 0
	}
	ageDays := int(now.Sub(fetchedAt).Hours() / 24)
	switch {
	case ageDays <= 0:
		return 1.0
	case ageDays >= 365:
		return 0.3
	}
	score := 1.0 - (float64(ageDays)/365.0)*0.7
	if score < 0.3 {
		return 0.3
	}
	return score
}

func candidateText(d domain.Decision) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{d.Title, d.Decision, d.Summary, d.Content} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// scoreCandidates blends every signal into a composite score per
// candidate and orders the result descending. Ties keep the candidates'
// input order (stable sort over the fusion insertion order).
func scoreCandidates(
	candidates []domain.Candidate,
	rerankScores []float64,
	keywords []string,
	rrfK int,
	weights ScoreWeights,
	now time.Time,
) []domain.ScoredResult {
	scored := make([]domain.ScoredResult, 0, len(candidates))
	for i, c := range candidates {
		rerank := 0.0
		if i < len(rerankScores) {
			rerank = rerankScores[i]
		}

		recency := 0.0
		if weights.BinaryRecency {
			if !c.Decision.FetchedAt.IsZero() {
				recency = 1.0
			}
		} else {
			recency = recencyScore(c.Decision.FetchedAt, now)
		}

		text := candidateText(c.Decision)
		composite := weights.Rerank*rerank +
			weights.RRF*fusionScore(c, rrfK) +
			weights.Similarity*c.Similarity +
			weights.Keyword*keywordScore(text, keywords) +
			weights.Recency*recency +
			evidenceBonus(text)

		scored = append(scored, domain.ScoredResult{Candidate: c, Score: composite})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// selectResults applies the post-scoring cuts: a widened head slice,
// the raw-similarity floor, then the top-k truncation. An empty result
// means the floor left nothing usable, a distinguishable outcome rather
// than an error.
func selectResults(scored []domain.ScoredResult, topK int, minSimilarity float64) []domain.ScoredResult {
	head := topK * 2
	if alt := topK + 3; alt > head {
		head = alt
	}
	if head > len(scored) {
		head = len(scored)
	}

	out := make([]domain.ScoredResult, 0, topK)
	for _, r := range scored[:head] {
		if r.Similarity < minSimilarity {
			continue
		}
		out = append(out, r)
		if len(out) == topK {
			break
		}
	}
	return out
}
