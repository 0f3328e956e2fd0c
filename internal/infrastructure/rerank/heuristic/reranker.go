// Package heuristic implements the dependency-free reranking strategy:
// a weighted combination of keyword, overlap, position, evidence, and
// length signals that stands in for a cross-encoder model when none is
// configured or reachable.
package heuristic

import (
	"context"
	"regexp"
	"strings"

	"github.com/startupscout/scout/internal/core/domain"
)

type Reranker struct{}

func New() *Reranker {
	return &Reranker{}
}

// Rerank scores each (title, blob) pair against the question. The
// output has the same length as the input; scores are clamped to [0,1]
// and min-max normalized within the batch, with a degenerate batch
// (no discriminating signal) collapsing to all zeros. It never fails.
func (r *Reranker) Rerank(_ context.Context, question string, inputs []domain.RerankInput) ([]float64, error) {
	if len(inputs) == 0 {
		return []float64{}, nil
	}

	keywords := weightedKeywords(question)
	scores := make([]float64, len(inputs))
	for i, in := range inputs {
		content := strings.ToLower(in.Title + " " + in.Blob)

		raw := 0.35*keywordMatchScore(content, keywords) +
			0.25*overlapScore(question, in.Title, in.Blob) +
			0.20*positionScore(in.Title, in.Blob, keywords) +
			0.15*evidenceScore(content) +
			0.05*lengthScore(content)

		scores[i] = clamp01(raw)
	}
	return normalizeBatch(scores), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizeBatch rescales scores to span [0,1]. When max equals min the
// batch carries no discriminating signal and every score becomes 0.
func normalizeBatch(scores []float64) []float64 {
	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}
	span := maxScore - minScore
	if span <= 0 {
		return make([]float64, len(scores))
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = (s - minScore) / span
	}
	return out
}

// Startup-domain terms that deserve extra pull during matching.
var domainTerms = map[string]struct{}{
	"funding": {}, "investment": {}, "investor": {}, "vc": {}, "venture": {},
	"capital": {}, "startup": {}, "founder": {}, "co-founder": {}, "ceo": {},
	"cto": {}, "revenue": {}, "profit": {}, "growth": {}, "scale": {},
	"scaling": {}, "product": {}, "market": {}, "customer": {}, "user": {},
	"traction": {}, "pitch": {}, "deck": {}, "presentation": {}, "demo": {},
	"series a": {}, "series b": {}, "seed": {}, "angel": {}, "round": {},
	"valuation": {}, "equity": {}, "shares": {}, "stock": {}, "saas": {},
	"b2b": {}, "b2c": {}, "enterprise": {}, "consumer": {},
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

func words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// weightedKeywords extracts question terms with importance weights:
// domain terms count double, repeated words get a mild boost, and
// domain bigrams count triple.
func weightedKeywords(question string) map[string]float64 {
	tokens := words(question)

	counts := make(map[string]int, len(tokens))
	for _, w := range tokens {
		counts[w]++
	}

	keywords := make(map[string]float64, len(tokens))
	for _, w := range tokens {
		if len(w) < 3 {
			continue
		}
		weight := 1.0
		if _, ok := domainTerms[w]; ok {
			weight = 2.0
		} else if counts[w] > 1 {
			weight = 1.5
		}
		keywords[w] = weight
	}

	for i := 0; i+1 < len(tokens); i++ {
		bigram := tokens[i] + " " + tokens[i+1]
		if _, ok := domainTerms[bigram]; ok {
			keywords[bigram] = 3.0
		}
	}
	return keywords
}

func keywordMatchScore(content string, keywords map[string]float64) float64 {
	if len(keywords) == 0 {
		return 0.5
	}
	total, matched := 0.0, 0.0
	for kw, weight := range keywords {
		total += weight
		occurrences := strings.Count(content, kw)
		if occurrences > 0 {
			matched += weight
			if occurrences > 1 {
				matched += weight * 0.5 * float64(occurrences-1)
			}
		}
	}
	if total == 0 {
		return 0
	}
	return matched / total
}

var overlapStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"then": {}, "else": {}, "for": {}, "of": {}, "to": {}, "in": {}, "on": {},
	"at": {}, "with": {}, "without": {}, "by": {}, "from": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"as": {}, "about": {}, "into": {}, "over": {}, "under": {}, "it": {},
	"its": {}, "this": {}, "that": {}, "these": {}, "those": {}, "you": {},
	"your": {}, "we": {}, "our": {}, "they": {}, "their": {},
}

var synonyms = map[string][]string{
	"funding":   {"money", "capital", "investment", "cash"},
	"startup":   {"company", "business", "venture", "firm"},
	"founder":   {"creator", "owner", "entrepreneur"},
	"revenue":   {"income", "sales", "earnings"},
	"customer":  {"client", "user", "buyer"},
	"product":   {"service", "solution", "offering"},
	"market":    {"industry", "sector", "space"},
	"growth":    {"expansion", "scaling", "increase"},
	"pitch":     {"presentation", "demo", "proposal"},
	"valuation": {"worth", "value", "price"},
}

func contentWordSet(texts ...string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, text := range texts {
		for _, w := range words(text) {
			if len(w) <= 2 {
				continue
			}
			if _, stop := overlapStopWords[w]; stop {
				continue
			}
			out[w] = struct{}{}
		}
	}
	return out
}

// overlapScore measures synonym-aware token overlap between question
// and content.
func overlapScore(question, title, blob string) float64 {
	questionWords := contentWordSet(question)
	if len(questionWords) == 0 {
		return 0.5
	}
	contentWords := contentWordSet(title, blob)

	overlap := 0
	synonymBonus := 0.0
	for qw := range questionWords {
		if _, ok := contentWords[qw]; ok {
			overlap++
		}
		for cw := range contentWords {
			if areSynonyms(qw, cw) {
				synonymBonus += 0.1
			}
		}
	}
	return clamp01(float64(overlap)/float64(len(questionWords)) + synonymBonus)
}

func areSynonyms(a, b string) bool {
	for key, values := range synonyms {
		if a == key {
			for _, v := range values {
				if b == v {
					return true
				}
			}
		}
		if b == key {
			for _, v := range values {
				if a == v {
					return true
				}
			}
		}
	}
	return false
}

// positionScore rewards keywords placed in the title or early in the
// body over matches buried near the end.
func positionScore(title, blob string, keywords map[string]float64) float64 {
	if len(keywords) == 0 {
		return 0.5
	}
	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(blob)

	score, total := 0.0, 0.0
	for kw, weight := range keywords {
		total += weight
		switch {
		case strings.Contains(titleLower, kw):
			score += weight
		case earlyMatch(bodyLower, kw):
			score += weight * 0.7
		default:
			score += weight * 0.3
		}
	}
	if total == 0 {
		return 0
	}
	return score / total
}

func earlyMatch(body, keyword string) bool {
	idx := strings.Index(body, keyword)
	return idx >= 0 && float64(idx) < float64(len(body))*0.3
}

// lengthScore penalizes very short or very long blobs; mid-length
// content tends to be a complete, focused decision write-up.
func lengthScore(content string) float64 {
	length := len(content)
	switch {
	case length >= 200 && length <= 800:
		return 1.0
	case length < 100:
		return 0.3
	case length > 2000:
		return 0.7
	default:
		return 0.8
	}
}

var (
	percentPattern = regexp.MustCompile(`\b\d{1,3}(?:\.\d+)?\s*%`)
	moneyPattern   = regexp.MustCompile(`\$\s?\d{1,3}(?:[,\d]{0,3})*(?:\.\d+)?\b`)
	countPattern   = regexp.MustCompile(`\b\d{2,}\b`)
	periodPattern  = regexp.MustCompile(`(?i)\b\d{1,2}\s*(?:day|week|month|quarter|year)s?\b`)
)

func evidenceScore(content string) float64 {
	score := 0.0
	if percentPattern.MatchString(content) {
		score += 0.3
	}
	if moneyPattern.MatchString(content) {
		score += 0.3
	}
	if countPattern.MatchString(content) {
		score += 0.2
	}
	if periodPattern.MatchString(content) {
		score += 0.2
	}
	return clamp01(score)
}
