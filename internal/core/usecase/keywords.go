package usecase

import (
	"regexp"
	"strings"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"then": {}, "else": {}, "for": {}, "of": {}, "to": {}, "in": {}, "on": {},
	"at": {}, "with": {}, "without": {}, "by": {}, "from": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"as": {}, "about": {}, "into": {}, "over": {}, "under": {}, "it": {},
	"its": {}, "this": {}, "that": {}, "these": {}, "those": {}, "you": {},
	"your": {},
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9\-]+`)

func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	raw := tokenPattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		out = append(out, strings.ToLower(t))
	}
	return out
}

// singularize applies the crude stemming used across keyword matching:
// "ies" -> "y" and a trailing "s" (but not "ss") is stripped. Short
// tokens are left alone so terms like "vcs" or "ios" survive intact.
func singularize(token string) string {
	if len(token) <= 3 {
		return token
	}
	if strings.HasSuffix(token, "ies") && len(token) > 4 {
		return token[:len(token)-3] + "y"
	}
	if strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return token[:len(token)-1]
	}
	return token
}

// deriveKeywords turns a question into ordered, deduplicated query
// terms: normalized unigrams first, then adjacent-unigram bigrams.
// It never fails; an empty question yields an empty list.
func deriveKeywords(question string) []string {
	tokens := tokenize(question)

	unigrams := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = singularize(t)
		if len(t) < 3 {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		unigrams = append(unigrams, t)
	}

	bigrams := make([]string, 0, len(unigrams))
	for i := 0; i+1 < len(unigrams); i++ {
		bigrams = append(bigrams, unigrams[i]+" "+unigrams[i+1])
	}

	seen := make(map[string]struct{}, len(unigrams)+len(bigrams))
	out := make([]string, 0, len(unigrams)+len(bigrams))
	for _, k := range append(unigrams, bigrams...) {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

const maxSubstringPatterns = 8

// substringPatterns converts keywords into ILIKE patterns, falling back
// to a truncated question prefix when extraction produced nothing.
func substringPatterns(question string, keywords []string) []string {
	if len(keywords) == 0 {
		return []string{"%" + truncateRunes(question, 32) + "%"}
	}
	n := len(keywords)
	if n > maxSubstringPatterns {
		n = maxSubstringPatterns
	}
	patterns := make([]string, 0, n)
	for _, kw := range keywords[:n] {
		patterns = append(patterns, "%"+kw+"%")
	}
	return patterns
}
