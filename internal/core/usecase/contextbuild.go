package usecase

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/startupscout/scout/internal/core/domain"
)

const (
	decisionClipLen = 700
	summaryClipLen  = 400
	contentClipLen  = 600
	commentClipLen  = 200
	maxComments     = 3
)

// truncateRunes cuts s to at most n runes. Limits throughout the
// pipeline count characters, not bytes; slicing bytes would split
// multi-byte runes and emit invalid UTF-8.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// clip collapses whitespace and truncates to n characters, marking the
// cut with an ellipsis. Field-level clipping is the only size control
// in context assembly; the total block size is bounded by construction.
func clip(s string, n int) string {
	if s == "" {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > n {
		return truncateRunes(s, n) + "…"
	}
	return s
}

func topComments(comments []string, k int) string {
	if len(comments) == 0 {
		return ""
	}
	if len(comments) > k {
		comments = comments[:k]
	}
	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		lines = append(lines, "- "+truncateRunes(c, commentClipLen))
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// buildContext formats the selected results into the numbered,
// citation-friendly block handed to the answer generator.
func buildContext(results []domain.ScoredResult) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		d := r.Decision
		block := fmt.Sprintf(
			"[%d] %s | source: %s | tags: %s | stage: %s | sim≈%.2f\n"+
				"Decision: %s\n"+
				"Summary:  %s\n"+
				"Content:  %s\n"+
				"Comments:\n%s",
			i+1, d.Title, orDash(d.Source), orDash(d.Tags), orDash(d.Stage), r.Similarity,
			clip(d.Decision, decisionClipLen),
			clip(d.Summary, summaryClipLen),
			clip(d.Content, contentClipLen),
			topComments(d.Comments, maxComments),
		)
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

// buildReferences produces the lightweight citation list that travels
// alongside the generated answer.
func buildReferences(results []domain.ScoredResult) []domain.Reference {
	refs := make([]domain.Reference, 0, len(results))
	for _, r := range results {
		d := r.Decision
		refs = append(refs, domain.Reference{
			ID:         d.ID,
			Title:      d.Title,
			Tags:       d.Tags,
			Stage:      d.Stage,
			Source:     d.Source,
			URL:        d.URL,
			Similarity: math.Round(r.Similarity*10000) / 10000,
		})
	}
	return refs
}
