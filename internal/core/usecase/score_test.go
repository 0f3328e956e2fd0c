package usecase

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/startupscout/scout/internal/core/domain"
)

func TestKeywordScoreSaturatesAtFiveHits(t *testing.T) {
	text := "fund fund fund fund fund fund"
	if got := keywordScore(text, []string{"fund"}); got != 1.0 {
		t.Fatalf("expected saturation at 1.0, got %v", got)
	}
}

func TestKeywordScoreCapsRepeatedPhraseHits(t *testing.T) {
	text := strings.Repeat("fund series ", 6)
	if got := keywordScore(text, []string{"fund", "fund series"}); got != 1.0 {
		t.Fatalf("expected cap at 1.0, got %v", got)
	}
}

func TestKeywordScoreCountsPhraseAndUnigramHits(t *testing.T) {
	text := "fund series fund"
	// "fund" matches twice, "fund series" once: 3 hits / 5.
	if got, want := keywordScore(text, []string{"fund", "fund series"}), 0.6; math.Abs(got-want) > 1e-12 {
		t.Fatalf("keywordScore = %v, want %v", got, want)
	}
}

func TestKeywordScoreMonotonicInOccurrences(t *testing.T) {
	prev := 0.0
	text := ""
	for i := 0; i < 6; i++ {
		text += " churn"
		got := keywordScore(text, []string{"churn"})
		if got < prev {
			t.Fatalf("keywordScore decreased from %v to %v at %d occurrences", prev, got, i+1)
		}
		prev = got
	}
}

func TestKeywordScoreEmptyInputs(t *testing.T) {
	if got := keywordScore("", []string{"x"}); got != 0 {
		t.Fatalf("empty text should score 0, got %v", got)
	}
	if got := keywordScore("text", nil); got != 0 {
		t.Fatalf("no keywords should score 0, got %v", got)
	}
}

func TestEvidenceBonus(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"no numbers here", 0},
		{"retention improved 25%", 0.02 + 0.01},          // percent + count
		{"raised $2 million", 0.02},                      // money
		{"shipped in 6 weeks", 0.01},                     // period
		{"grew 40% to $500 over 12 months from 900", 0.05}, // all, capped
	}
	for _, tc := range cases {
		if got := evidenceBonus(tc.text); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("evidenceBonus(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestRecencyScoreBoundaries(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if got := recencyScore(time.Time{}, now); got != 0 {
		t.Fatalf("zero timestamp should score 0, got %v", got)
	}
	if got := recencyScore(now, now); got != 1.0 {
		t.Fatalf("fresh row should score 1.0, got %v", got)
	}
	if got := recencyScore(now.AddDate(-2, 0, 0), now); got != 0.3 {
		t.Fatalf("two-year-old row should hit floor 0.3, got %v", got)
	}

	halfYear := now.AddDate(0, 0, -182)
	got := recencyScore(halfYear, now)
	want := 1.0 - (182.0/365.0)*0.7
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("half-year recency = %v, want %v", got, want)
	}
}

func TestScoreCandidatesOrdersByComposite(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	candidates := []domain.Candidate{
		{Decision: domain.Decision{ID: "low", Title: "unrelated"}, Similarity: 0.4, VectorRank: 2},
		{Decision: domain.Decision{ID: "high", Title: "churn playbook"}, Similarity: 0.9, VectorRank: 1, LexicalRank: 1},
	}
	rerank := []float64{0.1, 0.9}

	scored := scoreCandidates(candidates, rerank, []string{"churn"}, 60, DefaultWeights(), now)
	if scored[0].Decision.ID != "high" {
		t.Fatalf("expected high-signal candidate first, got %s", scored[0].Decision.ID)
	}
	if scored[0].Score <= scored[1].Score {
		t.Fatalf("scores not descending: %v then %v", scored[0].Score, scored[1].Score)
	}
}

func TestScoreCandidatesStableOnTies(t *testing.T) {
	now := time.Now()
	candidates := []domain.Candidate{
		{Decision: domain.Decision{ID: "first"}, Similarity: 0.5, VectorRank: 1},
		{Decision: domain.Decision{ID: "second"}, Similarity: 0.5, VectorRank: 1},
	}
	scored := scoreCandidates(candidates, []float64{0.5, 0.5}, nil, 60, DefaultWeights(), now)
	if scored[0].Decision.ID != "first" {
		t.Fatalf("tie should preserve input order, got %s first", scored[0].Decision.ID)
	}
}

func TestScoreCandidatesLiteUsesBinaryRecency(t *testing.T) {
	now := time.Now()
	old := domain.Candidate{
		Decision:   domain.Decision{ID: "old", FetchedAt: now.AddDate(-3, 0, 0)},
		Similarity: 0.5,
		VectorRank: 1,
	}
	fresh := domain.Candidate{
		Decision:   domain.Decision{ID: "fresh", FetchedAt: now},
		Similarity: 0.5,
		VectorRank: 1,
	}

	scored := scoreCandidates([]domain.Candidate{old, fresh}, nil, nil, 60, LiteWeights(), now)
	if math.Abs(scored[0].Score-scored[1].Score) > 1e-12 {
		t.Fatalf("binary recency should treat any timestamp alike: %v vs %v", scored[0].Score, scored[1].Score)
	}
}

func TestSelectResultsAppliesHeadFloorAndTopK(t *testing.T) {
	scored := make([]domain.ScoredResult, 0, 12)
	for i := 0; i < 12; i++ {
		sim := 0.9 - float64(i)*0.05
		scored = append(scored, domain.ScoredResult{
			Candidate: domain.Candidate{
				Decision:   domain.Decision{ID: string(rune('a' + i))},
				Similarity: sim,
			},
			Score: 1.0 - float64(i)*0.01,
		})
	}

	out := selectResults(scored, 5, 0.35)
	if len(out) != 5 {
		t.Fatalf("expected top 5 results, got %d", len(out))
	}
	for _, r := range out {
		if r.Similarity < 0.35 {
			t.Fatalf("result %s below similarity floor: %v", r.Decision.ID, r.Similarity)
		}
	}
}

func TestSelectResultsHeadCutExcludesTail(t *testing.T) {
	// 20 scored rows, topK=2 -> head of 5; a passing row at position 6
	// must not be reachable even though the floor would admit it.
	scored := make([]domain.ScoredResult, 0, 20)
	for i := 0; i < 20; i++ {
		sim := 0.1
		if i >= 5 {
			sim = 0.9
		}
		scored = append(scored, domain.ScoredResult{
			Candidate: domain.Candidate{Decision: domain.Decision{ID: string(rune('a' + i))}, Similarity: sim},
			Score:     1.0 - float64(i)*0.01,
		})
	}

	out := selectResults(scored, 2, 0.35)
	if len(out) != 0 {
		t.Fatalf("expected empty selection when only tail rows pass the floor, got %d", len(out))
	}
}

func TestSelectResultsAllBelowFloor(t *testing.T) {
	scored := []domain.ScoredResult{
		{Candidate: domain.Candidate{Decision: domain.Decision{ID: "a"}, Similarity: 0.1}, Score: 0.5},
		{Candidate: domain.Candidate{Decision: domain.Decision{ID: "b"}, Similarity: 0.2}, Score: 0.4},
	}
	if out := selectResults(scored, 5, 0.35); len(out) != 0 {
		t.Fatalf("expected empty selection below floor, got %d", len(out))
	}
}
