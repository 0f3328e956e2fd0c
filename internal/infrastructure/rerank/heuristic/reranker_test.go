package heuristic

import (
	"context"
	"strings"
	"testing"

	"github.com/startupscout/scout/internal/core/domain"
)

func TestRerankOutputLengthMatchesInput(t *testing.T) {
	r := New()

	for _, n := range []int{0, 1, 2, 7} {
		inputs := make([]domain.RerankInput, n)
		for i := range inputs {
			inputs[i] = domain.RerankInput{Title: "t", Blob: strings.Repeat("body ", i+1)}
		}
		scores, err := r.Rerank(context.Background(), "how to raise funding", inputs)
		if err != nil {
			t.Fatalf("rerank(%d inputs): %v", n, err)
		}
		if len(scores) != n {
			t.Fatalf("rerank(%d inputs) returned %d scores", n, len(scores))
		}
	}
}

func TestRerankScoresBounded(t *testing.T) {
	r := New()
	inputs := []domain.RerankInput{
		{Title: "Raising a seed round", Blob: "We raised $500 at a 20% discount in 3 months from angel investors."},
		{Title: "Unrelated", Blob: "Nothing relevant here."},
		{Title: "", Blob: ""},
	}

	scores, err := r.Rerank(context.Background(), "how did startups raise seed funding", inputs)
	if err != nil {
		t.Fatalf("rerank: %v", err)
	}
	for i, s := range scores {
		if s < 0 || s > 1 {
			t.Fatalf("score[%d] = %v out of [0,1]", i, s)
		}
	}
	if scores[0] <= scores[1] {
		t.Fatalf("relevant document (%v) should outscore irrelevant one (%v)", scores[0], scores[1])
	}
}

func TestRerankDegenerateBatchCollapsesToZeros(t *testing.T) {
	r := New()
	inputs := []domain.RerankInput{
		{Title: "same", Blob: "identical content"},
		{Title: "same", Blob: "identical content"},
		{Title: "same", Blob: "identical content"},
	}

	scores, err := r.Rerank(context.Background(), "question", inputs)
	if err != nil {
		t.Fatalf("rerank: %v", err)
	}
	for i, s := range scores {
		if s != 0 {
			t.Fatalf("degenerate batch should score all zeros, score[%d] = %v", i, s)
		}
	}
}

func TestRerankSingleInputIsDegenerate(t *testing.T) {
	r := New()
	scores, err := r.Rerank(context.Background(), "funding", []domain.RerankInput{
		{Title: "Funding", Blob: "Funding story."},
	})
	if err != nil {
		t.Fatalf("rerank: %v", err)
	}
	if len(scores) != 1 || scores[0] != 0 {
		t.Fatalf("single-element batch should normalize to [0], got %v", scores)
	}
}

func TestWeightedKeywordsDomainAndBigramWeights(t *testing.T) {
	keywords := weightedKeywords("series a funding funding plan")

	if got := keywords["series a"]; got != 3.0 {
		t.Fatalf("domain bigram weight = %v, want 3.0", got)
	}
	if got := keywords["funding"]; got != 2.0 {
		t.Fatalf("domain term weight = %v, want 2.0", got)
	}
	if got := keywords["plan"]; got != 1.0 {
		t.Fatalf("plain term weight = %v, want 1.0", got)
	}
	if _, ok := keywords["a"]; ok {
		t.Fatal("short tokens must not appear as unigram keywords")
	}
}

func TestWeightedKeywordsRepeatBoost(t *testing.T) {
	keywords := weightedKeywords("pricing pricing experiment")
	if got := keywords["pricing"]; got != 1.5 {
		t.Fatalf("repeated term weight = %v, want 1.5", got)
	}
}

func TestPositionScorePrefersTitleMatches(t *testing.T) {
	keywords := map[string]float64{"churn": 1.0}

	inTitle := positionScore("Churn reduction", "body text", keywords)
	early := positionScore("Other", "churn appeared early "+strings.Repeat("x ", 200), keywords)
	late := positionScore("Other", strings.Repeat("x ", 200)+"churn", keywords)

	if !(inTitle > early && early > late) {
		t.Fatalf("expected title > early > late, got %v %v %v", inTitle, early, late)
	}
}

func TestLengthScoreBands(t *testing.T) {
	cases := []struct {
		length int
		want   float64
	}{
		{50, 0.3},
		{150, 0.8},
		{500, 1.0},
		{1500, 0.8},
		{3000, 0.7},
	}
	for _, tc := range cases {
		if got := lengthScore(strings.Repeat("x", tc.length)); got != tc.want {
			t.Fatalf("lengthScore(len=%d) = %v, want %v", tc.length, got, tc.want)
		}
	}
}

func TestOverlapScoreCountsSynonyms(t *testing.T) {
	with := overlapScore("startup funding", "The company raised money", "")
	without := overlapScore("startup funding", "Completely unrelated words", "")
	if with <= without {
		t.Fatalf("synonym-bearing content (%v) should outscore unrelated content (%v)", with, without)
	}
}
