package redis

import (
	"testing"

	"github.com/startupscout/scout/internal/core/domain"
)

func TestAnswerRoundTripPreservesOutcome(t *testing.T) {
	original := &domain.Answer{
		Question: "how did startups reduce churn",
		Text:     "Annual plans [1].",
		References: []domain.Reference{
			{ID: "d1", Title: "Churn playbook", Similarity: 0.81},
		},
		Outcome: domain.OutcomeAnswered,
	}

	data, err := encodeAnswer(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeAnswer(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Outcome != domain.OutcomeAnswered {
		t.Fatalf("outcome lost in round trip: %q", decoded.Outcome)
	}
	if decoded.Text != original.Text || len(decoded.References) != 1 {
		t.Fatalf("answer fields lost: %+v", decoded)
	}
}

func TestDecodeAnswerRejectsEmptyEntry(t *testing.T) {
	if _, err := decodeAnswer([]byte(`{}`)); err == nil {
		t.Fatal("expected error for entry without an answer")
	}
	if _, err := decodeAnswer([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
