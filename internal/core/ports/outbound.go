package ports

import (
	"context"
	"time"

	"github.com/startupscout/scout/internal/core/domain"
)

// DecisionStore is the persistent corpus with its three independent
// retrieval paths. Each call returns a ranked list; an empty list is a
// valid outcome, not an error.
type DecisionStore interface {
	// Retrieve orders decisions by vector distance against the query
	// embedding. Decisions without an embedding are excluded.
	Retrieve(ctx context.Context, embedding []float32, fetchK int) ([]domain.RetrievedDecision, error)
	// SearchLexical orders decisions by full-text relevance against a
	// query derived from the raw question text.
	SearchLexical(ctx context.Context, question string, fetchK int) ([]domain.RetrievedDecision, error)
	// SearchSubstring orders decisions by recency among those matching
	// any pattern as a case-insensitive substring.
	SearchSubstring(ctx context.Context, patterns []string, fetchK int) ([]domain.RetrievedDecision, error)
	Ping(ctx context.Context) error
}

// Embedder turns query text into a fixed-length vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker assigns each (title, blob) pair a relevance score against
// the question. The output slice always has the same length as inputs
// and every score lies in [0,1] after batch normalization.
type Reranker interface {
	Rerank(ctx context.Context, question string, inputs []domain.RerankInput) ([]float64, error)
}

// AnswerGenerator is the opaque downstream LLM call. The core only
// constructs its input and treats the output as an arbitrary string.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error)
}

type CacheStats struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Entries int    `json:"entries,omitempty"`
}

// ResultCache absorbs repeated identical questions under load. Lookup
// failures must degrade to a miss, never an error surfaced to the ask
// path.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.Answer, bool)
	Set(ctx context.Context, key string, answer *domain.Answer, ttl time.Duration)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) CacheStats
}
