package domain

// Candidate wraps a Decision with per-query retrieval metadata. Ranks
// are 1-based; 0 means the source did not return the document at all,
// modelling absence as an explicit zero value rather than control flow.
type Candidate struct {
	Decision      Decision
	Similarity    float64 // best similarity seen across sources
	LexicalScore  float64
	VectorRank    int
	LexicalRank   int
	SubstringRank int
}

// ScoredResult is a Candidate with its final blended score attached.
type ScoredResult struct {
	Candidate
	Score float64
}

// Query is the per-request transient state derived from one question.
// It is built at request start and discarded with the response.
type Query struct {
	Question      string
	Keywords      []string
	Embedding     []float32
	FetchK        int
	TopK          int
	MinSimilarity float64
}

// RerankInput is one (title, text blob) pair handed to a reranker.
type RerankInput struct {
	Title string
	Blob  string
}

// Reference is the slim citation record returned alongside an answer.
type Reference struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Tags       string  `json:"tags,omitempty"`
	Stage      string  `json:"stage,omitempty"`
	Source     string  `json:"source,omitempty"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
}

// AskOutcome distinguishes a grounded answer from the two empty-result
// endings of the pipeline. It never appears on the wire.
type AskOutcome string

const (
	OutcomeAnswered            AskOutcome = "answered"
	OutcomeNoContent           AskOutcome = "no_content"
	OutcomeInsufficientContext AskOutcome = "insufficient_context"
)

// Answer is the user-facing result of one ask request.
type Answer struct {
	Question   string      `json:"question"`
	Text       string      `json:"answer"`
	References []Reference `json:"references"`
	Outcome    AskOutcome  `json:"-"`
}

// HasContext reports whether the answer was grounded in retrieved
// material, distinguishing the empty-result outcomes from real answers.
func (a *Answer) HasContext() bool {
	return a != nil && len(a.References) > 0
}
