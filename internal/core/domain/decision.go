package domain

import "time"

// Decision is one startup decision case as ingested into the corpus.
// The retrieval core treats it as read-only; ingestion owns mutation.
type Decision struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Decision  string    `json:"decision"`
	Summary   string    `json:"summary,omitempty"`
	Content   string    `json:"content,omitempty"`
	Comments  []string  `json:"comments,omitempty"`
	Tags      string    `json:"tags,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Source    string    `json:"source,omitempty"`
	URL       string    `json:"url,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// Key returns the canonical identity used to deduplicate retrieval
// results across sources. The (title, source) fallback exists for rows
// ingested before stable IDs were enforced; it can merge distinct
// decisions that share a title, so ingestion should always set ID.
func (d Decision) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return d.Title + "\x00" + d.Source
}

// RetrievedDecision is a Decision as returned by one retrieval source.
// Similarity is meaningful only for the vector source (cosine-derived,
// nominally in [0,1], not clamped); LexicalScore only for the lexical
// source. Unpopulated slots stay zero.
type RetrievedDecision struct {
	Decision
	Similarity   float64 `json:"similarity"`
	LexicalScore float64 `json:"lexical_score,omitempty"`
}
