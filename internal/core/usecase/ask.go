package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/startupscout/scout/internal/core/domain"
	"github.com/startupscout/scout/internal/core/ports"
)

const (
	defaultTopK     = 5
	maxTopK         = 10
	maxQuestionLen  = 1000
	fetchKCap       = 20
	rerankBlobLimit = 2000

	noRelatedContentText    = "No related startup cases found."
	insufficientContextText = "Not enough relevant context found."
	emptyAnswerFallbackText = "Not enough grounded context to answer confidently."
)

// RetrievalMode selects between the full reranked pipeline and the
// lite variant that orders on fusion signals alone.
type RetrievalMode string

const (
	ModeFull RetrievalMode = "full"
	ModeLite RetrievalMode = "lite"
)

// RetrievalConfig carries the tunable knobs of one pipeline instance.
type RetrievalConfig struct {
	Mode          RetrievalMode
	MinSimilarity float64
	RRFK          int
	RerankTimeout time.Duration
	CacheTTL      time.Duration
	Weights       ScoreWeights
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	out := c
	if out.Mode != ModeLite {
		out.Mode = ModeFull
	}
	if out.MinSimilarity <= 0 {
		out.MinSimilarity = 0.35
	}
	if out.RRFK <= 0 {
		out.RRFK = 60
	}
	if out.RerankTimeout <= 0 {
		out.RerankTimeout = 30 * time.Second
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = time.Minute
	}
	zero := ScoreWeights{}
	if out.Weights == zero {
		if out.Mode == ModeLite {
			out.Weights = LiteWeights()
		} else {
			out.Weights = DefaultWeights()
		}
	}
	return out
}

// Observer receives pipeline events the HTTP layer cannot see on its
// own. Implementations must be safe for concurrent use.
type Observer interface {
	SourceFailure(source string)
	CacheLookup(hit bool)
}

type nopObserver struct{}

func (nopObserver) SourceFailure(string) {}
func (nopObserver) CacheLookup(bool)     {}

// AskUseCase runs the full question pipeline: keywords, embedding,
// three retrieval sources, RRF fusion, reranking, blended scoring,
// context assembly, and the downstream answer call.
type AskUseCase struct {
	store     ports.DecisionStore
	embedder  ports.Embedder
	reranker  ports.Reranker
	generator ports.AnswerGenerator
	cache     ports.ResultCache
	cfg       RetrievalConfig
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time
}

// SetObserver attaches a metrics observer; nil restores the no-op.
func (uc *AskUseCase) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	uc.observer = o
}

func NewAskUseCase(
	store ports.DecisionStore,
	embedder ports.Embedder,
	reranker ports.Reranker,
	generator ports.AnswerGenerator,
	cache ports.ResultCache,
	cfg RetrievalConfig,
	logger *slog.Logger,
) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		store:     store,
		embedder:  embedder,
		reranker:  reranker,
		generator: generator,
		cache:     cache,
		cfg:       cfg.normalize(),
		logger:    logger,
		observer:  nopObserver{},
		now:       time.Now,
	}
}

func normalizeQuestion(question string) string {
	q := truncateRunes(strings.TrimSpace(question), maxQuestionLen)
	return strings.Join(strings.Fields(q), " ")
}

func cacheKey(question string, topK int) string {
	return fmt.Sprintf("ask:%d:%s", topK, strings.ToLower(question))
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return defaultTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

func fetchWidth(topK int) int {
	w := topK * 3
	if alt := topK + 7; alt > w {
		w = alt
	}
	if w > fetchKCap {
		w = fetchKCap
	}
	return w
}

// Ask answers one question. Empty-corpus outcomes come back as answers
// with no references and no generator call; only invalid input, a fully
// unreachable store, or a failed embedding/generation surface as errors.
func (uc *AskUseCase) Ask(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	q := normalizeQuestion(question)
	if q == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question cannot be empty"))
	}
	topK = clampTopK(topK)

	key := cacheKey(q, topK)
	if uc.cache != nil {
		cached, ok := uc.cache.Get(ctx, key)
		uc.observer.CacheLookup(ok)
		if ok {
			return cached, nil
		}
	}

	query := domain.Query{
		Question:      q,
		Keywords:      deriveKeywords(q),
		FetchK:        fetchWidth(topK),
		TopK:          topK,
		MinSimilarity: uc.cfg.MinSimilarity,
	}

	embedding, err := uc.embedder.EmbedQuery(ctx, q)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "embed query", err)
	}
	if len(embedding) == 0 {
		return nil, domain.WrapError(domain.ErrTemporary, "embed query", fmt.Errorf("empty embedding returned"))
	}
	query.Embedding = embedding

	vecRows, lexRows, subRows, err := uc.retrieveAll(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vecRows) == 0 && len(lexRows) == 0 && len(subRows) == 0 {
		return &domain.Answer{
			Question:   q,
			Text:       noRelatedContentText,
			References: []domain.Reference{},
			Outcome:    domain.OutcomeNoContent,
		}, nil
	}

	candidates := fuseSources(vecRows, lexRows, subRows)
	rerankScores := uc.rerank(ctx, query, candidates)
	scored := scoreCandidates(candidates, rerankScores, query.Keywords, uc.cfg.RRFK, uc.cfg.Weights, uc.now())
	results := selectResults(scored, query.TopK, query.MinSimilarity)
	if len(results) == 0 {
		return &domain.Answer{
			Question:   q,
			Text:       insufficientContextText,
			References: []domain.Reference{},
			Outcome:    domain.OutcomeInsufficientContext,
		}, nil
	}

	contextBlock := buildContext(results)
	answerText, err := uc.generator.GenerateAnswer(ctx, q, contextBlock)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "generate answer", err)
	}
	answerText = strings.TrimSpace(answerText)
	if answerText == "" {
		answerText = emptyAnswerFallbackText
	}

	answer := &domain.Answer{
		Question:   q,
		Text:       answerText,
		References: buildReferences(results),
		Outcome:    domain.OutcomeAnswered,
	}
	if uc.cache != nil {
		uc.cache.Set(ctx, key, answer, uc.cfg.CacheTTL)
	}

	uc.logger.Info("ask_ok",
		"qlen", len(q),
		"top_k", topK,
		"fetch_k", query.FetchK,
		"min_sim", query.MinSimilarity,
		"candidates", len(candidates),
		"used", len(results),
	)
	return answer, nil
}

// retrieveAll issues the three retrieval sources in sequence. A failing
// source contributes nothing and the request proceeds; only all three
// failing together marks the store unreachable.
func (uc *AskUseCase) retrieveAll(ctx context.Context, query domain.Query) (vec, lex, sub []domain.RetrievedDecision, err error) {
	failures := 0

	run := func(source string, fn func() ([]domain.RetrievedDecision, error)) []domain.RetrievedDecision {
		rows, srcErr := fn()
		if srcErr != nil {
			failures++
			uc.observer.SourceFailure(source)
			uc.logger.Warn("retrieval_source_failed", "source", source, "error", srcErr)
			return nil
		}
		return rows
	}

	vec = run("vector", func() ([]domain.RetrievedDecision, error) {
		return uc.store.Retrieve(ctx, query.Embedding, query.FetchK)
	})
	lex = run("lexical", func() ([]domain.RetrievedDecision, error) {
		return uc.store.SearchLexical(ctx, query.Question, query.FetchK)
	})
	sub = run("substring", func() ([]domain.RetrievedDecision, error) {
		return uc.store.SearchSubstring(ctx, substringPatterns(query.Question, query.Keywords), query.FetchK)
	})

	if failures == 3 {
		return nil, nil, nil, domain.WrapError(domain.ErrStoreUnavailable, "retrieve", fmt.Errorf("all retrieval sources failed"))
	}
	return vec, lex, sub, nil
}

// rerank asks the configured strategy for fine-grained relevance
// scores. Any failure degrades to a neutral zero vector so a stalled or
// broken reranker can never fail the request.
func (uc *AskUseCase) rerank(ctx context.Context, query domain.Query, candidates []domain.Candidate) []float64 {
	neutral := make([]float64, len(candidates))
	if uc.cfg.Mode == ModeLite || uc.reranker == nil || len(candidates) == 0 {
		return neutral
	}

	inputs := make([]domain.RerankInput, 0, len(candidates))
	for _, c := range candidates {
		inputs = append(inputs, domain.RerankInput{
			Title: c.Decision.Title,
			Blob:  rerankBlob(c.Decision),
		})
	}

	rerankCtx, cancel := context.WithTimeout(ctx, uc.cfg.RerankTimeout)
	defer cancel()

	scores, err := uc.reranker.Rerank(rerankCtx, query.Question, inputs)
	if err != nil || len(scores) != len(candidates) {
		uc.logger.Warn("rerank_failed_using_neutral_scores", "error", err, "candidates", len(candidates))
		return neutral
	}
	return scores
}

func rerankBlob(d domain.Decision) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{d.Decision, d.Summary, d.Content} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return truncateRunes(strings.Join(parts, " "), rerankBlobLimit)
}
