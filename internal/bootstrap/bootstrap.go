// Package bootstrap assembles the service from configuration: storage,
// model clients, reranker strategy, cache backend, and the ask pipeline
// behind the HTTP adapter.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpadapter "github.com/startupscout/scout/internal/adapters/http"
	"github.com/startupscout/scout/internal/config"
	"github.com/startupscout/scout/internal/core/ports"
	"github.com/startupscout/scout/internal/core/usecase"
	memorycache "github.com/startupscout/scout/internal/infrastructure/cache/memory"
	rediscache "github.com/startupscout/scout/internal/infrastructure/cache/redis"
	openaillm "github.com/startupscout/scout/internal/infrastructure/llm/openai"
	natsqueue "github.com/startupscout/scout/internal/infrastructure/queue/nats"
	"github.com/startupscout/scout/internal/infrastructure/rerank/crossencoder"
	"github.com/startupscout/scout/internal/infrastructure/rerank/heuristic"
	"github.com/startupscout/scout/internal/infrastructure/repository/postgres"
	"github.com/startupscout/scout/internal/infrastructure/resilience"
	"github.com/startupscout/scout/internal/observability/metrics"
)

const serviceName = "startupscout-api"

// App holds the wired service and the resources it owns.
type App struct {
	Handler http.Handler

	closers []func()
}

// Close releases owned resources in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// New wires the full application. ctx bounds schema bootstrap and the
// lifetime of the background NATS subscription.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.onClose(func() { _ = db.Close() })

	repo := postgres.NewDecisionRepository(db, postgres.Options{
		StatementTimeout: time.Duration(cfg.StatementTimeoutMS) * time.Millisecond,
		TextSearchLang:   cfg.TextSearchLang,
	})
	if err := repo.EnsureSchema(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	llm := openaillm.New(cfg.OpenAIAPIKey, openaillm.Options{
		EmbedModel:  cfg.EmbedModel,
		ChatModel:   cfg.LLMModel,
		Temperature: float32(cfg.LLMTemperature),
		MaxTokens:   cfg.LLMMaxTokens,
		Executor:    executor,
	})

	reranker, err := buildReranker(cfg, executor)
	if err != nil {
		app.Close()
		return nil, err
	}

	cache := buildCache(cfg, logger, app)

	m := metrics.NewHTTPServerMetrics(serviceName)

	uc := usecase.NewAskUseCase(repo, llm, reranker, llm, cache, usecase.RetrievalConfig{
		Mode:          usecase.RetrievalMode(cfg.RetrievalMode),
		MinSimilarity: cfg.MinSimilarity,
		RRFK:          cfg.RRFK,
		RerankTimeout: time.Duration(cfg.RerankTimeoutS) * time.Second,
		CacheTTL:      time.Duration(cfg.CacheTTLSec) * time.Second,
	}, logger)
	uc.SetObserver(&metricsObserver{metrics: m})

	if cfg.NATSEnabled {
		if err := startCorpusRefreshListener(ctx, cfg, cache, logger, app); err != nil {
			app.Close()
			return nil, err
		}
	}

	router := httpadapter.NewRouter(uc, repo, cache, m, serviceName, cfg.AdminAPIKey)
	app.Handler = router.Handler()
	return app, nil
}

func buildReranker(cfg config.Config, executor *resilience.Executor) (ports.Reranker, error) {
	switch cfg.RerankStrategy {
	case "", "heuristic":
		return heuristic.New(), nil
	case "crossencoder":
		if cfg.RerankURL == "" {
			return nil, fmt.Errorf("rerank strategy %q requires RERANK_URL", cfg.RerankStrategy)
		}
		return crossencoder.New(cfg.RerankURL, cfg.RerankModel, crossencoder.Options{
			Timeout:   time.Duration(cfg.RerankTimeoutS) * time.Second,
			BatchSize: cfg.RerankBatch,
			Executor:  executor,
		}), nil
	default:
		return nil, fmt.Errorf("unknown rerank strategy %q", cfg.RerankStrategy)
	}
}

func buildCache(cfg config.Config, logger *slog.Logger, app *App) ports.ResultCache {
	if cfg.RedisURL == "" {
		return memorycache.New()
	}
	redisCache, err := rediscache.New(cfg.RedisURL, "", "scout:", logger)
	if err != nil {
		logger.Warn("redis_unavailable_falling_back_to_memory_cache", "error", err)
		return memorycache.New()
	}
	app.onClose(redisCache.Close)
	return redisCache
}

func startCorpusRefreshListener(
	ctx context.Context,
	cfg config.Config,
	cache ports.ResultCache,
	logger *slog.Logger,
	app *App,
) error {
	queue, err := natsqueue.New(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	app.onClose(queue.Close)

	go func() {
		err := queue.SubscribeCorpusRefreshed(ctx, func(handlerCtx context.Context, event string) error {
			logger.Info("corpus_refreshed_clearing_cache", "event", event)
			return cache.Clear(handlerCtx)
		})
		if err != nil {
			logger.Error("corpus_refresh_subscription_stopped", "error", err)
		}
	}()
	return nil
}

// metricsObserver forwards pipeline events into the prometheus
// registry without the retrieval core importing it.
type metricsObserver struct {
	metrics *metrics.HTTPServerMetrics
}

func (o *metricsObserver) SourceFailure(source string) {
	o.metrics.RecordSourceFailure(serviceName, source)
}

func (o *metricsObserver) CacheLookup(hit bool) {
	o.metrics.RecordCacheLookup(serviceName, hit)
}
