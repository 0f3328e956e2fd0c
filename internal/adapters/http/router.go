package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/startupscout/scout/internal/core/domain"
	"github.com/startupscout/scout/internal/core/ports"
	"github.com/startupscout/scout/internal/observability/metrics"
)

type Router struct {
	askUC       ports.QuestionAnswerer
	store       ports.DecisionStore
	cache       ports.ResultCache
	metrics     *metrics.HTTPServerMetrics
	service     string
	adminAPIKey string

	startTime    time.Time
	requestCount atomic.Int64
}

func NewRouter(
	askUC ports.QuestionAnswerer,
	store ports.DecisionStore,
	cache ports.ResultCache,
	m *metrics.HTTPServerMetrics,
	service, adminAPIKey string,
) *Router {
	return &Router{
		askUC:       askUC,
		store:       store,
		cache:       cache,
		metrics:     m,
		service:     service,
		adminAPIKey: adminAPIKey,
		startTime:   time.Now(),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ask", rt.ask)
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/stats", rt.stats)
	mux.HandleFunc("/admin/cache/clear", rt.clearCache)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rt.countingMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) countingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.requestCount.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	question := r.URL.Query().Get("question")
	topK := 0
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 10 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top_k must be an integer between 1 and 10"})
			return
		}
		topK = parsed
	}

	start := time.Now()
	answer, err := rt.askUC.Ask(r.Context(), question, topK)
	if err != nil {
		rt.recordAsk("error", 0, time.Since(start))
		status := http.StatusInternalServerError
		switch {
		case domain.IsKind(err, domain.ErrInvalidInput):
			status = http.StatusBadRequest
		case domain.IsKind(err, domain.ErrStoreUnavailable):
			status = http.StatusServiceUnavailable
		case domain.IsKind(err, domain.ErrTemporary):
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	rt.recordAsk(askOutcomeLabel(answer), len(answer.References), time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

// askOutcomeLabel names the answer for metrics. Entries written by
// older cache versions predate the outcome field; grounding decides
// their label instead of counting them as unknown.
func askOutcomeLabel(answer *domain.Answer) string {
	if answer.Outcome != "" {
		return string(answer.Outcome)
	}
	if answer.HasContext() {
		return string(domain.OutcomeAnswered)
	}
	return string(domain.OutcomeNoContent)
}

func (rt *Router) recordAsk(outcome string, results int, duration time.Duration) {
	if rt.metrics != nil {
		rt.metrics.RecordAsk(rt.service, outcome, results, duration)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	dbStatus := "unreachable"
	if rt.store != nil {
		if err := rt.store.Ping(r.Context()); err == nil {
			dbStatus = "connected"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": time.Since(rt.startTime).Round(100 * time.Millisecond).Seconds(),
		"db":         dbStatus,
	})
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"requests":   rt.requestCount.Load(),
		"uptime_sec": time.Since(rt.startTime).Round(100 * time.Millisecond).Seconds(),
	}
	if rt.cache != nil {
		response["cache"] = rt.cache.Stats(r.Context())
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) clearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.Header.Get("X-API-Key") != rt.adminAPIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if rt.cache != nil {
		if err := rt.cache.Clear(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear cache"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Cache cleared."})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
