package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/rxverify/internal/config"
	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

const (
	maxRequestBodyBytes      = 1 << 20
	backpressureQueueTimeout = 250 * time.Millisecond
)

// HTTPMetrics instruments the handler chain and serves the scrape endpoint.
type HTTPMetrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type Router struct {
	crossCheck ports.CrossCheckService
	search     ports.DrugSearchService
	ratings    ports.RatingService
	imports    ports.ImportService
	metrics    HTTPMetrics

	requestTimeout time.Duration
	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

func NewRouter(
	cfg config.Config,
	crossCheck ports.CrossCheckService,
	search ports.DrugSearchService,
	ratings ports.RatingService,
	imports ports.ImportService,
) *Router {
	return &Router{
		crossCheck:     crossCheck,
		search:         search,
		ratings:        ratings,
		imports:        imports,
		requestTimeout: cfg.RequestTimeout,
		rateLimitRPS:   cfg.RateLimitRPS,
		rateLimitBurst: cfg.RateLimitBurst,
		maxInFlight:    cfg.MaxInFlight,
	}
}

func (rt *Router) SetMetrics(metrics HTTPMetrics) {
	rt.metrics = metrics
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/query", rt.query)
	mux.HandleFunc("GET /v1/search", rt.searchDrugs)
	mux.HandleFunc("GET /v1/suggest", rt.suggest)
	mux.HandleFunc("POST /v1/drugs/{id}/vote", rt.vote)
	mux.HandleFunc("DELETE /v1/drugs/{id}/vote", rt.unvote)
	mux.HandleFunc("GET /v1/drugs/{id}/rating", rt.rating)
	mux.HandleFunc("POST /v1/imports", rt.requestImport)
	mux.HandleFunc("GET /v1/imports/{id}", rt.importStatus)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, backpressureQueueTimeout)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Limit    int    `json:"limit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	ctx, cancel := rt.withTimeout(r.Context())
	defer cancel()

	answer, err := rt.crossCheck.Answer(ctx, req.Question, req.Limit)
	if err != nil {
		writeError(w, r, "query", err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) searchDrugs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	ctx, cancel := rt.withTimeout(r.Context())
	defer cancel()

	results, err := rt.search.Search(ctx, query, limit)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	if results == nil {
		results = []domain.DrugSearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (rt *Router) suggest(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	names, err := rt.search.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, "suggest", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": names})
}

func (rt *Router) vote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vote string `json:"vote"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	vote, ok := domain.ParseVoteType(strings.ToLower(strings.TrimSpace(req.Vote)))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "vote must be up or down"})
		return
	}

	rating, err := rt.ratings.Vote(r.Context(), r.PathValue("id"), voterID(r), vote)
	if err != nil {
		writeError(w, r, "vote", err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (rt *Router) unvote(w http.ResponseWriter, r *http.Request) {
	vote, ok := domain.ParseVoteType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("vote"))))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "vote must be up or down"})
		return
	}

	rating, err := rt.ratings.Unvote(r.Context(), r.PathValue("id"), voterID(r), vote)
	if err != nil {
		writeError(w, r, "unvote", err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (rt *Router) rating(w http.ResponseWriter, r *http.Request) {
	rating, err := rt.ratings.Rating(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "rating", err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (rt *Router) requestImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	request, err := rt.imports.Request(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, "import_request", err)
		return
	}
	writeJSON(w, http.StatusAccepted, request)
}

func (rt *Router) importStatus(w http.ResponseWriter, r *http.Request) {
	request, err := rt.imports.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "import_status", err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (rt *Router) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if rt.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, rt.requestTimeout)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
