// Package httpapi exposes the recommender over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"bookrec/internal/domain"
	"bookrec/internal/logging"
	"bookrec/internal/port"
)

const (
	DefaultTopK    = 5
	requestTimeout = 10 * time.Second
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	DefaultTopK    int
}

type handler struct {
	recommender port.Recommender
	defaultTopK int
	log         zerolog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewRouter builds the chi router serving /recommend and /metrics.
func NewRouter(rec port.Recommender, opts Options) http.Handler {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = DefaultTopK
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	h := &handler{
		recommender: rec,
		defaultTopK: opts.DefaultTopK,
		log:         logging.With("http"),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         86400,
	}))

	r.Get("/recommend", h.recommend)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestID keeps an incoming X-Request-ID or assigns a fresh uuid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(chimiddleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(chimiddleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// recommend handles GET /recommend?query=...&top_k=N.
func (h *handler) recommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("query") {
		respondError(w, http.StatusBadRequest, "MISSING_QUERY", "query parameter is required")
		return
	}

	topK := h.defaultTopK
	if s := strings.TrimSpace(q.Get("top_k")); s != "" {
		k, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_TOP_K", "top_k must be an integer")
			return
		}
		topK = k
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	results, err := h.recommender.Recommend(ctx, q.Get("query"), topK)
	if err != nil {
		h.log.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("recommend failed")
		switch {
		case errors.Is(err, domain.ErrStoreMissing):
			respondError(w, http.StatusServiceUnavailable, "STORE_MISSING", err.Error())
		case errors.Is(err, domain.ErrEncoderMismatch):
			respondError(w, http.StatusServiceUnavailable, "ENCODER_MISMATCH", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "RECOMMEND_ERROR", "failed to generate recommendations")
		}
		return
	}
	if results == nil {
		results = []domain.ScoredBook{}
	}

	respondJSON(w, http.StatusOK, results)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Error: msg, Code: code})
}
