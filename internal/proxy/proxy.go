// Package proxy serves the launch collection through the caching, rate
// limited client, together with health, readiness and metrics endpoints.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/launchlist/pkg/client"
	"github.com/Sternrassler/launchlist/pkg/feed"
	"github.com/Sternrassler/launchlist/pkg/metrics"
	"github.com/Sternrassler/launchlist/pkg/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// MaxLimit caps the page size a caller may request.
const MaxLimit = 100

// Upstream is the subset of *client.Client the proxy needs.
type Upstream interface {
	Get(ctx context.Context, path string, query url.Values) (*http.Response, error)
	Ping(ctx context.Context) error
	RateLimitState() ratelimit.State
}

// Options configures the router.
type Options struct {
	// RequestTimeout bounds one proxied request (default: 30s)
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(upstream Upstream, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))

	h := &handlers{upstream: upstream, logger: opts.Logger}

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Get("/status", h.status)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.With(middleware.Timeout(opts.RequestTimeout)).Get("/v3/launches", h.launches)

	return r
}

type handlers struct {
	upstream Upstream
	logger   zerolog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.upstream.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Cache not ready")
		http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

type statusResponse struct {
	RateLimit rateLimitStatus `json:"rate_limit"`
}

type rateLimitStatus struct {
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
	Healthy   bool       `json:"healthy"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	state := h.upstream.RateLimitState()
	now := time.Now()

	resp := statusResponse{RateLimit: rateLimitStatus{
		Limit:     state.Limit,
		Remaining: state.Remaining,
		Healthy:   state.IsHealthy(now),
	}}
	if !state.ResetAt.IsZero() {
		reset := state.ResetAt
		resp.RateLimit.ResetAt = &reset
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) launches(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePaging(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := url.Values{
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(offset)},
	}

	resp, err := h.upstream.Get(r.Context(), client.LaunchesPath, query)
	if err != nil {
		status := http.StatusBadGateway
		var fe *client.FetchError
		if errors.As(err, &fe) && fe.ErrorClass == client.ErrorClassRateLimit {
			status = http.StatusTooManyRequests
		}
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.logger.Error().
			Err(err).
			Int("offset", offset).
			Int("limit", limit).
			Msg("Upstream request failed")
		writeError(w, status, feed.ErrorMessage)
		return
	}
	defer resp.Body.Close()

	for _, key := range []string{"Content-Type", "Cache-Control", "ETag", "Last-Modified", "Expires", "X-Cache"} {
		if v := resp.Header.Get(key); v != "" {
			w.Header().Set(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

// parsePaging reads limit and offset; limit defaults to the feed page size.
func parsePaging(q url.Values) (limit, offset int, err error) {
	limit = feed.PageSize
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > MaxLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
		}
	}
	if s := q.Get("offset"); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status_code", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request served")
		})
	}
}
