package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "launchlist_rate_limit_remaining",
		Help: "Requests remaining in the current server rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchlist_rate_limit_blocks_total",
		Help: "Total number of requests delayed by a Retry-After cooldown",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchlist_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low remaining budget",
	})
)

// epochThreshold separates "seconds until reset" from unix timestamps in
// X-RateLimit-Reset.
const epochThreshold = 1_000_000_000

// Tracker gates outgoing requests.
type Tracker struct {
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
	now   func() time.Time
}

// NewTracker creates a tracker allowing rps requests per second with the
// given burst. rps <= 0 disables client-side pacing.
func NewTracker(rps float64, burst int, logger zerolog.Logger) *Tracker {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Tracker{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		state:   UnknownState(),
		now:     time.Now,
	}
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Wait blocks until a request may be sent or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	state := t.State()
	now := t.now()

	if state.InCooldown(now) {
		wait := state.TimeUntilRetry(now)
		t.logger.Warn().
			Dur("wait_duration", wait).
			Msg("Rate limit cooldown active - delaying request")
		rateLimitBlocksTotal.Inc()
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	} else if state.NeedsThrottling(now) {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Rate limit budget low - throttling request")
		rateLimitThrottlesTotal.Inc()
		if err := sleep(ctx, ThrottleDelay); err != nil {
			return err
		}
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// UpdateFromResponse records the rate limit headers of a response. A 429
// starts a cooldown from Retry-After (or the window reset if absent).
func (t *Tracker) UpdateFromResponse(status int, headers http.Header) error {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.state
	var parseErr error

	if v := headers.Get("X-RateLimit-Limit"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			parseErr = fmt.Errorf("parse X-RateLimit-Limit header: %w", err)
		} else {
			next.Limit = n
		}
	}

	if v := headers.Get("X-RateLimit-Remaining"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			parseErr = fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
		} else {
			next.Remaining = n
			rateLimitRemaining.Set(float64(n))
		}
	}

	if v := headers.Get("X-RateLimit-Reset"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		switch {
		case err != nil:
			parseErr = fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
		case n >= epochThreshold:
			next.ResetAt = time.Unix(n, 0)
		default:
			next.ResetAt = now.Add(time.Duration(n) * time.Second)
		}
	}

	if status == http.StatusTooManyRequests {
		retryAt, ok := parseRetryAfter(headers.Get("Retry-After"), now)
		if !ok {
			retryAt = next.ResetAt
		}
		if !retryAt.After(now) {
			retryAt = now.Add(time.Second)
		}
		next.RetryAfter = retryAt

		t.logger.Error().
			Time("retry_after", retryAt).
			Msg("Launch API rate limit hit - cooling down")
	}

	next.LastUpdate = now
	t.state = next

	if next.NeedsThrottling(now) {
		t.logger.Warn().
			Int("remaining", next.Remaining).
			Time("reset_at", next.ResetAt).
			Msg("Launch API rate limit budget low")
	} else {
		t.logger.Debug().
			Int("remaining", next.Remaining).
			Int("limit", next.Limit).
			Msg("Rate limit state updated")
	}

	return parseErr
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return now.Add(time.Duration(secs) * time.Second), true
	}
	if at, err := http.ParseTime(v); err == nil {
		return at, true
	}
	return time.Time{}, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
