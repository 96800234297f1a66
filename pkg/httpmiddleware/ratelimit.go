package httpmiddleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Limit is the number of requests allowed per window.
	Limit int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFor derives the limiter key from a request. Nil means key by
	// client IP.
	KeyFor func(*http.Request) string
}

// counter holds the request counts of the current and previous fixed
// windows for one key. The sliding estimate weights the previous window by
// its remaining overlap with the sliding interval.
type counter struct {
	window int64 // index of the current fixed window
	curr   int
	prev   int
}

// sweepHighWater bounds the key map. When it is exceeded, stale counters
// are evicted inline during allow, so no background goroutine is needed.
const sweepHighWater = 8192

type limiter struct {
	limit  int
	window time.Duration
	keyFor func(*http.Request) string

	mu   sync.Mutex
	keys map[string]*counter
}

func newLimiter(cfg RateLimitConfig) *limiter {
	keyFor := cfg.KeyFor
	if keyFor == nil {
		keyFor = clientIP
	}
	return &limiter{
		limit:  cfg.Limit,
		window: cfg.Window,
		keyFor: keyFor,
		keys:   make(map[string]*counter),
	}
}

// allow records a request for key at time now and reports whether it fits
// the limit, along with the remaining budget and when the current window
// resets.
func (l *limiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	window := now.UnixNano() / int64(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.keys[key]
	if c == nil {
		if len(l.keys) >= sweepHighWater {
			l.sweep(window)
		}
		c = &counter{window: window}
		l.keys[key] = c
	}

	switch window - c.window {
	case 0:
	case 1:
		c.prev, c.curr = c.curr, 0
		c.window = window
	default:
		c.prev, c.curr = 0, 0
		c.window = window
	}

	windowStart := time.Unix(0, window*int64(l.window))
	resetAt = windowStart.Add(l.window)

	frac := float64(now.Sub(windowStart)) / float64(l.window)
	estimate := float64(c.prev)*(1-frac) + float64(c.curr)

	if estimate >= float64(l.limit) {
		return 0, resetAt, false
	}

	c.curr++
	remaining = l.limit - int(math.Ceil(estimate)) - 1
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

// sweep drops counters idle for at least two windows. Caller holds l.mu.
func (l *limiter) sweep(window int64) {
	for key, c := range l.keys {
		if window-c.window >= 2 {
			delete(l.keys, key)
		}
	}
}

// RateLimit enforces a per-key sliding window limit. Rejected requests get
// 429 with a JSON body; every response carries X-RateLimit-Limit,
// X-RateLimit-Remaining, and X-RateLimit-Reset headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := l.allow(l.keyFor(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retryAfter := int(math.Ceil(time.Until(resetAt).Seconds()))
				if retryAfter < 0 {
					retryAfter = 0
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"code":429,"message":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the client address, preferring proxy-set headers over
// the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
