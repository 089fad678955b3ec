package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/IliasHad/shopify-remix-meetup-app/pkg/logger"
)

// limiterEntry tracks a rate limiter per key.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore manages per-key rate limiters with automatic cleanup of stale
// entries.
type limiterStore struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	rps      int
	burst    int
	ttl      time.Duration
	nowFunc  func() time.Time // injectable clock for testing
}

// newLimiterStore creates a store with the given rate parameters and TTL.
// It starts a background cleanup goroutine that runs every ttl interval.
func newLimiterStore(rps, burst int, ttl time.Duration) *limiterStore {
	s := &limiterStore{
		entries: make(map[string]*limiterEntry),
		rps:     rps,
		burst:   burst,
		ttl:     ttl,
		nowFunc: time.Now,
	}
	go s.cleanupLoop()
	return s
}

// get returns (or creates) a rate limiter for the given key and updates
// lastSeen on every call.
func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(s.rps), s.burst)
		s.entries[key] = &limiterEntry{limiter: limiter, lastSeen: s.nowFunc()}
		return limiter
	}
	e.lastSeen = s.nowFunc()
	return e.limiter
}

// cleanupLoop runs a ticker that evicts keys not seen within the TTL.
func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for range ticker.C {
		s.cleanup()
	}
}

// cleanup evicts all entries whose lastSeen is older than the TTL.
func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, key)
		}
	}
}

// len returns the number of tracked keys (used in tests).
func (s *limiterStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ShopRateLimit returns middleware that enforces per-shop token bucket rate
// limiting. The shop is taken from the request context (set by the
// session-token middleware); unauthenticated requests share one bucket keyed
// by remote address. Returns HTTP 429 when the limit is exceeded.
func ShopRateLimit(rps, burst int, l *slog.Logger) func(http.Handler) http.Handler {
	const cleanupInterval = 3 * time.Minute
	store := newLimiterStore(rps, burst, cleanupInterval)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := logger.ShopFromContext(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			if !store.get(key).Allow() {
				l.Warn("rate limit exceeded",
					slog.String("shop", key),
					slog.String("path", r.URL.Path),
				)
				writeLimitError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeLimitError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "RATE_LIMITED",
		"message": "too many requests",
	})
}
