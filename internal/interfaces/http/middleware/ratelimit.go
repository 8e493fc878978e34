package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate per client.
	RequestsPerSecond float64
	// BurstSize is the number of requests a client may make at once.
	BurstSize int
	// KeyFunc extracts the client key.  Defaults to ClientKey.
	KeyFunc func(r *http.Request) string
	// SkipPaths bypass rate limiting.
	SkipPaths []string
	// IdleTimeout drops the limiter of a client that has been quiet this
	// long.
	IdleTimeout time.Duration
}

// DefaultRateLimitConfig returns a sensible default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		IdleTimeout:       5 * time.Minute,
	}
}

// ClientKey keys requests by basic auth user, falling back to the remote
// address.  The router runs chi's RealIP first, so RemoteAddr already
// reflects X-Forwarded-For.
func ClientKey(r *http.Request) string {
	if user, _, ok := r.BasicAuth(); ok && user != "" {
		return "user:" + user
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware enforces a token bucket per client key.
type RateLimitMiddleware struct {
	config  RateLimitConfig
	skip    map[string]bool
	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
}

// NewRateLimitMiddleware creates a RateLimitMiddleware.
func NewRateLimitMiddleware(config RateLimitConfig) *RateLimitMiddleware {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey
	}
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}
	return &RateLimitMiddleware{
		config:  config,
		skip:    skip,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

func (m *RateLimitMiddleware) limiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c, ok := m.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.BurstSize)}
		m.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Prune drops clients idle longer than IdleTimeout and returns how many
// remain.
func (m *RateLimitMiddleware) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.IdleTimeout > 0 {
		cutoff := m.now().Add(-m.config.IdleTimeout)
		for key, c := range m.clients {
			if c.lastSeen.Before(cutoff) {
				delete(m.clients, key)
			}
		}
	}
	return len(m.clients)
}

// Handler answers 429 once a client's bucket is empty.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		lim := m.limiter(m.config.KeyFunc(r))
		now := m.now()
		allowed := lim.AllowN(now, 1)
		remaining := int(math.Max(0, math.Floor(lim.TokensAt(now))))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.config.BurstSize))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retry := 1
			if m.config.RequestsPerSecond > 0 {
				retry = int(math.Ceil(1 / m.config.RequestsPerSecond))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"COMMON_007","message":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

//Personal.AI order the ending
