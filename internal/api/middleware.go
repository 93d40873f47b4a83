package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type ctxKey int

const ctxKeyRequestID ctxKey = iota

const RequestIDHeader = "X-Request-Id"

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func withAccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			logger.Info().
				Str("request_id", RequestIDFromContext(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxEntries = 10000
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per caller. Buckets idle longer than
// idleTTL are dropped, and the map never holds more than maxEntries.
type rateLimiter struct {
	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
	maxEntries int
	now        func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limit:      rate.Limit(perSecond),
		burst:      burst,
		idleTTL:    limiterIdleTTL,
		maxEntries: limiterMaxEntries,
		now:        time.Now,
		limiters:   make(map[string]*limiterEntry),
	}
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL || len(rl.limiters) >= rl.maxEntries {
		rl.sweep(now)
	}

	e, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= rl.maxEntries {
			rl.evictOldest()
		}
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep drops idle buckets. Callers hold mu.
func (rl *rateLimiter) sweep(now time.Time) {
	for k, e := range rl.limiters {
		if now.Sub(e.lastSeen) >= rl.idleTTL {
			delete(rl.limiters, k)
		}
	}
	rl.lastSweep = now
}

// evictOldest drops the least recently seen bucket. Callers hold mu.
func (rl *rateLimiter) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range rl.limiters {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = k, e.lastSeen
		}
	}
	delete(rl.limiters, oldestKey)
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *rateLimiter) middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r)
			if !rl.get(key).Allow() {
				logger.Warn().Str("caller", key).Msg("rate limit exceeded")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerKey prefers the authenticated identity over the client address.
func callerKey(r *http.Request) string {
	if id := r.Header.Get(HeaderActorID); id != "" {
		return "actor:" + id
	}
	if id := r.Header.Get(HeaderClientID); id != "" {
		return "actor:" + id
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
