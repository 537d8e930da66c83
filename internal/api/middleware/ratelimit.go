package middleware

import (
	"net"
	"net/http"
	"trippey_quests/internal/common"
	"trippey_quests/internal/platform/logging"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

// RateLimiter applies a token bucket per user, or per client IP for
// anonymous requests. Idle buckets are evicted least-recently-used.
type RateLimiter struct {
	limiters *lru.Cache
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	cache, err := lru.New(maxTrackedClients)
	if err != nil {
		logging.Log.Fatalf("rate limiter cache: %v", err)
	}
	return &RateLimiter{limiters: cache, rate: rate.Limit(perSecond), burst: burst}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	if existing, ok, _ := rl.limiters.PeekOrAdd(key, l); ok {
		return existing.(*rate.Limiter)
	}
	return l
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := GetUserIDFromContext(r.Context())
		if !ok || key == "" {
			key = clientIP(r)
		}
		if !rl.limiter(key).Allow() {
			logging.WithFields(logrus.Fields{"key": key, "path": r.URL.Path}).Warn("rate limit exceeded")
			common.RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
