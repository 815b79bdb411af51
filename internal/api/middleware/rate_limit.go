package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/config"
)

type bucket struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per caller and limit class.
type RateLimiter struct {
	store  sync.Map // map[string]*bucket
	limits map[string]int
}

const (
	LimitAuth     = "auth"
	LimitAPIRead  = "api_read"
	LimitAPIWrite = "api_write"
)

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limits: map[string]int{
			LimitAuth:     cfg.AuthPerMinute,
			LimitAPIRead:  cfg.APIReadPerMinute,
			LimitAPIWrite: cfg.APIWritePerMinute,
		},
	}
}

// Run evicts idle buckets until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now, 10*time.Minute)
		}
	}
}

func (rl *RateLimiter) evict(now time.Time, idle time.Duration) {
	rl.store.Range(func(key, value interface{}) bool {
		b := value.(*bucket)
		b.mu.Lock()
		if now.Sub(b.lastAccess) > idle {
			rl.store.Delete(key)
		}
		b.mu.Unlock()
		return true
	})
}

// Allow spends one token of key's bucket; perMinute is also the burst size.
func (rl *RateLimiter) Allow(key string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}
	val, _ := rl.store.LoadOrStore(key, &bucket{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	})
	b := val.(*bucket)

	b.mu.Lock()
	b.lastAccess = time.Now()
	b.mu.Unlock()

	return b.limiter.Allow()
}

// Limit rejects callers over the class budget. Authenticated callers are keyed
// by account, others by client IP.
func (rl *RateLimiter) Limit(class string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var key string
			if claims := ClaimsFrom(r.Context()); claims != nil {
				key = fmt.Sprintf("%s:%s", claims.UserID, class)
			} else {
				ip := r.RemoteAddr
				if host, _, err := net.SplitHostPort(ip); err == nil {
					ip = host
				}
				key = fmt.Sprintf("%s:%s", ip, class)
			}

			limit, ok := rl.limits[class]
			if !ok {
				limit = 100
			}

			if !rl.Allow(key, limit) {
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}

			next(w, r)
		}
	}
}
