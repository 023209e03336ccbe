package chi

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/agentmart/internal/domain"
	"github.com/kailas-cloud/agentmart/internal/metrics"
	"github.com/kailas-cloud/agentmart/pkg/api"
)

// RateLimit configures per-client token buckets. RPS <= 0 disables limiting.
type RateLimit struct {
	RPS   float64
	Burst int
	// Clients bounds the number of tracked clients; the least recently
	// seen client loses its bucket first.
	Clients int
}

// RateLimitMiddleware limits requests per client. A client is its API key
// when one is presented, its remote IP otherwise.
func RateLimitMiddleware(cfg RateLimit) (func(http.Handler) http.Handler, error) {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Clients < 1 {
		cfg.Clients = 1
	}

	limiters, err := lru.New[string, *rate.Limiter](cfg.Clients)
	if err != nil {
		return nil, fmt.Errorf("create limiter cache: %w", err)
	}
	retryAfter := strconv.Itoa(int(math.Ceil(1 / cfg.RPS)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			lim, ok := limiters.Get(key)
			if !ok {
				lim = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
				// A concurrent first request may have stored one already.
				if prev, found, _ := limiters.PeekOrAdd(key, lim); found {
					lim = prev
				}
			}

			if !lim.Allow() {
				metrics.RateLimitedTotal.Inc()
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, api.ErrorCodeRateLimited, domain.ErrRateLimited.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func clientKey(r *http.Request) string {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok && token != "" {
		return "key:" + token
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
