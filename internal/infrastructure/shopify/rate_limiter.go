package shopify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Shopify's REST admin API allows 2 requests/second per shop with a bucket of 40
const (
	DefaultRequestsPerSecond = 2
	DefaultBurst             = 40
)

// RateLimiter keeps one token bucket per shop domain
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
	logger   zerolog.Logger
}

// NewRateLimiter creates a rate limiter with Shopify's default REST limits
func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return NewRateLimiterWithRate(DefaultRequestsPerSecond, DefaultBurst, logger)
}

// NewRateLimiterWithRate creates a rate limiter allowing rps requests per second per shop
func NewRateLimiterWithRate(rps float64, burst int, logger zerolog.Logger) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = max(1, int(rps))
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
		logger:   logger,
	}
}

// Wait blocks until a request to the shop is allowed or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context, shop string) error {
	if rl == nil {
		return nil
	}
	limiter := rl.limiterFor(shop)
	if limiter.Tokens() < 1 {
		rl.logger.Debug().Str("shop", shop).Msg("Rate limit reached, waiting for token")
	}
	return limiter.Wait(ctx)
}

func (rl *RateLimiter) limiterFor(shop string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.limiters[shop]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.rps), rl.burst)
		rl.limiters[shop] = limiter
	}
	return limiter
}
