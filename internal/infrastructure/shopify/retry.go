package shopify

import (
	"context"
	"errors"
	"time"

	"shop-insights/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryConfig bounds the exponential backoff applied to transient storefront failures
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig returns the retry policy used in production
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
	}
}

// NoRetry disables retries
func NoRetry() RetryConfig {
	return RetryConfig{}
}

// retryAfterBackOff never waits less than the delay the storefront asked for
type retryAfterBackOff struct {
	backoff.BackOff
	minDelay time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next != backoff.Stop && next < b.minDelay {
		next = b.minDelay
	}
	b.minDelay = 0
	return next
}

// withRetry runs op until it succeeds, fails permanently, or the attempts are used up.
// Only retryable *domain.ExternalAPIError failures are retried; the last error is returned as is.
func withRetry(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, op func() error) error {
	if cfg.MaxRetries <= 0 {
		return op()
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialInterval
	exp.MaxInterval = cfg.MaxInterval
	if cfg.Multiplier > 0 {
		exp.Multiplier = cfg.Multiplier
	}
	exp.MaxElapsedTime = 0

	policy := &retryAfterBackOff{BackOff: backoff.WithMaxRetries(exp, uint64(cfg.MaxRetries))}

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var apiErr *domain.ExternalAPIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return backoff.Permanent(err)
		}
		policy.minDelay = apiErr.RetryAfter
		return err
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Shopify request failed, retrying")
	})
}
