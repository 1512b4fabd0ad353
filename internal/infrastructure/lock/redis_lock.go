package lock

import (
	"context"
	"fmt"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultKeyPrefix = "shop-insights:ingest:"
	DefaultTTL       = 30 * time.Minute
)

// releaseScript deletes the key only while it still holds our token,
// so an expired lock re-acquired by another process is left alone
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements IngestionLock with a SET NX key per tenant.
// It is shared by every process pointed at the same Redis.
type RedisLock struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    zerolog.Logger
}

var _ ports.IngestionLock = (*RedisLock)(nil)

// NewRedisLock creates a lock over an existing client. A zero ttl uses DefaultTTL.
func NewRedisLock(client redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) *RedisLock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLock{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (l *RedisLock) key(tenantID domain.TenantID) string {
	return fmt.Sprintf("%s%d", l.keyPrefix, tenantID)
}

// Acquire sets the tenant key if absent. The TTL bounds how long a crashed holder blocks the tenant.
func (l *RedisLock) Acquire(ctx context.Context, tenantID domain.TenantID) (func(), error) {
	key := l.key(tenantID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ingestion lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrIngestionInProgress
	}

	release := func() {
		// the caller's context may already be cancelled at this point
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Uint("tenant", uint(tenantID)).Msg("Failed to release ingestion lock")
		}
	}
	return release, nil
}
