package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// ErrNotHeld is returned when releasing a lease that expired or belongs to someone else.
var ErrNotHeld = errors.New("lease not held")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease is a TTL lease stored under a single Redis key.
type RedisLease struct {
	client redis.UniversalClient
	key    string
}

var _ ports.Lease = (*RedisLease)(nil)

// NewRedisLease uses client and key for the lease.
func NewRedisLease(client redis.UniversalClient, key string) *RedisLease {
	return &RedisLease{client: client, key: key}
}

// Dial parses a redis:// URL and verifies the connection.
func Dial(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Active reports whether the key is currently held. Redis expiry handles staleness.
func (l *RedisLease) Active(ctx context.Context, _ time.Time) (bool, error) {
	n, err := l.client.Exists(ctx, l.key).Result()
	if err != nil {
		return false, fmt.Errorf("check lease: %w", err)
	}
	return n > 0, nil
}

// Acquire sets the key only if absent, with a TTL.
func (l *RedisLease) Acquire(ctx context.Context, now time.Time, ttl time.Duration) (domain.LeaseToken, bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, ttl).Result()
	if err != nil {
		return domain.LeaseToken{}, false, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return domain.LeaseToken{}, false, nil
	}
	return domain.LeaseToken{Owner: owner, Until: now.Add(ttl)}, true, nil
}

// Release deletes the key if it still carries the token's owner.
func (l *RedisLease) Release(ctx context.Context, token domain.LeaseToken) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token.Owner).Int()
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}
