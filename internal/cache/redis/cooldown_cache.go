package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acremel/arbscan/internal/domain"
)

// CoolDownCache implements domain.CoolDownCache using Redis string keys with
// TTLs, so reported identities survive process restarts. Each identity is
// stored at "cooldown:{identityKey}" holding the Unix nanosecond report time.
type CoolDownCache struct {
	rdb *redis.Client
}

// NewCoolDownCache creates a CoolDownCache backed by the given Client.
func NewCoolDownCache(c *Client) *CoolDownCache {
	return &CoolDownCache{rdb: c.Underlying()}
}

func coolDownKey(identityKey string) string {
	return "cooldown:" + identityKey
}

// LastReportedAt returns when the identity was last reported. It returns
// domain.ErrNotFound when the key does not exist or has expired.
func (cc *CoolDownCache) LastReportedAt(ctx context.Context, identityKey string) (time.Time, error) {
	val, err := cc.rdb.Get(ctx, coolDownKey(identityKey)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, domain.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis: get cooldown %s: %w", identityKey, err)
	}

	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis: parse cooldown %s: %w", identityKey, err)
	}
	return time.Unix(0, nanos), nil
}

// MarkReported stores the identity's report time with the cool-down window
// as TTL; Redis evicts the key once the window has passed.
func (cc *CoolDownCache) MarkReported(ctx context.Context, identityKey string, at time.Time, ttl time.Duration) error {
	val := strconv.FormatInt(at.UnixNano(), 10)
	if err := cc.rdb.Set(ctx, coolDownKey(identityKey), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set cooldown %s: %w", identityKey, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CoolDownCache = (*CoolDownCache)(nil)
