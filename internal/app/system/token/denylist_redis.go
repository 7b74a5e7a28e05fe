package token

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "confhub:denylist:jti:"

// RedisDenylist shares revocations across instances. Entries expire in
// Redis with the token, so no cleanup is needed.
type RedisDenylist struct {
	client redis.Cmdable
}

// NewRedisDenylist wraps an existing client; the caller owns its lifecycle.
func NewRedisDenylist(client redis.Cmdable) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistKeyPrefix+jti, "1", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := d.client.Get(ctx, denylistKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
