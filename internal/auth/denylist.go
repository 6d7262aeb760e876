package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist tracks revoked token ids until they would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisDenylist stores revoked token ids in Redis with a TTL.
type RedisDenylist struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisDenylist constructs a RedisDenylist.
func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: "taskforge:revoked:", now: time.Now}
}

// Revoke marks jti as revoked until the given time.
func (d *RedisDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return errors.New("auth: token id required")
	}
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.prefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, d.prefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("auth: check revocation: %w", err)
	}
}

var _ Denylist = (*RedisDenylist)(nil)
