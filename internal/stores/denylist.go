package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrDenylistRedisUnavailable = errors.New("denylist redis unavailable")

// DenylistStore records revoked token IDs until their natural expiry.
type DenylistStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewDenylistStore(redisClient redis.UniversalClient, prefix string) *DenylistStore {
	if prefix == "" {
		prefix = "ard"
	}
	return &DenylistStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *DenylistStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

// Revoke marks tokenID as revoked for ttl. It reports false when the ID
// was already revoked, which lets exactly one caller win a rotation race.
// A non-positive ttl means the token is already expired; nothing is stored.
func (s *DenylistStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	ok, err := s.redis.SetNX(ctx, s.key(tokenID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDenylistRedisUnavailable, err)
	}
	return ok, nil
}

// Contains reports whether tokenID has been revoked.
func (s *DenylistStore) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDenylistRedisUnavailable, err)
	}
	return n > 0, nil
}
