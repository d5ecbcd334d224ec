// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "session:denylist:"

// Repository records session tokens that were ended before their expiry.
// Entries expire with the token they revoke.
type Repository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type repository struct {
	rdb redis.Cmdable
}

func NewRepository(rdb redis.Cmdable) Repository {
	return &repository{rdb: rdb}
}

func (r *repository) Revoke(
	ctx context.Context,
	tokenID string,
	ttl time.Duration,
) error {
	if tokenID == "" {
		return fmt.Errorf("revoke session: empty token id")
	}
	if ttl <= 0 {
		return nil
	}

	if err := r.rdb.Set(ctx, denylistPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (r *repository) IsRevoked(
	ctx context.Context,
	tokenID string,
) (bool, error) {
	exists, err := r.rdb.Exists(ctx, denylistPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check session denylist: %w", err)
	}

	return exists > 0, nil
}
