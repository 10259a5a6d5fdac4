package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// minRevocationTTL keeps a key alive briefly even for a token that is about
// to expire, so clock skew between instances cannot reopen it.
const minRevocationTTL = time.Second

// RevocationStore keeps revoked jti values in Redis, shared by every
// instance of the API. Keys expire together with the token they name.
// Key format: revoked:<jti>
type RevocationStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRevocationStore creates a RevocationStore wrapping the given Redis client.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client, prefix: "revoked:", now: time.Now}
}

// Revoke records jti until expiresAt. A zero expiresAt never expires.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(s.now())
		if ttl < minRevocationTTL {
			ttl = minRevocationTTL
		}
	}
	if err := s.client.Set(ctx, s.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked and not yet expired.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (s *RevocationStore) key(jti string) string {
	return s.prefix + jti
}
