package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRefreshTokenRevoked is returned when a refresh token does not match the
// server-side record, including when no record exists.
var ErrRefreshTokenRevoked = errors.New("refresh token revoked")

// RefreshStore keeps the single live refresh token per user.
type RefreshStore interface {
	Save(ctx context.Context, userID, token string, ttl time.Duration) error
	Verify(ctx context.Context, userID, token string) error
	Revoke(ctx context.Context, userID string) error
}

// Digest returns the hex SHA-256 of a token. Only digests are persisted.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func digestsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// DigestStore persists digests, implemented by the users table.
type DigestStore interface {
	SetRefreshDigest(ctx context.Context, userID string, digest *string) error
	RefreshDigest(ctx context.Context, userID string) (string, error)
}

// SQLRefreshStore records the digest in users.refresh_token. Expiry is
// enforced by the token itself.
type SQLRefreshStore struct {
	digests DigestStore
}

func NewSQLRefreshStore(digests DigestStore) *SQLRefreshStore {
	return &SQLRefreshStore{digests: digests}
}

func (s *SQLRefreshStore) Save(ctx context.Context, userID, token string, _ time.Duration) error {
	digest := Digest(token)
	return s.digests.SetRefreshDigest(ctx, userID, &digest)
}

// Verify fails closed: a missing record is treated as revoked.
func (s *SQLRefreshStore) Verify(ctx context.Context, userID, token string) error {
	stored, err := s.digests.RefreshDigest(ctx, userID)
	if err != nil || !digestsEqual(stored, Digest(token)) {
		return ErrRefreshTokenRevoked
	}
	return nil
}

func (s *SQLRefreshStore) Revoke(ctx context.Context, userID string) error {
	return s.digests.SetRefreshDigest(ctx, userID, nil)
}

// RedisRefreshStore keeps digests in Redis with the token lifetime as TTL.
type RedisRefreshStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisRefreshStore(client redis.Cmdable) *RedisRefreshStore {
	return &RedisRefreshStore{client: client, prefix: "issueflow:refresh:"}
}

func (s *RedisRefreshStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisRefreshStore) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(userID), Digest(token), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) Verify(ctx context.Context, userID, token string) error {
	stored, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil || !digestsEqual(stored, Digest(token)) {
		return ErrRefreshTokenRevoked
	}
	return nil
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}
