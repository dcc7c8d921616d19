package magiclink

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// codeBytes is the raw entropy of a login code (128 bits, hex-encoded).
const codeBytes = 16

var ErrCodeInvalid = errors.New("magic link code is invalid or expired")

// Store keeps one-time magic-link login codes in Redis. A code is
// scoped to (service, email), expires with the key TTL, and is consumed
// atomically with GETDEL so it can never be redeemed twice.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: client, ttl: ttl}
}

// Create issues a fresh code for the given address, replacing any
// outstanding one for the same (service, email) pair.
func (s *Store) Create(ctx context.Context, serviceID uuid.UUID, email string) (string, error) {
	raw := make([]byte, codeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := hex.EncodeToString(raw)

	if err := s.redis.Set(ctx, key(serviceID, email), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store magic link code: %w", err)
	}
	return code, nil
}

// Consume redeems a code. The stored code is deleted before comparison,
// so even a failed attempt burns it.
func (s *Store) Consume(ctx context.Context, serviceID uuid.UUID, email, code string) error {
	stored, err := s.redis.GetDel(ctx, key(serviceID, email)).Result()
	if err == redis.Nil {
		return ErrCodeInvalid
	}
	if err != nil {
		return fmt.Errorf("read magic link code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrCodeInvalid
	}
	return nil
}

func key(serviceID uuid.UUID, email string) string {
	return fmt.Sprintf("magiclink:%s:%s", serviceID, strings.ToLower(email))
}
