package magiclink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, 10*time.Minute)
}

func TestCreateConsumeRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	serviceID := uuid.New()

	code, err := s.Create(ctx, serviceID, "user@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(code) != codeBytes*2 {
		t.Fatalf("code length = %d, want %d", len(code), codeBytes*2)
	}

	if err := s.Consume(ctx, serviceID, "user@example.com", code); err != nil {
		t.Fatalf("consume: %v", err)
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	serviceID := uuid.New()

	code, err := s.Create(ctx, serviceID, "user@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Consume(ctx, serviceID, "user@example.com", code); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if err := s.Consume(ctx, serviceID, "user@example.com", code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("second consume: err = %v, want ErrCodeInvalid", err)
	}
}

func TestWrongCodeBurnsStoredCode(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	serviceID := uuid.New()

	code, err := s.Create(ctx, serviceID, "user@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Consume(ctx, serviceID, "user@example.com", "not-the-code"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("wrong code: err = %v, want ErrCodeInvalid", err)
	}
	// The real code must be gone too.
	if err := s.Consume(ctx, serviceID, "user@example.com", code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("replay after failed attempt: err = %v, want ErrCodeInvalid", err)
	}
}

func TestCodeIsScopedToService(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	code, err := s.Create(ctx, uuid.New(), "user@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Consume(ctx, uuid.New(), "user@example.com", code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("cross-service consume: err = %v, want ErrCodeInvalid", err)
	}
}
