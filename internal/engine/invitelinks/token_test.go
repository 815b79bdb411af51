package invitelinks

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type mockChecker struct {
	taken int
	calls int
	err   error
}

// TokenExists reports the first taken calls as collisions.
func (m *mockChecker) TokenExists(_ context.Context, _ string) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.calls <= m.taken, nil
}

func TestGenerateToken(t *testing.T) {
	ctx := context.Background()

	token, err := GenerateToken(ctx, &mockChecker{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(token) != tokenLength {
		t.Errorf("Expected length %d, got %d", tokenLength, len(token))
	}
	if !ValidToken(token) {
		t.Errorf("Generated token %q is not valid", token)
	}

	// Collisions exhaust the retries and fall back to a longer token
	checker := &mockChecker{taken: 5}
	token, err = GenerateToken(ctx, checker)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(token) != tokenLength+1 {
		t.Errorf("Expected length %d, got %d", tokenLength+1, len(token))
	}

	_, err = GenerateToken(ctx, &mockChecker{taken: 6})
	if err == nil {
		t.Error("Expected error when every token collides, got nil")
	}

	dbErr := errors.New("db error")
	_, err = GenerateToken(ctx, &mockChecker{err: dbErr})
	if !errors.Is(err, dbErr) {
		t.Errorf("Expected db error, got %v", err)
	}
}

func TestValidToken(t *testing.T) {
	cases := map[string]bool{
		"unknown":                  false,
		"abcdefghijABCDEFGHIJ01":   true,
		"abcdefghijABCDEFGHIJ012":  true,
		"abcdefghijABCDEFGHIJ0123": false,
		"abcdefghij-BCDEFGHIJ01":   false,
		"":                         false,
	}
	for token, want := range cases {
		if got := ValidToken(token); got != want {
			t.Errorf("ValidToken(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	at, err := Expiry(now, 3600, 24*time.Hour)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if at != now.Unix()+3600 {
		t.Errorf("Expected %d, got %d", now.Unix()+3600, at)
	}

	if _, err := Expiry(now, 0, 0); !errors.Is(err, ErrTTLNotPositive) {
		t.Errorf("Expected ErrTTLNotPositive, got %v", err)
	}
	if _, err := Expiry(now, 48*3600, 24*time.Hour); !errors.Is(err, ErrTTLTooLong) {
		t.Errorf("Expected ErrTTLTooLong, got %v", err)
	}
	if _, err := Expiry(now, 48*3600, 0); err != nil {
		t.Errorf("Zero max should not bound the ttl: %v", err)
	}

	// Seconds that would wrap around as a time.Duration
	if _, err := Expiry(now, 18446744074, 168*time.Hour); !errors.Is(err, ErrTTLTooLong) {
		t.Errorf("Expected ErrTTLTooLong for an overflowing ttl, got %v", err)
	}
	if _, err := Expiry(now, math.MaxInt64, 0); !errors.Is(err, ErrTTLTooLong) {
		t.Errorf("Expected ErrTTLTooLong past the end of time, got %v", err)
	}
}
