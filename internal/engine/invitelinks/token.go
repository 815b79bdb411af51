// Package invitelinks issues the tokens behind shareable invite links.
package invitelinks

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"strings"
	"time"
)

const (
	tokenChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLength = 22
)

var (
	ErrTTLNotPositive = errors.New("ttl must be positive")
	ErrTTLTooLong     = errors.New("ttl exceeds the maximum invite lifetime")
)

type TokenChecker interface {
	TokenExists(ctx context.Context, token string) (bool, error)
}

// GenerateToken returns a token not yet known to checker. After repeated
// collisions it tries once more with a longer token.
func GenerateToken(ctx context.Context, checker TokenChecker) (string, error) {
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		token, err := randomToken(tokenLength)
		if err != nil {
			return "", err
		}
		exists, err := checker.TokenExists(ctx, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}

	token, err := randomToken(tokenLength + 1)
	if err != nil {
		return "", err
	}
	exists, err := checker.TokenExists(ctx, token)
	if err != nil {
		return "", err
	}
	if exists {
		return "", errors.New("failed to generate unique invite token")
	}
	return token, nil
}

func randomToken(length int) (string, error) {
	b := make([]byte, length)
	limit := big.NewInt(int64(len(tokenChars)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = tokenChars[n.Int64()]
	}
	return string(b), nil
}

// ValidToken rejects strings that could not have been issued, so redeem
// can answer without a lookup.
func ValidToken(token string) bool {
	if len(token) < tokenLength || len(token) > tokenLength+1 {
		return false
	}
	for _, c := range token {
		if !strings.ContainsRune(tokenChars, c) {
			return false
		}
	}
	return true
}

// Expiry computes when a link created at now with a lifetime of ttlSeconds
// expires. A zero max means no upper bound. The comparison stays in seconds
// so huge requests cannot wrap around as a time.Duration.
func Expiry(now time.Time, ttlSeconds int64, max time.Duration) (int64, error) {
	if ttlSeconds <= 0 {
		return 0, ErrTTLNotPositive
	}
	if max > 0 && ttlSeconds > int64(max/time.Second) {
		return 0, ErrTTLTooLong
	}
	start := now.Unix()
	if ttlSeconds > math.MaxInt64-start {
		return 0, ErrTTLTooLong
	}
	return start + ttlSeconds, nil
}
