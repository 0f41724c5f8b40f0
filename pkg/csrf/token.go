// Package csrf issues per-session anti-forgery tokens and checks them on
// submission.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const (
	tokenBytes = 32
	keyPrefix  = "csrf:"

	DefaultTTL = 2 * time.Hour
)

var ErrEmptySession = errors.New("csrf: session id is empty")

// Store holds one token per session. Get returns ("", nil) for a missing or
// expired key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type TokenService struct {
	store Store
	ttl   time.Duration
}

func NewTokenService(store Store, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{store: store, ttl: ttl}
}

// Issue creates a fresh token for the session, replacing any earlier one.
func (s *TokenService) Issue(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySession
	}

	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf: generate token: %w", err)
	}
	token := hex.EncodeToString(b)

	if err := s.store.Set(ctx, keyPrefix+sessionID, token, s.ttl); err != nil {
		return "", fmt.Errorf("csrf: store token: %w", err)
	}
	return token, nil
}

// Validate reports whether candidate equals the token last issued to the
// session. The token stays valid after a successful check.
func (s *TokenService) Validate(ctx context.Context, sessionID, candidate string) (bool, error) {
	if sessionID == "" || candidate == "" {
		return false, nil
	}

	stored, err := s.store.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		return false, fmt.Errorf("csrf: load token: %w", err)
	}
	if stored == "" {
		return false, nil
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1, nil
}
