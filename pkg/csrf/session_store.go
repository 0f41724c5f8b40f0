package csrf

import (
	"context"
	"errors"
	"time"
)

var ErrNoSession = errors.New("csrf: no session on the request")

// Session is the part of a request session the token store writes to. The
// stores handed out by gitea.com/go-chi/session satisfy it.
type Session interface {
	Set(key, value any) error
	Get(key any) any
}

type sessionContextKey struct{}

// WithSession attaches the caller's session so a SessionStore can reach it.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

func sessionFrom(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(Session)
	return sess, ok && sess != nil
}

// SessionStore keeps each token inside the caller's own session, so tokens
// live wherever the session provider keeps sessions.
type SessionStore struct {
	now func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{now: time.Now}
}

func expiryKey(key string) string {
	return key + ":expires"
}

func (s *SessionStore) Get(ctx context.Context, key string) (string, error) {
	sess, ok := sessionFrom(ctx)
	if !ok {
		return "", ErrNoSession
	}

	token, _ := sess.Get(key).(string)
	if token == "" {
		return "", nil
	}
	if expires, _ := sess.Get(expiryKey(key)).(int64); expires > 0 && s.now().UnixNano() >= expires {
		return "", nil
	}
	return token, nil
}

func (s *SessionStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	sess, ok := sessionFrom(ctx)
	if !ok {
		return ErrNoSession
	}

	var expires int64
	if ttl > 0 {
		expires = s.now().Add(ttl).UnixNano()
	}
	if err := sess.Set(key, value); err != nil {
		return err
	}
	return sess.Set(expiryKey(key), expires)
}
