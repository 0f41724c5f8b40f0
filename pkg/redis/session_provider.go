package redis

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"sync"
	"time"

	"gitea.com/go-chi/session"
	goredis "github.com/go-redis/redis/v8"
)

// SessionProviderName selects the go-redis backed provider in session.Options.
const SessionProviderName = "go-redis"

const (
	sessionKeyPrefix = "session:"
	sessionOpTimeout = 3 * time.Second
)

var errNoSessionClient = errors.New("redis: session provider has no client")

type sessionProvider struct {
	mu       sync.RWMutex
	client   *goredis.Client
	lifetime time.Duration
}

var (
	sessions         = &sessionProvider{}
	registerSessions sync.Once
)

// UseForSessions backs the go-redis session provider with client, so every
// instance sharing the server sees the same sessions.
func UseForSessions(client *goredis.Client) {
	registerSessions.Do(func() {
		session.Register(SessionProviderName, sessions)
	})

	sessions.mu.Lock()
	sessions.client = client
	sessions.mu.Unlock()
}

func (p *sessionProvider) redis() (*goredis.Client, time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client, p.lifetime
}

func sessionKey(sid string) string {
	return sessionKeyPrefix + sid
}

// Init receives the session lifetime in seconds; keys expire after it.
func (p *sessionProvider) Init(lifetime int64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return errNoSessionClient
	}
	p.lifetime = time.Duration(lifetime) * time.Second
	return nil
}

func (p *sessionProvider) Read(sid string) (session.RawStore, error) {
	client, _ := p.redis()
	if client == nil {
		return nil, errNoSessionClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
	defer cancel()

	values := make(map[any]any)
	raw, err := client.Get(ctx, sessionKey(sid)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
	case err != nil:
		return nil, err
	default:
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&values); err != nil {
			return nil, err
		}
	}

	return &sessionStore{provider: p, sid: sid, values: values}, nil
}

func (p *sessionProvider) Exist(sid string) (bool, error) {
	client, _ := p.redis()
	if client == nil {
		return false, errNoSessionClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
	defer cancel()

	n, err := client.Exists(ctx, sessionKey(sid)).Result()
	return err == nil && n == 1, err
}

func (p *sessionProvider) Destroy(sid string) error {
	client, _ := p.redis()
	if client == nil {
		return errNoSessionClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
	defer cancel()
	return client.Del(ctx, sessionKey(sid)).Err()
}

func (p *sessionProvider) Regenerate(oldsid, sid string) (session.RawStore, error) {
	client, _ := p.redis()
	if client == nil {
		return nil, errNoSessionClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
	defer cancel()

	// A missing old session just starts an empty one under the new id.
	n, err := client.Exists(ctx, sessionKey(oldsid)).Result()
	if err != nil {
		return nil, err
	}
	if n == 1 {
		if err := client.Rename(ctx, sessionKey(oldsid), sessionKey(sid)).Err(); err != nil {
			return nil, err
		}
	}
	return p.Read(sid)
}

func (p *sessionProvider) Count() (int, error) {
	client, _ := p.redis()
	if client == nil {
		return 0, errNoSessionClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
	defer cancel()

	var count int
	iter := client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count, iter.Err()
}

// GC is a no-op; Redis expires session keys itself.
func (p *sessionProvider) GC() {}

type sessionStore struct {
	provider *sessionProvider
	sid      string

	mu     sync.RWMutex
	values map[any]any
}

func (s *sessionStore) Set(key, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *sessionStore) Get(key any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *sessionStore) Delete(key any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *sessionStore) ID() string {
	return s.sid
}

// Release writes the session back and refreshes its expiry.
func (s *sessionStore) Release() error {
	client, lifetime := s.provider.redis()
	if client == nil {
		return errNoSessionClient
	}

	s.mu.RLock()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(s.values)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
	defer cancel()
	return client.Set(ctx, sessionKey(s.sid), buf.Bytes(), lifetime).Err()
}

func (s *sessionStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[any]any)
	return nil
}
