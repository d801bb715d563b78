package practice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/interviewprep-backend/pkg/redis"
)

// SessionCache stores rendered sessions for the read path.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*Session, bool, error)
	Set(ctx context.Context, session *Session) error
	Invalidate(ctx context.Context, sessionID string) error
}

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	PracticeSessionKey(sessionID string) string
}

type redisSessionCache struct {
	store sessionStore
	ttl   time.Duration
}

// NewRedisSessionCache caches sessions as JSON under the practice namespace.
func NewRedisSessionCache(store sessionStore, ttl time.Duration) SessionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisSessionCache{store: store, ttl: ttl}
}

func (c *redisSessionCache) Get(ctx context.Context, sessionID string) (*Session, bool, error) {
	raw, err := c.store.Get(ctx, c.store.PracticeSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (c *redisSessionCache) Set(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.PracticeSessionKey(session.SessionID), payload, c.ttl)
}

func (c *redisSessionCache) Invalidate(ctx context.Context, sessionID string) error {
	return c.store.Del(ctx, c.store.PracticeSessionKey(sessionID))
}
