package practice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/interviewprep-backend/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	default:
		m.values[key] = fmt.Sprint(v)
	}
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) PracticeSessionKey(id string) string { return "ip:practice:session:" + id }

func TestRedisSessionCacheRoundTrip(t *testing.T) {
	store := newMemoryStore()
	cache := NewRedisSessionCache(store, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok)

	session := &Session{
		SessionID:  "s-1",
		UserID:     "user-1",
		Type:       QuestionTypeCoding,
		Difficulty: DifficultyEasy,
		Questions:  []Question{{ID: "q1", Text: "Reverse a string", Type: QuestionTypeCoding, Difficulty: DifficultyEasy, ExpectedDuration: 360}},
		Responses:  []Response{},
		StartTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     SessionStatusActive,
	}
	require.NoError(t, cache.Set(ctx, session))
	assert.Equal(t, time.Minute, store.ttls["ip:practice:session:s-1"])

	got, ok, err := cache.Get(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, session, got)

	require.NoError(t, cache.Invalidate(ctx, "s-1"))
	_, ok, err = cache.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionCacheSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	cache := NewRedisSessionCache(store, 0)

	_, ok, err := cache.Get(context.Background(), "s-1")
	assert.Error(t, err)
	assert.False(t, ok)
}
