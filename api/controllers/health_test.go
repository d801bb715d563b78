package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/interviewprep-backend/pkg/config"
	pkgredis "github.com/angelmondragon/interviewprep-backend/pkg/redis"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryProbe struct {
	values  map[string]string
	corrupt bool
}

func (m *memoryProbe) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryProbe) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", pkgredis.Nil
	}
	if m.corrupt {
		return "other", nil
	}
	return v, nil
}

func (m *memoryProbe) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryProbe) ProbeKey(id string) string { return "probe:" + id }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(testConfig())(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get(envHeader))
	assert.JSONEq(t, `{"success":true,"data":{"status":"live"}}`, rec.Body.String())
}

func TestHealthReady(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReady(testConfig(), map[string]Pinger{"database": stubPinger{}, "redis": stubPinger{}}, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ready","checks":{"database":"up","redis":"up"}}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	HealthReady(testConfig(), map[string]Pinger{
		"database": stubPinger{err: errors.New("dial tcp: refused")},
		"redis":    nil,
	}, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"not ready: database, redis"}`, rec.Body.String())
}

func TestHealthCacheRoundTrip(t *testing.T) {
	probe := &memoryProbe{values: map[string]string{}}
	rec := httptest.NewRecorder()
	HealthCache(testConfig(), probe, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/cache", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, probe.values, "probe key must be removed")
}

func TestHealthCacheFailures(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCache(testConfig(), &memoryProbe{values: map[string]string{}, corrupt: true}, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/cache", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	HealthCache(testConfig(), nil, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/cache", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"dependency unavailable"}`, rec.Body.String())
}
