package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/interviewprep-backend/internal/practice"
	"github.com/angelmondragon/interviewprep-backend/pkg/config"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
	"github.com/angelmondragon/interviewprep-backend/pkg/metrics"
	"github.com/angelmondragon/interviewprep-backend/pkg/practiceclient"
	pkgredis "github.com/angelmondragon/interviewprep-backend/pkg/redis"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// memoryRedis implements RedisStore in process.
type memoryRedis struct {
	mu      sync.Mutex
	values  map[string]string
	pingErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}}
}

func (m *memoryRedis) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *memoryRedis) failPing(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	default:
		m.values[key] = fmt.Sprint(v)
	}
	return nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	fmt.Sscan(m.values[key], &n)
	n++
	m.values[key] = fmt.Sprint(n)
	return n, nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string { return "ip:idem:" + scope + ":" + id }
func (m *memoryRedis) RateLimitKey(scope string) string       { return "ip:rl:" + scope }
func (m *memoryRedis) ProbeKey(id string) string              { return "ip:probe:" + id }
func (m *memoryRedis) PracticeSessionKey(id string) string    { return "ip:practice:session:" + id }

func testConfig(env string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: env, Port: "0", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "interviewprep-test", ExpirationMinutes: 30},
		RateLimit: config.RateLimitConfig{
			RequestsPerMinute: 6000,
			Burst:             1000,
			TokenWindow:       time.Minute,
			TokenIPLimit:      100,
			TokenUserLimit:    3,
		},
	}
}

type testServer struct {
	srv   *httptest.Server
	redis *memoryRedis
}

func newTestServer(t *testing.T, env string) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(env))
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.Migrator().DropTable("practice_responses", "practice_sessions"))
	require.NoError(t, practice.AutoMigrate(gdb))

	store := newMemoryRedis()
	svc, err := practice.NewService(practice.ServiceParams{
		Repo:      practice.NewRepository(gdb),
		Cache:     practice.NewRedisSessionCache(store, time.Minute),
		Generator: practice.NewBankGenerator(0),
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	handler := NewRouter(
		cfg,
		logger.Nop(),
		stubPinger{},
		store,
		svc,
		metrics.NewHTTPMetrics(reg),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, redis: store}
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"userId": userID})
	resp, err := http.Post(ts.srv.URL+"/api/auth/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env struct {
		Data struct {
			AccessToken string `json:"accessToken"`
			TokenType   string `json:"tokenType"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, "Bearer", env.Data.TokenType)
	return env.Data.AccessToken
}

func (ts *testServer) client(t *testing.T, userID string) *practiceclient.Client {
	return practiceclient.New(ts.srv.URL+"/api", practiceclient.WithToken(ts.token(t, userID)))
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var statusErr *practiceclient.StatusError
	require.True(t, errors.As(err, &statusErr), "expected status error, got %v", err)
	return statusErr.StatusCode
}

func TestPracticeSessionFlow(t *testing.T) {
	ts := newTestServer(t, "dev")
	c := ts.client(t, "user-1")
	ctx := context.Background()

	created, err := c.GenerateQuestions(ctx, practiceclient.GenerateQuestionsRequest{Type: "technical", Difficulty: "medium", Count: 2, Role: "backend engineer"})
	require.NoError(t, err)
	require.True(t, created.Success)
	session := created.Data
	require.NotNil(t, session)
	assert.Equal(t, "active", session.Status)
	assert.Equal(t, "user-1", session.UserID)
	require.Len(t, session.Questions, 2)
	require.NotNil(t, session.Role)
	assert.Equal(t, "backend engineer", *session.Role)

	submitted, err := c.SubmitResponse(ctx, practiceclient.SubmitResponseRequest{
		SessionID:  session.SessionID,
		QuestionID: session.Questions[0].ID,
		Answer:     "  I would use a queue.  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "I would use a queue.", submitted.Data.Answer)

	fetched, err := c.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, fetched.Data.Responses, 1)

	ended, err := c.EndSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "completed", ended.Data.Status)
	require.NotNil(t, ended.Data.EndTime)

	_, err = c.EndSession(ctx, session.SessionID)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	_, err = c.SubmitResponse(ctx, practiceclient.SubmitResponseRequest{
		SessionID:  session.SessionID,
		QuestionID: session.Questions[1].ID,
		Answer:     "late",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	history, err := c.GetHistory(ctx)
	require.NoError(t, err)
	require.NotNil(t, history.Data)
	require.Len(t, *history.Data, 1)
	require.NotNil(t, history.Pagination)
	assert.Equal(t, 1, history.Pagination.Total)
}

func TestPracticeRejectsInvalidInput(t *testing.T) {
	ts := newTestServer(t, "dev")
	c := ts.client(t, "user-1")
	ctx := context.Background()

	_, err := c.GenerateQuestions(ctx, practiceclient.GenerateQuestionsRequest{Type: "trivia", Difficulty: "easy", Count: 1})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Contains(t, err.Error(), "Invalid question type")

	_, err = c.GetSession(ctx, "not-a-uuid")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestSessionsAreScopedToOwner(t *testing.T) {
	ts := newTestServer(t, "dev")
	ctx := context.Background()

	owner := ts.client(t, "owner")
	created, err := owner.GenerateQuestions(ctx, practiceclient.GenerateQuestionsRequest{Type: "coding", Difficulty: "easy", Count: 1})
	require.NoError(t, err)

	// warm the cache so the foreign read is served against a cached entry
	_, err = owner.GetSession(ctx, created.Data.SessionID)
	require.NoError(t, err)

	intruder := ts.client(t, "intruder")
	_, err = intruder.GetSession(ctx, created.Data.SessionID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestPracticeRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t, "dev")
	_, err := practiceclient.New(ts.srv.URL + "/api").GetHistory(context.Background())
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = practiceclient.New(ts.srv.URL+"/api", practiceclient.WithToken("garbage")).GetHistory(context.Background())
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestIdempotentGenerateReplaysFirstResponse(t *testing.T) {
	ts := newTestServer(t, "dev")
	token := ts.token(t, "user-1")

	post := func() (*http.Response, []byte) {
		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/practice/questions",
			strings.NewReader(`{"type":"behavioral","difficulty":"easy","count":1}`))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "generate-1")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return resp, buf.Bytes()
	}

	first, firstBody := post()
	require.Equal(t, http.StatusCreated, first.StatusCode)
	second, secondBody := post()
	require.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("Idempotent-Replayed"))
	assert.JSONEq(t, string(firstBody), string(secondBody))

	history, err := practiceclient.New(ts.srv.URL+"/api", practiceclient.WithToken(token)).GetHistory(context.Background())
	require.NoError(t, err)
	assert.Len(t, *history.Data, 1)
}

func TestTokenEndpointRateLimitedPerUser(t *testing.T) {
	ts := newTestServer(t, "dev")
	for i := 0; i < 3; i++ {
		ts.token(t, "busy-user")
	}
	resp, err := http.Post(ts.srv.URL+"/api/auth/token", "application/json", strings.NewReader(`{"userId":"busy-user"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestTokenEndpointAbsentInProd(t *testing.T) {
	ts := newTestServer(t, "prod")
	resp, err := http.Post(ts.srv.URL+"/api/auth/token", "application/json", strings.NewReader(`{"userId":"u"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	ts := newTestServer(t, "dev")
	resp, err := http.Get(ts.srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var env map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, false, env["success"])
	assert.Equal(t, "route not found", env["error"])
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, "dev")

	for _, path := range []string{"/health/live", "/health/ready", "/health/cache"} {
		resp, err := http.Get(ts.srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "dev", resp.Header.Get("X-InterviewPrep-Env"), path)
	}

	ts.redis.failPing(errors.New("down"))
	resp, err := http.Get(ts.srv.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpointExposesRouteLabels(t *testing.T) {
	ts := newTestServer(t, "dev")
	resp, err := http.Get(ts.srv.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `route="/health/live"`)
}

func TestRateLimitedRequestsShareUnmatchedRouteLabel(t *testing.T) {
	cfg := testConfig("dev")
	cfg.RateLimit.RequestsPerMinute = 1
	cfg.RateLimit.Burst = 1
	ts := newTestServerWithConfig(t, cfg)

	limited := 0
	paths := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("/api/practice/session/%d-%d", time.Now().UnixNano(), i)
		paths = append(paths, path)
		resp, err := http.Get(ts.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
		}
	}
	require.Equal(t, 19, limited)

	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	body := buf.String()

	assert.Contains(t, body, `route="unmatched",status="429"} 19`)
	for _, path := range paths {
		assert.NotContains(t, body, `route="`+path+`"`)
	}
}
