// Package practiceclient is a typed HTTP client for the practice API.
//
// Every call issues exactly one request and hands back the decoded response
// envelope unchanged. Non-2xx answers surface as *StatusError.
package practiceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/interviewprep-backend/pkg/types"
)

// Client is an HTTP client for the practice endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	userAgent  string
	headers    http.Header
}

// Option configures the client.
type Option func(*Client)

// New creates a client rooted at baseURL, e.g. http://localhost:8080/api.
// No timeout is imposed; bound calls with the context or WithHTTPClient.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "interviewprep-practiceclient",
		headers:    http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	var env types.APIResponse[json.RawMessage]
	if json.Unmarshal(e.Body, &env) == nil && env.Error != nil {
		msg = *env.Error
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
}

// GenerateQuestions starts a practice session.
func (c *Client) GenerateQuestions(ctx context.Context, req GenerateQuestionsRequest) (*types.APIResponse[Session], error) {
	var out types.APIResponse[Session]
	if err := c.do(ctx, "generate questions", http.MethodPost, "/practice/questions", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitResponse records an answer. Extra headers, such as Idempotency-Key,
// may be supplied per call.
func (c *Client) SubmitResponse(ctx context.Context, req SubmitResponseRequest, headers ...Header) (*types.APIResponse[Response], error) {
	var out types.APIResponse[Response]
	if err := c.do(ctx, "submit response", http.MethodPost, "/practice/response", req, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession fetches one session by id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*types.APIResponse[Session], error) {
	var out types.APIResponse[Session]
	if err := c.do(ctx, "get session", http.MethodGet, "/practice/session/"+url.PathEscape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EndSession completes a session.
func (c *Client) EndSession(ctx context.Context, sessionID string) (*types.APIResponse[Session], error) {
	var out types.APIResponse[Session]
	if err := c.do(ctx, "end session", http.MethodPost, "/practice/session/"+url.PathEscape(sessionID)+"/end", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHistory lists the caller's sessions using the server's default page.
func (c *Client) GetHistory(ctx context.Context) (*types.APIResponse[[]Session], error) {
	return c.history(ctx, "/practice/history")
}

// GetHistoryPage lists one page of the caller's sessions.
func (c *Client) GetHistoryPage(ctx context.Context, page, limit int) (*types.APIResponse[[]Session], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return c.history(ctx, "/practice/history?"+q.Encode())
}

func (c *Client) history(ctx context.Context, path string) (*types.APIResponse[[]Session], error) {
	var out types.APIResponse[[]Session]
	if err := c.do(ctx, "get history", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Header is a per-call request header.
type Header struct {
	Key   string
	Value string
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, extra []Header, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, h := range extra {
		req.Header.Set(h.Key, h.Value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: raw}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
