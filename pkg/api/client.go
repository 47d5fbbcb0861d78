// Package api provides a client for the interview server's HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	jsoniter "github.com/json-iterator/go"

	"github.com/tansive/mockinterview/internal/common/httpclient"
	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/server"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to one interview server on behalf of one owner.
type Client struct {
	http   *httpclient.HTTPClient
	config clientConfig
}

// Identity is the server location and the caller's credentials. When Token
// is set and not expired it is sent as a bearer token; otherwise Owner is
// sent in the owner header.
type Identity struct {
	ServerURL   string
	Owner       string
	Token       string
	TokenExpiry time.Time
}

func (i Identity) GetServerURL() string      { return i.ServerURL }
func (i Identity) GetOwner() string          { return i.Owner }
func (i Identity) GetToken() string          { return i.Token }
func (i Identity) GetTokenExpiry() time.Time { return i.TokenExpiry }

// ClientOption is a function type for configuring client behavior.
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout     time.Duration
	maxRetries  uint
	retryDelay  time.Duration
	ownerHeader string
	transport   http.RoundTripper
	handler     http.Handler
}

// WithTimeout bounds every request, including the time spent generating a turn.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithMaxRetries sets how many times a request that never reached the server is attempted.
// Requests the server answered, successfully or not, are never retried.
func WithMaxRetries(maxRetries uint) ClientOption {
	return func(c *clientConfig) {
		c.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the delay between retry attempts.
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.retryDelay = delay
	}
}

// WithOwnerHeader overrides the header used to send the owner id.
func WithOwnerHeader(header string) ClientOption {
	return func(c *clientConfig) {
		c.ownerHeader = header
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *clientConfig) {
		c.transport = rt
	}
}

// WithHandler serves every request in-process from h. Used by tests.
func WithHandler(h http.Handler) ClientOption {
	return func(c *clientConfig) {
		c.handler = h
	}
}

// NewClient creates a client for the server described by id.
func NewClient(id Identity, opts ...ClientOption) (*Client, error) {
	config := clientConfig{
		timeout:    2 * time.Minute,
		maxRetries: 3,
		retryDelay: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if id.ServerURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if id.Owner == "" && id.Token == "" {
		return nil, fmt.Errorf("an owner or a token is required")
	}

	httpOpts := httpclient.ClientOptions{
		OwnerHeader:   config.ownerHeader,
		ClientVersion: server.ApiVersion,
		VersionHeader: server.ClientVersionHeader,
		Timeout:       config.timeout,
		Transport:     config.transport,
	}
	var hc *httpclient.HTTPClient
	if config.handler != nil {
		hc = httpclient.NewTestClient(id, config.handler, httpOpts)
	} else {
		hc = httpclient.NewClient(id, httpOpts)
	}
	return &Client{http: hc, config: config}, nil
}

// StatusCode returns the HTTP status of an error returned by the server, or 0.
func StatusCode(err error) int {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func (c *Client) do(ctx context.Context, opts httpclient.RequestOptions) (*httpclient.Response, error) {
	return retry.DoWithData(
		func() (*httpclient.Response, error) {
			return c.http.DoRequest(ctx, opts)
		},
		retry.Context(ctx),
		retry.Attempts(max(c.config.maxRetries, 1)),
		retry.Delay(c.config.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return StatusCode(err) == 0 && ctx.Err() == nil
		}),
	)
}

func (c *Client) post(ctx context.Context, path string, in, out any) (*httpclient.Response, error) {
	body := []byte("{}")
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}
	rsp, err := c.do(ctx, httpclient.RequestOptions{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(rsp.Body, out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return rsp, nil
}

func interviewPath(id uuid.UUID, rest ...string) string {
	p := "interviews/" + id.String()
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// Start opens a new interview and returns the stored session.
func (c *Client) Start(ctx context.Context, req StartRequest) (*Session, error) {
	var sess Session
	if _, err := c.post(ctx, "interviews", req, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Turn submits one candidate message.
func (c *Client) Turn(ctx context.Context, id uuid.UUID, turn Turn) (*TurnResponse, error) {
	var rsp TurnResponse
	if _, err := c.post(ctx, interviewPath(id, "turns"), turn, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// Abandon ends an interview without a report.
func (c *Client) Abandon(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	if _, err := c.post(ctx, interviewPath(id, "abandon"), nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Get fetches a session. When etag matches the server's current tag the
// session is nil and modified is false.
func (c *Client) Get(ctx context.Context, id uuid.UUID, etag string) (sess *Session, tag string, modified bool, err error) {
	opts := httpclient.RequestOptions{Method: http.MethodGet, Path: interviewPath(id)}
	if etag != "" {
		opts.Headers = map[string]string{"If-None-Match": etag}
	}
	rsp, err := c.do(ctx, opts)
	if err != nil {
		return nil, "", false, err
	}
	if rsp.NotModified() {
		return nil, rsp.ETag, false, nil
	}
	sess = &Session{}
	if err := json.Unmarshal(rsp.Body, sess); err != nil {
		return nil, "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	return sess, rsp.ETag, true, nil
}

// List returns the caller's interviews, newest first. A limit of 0 uses the server default.
func (c *Client) List(ctx context.Context, limit int) ([]Summary, error) {
	opts := httpclient.RequestOptions{Method: http.MethodGet, Path: "interviews"}
	if limit > 0 {
		opts.QueryParams = map[string]string{"limit": strconv.Itoa(limit)}
	}
	rsp, err := c.do(ctx, opts)
	if err != nil {
		return nil, err
	}
	var out listResponse
	if err := json.Unmarshal(rsp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Interviews, nil
}

// Version returns the server and API versions.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	rsp, err := c.do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: "version"})
	if err != nil {
		return nil, err
	}
	var v VersionInfo
	if err := json.Unmarshal(rsp.Body, &v); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &v, nil
}
