// Package httpclient provides a small HTTP client for the interview server's
// JSON API. It attaches the caller's identity (a bearer token or an owner
// header), announces the client API version, and converts error responses
// into *HTTPError values. The package requires a Configurator implementation
// for server configuration and identity details.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Configurator defines the interface for providing server configuration and identity details.
type Configurator interface {
	GetServerURL() string
	GetOwner() string
	GetToken() string
	GetTokenExpiry() time.Time
}

// ServerError represents an error response from the server with a result code and error message.
type ServerError struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

// HTTPError represents an error response from the server with HTTP status code and message.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// HTTPClient makes requests to the interview server.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
	opts       ClientOptions
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	OwnerHeader   string            // header carrying the owner id when no token is set
	ClientVersion string            // sent as VersionHeader when not empty
	VersionHeader string            // header announcing the client API version
	Timeout       time.Duration     // zero means no client-side timeout
	Transport     http.RoundTripper // nil uses http.DefaultTransport
}

const (
	DefaultOwnerHeader   = "X-Interview-Owner"
	DefaultVersionHeader = "X-Interview-Client-Version"
)

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	if clientOpts.OwnerHeader == "" {
		clientOpts.OwnerHeader = DefaultOwnerHeader
	}
	if clientOpts.VersionHeader == "" {
		clientOpts.VersionHeader = DefaultVersionHeader
	}
	return &HTTPClient{
		config: config,
		httpClient: &http.Client{
			Timeout:   clientOpts.Timeout,
			Transport: clientOpts.Transport,
		},
		opts: clientOpts,
	}
}

// RequestOptions contains options for making HTTP requests.
// Method and Path are required.
type RequestOptions struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Headers     map[string]string
	Body        []byte
}

// Response is a successful (status < 400) server response.
type Response struct {
	StatusCode int
	Body       []byte
	Location   string
	ETag       string
}

// NotModified reports whether the server answered a conditional request with 304.
func (r *Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// DoRequest makes an HTTP request with the given options.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) (*Response, error) {
	req, err := c.newRequest(ctx, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		return nil, errorFromBody(resp.StatusCode, body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Location:   resp.Header.Get("Location"),
		ETag:       resp.Header.Get("ETag"),
	}, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, opts RequestOptions) (*http.Request, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %v", err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewBuffer(opts.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.opts.ClientVersion != "" {
		req.Header.Set(c.opts.VersionHeader, c.opts.ClientVersion)
	}

	// A token that has expired is not sent; the owner header is used instead
	// when one is configured.
	token := c.config.GetToken()
	expiry := c.config.GetTokenExpiry()
	if token != "" && (expiry.IsZero() || time.Now().Before(expiry)) {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if owner := c.config.GetOwner(); owner != "" {
		req.Header.Set(c.opts.OwnerHeader, owner)
	}

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func errorFromBody(statusCode int, body []byte) error {
	var serverErr ServerError
	if err := json.Unmarshal(body, &serverErr); err == nil && serverErr.Error != "" {
		return &HTTPError{StatusCode: statusCode, Message: serverErr.Error}
	}
	// Some handlers only describe the failure.
	if desc := gjson.GetBytes(body, "description").String(); desc != "" {
		return &HTTPError{StatusCode: statusCode, Message: desc}
	}
	if statusCode == http.StatusNotFound {
		return &HTTPError{StatusCode: statusCode, Message: "server doesn't implement this endpoint"}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &HTTPError{StatusCode: statusCode, Message: msg}
}

// Get issues a GET request. A non-empty etag is sent as If-None-Match.
func (c *HTTPClient) Get(ctx context.Context, resourcePath string, queryParams map[string]string, etag string) (*Response, error) {
	opts := RequestOptions{
		Method:      http.MethodGet,
		Path:        resourcePath,
		QueryParams: queryParams,
	}
	if etag != "" {
		opts.Headers = map[string]string{"If-None-Match": etag}
	}
	return c.DoRequest(ctx, opts)
}

// Post issues a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, resourcePath string, data []byte) (*Response, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   resourcePath,
		Body:   data,
	})
}
