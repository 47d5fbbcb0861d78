package httpclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	owner  string
	token  string
	expiry time.Time
}

func (c testConfig) GetServerURL() string      { return "http://interviews.local/api" }
func (c testConfig) GetOwner() string          { return c.owner }
func (c testConfig) GetToken() string          { return c.token }
func (c testConfig) GetTokenExpiry() time.Time { return c.expiry }

func echoHeaders(seen *http.Header, path *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = r.Header.Clone()
		*path = r.URL.RequestURI()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
}

func TestIdentityHeaders(t *testing.T) {
	var seen http.Header
	var path string
	h := echoHeaders(&seen, &path)

	tests := []struct {
		name      string
		config    testConfig
		wantAuth  string
		wantOwner string
	}{
		{"owner only", testConfig{owner: "dana"}, "", "dana"},
		{"token without expiry", testConfig{owner: "dana", token: "tok"}, "Bearer tok", ""},
		{"valid token", testConfig{token: "tok", expiry: time.Now().Add(time.Hour)}, "Bearer tok", ""},
		{"expired token falls back to owner", testConfig{owner: "dana", token: "tok", expiry: time.Now().Add(-time.Hour)}, "", "dana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTestClient(tt.config, h, ClientOptions{ClientVersion: "0.1.0"})
			rsp, err := c.Get(context.Background(), "interviews", map[string]string{"limit": "5"}, `"old"`)
			require.NoError(t, err)
			assert.Equal(t, `"abc"`, rsp.ETag)
			assert.Equal(t, tt.wantAuth, seen.Get("Authorization"))
			assert.Equal(t, tt.wantOwner, seen.Get(DefaultOwnerHeader))
			assert.Equal(t, "0.1.0", seen.Get(DefaultVersionHeader))
			assert.Equal(t, `"old"`, seen.Get("If-None-Match"))
			assert.Equal(t, "/api/interviews?limit=5", path)
		})
	}
}

func TestErrorFromBody(t *testing.T) {
	err := errorFromBody(http.StatusForbidden, []byte(`{"result":0,"error":"not yours"}`))
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "not yours", httpErr.Message)

	err = errorFromBody(http.StatusBadRequest, []byte(`{"description":"bad input","http_status_code":400}`))
	assert.EqualError(t, err, "bad input")

	err = errorFromBody(http.StatusNotFound, nil)
	assert.EqualError(t, err, "server doesn't implement this endpoint")

	err = errorFromBody(http.StatusBadGateway, nil)
	assert.EqualError(t, err, "Bad Gateway")
}
