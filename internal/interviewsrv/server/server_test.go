package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/mockinterview/internal/interviewsrv/convctx"
	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
	"github.com/tansive/mockinterview/internal/interviewsrv/interview"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
	"github.com/tansive/mockinterview/internal/interviewsrv/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, mutate ...func(*Options)) *InterviewServer {
	t.Helper()
	orch := interview.New(store.NewMemory(), convctx.NewMemory(32), generate.Unavailable{}, nil, interview.Options{GenerateTimeout: time.Second})
	opts := Options{RequestTimeout: 5 * time.Second}
	for _, fn := range mutate {
		fn(&opts)
	}
	s, err := CreateNewServer(orch, opts)
	require.NoError(t, err)
	s.MountHandlers()
	return s
}

func executeTestRequest(t *testing.T, s *InterviewServer, method, path, owner, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("X-Interview-Owner", owner)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestInterviewLifecycle(t *testing.T) {
	s := newTestServer(t)

	rr := executeTestRequest(t, s, http.MethodPost, "/interviews", "alice", `{"kind": "behavioral", "settings": {"difficulty": "medium", "duration": "short"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	location := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/interviews/"))
	var sess models.Session
	decodeBody(t, rr, &sess)
	assert.Equal(t, models.StatusInProgress, sess.Status)
	assert.Equal(t, "alice", sess.OwnerID)
	assert.NotEmpty(t, rr.Header().Get("X-Interview-Request-ID"))

	rr = executeTestRequest(t, s, http.MethodPost, location+"/turns", "alice", `{"answer": "Hello, my name is Sam.", "isFirstQuestion": true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var first interview.TurnResponse
	decodeBody(t, rr, &first)
	assert.Equal(t, 0, first.QuestionIndex)
	assert.NotEmpty(t, first.Question)
	assert.True(t, first.Degraded)

	rr = executeTestRequest(t, s, http.MethodPost, location+"/turns", "alice", `{"answer": "We split the work and shipped on time.", "questionIndex": 0}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var second interview.TurnResponse
	decodeBody(t, rr, &second)
	assert.Equal(t, 1, second.QuestionIndex)
	require.NotNil(t, second.Feedback)

	rr = executeTestRequest(t, s, http.MethodPost, location+"/turns", "alice", `{"answer": "I asked for help early.", "questionIndex": 1, "isLastQuestion": true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var last interview.TurnResponse
	decodeBody(t, rr, &last)
	assert.True(t, last.Terminal)
	assert.Equal(t, models.StatusCompleted, last.Status)
	require.NotNil(t, last.Report)

	rr = executeTestRequest(t, s, http.MethodGet, location, "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	tag := rr.Header().Get("ETag")
	require.NotEmpty(t, tag)
	decodeBody(t, rr, &sess)
	assert.Equal(t, models.StatusCompleted, sess.Status)
	assert.Len(t, sess.Questions, 2)

	rr = executeTestRequest(t, s, http.MethodGet, location, "alice", "", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = executeTestRequest(t, s, http.MethodGet, "/interviews?limit=10", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list ListInterviewsRsp
	decodeBody(t, rr, &list)
	require.Len(t, list.Interviews, 1)
	assert.Equal(t, models.PhaseCompleted, list.Interviews[0].Phase)
	assert.NotNil(t, list.Interviews[0].OverallScore)

	rr = executeTestRequest(t, s, http.MethodGet, "/interviews", "bob", "")
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &list)
	assert.Empty(t, list.Interviews)
}

func TestAbandonEndpoint(t *testing.T) {
	s := newTestServer(t)
	rr := executeTestRequest(t, s, http.MethodPost, "/interviews", "alice", `{"kind": "screening"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	location := rr.Header().Get("Location")

	rr = executeTestRequest(t, s, http.MethodPost, location+"/abandon", "bob", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = executeTestRequest(t, s, http.MethodPost, location+"/abandon", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var sess models.Session
	decodeBody(t, rr, &sess)
	assert.Equal(t, models.StatusAbandoned, sess.Status)

	rr = executeTestRequest(t, s, http.MethodPost, location+"/turns", "alice", `{"answer": "late", "questionIndex": 0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var rsp interview.TurnResponse
	decodeBody(t, rr, &rsp)
	assert.True(t, rsp.Terminal)
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)
	rr := executeTestRequest(t, s, http.MethodPost, "/interviews", "alice", `{"kind": "behavioral"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	location := rr.Header().Get("Location")

	tests := []struct {
		name   string
		method string
		path   string
		owner  string
		body   string
		status int
	}{
		{"missing owner", http.MethodGet, "/interviews", "", "", http.StatusUnauthorized},
		{"bad kind", http.MethodPost, "/interviews", "alice", `{"kind": "trivia"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/interviews", "alice", `{"kind":`, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/interviews/not-a-uuid", "alice", "", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/interviews/0190a8e4-8a8b-7c3e-9a3b-1f2e3d4c5b6a", "alice", "", http.StatusNotFound},
		{"other owner", http.MethodGet, location, "mallory", "", http.StatusForbidden},
		{"missing index", http.MethodPost, location + "/turns", "alice", `{"answer": "x"}`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/interviews?limit=-2", "alice", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := executeTestRequest(t, s, tt.method, tt.path, tt.owner, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			var body map[string]any
			decodeBody(t, rr, &body)
			assert.EqualValues(t, 0, body["result"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestJWTOwner(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.Auth = AuthOptions{JWTSecret: testSecret, JWTIssuer: "interviews-test", ClockSkew: time.Second}
	})

	token, err := IssueToken(testSecret, "interviews-test", "carol", time.Minute)
	require.NoError(t, err)
	rr := executeTestRequest(t, s, http.MethodPost, "/interviews", "", `{"kind": "technical"}`, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var sess models.Session
	decodeBody(t, rr, &sess)
	assert.Equal(t, "carol", sess.OwnerID)

	// the owner header is ignored once tokens are required
	rr = executeTestRequest(t, s, http.MethodGet, "/interviews", "carol", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	wrongKey, err := IssueToken(strings.Repeat("x", 32), "interviews-test", "carol", time.Minute)
	require.NoError(t, err)
	rr = executeTestRequest(t, s, http.MethodGet, "/interviews", "", "", "Authorization", "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	expired, err := IssueToken(testSecret, "interviews-test", "carol", -time.Hour)
	require.NoError(t, err)
	rr = executeTestRequest(t, s, http.MethodGet, "/interviews", "", "", "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	otherIssuer, err := IssueToken(testSecret, "someone-else", "carol", time.Minute)
	require.NoError(t, err)
	rr = executeTestRequest(t, s, http.MethodGet, "/interviews", "", "", "Authorization", "Bearer "+otherIssuer)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRateLimitPerOwner(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.RateLimit = RateLimitOptions{RequestsPerSecond: 0.01, Burst: 2}
	})
	for i := 0; i < 2; i++ {
		rr := executeTestRequest(t, s, http.MethodGet, "/interviews", "alice", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := executeTestRequest(t, s, http.MethodGet, "/interviews", "alice", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = executeTestRequest(t, s, http.MethodGet, "/interviews", "bob", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestVersionAndReadiness(t *testing.T) {
	s := newTestServer(t)
	rr := executeTestRequest(t, s, http.MethodGet, "/version", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var v GetVersionRsp
	decodeBody(t, rr, &v)
	assert.Equal(t, ApiVersion, v.ApiVersion)

	rr = executeTestRequest(t, s, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = executeTestRequest(t, s, http.MethodGet, "/version", "", "", ClientVersionHeader, "9.0.0")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	down := newTestServer(t, func(o *Options) {
		o.Ready = func(context.Context) error { return errors.New("db down") }
	})
	rr = executeTestRequest(t, down, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestVersionCompatibility(t *testing.T) {
	assert.True(t, IsVersionCompatible(ApiVersion))
	assert.True(t, IsVersionCompatible("0.1.7"))
	assert.False(t, IsVersionCompatible("0.2.0"))
	assert.False(t, IsVersionCompatible("not-a-version"))
}

func TestETagIgnoresKeyOrder(t *testing.T) {
	a, err := etag([]byte(`{"b": 1, "a": [1, 2]}`))
	require.NoError(t, err)
	b, err := etag([]byte(`{"a":[1,2],"b":1}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, etagMatches(`W/"x", `+a, a))
	assert.False(t, etagMatches(`"other"`, a))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.HandleCORS = true
		o.AllowedOrigins = []string{"http://localhost:3000"}
	})
	rr := executeTestRequest(t, s, http.MethodOptions, "/interviews", "", "",
		"Origin", "http://localhost:3000", "Access-Control-Request-Method", "POST")
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
