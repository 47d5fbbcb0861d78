package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/mockinterview/internal/common/apperrors"
)

func TestGetRequestData(t *testing.T) {
	type body struct {
		Kind string `json:"kind"`
	}
	tests := []struct {
		name    string
		method  string
		payload string
		limit   int64
		status  int
	}{
		{name: "valid", method: http.MethodPost, payload: `{"kind":"technical"}`},
		{name: "get not allowed", method: http.MethodGet, payload: `{}`, status: http.StatusMethodNotAllowed},
		{name: "bad json", method: http.MethodPost, payload: `{"kind":`, status: http.StatusBadRequest},
		{name: "too large", method: http.MethodPost, payload: `{"kind":"technical"}`, limit: 4, status: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/interviews", strings.NewReader(tt.payload))
			var b body
			err := GetRequestData(r, &b, tt.limit)
			if tt.status == 0 {
				require.NoError(t, err)
				assert.Equal(t, "technical", b.Kind)
				return
			}
			var httpErr *Error
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
		})
	}
}

func TestWrapHttpRsp(t *testing.T) {
	ErrMissing := apperrors.New("session not found").SetStatusCode(http.StatusNotFound)

	t.Run("success", func(t *testing.T) {
		h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
			return &Response{
				StatusCode: http.StatusCreated,
				Location:   "/interviews/1",
				Headers:    map[string]string{"ETag": `"abc"`},
				Response:   map[string]string{"id": "1"},
			}, nil
		})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/interviews", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "/interviews/1", w.Header().Get("Location"))
		assert.Equal(t, `"abc"`, w.Header().Get("ETag"))
		assert.JSONEq(t, `{"id":"1"}`, w.Body.String())
	})

	t.Run("app error", func(t *testing.T) {
		h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
			return nil, ErrMissing.Msg("no such interview")
		})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/interviews/x", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"result":0,"error":"no such interview"}`, w.Body.String())
	})

	t.Run("plain error", func(t *testing.T) {
		h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
			return nil, errors.New("boom")
		})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("not modified", func(t *testing.T) {
		h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
			return &Response{StatusCode: http.StatusNotModified}, nil
		})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
	})
}
