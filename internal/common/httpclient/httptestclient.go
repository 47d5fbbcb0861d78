package httpclient

import (
	"net/http"
	"net/http/httptest"
)

// handlerTransport serves requests straight from an http.Handler so tests can
// drive a mounted server without opening a socket.
type handlerTransport struct {
	handler http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	rsp := rec.Result()
	rsp.Request = req
	return rsp, nil
}

// NewTestClient returns a client whose requests are served in-process by h.
func NewTestClient(config Configurator, h http.Handler, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	clientOpts.Transport = handlerTransport{handler: h}
	return NewClient(config, clientOpts)
}
