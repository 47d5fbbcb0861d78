// Package httpx holds the request decoding and response writing helpers shared
// by the HTTP handlers. Handlers return (*Response, error) and WrapHttpRsp turns
// both into wire responses.
package httpx

import (
	"errors"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/common/apperrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxBodyBytes bounds request bodies when the caller passes no limit.
const DefaultMaxBodyBytes int64 = 1 << 20

// GetRequestData decodes a JSON body into data. Only POST and PUT carry bodies.
func GetRequestData(r *http.Request, data any, maxBytes ...int64) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil || r.Body == http.NoBody {
		log.Ctx(r.Context()).Debug().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	limit := DefaultMaxBodyBytes
	if len(maxBytes) > 0 && maxBytes[0] > 0 {
		limit = maxBytes[0]
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return ErrUnableToReadRequest()
	}
	if int64(len(body)) > limit {
		return ErrRequestTooLarge(limit)
	}
	if err := json.Unmarshal(body, data); err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Msg("invalid request body")
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response is what a RequestHandler hands back on success.
type Response struct {
	StatusCode int
	Location   string
	Headers    map[string]string
	Response   any
}

type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler to http.HandlerFunc. apperrors.Error
// values are sent with their status code, anything else becomes a 500.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendAnyError(w, r, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		for k, v := range rsp.Headers {
			w.Header().Set(k, v)
		}
		if rsp.StatusCode == http.StatusNotModified {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
	}
}

func sendAnyError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		httpErr.Send(w)
		return
	}
	if appErr, ok := err.(apperrors.Error); ok {
		SendError(w, appErr)
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Msg("unclassified handler error")
	ErrApplicationError(err.Error()).Send(w)
}
