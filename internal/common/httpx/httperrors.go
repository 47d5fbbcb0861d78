package httpx

import (
	"fmt"
	"net/http"

	"github.com/tansive/mockinterview/internal/common/apperrors"
)

// Error is an error that already knows its wire form.
type Error struct {
	Description string `json:"description"`
	StatusCode  int    `json:"http_status_code"`
}

type errorRsp struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

// Failure is the result code carried by every error body.
const Failure int = 0

func (e *Error) Error() string {
	return e.Description
}

// Send writes {"result":0,"error":...} with the error's status.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	body, err := json.Marshal(&errorRsp{Result: Failure, Error: e.Description})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_, _ = w.Write(body)
}

// SendError sends an apperrors.Error, defaulting to 500 when it has no status.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	status := err.StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	(&Error{StatusCode: status, Description: err.ErrorAll()}).Send(w)
}

func describe(def string, s []string) string {
	if len(s) > 0 && s[0] != "" {
		return s[0]
	}
	return def
}

func ErrReqMethodNotSupported() *Error {
	return &Error{Description: "request method not supported", StatusCode: http.StatusMethodNotAllowed}
}

func ErrUnableToParseReqData() *Error {
	return &Error{Description: "unable to parse request data", StatusCode: http.StatusBadRequest}
}

func ErrUnableToReadRequest() *Error {
	return &Error{Description: "unable to read request data", StatusCode: http.StatusBadRequest}
}

func ErrInvalidRequest(s ...string) *Error {
	return &Error{Description: describe("invalid request data or empty request values", s), StatusCode: http.StatusBadRequest}
}

func ErrUnAuthorized(s ...string) *Error {
	return &Error{Description: describe("unable to authenticate request", s), StatusCode: http.StatusUnauthorized}
}

func ErrApplicationError(s ...string) *Error {
	return &Error{Description: describe("unable to process request", s), StatusCode: http.StatusInternalServerError}
}

func ErrRequestTimeout() *Error {
	return &Error{Description: "request timed out", StatusCode: http.StatusRequestTimeout}
}

func ErrTooManyRequests() *Error {
	return &Error{Description: "too many requests", StatusCode: http.StatusTooManyRequests}
}

func ErrRequestTooLarge(limit int64) *Error {
	return &Error{
		Description: fmt.Sprintf("request body too large (limit: %d bytes)", limit),
		StatusCode:  http.StatusRequestEntityTooLarge,
	}
}
