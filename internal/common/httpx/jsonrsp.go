package httpx

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/common/logtrace"
)

// SendJsonRsp writes msg as JSON. Strings and byte slices that already hold
// valid JSON are written as is. Location is only set on 201 responses.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, msg any, location ...string) {
	var body []byte
	switch v := msg.(type) {
	case []byte:
		if json.Valid(v) {
			body = v
		}
	case string:
		if json.Valid([]byte(v)) {
			body = []byte(v)
		}
	default:
		var err error
		body, err = json.Marshal(msg)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("unable to marshal response")
			ErrApplicationError("request id: " + logtrace.RequestIDFromContext(ctx)).Send(w)
			return
		}
	}
	if body == nil {
		body = []byte("null")
	}
	w.Header().Set("Content-Type", "application/json")
	if statusCode == http.StatusCreated && len(location) > 0 {
		w.Header().Set("Location", location[0])
	}
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}
