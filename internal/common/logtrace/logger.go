// Package logtrace configures the process logger and carries request trace ids
// through contexts.
package logtrace

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger sets up the global zerolog logger with millisecond timestamps.
// An unknown level falls back to info.
func InitLogger(level string, out ...io.Writer) {
	var w io.Writer = os.Stderr
	if len(out) > 0 && out[0] != nil {
		w = out[0]
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

type requestIDKey struct{}

// WithRequestID stores id on ctx and returns a context whose logger is tagged
// with the same id.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, id)
	return log.With().Str("request_id", id).Logger().WithContext(ctx)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
