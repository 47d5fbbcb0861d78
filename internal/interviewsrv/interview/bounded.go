package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
)

const DefaultGenerateTimeout = 30 * time.Second

// bounded caps every generation call. A generator that ignores cancellation
// still cannot hold a session lock past the timeout.
type bounded struct {
	gen     generate.Generator
	timeout time.Duration
}

type generation struct {
	text string
	err  error
}

func (b bounded) Generate(ctx context.Context, messages []generate.Message) (string, error) {
	timeout := b.timeout
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan generation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Ctx(ctx).Error().Interface("panic", r).Msg("generator panicked")
				done <- generation{err: generate.ErrGenerate.Msg(fmt.Sprintf("generator panicked: %v", r))}
			}
		}()
		text, err := b.gen.Generate(ctx, messages)
		done <- generation{text: text, err: err}
	}()

	select {
	case g := <-done:
		return g.text, g.err
	case <-ctx.Done():
		return "", ErrGenerateTimeout.Err(ctx.Err())
	}
}
