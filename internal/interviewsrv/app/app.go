// Package app assembles the interview server from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/interviewsrv/config"
	"github.com/tansive/mockinterview/internal/interviewsrv/convctx"
	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
	"github.com/tansive/mockinterview/internal/interviewsrv/interview"
	"github.com/tansive/mockinterview/internal/interviewsrv/prompt"
	"github.com/tansive/mockinterview/internal/interviewsrv/server"
	"github.com/tansive/mockinterview/internal/interviewsrv/store"
)

type App struct {
	Server *server.InterviewServer
	Store  store.Store
}

// Close releases the session store.
func (a *App) Close() error {
	return a.Store.Close()
}

// Build wires store, generator, prompts and orchestrator behind the HTTP server.
func Build(ctx context.Context, c *config.ConfigParam) (*App, error) {
	st, err := openStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}

	prompts, err := prompt.Load(c.Interview.PromptsFile)
	if err != nil {
		st.Close()
		return nil, err
	}

	orch := interview.New(
		st,
		convctx.NewMemory(c.Interview.MaxHistoryMessages),
		newGenerator(c.Generation),
		prompts,
		interview.Options{
			GenerateTimeout:      c.Generation.GetTimeout(),
			DefaultQuestionCount: c.Interview.DefaultQuestionCount,
		},
	)

	opts := server.OptionsFromConfig(c)
	if p, ok := st.(interface{ Ping(context.Context) error }); ok {
		opts.Ready = p.Ping
	}
	s, err := server.CreateNewServer(orch, opts)
	if err != nil {
		st.Close()
		return nil, err
	}
	s.MountHandlers()
	return &App{Server: s, Store: st}, nil
}

func openStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch c.Backend {
	case config.StoreMemory:
		log.Ctx(ctx).Warn().Msg("using in-memory session store; sessions are lost on restart")
		return store.NewMemory(), nil
	case config.StorePostgres, config.StoreSQLite:
		st, err := store.OpenSQL(ctx, store.SQLOptions{
			Dialect:  store.Dialect(c.Backend),
			DSN:      c.DSN,
			Table:    c.Table,
			Compress: c.Compress,
		})
		if err != nil {
			return nil, fmt.Errorf("opening %s session store: %w", c.Backend, err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store backend: %s", c.Backend)
}

func newGenerator(c config.GenerationConfig) generate.Generator {
	if !c.Enabled() {
		log.Warn().Str("provider", c.Provider).Msg("text generation disabled; every turn uses heuristic scoring")
		return generate.Unavailable{}
	}
	return generate.NewOpenAI(generate.OpenAIOptions{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   int(c.MaxTokens),
		Attempts:    c.RetryAttempts,
		RetryDelay:  c.GetRetryDelay(),
	})
}
