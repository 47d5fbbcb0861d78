// Package server exposes the interview orchestrator over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/common/httpx"
	"github.com/tansive/mockinterview/internal/common/middleware"
	"github.com/tansive/mockinterview/internal/interviewsrv/config"
	"github.com/tansive/mockinterview/internal/interviewsrv/interview"
)

type Options struct {
	HandleCORS     bool
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Auth           AuthOptions
	RateLimit      RateLimitOptions
	// Ready reports backend health for /ready. Nil means always ready.
	Ready func(ctx context.Context) error
	// TraceRoutes prints the route table after mounting.
	TraceRoutes bool
}

// OptionsFromConfig maps the loaded configuration onto server options.
func OptionsFromConfig(c *config.ConfigParam) Options {
	return Options{
		HandleCORS:     c.Server.HandleCORS,
		AllowedOrigins: c.Server.AllowedOrigins,
		RequestTimeout: c.Server.GetRequestTimeout(),
		MaxBodyBytes:   c.Server.MaxRequestBodySize,
		Auth: AuthOptions{
			JWTSecret:   c.Auth.JWTSecret,
			JWTIssuer:   c.Auth.JWTIssuer,
			OwnerHeader: c.Auth.OwnerHeader,
			ClockSkew:   c.Auth.GetClockSkew(),
		},
		RateLimit: RateLimitOptions{
			RequestsPerSecond: c.RateLimit.RequestsPerSecond,
			Burst:             c.RateLimit.Burst,
		},
		TraceRoutes: c.LogLevel == "trace",
	}
}

type InterviewServer struct {
	Router  *chi.Mux
	orch    *interview.Orchestrator
	opts    Options
	limiter *ownerLimiter
}

func CreateNewServer(orch *interview.Orchestrator, opts Options) (*InterviewServer, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if opts.Auth.OwnerHeader == "" {
		opts.Auth.OwnerHeader = "X-Interview-Owner"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = httpx.DefaultMaxBodyBytes
	}
	s := &InterviewServer{
		Router: chi.NewRouter(),
		orch:   orch,
		opts:   opts,
	}
	if opts.RateLimit.RequestsPerSecond > 0 {
		s.limiter = newOwnerLimiter(opts.RateLimit)
	}
	return s, nil
}

func (s *InterviewServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.opts.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Use(s.checkClientVersion)
	s.mountResourceHandlers(s.Router)
	if s.opts.TraceRoutes {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("error walking router")
		}
	}
}

func (s *InterviewServer) mountResourceHandlers(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		if s.opts.RequestTimeout > 0 {
			r.Use(middleware.SetTimeout(s.opts.RequestTimeout))
		}
		r.Use(s.withOwner)
		if s.limiter != nil {
			r.Use(s.rateLimit)
		}
		s.interviewRoutes(r)
	})
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *InterviewServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Interview Server: " + Version,
		ApiVersion:    ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *InterviewServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("readiness check failed")
			httpx.SendJsonRsp(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  "session store unavailable",
			})
			return
		}
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// checkClientVersion rejects clients that announce an incompatible API version.
// Requests without the header are let through.
func (s *InterviewServer) checkClientVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.Header.Get(ClientVersionHeader); v != "" && !IsVersionCompatible(v) {
			httpx.ErrInvalidRequest(fmt.Sprintf("client api version %s is not supported by server api version %s", v, ApiVersion)).Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *InterviewServer) HandleCORS(next http.Handler) http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", s.opts.Auth.OwnerHeader, ClientVersionHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Location", "ETag", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
