// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

// Package web exposes the auth service over HTTP.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"

	"github.com/flickbox/flickbox/internal/store"
)

// DefaultPingTimeout bounds the database ping behind GET /health.
const DefaultPingTimeout = 2 * time.Second

// Config configures the HTTP surface.
type Config struct {
	// FrontendURL is the only cross-origin caller admitted.
	FrontendURL string
	// Production hides error detail from responses.
	Production  bool
	PingTimeout time.Duration
}

// Server holds the handlers' dependencies and builds the router.
type Server struct {
	auth        Authenticator
	db          store.Pinger
	schemaReady func() bool
	frontendURL string
	production  bool
	pingTimeout time.Duration
	logger      *slog.Logger
	observer    RequestObserver
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver records per-request metrics.
func WithObserver(o RequestObserver) Option {
	return func(s *Server) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithHealth wires the database and schema checks behind GET /health. A nil
// schemaReady treats the schema as present.
func WithHealth(db store.Pinger, schemaReady func() bool) Option {
	return func(s *Server) {
		s.db = db
		s.schemaReady = schemaReady
	}
}

// NewServer creates the HTTP layer for authenticator.
func NewServer(authenticator Authenticator, cfg Config, opts ...Option) (*Server, error) {
	if authenticator == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("authenticator is required")
	}
	if cfg.FrontendURL == "" {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("frontend URL is required")
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultPingTimeout
	}

	s := &Server{
		auth:        authenticator,
		frontendURL: cfg.FrontendURL,
		production:  cfg.Production,
		pingTimeout: cfg.PingTimeout,
		logger:      slog.Default(),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the router. Every route is served both at the root and
// under /api.
//
// Middleware order:
//
//	requestID → accessLog → recovery → securityHeaders → cors → limitBody
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog(s.logger, s.observer))
	r.Use(recovery(s.logger))
	r.Use(securityHeaders)
	r.Use(cors(s.frontendURL))
	r.Use(limitBody)

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/", s.handleIndex)
	r.Get("/api", s.handleIndex)
	for _, prefix := range []string{"", "/api"} {
		r.Post(prefix+"/register", s.handleRegister)
		r.Post(prefix+"/login", s.handleLogin)
		r.Get(prefix+"/health", s.handleHealth)
	}

	return r
}
