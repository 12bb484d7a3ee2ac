// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the generation service over HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/cloudwego/vizcoder/lang/feedback"
	"github.com/cloudwego/vizcoder/llm/log"
	"github.com/cloudwego/vizcoder/llm/prompt"
)

const (
	DefaultAddr           = ":8080"
	DefaultSessionTTL     = 30 * time.Minute
	DefaultMaxUploadBytes = 5 << 20
	DefaultUploadDir      = "uploads"

	maxJSONBytes = 1 << 20
)

// Config holds configuration for the HTTP server.
type Config struct {
	// Generator runs one request through ingest and the build pipeline.
	Generator feedback.Regenerator
	// RuntimeMax is the runtime budget of each session turn and the bound
	// of the stateless regenerate endpoint.
	RuntimeMax     int
	Addr           string
	SessionTTL     time.Duration
	MaxUploadBytes int64
	UploadDir      string
	// Prompts is reloaded on change when WatchPrompts is set.
	Prompts      *prompt.Library
	WatchPrompts bool
}

// Server is the HTTP API.
type Server struct {
	cfg      Config
	sessions *sessionStore
	router   chi.Router
}

// New creates a server and its routes.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir
	}
	if cfg.RuntimeMax < 0 {
		cfg.RuntimeMax = 0
	}
	s := &Server{
		cfg: cfg,
		sessions: newSessionStore(cfg.SessionTTL, func() *feedback.Loop {
			return feedback.NewLoop(cfg.Generator, cfg.RuntimeMax)
		}),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
	)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Post("/regenerate", s.handleRegenerate)
		r.Post("/chat", s.handleChat)
		r.Post("/upload", s.handleUpload)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/turns", s.handleTurn)
				r.Post("/runtime-errors", s.handleRuntimeError)
			})
		})
	})
	r.Get("/files/{name}", s.handleFile)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	log.Info("starting API server on http://%s", ln.Addr())
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		s.sessions.run(egctx)
		return nil
	})

	if s.cfg.WatchPrompts && s.cfg.Prompts != nil {
		eg.Go(func() error {
			return s.cfg.Prompts.Watch(egctx)
		})
	}

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		log.Debug("shutting down API server...")
		err := srv.Shutdown(shutdownCtx)
		s.sessions.closeAll()
		return err
	})

	return eg.Wait()
}
