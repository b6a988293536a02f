// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server implements the auth, project, generation and export
// services over HTTP. It is the reference backend the doc-studio client
// talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/doc-studio/internal/repository"
	"github.com/pdiddy/doc-studio/pkg/logger"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// Defaults applied by New to zero config values.
const (
	DefaultAddr            = ":8000"
	DefaultTokenTTL        = 24 * time.Hour
	DefaultGenerationRate  = 0.5
	DefaultGenerationBurst = 3
)

const shutdownTimeout = 30 * time.Second

// Writer produces section text. llm.Writer implements it.
type Writer interface {
	GenerateSection(ctx context.Context, p *types.Project, s types.Section) (string, error)
	Refine(ctx context.Context, content, instruction string) (string, error)
}

// Renderer turns a project into a binary document. render.Renderer
// implements it.
type Renderer interface {
	Render(ctx context.Context, p *types.Project) (*types.Artifact, error)
}

// Server holds the services' dependencies and routes.
type Server struct {
	cfg      types.ServerConfig
	repo     *repository.Repository
	writer   Writer
	renderer Renderer
	tokens   *TokenIssuer
	limiter  *userLimiter
	engine   *gin.Engine
}

// New builds a server. cfg.JWTSecret is required.
func New(cfg types.ServerConfig, repo *repository.Repository, writer Writer, renderer Renderer) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if repo == nil || writer == nil || renderer == nil {
		return nil, errors.New("repository, writer and renderer are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.GenerationRate <= 0 {
		cfg.GenerationRate = DefaultGenerationRate
	}
	if cfg.GenerationBurst <= 0 {
		cfg.GenerationBurst = DefaultGenerationBurst
	}

	s := &Server{
		cfg:      cfg,
		repo:     repo,
		writer:   writer,
		renderer: renderer,
		tokens:   NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		limiter:  newUserLimiter(cfg.GenerationRate, cfg.GenerationBurst),
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		RequestID(),
		Recovery(),
		AccessLog(),
		Metrics(),
		CORS(CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}),
	)

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/token", s.token)

	api := r.Group("/", Auth(s.tokens))
	api.POST("/projects", s.createProject)
	api.GET("/projects", s.listProjects)
	api.GET("/projects/:id", s.getProject)

	gen := api.Group("/generation", RateLimit(s.limiter))
	gen.POST("/generate", s.generate)
	gen.POST("/refine", s.refine)

	api.GET("/export/:id", s.export)

	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server starting", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	if err := s.repo.Ping(c.Request.Context()); err != nil {
		logger.Error(c.Request.Context(), "health check failed", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
