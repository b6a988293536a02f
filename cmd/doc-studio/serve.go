// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/doc-studio/internal/container"
	"github.com/pdiddy/doc-studio/internal/llm"
	"github.com/pdiddy/doc-studio/internal/render"
	"github.com/pdiddy/doc-studio/internal/repository"
	"github.com/pdiddy/doc-studio/internal/server"
	"github.com/pdiddy/doc-studio/pkg/logger"
	"github.com/pdiddy/doc-studio/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the project, generation and export services",
	Long: `Serve runs the auth, project, generation and export services on one HTTP
listener. Projects are stored in SQLite under serve.data_dir, section text
is written by Claude (ai.api_key or .secrets/anthropic-api-key), and exports
are rendered by pandoc in a docker or podman container.

A .env file in the working directory is loaded first when present.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg := serverConfig(viper.GetViper())
	if cfg.JWTSecret == "" {
		return fmt.Errorf("serve.jwt_secret is required (DOC_STUDIO_SERVE_JWT_SECRET or .secrets/jwt-secret)")
	}
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required (DOC_STUDIO_AI_API_KEY or .secrets/anthropic-api-key)")
	}
	if logger.ParseLevel(viper.GetString("log.level")) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, renderer, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	writer := &llm.Writer{
		Backend: &llm.ClaudeBackend{
			APIKey:    cfg.AI.APIKey,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
			Client:    &http.Client{Timeout: viper.GetDuration("http.timeout")},
		},
		MaxRetries: cfg.AI.MaxRetries,
	}

	srv, err := server.New(cfg, repo, writer, renderer)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

// openBackends opens the database and prepares the pandoc converter in
// parallel; pulling image metadata from the container runtime can be slow.
func openBackends(ctx context.Context, cfg types.ServerConfig) (*repository.Repository, *render.Renderer, error) {
	var (
		repo *repository.Repository
		conv *render.PandocConverter
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := repository.Open(cfg.DataDir)
		if err != nil {
			return err
		}
		repo = r
		logger.Info(gctx, "database ready", "data_dir", cfg.DataDir)
		return nil
	})
	g.Go(func() error {
		rt, err := container.DetectRuntime(gctx)
		if err != nil {
			return err
		}
		c, err := render.NewPandocConverter(gctx, rt, cfg.Render.Image)
		if err != nil {
			return err
		}
		conv = c
		logger.Info(gctx, "renderer ready", "runtime", rt.Name(), "image", cfg.Render.Image)
		return nil
	})

	if err := g.Wait(); err != nil {
		if repo != nil {
			repo.Close()
		}
		return nil, nil, err
	}
	return repo, &render.Renderer{Converter: conv}, nil
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().String("data-dir", "", "directory for the SQLite database (default data)")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.data_dir", serveCmd.Flags().Lookup("data-dir"))

	rootCmd.AddCommand(serveCmd)
}
