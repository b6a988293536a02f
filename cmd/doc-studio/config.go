// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/doc-studio/internal/api"
	"github.com/pdiddy/doc-studio/internal/render"
	"github.com/pdiddy/doc-studio/internal/secrets"
	"github.com/pdiddy/doc-studio/internal/server"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// envKeyReplacer maps config keys to environment names:
// serve.jwt_secret -> DOC_STUDIO_SERVE_JWT_SECRET.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8000")
	v.SetDefault("http.timeout", 10*time.Minute)
	v.SetDefault("http.user_agent", "doc-studio/"+version)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("credentials_dir", secretsDir)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("serve.addr", server.DefaultAddr)
	v.SetDefault("serve.data_dir", "data")
	v.SetDefault("serve.token_ttl", server.DefaultTokenTTL)
	v.SetDefault("serve.generation_rate", server.DefaultGenerationRate)
	v.SetDefault("serve.generation_burst", server.DefaultGenerationBurst)
	v.SetDefault("ai.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("render.image", render.DefaultImage)
}

func credentialsDir() string {
	if dir := viper.GetString("credentials_dir"); dir != "" {
		return dir
	}
	return secretsDir
}

func clientConfig(v *viper.Viper) types.ClientConfig {
	return types.ClientConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   v.GetDuration("http.timeout"),
			UserAgent: v.GetString("http.user_agent"),
		},
		BaseURL:        v.GetString("server.url"),
		CredentialsDir: v.GetString("credentials_dir"),
		MaxRetries:     v.GetInt("http.max_retries"),
	}
}

func serverConfig(v *viper.Viper) types.ServerConfig {
	return types.ServerConfig{
		Addr:            v.GetString("serve.addr"),
		DataDir:         v.GetString("serve.data_dir"),
		JWTSecret:       secretDefault(secrets.JWTSecret, v.GetString("serve.jwt_secret")),
		TokenTTL:        v.GetDuration("serve.token_ttl"),
		AllowedOrigins:  v.GetStringSlice("serve.allowed_origins"),
		GenerationRate:  v.GetFloat64("serve.generation_rate"),
		GenerationBurst: v.GetInt("serve.generation_burst"),
		AI: types.AIConfig{
			Model:      v.GetString("ai.model"),
			APIKey:     secretDefault(secrets.AnthropicAPIKey, v.GetString("ai.api_key")),
			MaxRetries: v.GetInt("ai.max_retries"),
			MaxTokens:  v.GetInt("ai.max_tokens"),
		},
		Render: types.RenderConfig{
			Image: v.GetString("render.image"),
		},
	}
}

func newClient() *api.Client {
	return api.New(clientConfig(viper.GetViper()))
}

// requireSession restores the saved session or explains how to get one.
func requireSession() (*session.Session, error) {
	sess, err := session.Restore(credentialsDir())
	if err != nil {
		return nil, fmt.Errorf("%w (run \"doc-studio login\" first)", err)
	}
	return sess, nil
}
