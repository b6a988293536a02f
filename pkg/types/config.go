// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no client-side timeout;
	// generation requests can take minutes.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "doc-studio/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ClientConfig holds settings for the service client used by the editor.
type ClientConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the root URL of the project, generation and export services
	// (e.g. "http://localhost:8000").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// CredentialsDir is where the session token is persisted between runs.
	CredentialsDir string `json:"credentials_dir" yaml:"credentials_dir"`

	// MaxRetries bounds retries of idempotent reads on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AIConfig holds settings for the text-generation backend.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxTokens caps the length of one generated section (default 2048).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// RenderConfig holds settings for converting projects into docx/pptx files.
type RenderConfig struct {
	// Image is the container image that provides pandoc (default "pandoc/core:latest").
	Image string `json:"image" yaml:"image"`
}

// ServerConfig holds settings for the reference services started by
// "doc-studio serve".
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr"`

	// DataDir holds the SQLite database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// JWTSecret signs bearer tokens. Required.
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`

	// TokenTTL is the lifetime of issued bearer tokens (default 24h).
	TokenTTL time.Duration `json:"token_ttl" yaml:"token_ttl"`

	// AllowedOrigins lists CORS origins; empty allows any origin.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`

	// GenerationRate is the sustained number of generation requests per
	// second allowed for one user (default 0.5).
	GenerationRate float64 `json:"generation_rate" yaml:"generation_rate"`

	// GenerationBurst is the burst size for GenerationRate (default 3).
	GenerationBurst int `json:"generation_burst" yaml:"generation_burst"`

	AI     AIConfig     `json:"ai" yaml:"ai"`
	Render RenderConfig `json:"render" yaml:"render"`
}
