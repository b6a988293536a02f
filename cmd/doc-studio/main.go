// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the doc-studio CLI. It authors
// document and slide-deck projects against the project, generation and
// export services, and can run those services itself with "serve".
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc-studio/internal/secrets"
	"github.com/pdiddy/doc-studio/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir holds API keys and the session token.
const secretsDir = ".secrets/"

// loadedSecrets holds values loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, else the secret stored under key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the doc-studio CLI.
var rootCmd = &cobra.Command{
	Use:   "doc-studio",
	Short: "Author and generate business documents and slide decks",
	Long: `doc-studio creates document (docx) and presentation (pptx) projects from a
title, a topic and an ordered outline, asks a generation service to write
every section, refines single sections with free-text instructions, and
exports the result.

Log in once with "doc-studio login"; the session is kept in the credentials
directory and used by every other command. "doc-studio serve" runs the
project, generation and export services locally.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Init(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format"))

		s, err := secrets.Load(credentialsDir())
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Default().Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./doc-studio.yaml or ~/.config/doc-studio/doc-studio.yaml)")
	pf.String("server", "", "base URL of the doc-studio services (default http://localhost:8000)")
	pf.String("credentials-dir", "", "directory holding the session and API keys (default .secrets/)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")

	_ = viper.BindPFlag("server.url", pf.Lookup("server"))
	_ = viper.BindPFlag("credentials_dir", pf.Lookup("credentials-dir"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("doc-studio")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "doc-studio"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("DOC_STUDIO")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
