// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc-studio/internal/secrets"
	"github.com/pdiddy/doc-studio/pkg/types"
)

func newFlagsCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "new"}
	cmd.Flags().String("title", "", "")
	cmd.Flags().String("topic", "", "")
	cmd.Flags().String("type", string(types.TypeDocx), "")
	cmd.Flags().StringArray("section", nil, "")
	cmd.Flags().String("outline", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestDraftFromFlags(t *testing.T) {
	cmd := newFlagsCmd(t, "--title", "Q3 Review", "--topic", "quarterly sales", "--type", "PPTX",
		"--section", "Intro", "--section", "Numbers")

	d, err := draftFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "Q3 Review", d.Title)
	assert.Equal(t, types.TypePptx, d.Type)
	require.Len(t, d.Sections, 2)
	assert.Equal(t, types.SectionDraft{Title: "Numbers", Order: 2}, d.Sections[1])
}

func TestDraftFromFlagsOutlineWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: Old\ntype: pptx\ntopic: sales\nsections: [A, B, C]\n"), 0o644))

	d, err := draftFromFlags(newFlagsCmd(t, "--outline", path, "--title", "New"))
	require.NoError(t, err)
	assert.Equal(t, "New", d.Title)
	assert.Equal(t, "sales", d.Topic)
	assert.Equal(t, types.TypePptx, d.Type, "outline type kept when --type is not given")
	assert.Len(t, d.Sections, 3)
}

func TestDraftFromFlagsMissingOutline(t *testing.T) {
	_, err := draftFromFlags(newFlagsCmd(t, "--outline", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestServerConfigPrefersConfigOverSecrets(t *testing.T) {
	loadedSecrets = map[string]string{secrets.JWTSecret: "from-secrets", secrets.AnthropicAPIKey: "sk-secret"}
	t.Cleanup(func() { loadedSecrets = nil })

	v := viper.New()
	setDefaults(v)
	v.Set("serve.jwt_secret", "from-config")
	v.Set("serve.token_ttl", "2h")

	cfg := serverConfig(v)
	assert.Equal(t, "from-config", cfg.JWTSecret)
	assert.Equal(t, "sk-secret", cfg.AI.APIKey)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "pandoc/core:latest", cfg.Render.Image)
}

func TestClientConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := clientConfig(v)
	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "doc-studio/"+version, cfg.UserAgent)
}

func TestParseProjectID(t *testing.T) {
	id, err := parseProjectID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseProjectID(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatProjectList(t *testing.T) {
	var buf bytes.Buffer
	formatProjectList(&buf, nil)
	assert.Contains(t, buf.String(), "No projects yet")

	buf.Reset()
	formatProjectList(&buf, []types.Project{{
		ID: 3, Title: "Q3 Review", Type: types.TypeDocx,
		Sections: []types.Section{{Content: "text"}, {}},
	}})
	assert.Contains(t, buf.String(), "Q3 Review")
	assert.Contains(t, buf.String(), "1/2")
	assert.Contains(t, buf.String(), "1 projects")
}

func TestFormatProject(t *testing.T) {
	var buf bytes.Buffer
	formatProject(&buf, &types.Project{
		ID: 1, Title: "Deck", Type: types.TypePptx, Topic: "sales",
		Sections: []types.Section{
			{ID: 10, Order: 1, Title: "Intro", Content: "Line one\nLine two"},
			{ID: 11, Order: 2, Title: "Numbers"},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Slide 1 (id 10): Intro")
	assert.Contains(t, out, "  Line two")
	assert.Contains(t, out, "(not generated)")
}
