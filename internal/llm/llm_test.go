// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc-studio/internal/httputil"
	"github.com/pdiddy/doc-studio/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
	httputil.RetryBaseDelay = time.Millisecond
}

type recordingBackend struct {
	prompts []string
	fail    int
	reply   string
}

func (b *recordingBackend) Complete(_ context.Context, prompt string) (string, error) {
	b.prompts = append(b.prompts, prompt)
	if b.fail > 0 {
		b.fail--
		return "", errors.New("overloaded")
	}
	return b.reply, nil
}

func sampleProject(pt types.ProjectType) *types.Project {
	return &types.Project{
		ID: 1, Title: "Q3 Review", Type: pt, Topic: "quarterly sales",
		Sections: []types.Section{{ID: 1, Title: "Intro", Order: 1}, {ID: 2, Title: "Numbers", Order: 2}},
	}
}

func TestGenerateSectionPrompt(t *testing.T) {
	b := &recordingBackend{reply: "text"}
	w := &Writer{Backend: b}
	p := sampleProject(types.TypeDocx)

	out, err := w.GenerateSection(context.Background(), p, p.Sections[1])
	require.NoError(t, err)
	assert.Equal(t, "text", out)

	require.Len(t, b.prompts, 1)
	prompt := b.prompts[0]
	assert.Contains(t, prompt, "Project Topic: quarterly sales. Document Type: docx.")
	assert.Contains(t, prompt, "Write content for the section titled 'Numbers'.")
	assert.Contains(t, prompt, "1. Intro")
	assert.Contains(t, prompt, "Generate professional content suitable for a business document.")
	assert.NotContains(t, prompt, "slide bullets")
}

func TestGenerateSectionPromptForSlides(t *testing.T) {
	b := &recordingBackend{reply: "text"}
	w := &Writer{Backend: b}
	p := sampleProject(types.TypePptx)

	_, err := w.GenerateSection(context.Background(), p, p.Sections[0])
	require.NoError(t, err)
	assert.Contains(t, b.prompts[0], "Write content for the slide titled 'Intro'.")
	assert.Contains(t, b.prompts[0], "slide bullets")
}

func TestRefinePrompt(t *testing.T) {
	b := &recordingBackend{reply: "shorter"}
	w := &Writer{Backend: b}

	out, err := w.Refine(context.Background(), "long text", "make it shorter")
	require.NoError(t, err)
	assert.Equal(t, "shorter", out)
	assert.Contains(t, b.prompts[0], "Original Content:\nlong text\n\nInstruction: make it shorter")
	assert.Contains(t, b.prompts[0], "Maintain professional tone.")
}

func TestCallWithRetry(t *testing.T) {
	b := &recordingBackend{reply: "ok", fail: 2}
	w := &Writer{Backend: b, MaxRetries: 3}
	out, err := w.Refine(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Len(t, b.prompts, 3)

	b = &recordingBackend{fail: 10}
	w = &Writer{Backend: b, MaxRetries: 1}
	_, err = w.Refine(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 retries")
	assert.Len(t, b.prompts, 2)
}

func TestClaudeBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, defaultMaxTokens, req.MaxTokens)
		assert.NotEmpty(t, req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{
			{Type: "text", Text: "Hello "},
			{Type: "text", Text: "world\n"},
		}})
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	b := &ClaudeBackend{APIKey: "test-key", Model: "test-model", Client: ts.Client()}
	out, err := b.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
}

func TestClaudeBackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "api error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
			},
			want: "max_tokens too large",
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"content":[]}`))
			},
			want: "no text content",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()
			old := claudeAPIURL
			claudeAPIURL = ts.URL
			defer func() { claudeAPIURL = old }()

			_, err := (&ClaudeBackend{APIKey: "k", Client: ts.Client()}).Complete(context.Background(), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClaudeBackendNeedsKey(t *testing.T) {
	_, err := (&ClaudeBackend{}).Complete(context.Background(), "x")
	assert.Error(t, err)
}
