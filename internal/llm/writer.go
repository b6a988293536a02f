// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm writes and rewrites section content with a generative model.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/doc-studio/pkg/logger"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// Backend completes a prompt. ClaudeBackend is the production
// implementation; tests supply fakes.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var sectionPromptTmpl = template.Must(template.New("section").Parse(`Context: Project Topic: {{.Topic}}. Document Type: {{.Type}}.

Task: Write content for the {{.Unit}} titled '{{.Title}}'.{{if .Outline}}

The full outline, for context only:
{{range .Outline}}{{.Order}}. {{.Title}}
{{end}}{{end}}
Generate professional content suitable for a business document.{{if .Slides}} Keep it to short lines that work as slide bullets, one per line.{{end}}
`))

var refinePromptTmpl = template.Must(template.New("refine").Parse(`Original Content:
{{.Content}}

Instruction: {{.Instruction}}

Please rewrite the content following the instruction. Maintain professional tone.
`))

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Writer turns projects and instructions into prompts and calls the
// backend with retries.
type Writer struct {
	Backend    Backend
	MaxRetries int
}

// GenerateSection writes the content of one section of p.
func (w *Writer) GenerateSection(ctx context.Context, p *types.Project, s types.Section) (string, error) {
	var buf bytes.Buffer
	err := sectionPromptTmpl.Execute(&buf, struct {
		Topic, Type, Unit, Title string
		Outline                  []types.Section
		Slides                   bool
	}{
		Topic:   p.Topic,
		Type:    string(p.Type),
		Unit:    strings.ToLower(p.Type.UnitLabel()),
		Title:   s.Title,
		Outline: p.Sections,
		Slides:  p.Type == types.TypePptx,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return w.callWithRetry(ctx, buf.String())
}

// Refine rewrites content following instruction.
func (w *Writer) Refine(ctx context.Context, content, instruction string) (string, error) {
	var buf bytes.Buffer
	if err := refinePromptTmpl.Execute(&buf, struct{ Content, Instruction string }{content, instruction}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return w.callWithRetry(ctx, buf.String())
}

// callWithRetry calls the backend with exponential backoff.
func (w *Writer) callWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := w.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			logger.Warn(ctx, "model call failed, retrying", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := w.Backend.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
