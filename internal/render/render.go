// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render converts a project into a .docx or .pptx file. The
// project is first laid out as pandoc Markdown, then converted by pandoc
// running in a container.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc-studio/internal/container"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// DefaultImage provides pandoc.
const DefaultImage = "pandoc/core:latest"

var zipMagic = []byte("PK\x03\x04")

// Converter turns pandoc Markdown into a binary document of type t.
type Converter interface {
	Convert(ctx context.Context, markdown string, t types.ProjectType) ([]byte, error)
}

// PandocConverter runs pandoc in a container.
type PandocConverter struct {
	runtime container.Runtime
	image   string
}

// NewPandocConverter verifies that image exists in rt.
func NewPandocConverter(ctx context.Context, rt container.Runtime, image string) (*PandocConverter, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("pandoc image not available in %s: %w", rt.Name(), err)
	}
	return &PandocConverter{runtime: rt, image: image}, nil
}

// Convert pipes markdown through pandoc and returns the document bytes.
func (c *PandocConverter) Convert(ctx context.Context, markdown string, t types.ProjectType) ([]byte, error) {
	args := []string{"--from", "markdown", "--to", t.Extension(), "--output", "-"}
	if t == types.TypePptx {
		args = append(args, "--slide-level=2")
	}

	var out bytes.Buffer
	if err := c.runtime.Run(ctx, c.image, args, strings.NewReader(markdown), &out); err != nil {
		return nil, fmt.Errorf("converting with pandoc: %w", err)
	}
	return out.Bytes(), nil
}

// Renderer produces artifacts from projects.
type Renderer struct {
	Converter Converter
}

// Render lays p out and converts it. The result must be a non-empty zip
// archive, as every OOXML file is.
func (r *Renderer) Render(ctx context.Context, p *types.Project) (*types.Artifact, error) {
	md, err := Markdown(p)
	if err != nil {
		return nil, err
	}
	data, err := r.Converter.Convert(ctx, md, p.Type)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("converter produced empty output for project %d", p.ID)
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return nil, fmt.Errorf("converter output for project %d is not a %s file", p.ID, p.Type.Extension())
	}
	return &types.Artifact{
		Filename:  types.ArtifactFilename(p.Title, p.Type),
		MediaType: p.Type.MediaType(),
		Data:      data,
	}, nil
}

type metadata struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle,omitempty"`
}

// Markdown lays a project out as pandoc Markdown.
//
// docx: the title as document title, a "Topic:" line, then one level-1
// heading per section followed by its content.
//
// pptx: a title slide (title, topic as subtitle), then one slide per
// section whose non-empty content lines become bullets.
func Markdown(p *types.Project) (string, error) {
	if p == nil {
		return "", fmt.Errorf("no project to render")
	}
	if !p.Type.Valid() {
		return "", fmt.Errorf("unsupported project type %q", p.Type)
	}

	meta := metadata{Title: p.Title}
	if p.Type == types.TypePptx {
		meta.Subtitle = p.Topic
	}
	front, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")

	switch p.Type {
	case types.TypePptx:
		for _, s := range p.Sections {
			fmt.Fprintf(&b, "## %s\n\n", headingText(s.Title))
			for _, line := range bullets(s.Content) {
				fmt.Fprintf(&b, "- %s\n", line)
			}
			b.WriteString("\n")
		}
	default:
		fmt.Fprintf(&b, "Topic: %s\n\n", p.Topic)
		for _, s := range p.Sections {
			fmt.Fprintf(&b, "# %s\n\n", headingText(s.Title))
			if content := strings.TrimSpace(s.Content); content != "" {
				b.WriteString(content)
				b.WriteString("\n\n")
			}
		}
	}
	return b.String(), nil
}

// headingText keeps a title on one line.
func headingText(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// bullets splits content into lines, dropping blanks and any list marker
// the text already carries.
func bullets(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range []string{"- ", "* ", "• "} {
			line = strings.TrimPrefix(line, marker)
		}
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
