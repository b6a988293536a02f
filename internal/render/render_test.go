// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc-studio/pkg/types"
)

func sample(pt types.ProjectType) *types.Project {
	return &types.Project{
		ID: 4, Title: "Q3: Review", Type: pt, Topic: "quarterly sales",
		Sections: []types.Section{
			{ID: 1, Title: "Intro", Order: 1, Content: "Sales grew.\n\n- Margins held\n"},
			{ID: 2, Title: "Numbers", Order: 2},
		},
	}
}

func TestMarkdownDocx(t *testing.T) {
	md, err := Markdown(sample(types.TypeDocx))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: 'Q3: Review'\n---\n"), md)
	assert.Contains(t, md, "Topic: quarterly sales\n\n# Intro\n\nSales grew.\n\n- Margins held\n\n# Numbers\n\n")
	assert.NotContains(t, md, "subtitle")
}

func TestMarkdownPptx(t *testing.T) {
	md, err := Markdown(sample(types.TypePptx))
	require.NoError(t, err)

	assert.Contains(t, md, "subtitle: quarterly sales\n")
	assert.Contains(t, md, "## Intro\n\n- Sales grew.\n- Margins held\n\n## Numbers\n\n\n")
	assert.NotContains(t, md, "Topic:")
}

func TestMarkdownRejectsBadInput(t *testing.T) {
	_, err := Markdown(nil)
	assert.Error(t, err)

	p := sample("pdf")
	_, err = Markdown(p)
	assert.Error(t, err)
}

type fakeConverter struct {
	gotType types.ProjectType
	gotMD   string
	out     []byte
	err     error
}

func (f *fakeConverter) Convert(_ context.Context, md string, t types.ProjectType) ([]byte, error) {
	f.gotMD, f.gotType = md, t
	return f.out, f.err
}

func TestRender(t *testing.T) {
	conv := &fakeConverter{out: []byte("PK\x03\x04doc")}
	art, err := (&Renderer{Converter: conv}).Render(context.Background(), sample(types.TypePptx))
	require.NoError(t, err)

	assert.Equal(t, types.TypePptx, conv.gotType)
	assert.Contains(t, conv.gotMD, "## Intro")
	assert.Equal(t, "Q3_ Review.pptx", art.Filename)
	assert.Equal(t, types.TypePptx.MediaType(), art.MediaType)
}

func TestRenderFailures(t *testing.T) {
	tests := []struct {
		name string
		conv *fakeConverter
	}{
		{"converter error", &fakeConverter{err: errors.New("container exited")}},
		{"empty output", &fakeConverter{}},
		{"not a zip", &fakeConverter{out: []byte("%PDF-1.7")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Renderer{Converter: tt.conv}).Render(context.Background(), sample(types.TypeDocx))
			assert.Error(t, err)
		})
	}
}

// fakeRuntime records the container invocation.
type fakeRuntime struct {
	imageErr error
	args     []string
	stdin    string
}

func (f *fakeRuntime) Name() string                              { return "docker" }
func (f *fakeRuntime) Available(context.Context) bool            { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error { return f.imageErr }
func (f *fakeRuntime) Run(_ context.Context, _ string, args []string, stdin io.Reader, stdout io.Writer) error {
	f.args = args
	data, _ := io.ReadAll(stdin)
	f.stdin = string(data)
	_, err := stdout.Write([]byte("PK\x03\x04"))
	return err
}

func TestPandocConverter(t *testing.T) {
	rt := &fakeRuntime{}
	c, err := NewPandocConverter(context.Background(), rt, "")
	require.NoError(t, err)

	out, err := c.Convert(context.Background(), "# Hi", types.TypePptx)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), out)
	assert.Equal(t, "# Hi", rt.stdin)
	assert.Equal(t, []string{"--from", "markdown", "--to", "pptx", "--output", "-", "--slide-level=2"}, rt.args)
}

func TestPandocConverterMissingImage(t *testing.T) {
	_, err := NewPandocConverter(context.Background(), &fakeRuntime{imageErr: errors.New("no such image")}, "pandoc/core:3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pandoc image not available")
}
