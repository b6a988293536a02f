// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/pkg/types"
)

type fakeBackend struct {
	calls int
	art   *types.Artifact
	err   error
}

func (f *fakeBackend) Export(_ context.Context, _ *session.Session, _ int64) (*types.Artifact, error) {
	f.calls++
	return f.art, f.err
}

func testSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New("tok", "")
	require.NoError(t, err)
	return s
}

func generated(pt types.ProjectType) *types.Project {
	return &types.Project{
		ID: 3, Title: "Q3 Review", Type: pt, Topic: "sales",
		Sections: []types.Section{{ID: 1, Title: "Intro", Order: 1, Content: "hello"}},
	}
}

func TestExportWithoutContentMakesNoRequest(t *testing.T) {
	b := &fakeBackend{}
	g := New(b)
	p := generated(types.TypeDocx)
	p.Sections[0].Content = ""

	_, err := g.Export(context.Background(), testSession(t), p)
	assert.ErrorIs(t, err, apperr.ErrExport)
	assert.Equal(t, 0, b.calls)

	_, err = g.Export(context.Background(), testSession(t), nil)
	assert.ErrorIs(t, err, apperr.ErrExport)
	assert.Equal(t, 0, b.calls)
}

func TestExportNamesArtifactFromProject(t *testing.T) {
	tests := []struct {
		pt       types.ProjectType
		filename string
	}{
		{types.TypeDocx, "Q3 Review.docx"},
		{types.TypePptx, "Q3 Review.pptx"},
	}
	for _, tt := range tests {
		t.Run(string(tt.pt), func(t *testing.T) {
			b := &fakeBackend{art: &types.Artifact{Filename: "server-name.bin", Data: []byte("PK\x03\x04data")}}
			art, err := New(b).Export(context.Background(), testSession(t), generated(tt.pt))
			require.NoError(t, err)
			assert.Equal(t, tt.filename, art.Filename)
			assert.Equal(t, tt.pt.MediaType(), art.MediaType)
			assert.Equal(t, 1, b.calls)
		})
	}
}

func TestExportRejectsBadArtifacts(t *testing.T) {
	tests := []struct {
		name string
		b    *fakeBackend
	}{
		{"service failure", &fakeBackend{err: errors.New("500 pandoc failed")}},
		{"nil artifact", &fakeBackend{}},
		{"empty body", &fakeBackend{art: &types.Artifact{}}},
		{"not a zip", &fakeBackend{art: &types.Artifact{Data: []byte("<html>oops</html>")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.b).Export(context.Background(), testSession(t), generated(types.TypeDocx))
			assert.ErrorIs(t, err, apperr.ErrExport)
		})
	}
}

func TestExportNeedsSession(t *testing.T) {
	b := &fakeBackend{}
	_, err := New(b).Export(context.Background(), nil, generated(types.TypeDocx))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, 0, b.calls)
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	art := &types.Artifact{Filename: "Q3 Review.docx", Data: []byte("PK\x03\x04data")}

	path, err := Save(dir, art)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Q3 Review.docx"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, art.Data, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSaveNothing(t *testing.T) {
	_, err := Save(t.TempDir(), nil)
	assert.ErrorIs(t, err, apperr.ErrExport)
}
