// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectTypeProperties(t *testing.T) {
	assert.True(t, TypeDocx.Valid())
	assert.True(t, TypePptx.Valid())
	assert.False(t, ProjectType("pdf").Valid())

	assert.Equal(t, "Section", TypeDocx.UnitLabel())
	assert.Equal(t, "Slide", TypePptx.UnitLabel())
	assert.Contains(t, TypeDocx.MediaType(), "wordprocessingml")
	assert.Contains(t, TypePptx.MediaType(), "presentationml")
}

func TestProjectHasContent(t *testing.T) {
	var nilProject *Project
	assert.False(t, nilProject.HasContent())

	p := &Project{Sections: []Section{{Title: "A"}, {Title: "B", Content: "  \n"}}}
	assert.False(t, p.HasContent())

	p.Sections[0].Content = "text"
	assert.True(t, p.HasContent())
}

func TestProjectCloneIsDeep(t *testing.T) {
	p := &Project{ID: 1, Sections: []Section{{ID: 2, Content: "a", RefinementHistory: []RefinementEntry{{Refined: "a"}}}}}
	c := p.Clone()
	c.Sections[0].Content = "b"
	c.Sections[0].RefinementHistory[0].Refined = "b"

	assert.Equal(t, "a", p.Sections[0].Content)
	assert.Equal(t, "a", p.Sections[0].RefinementHistory[0].Refined)

	s, ok := p.Section(2)
	require.True(t, ok)
	assert.Equal(t, "a", s.Content)
	_, ok = p.Section(3)
	assert.False(t, ok)
}

func TestArtifactFilename(t *testing.T) {
	tests := []struct {
		title string
		pt    ProjectType
		want  string
	}{
		{"Q3 Review", TypeDocx, "Q3 Review.docx"},
		{"Q3 Review", TypePptx, "Q3 Review.pptx"},
		{`a/b\c:d`, TypeDocx, "a_b_c_d.docx"},
		{"  ..  ", TypeDocx, "project.docx"},
		{"line\nbreak", TypeDocx, "linebreak.docx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ArtifactFilename(tt.title, tt.pt), tt.title)
	}
}
