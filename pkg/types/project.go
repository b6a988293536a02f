// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
	"unicode"
)

// ProjectType selects the output format of a project. It is fixed at
// creation and decides whether sections are presented as document
// sections or as slides.
type ProjectType string

const (
	TypeDocx ProjectType = "docx"
	TypePptx ProjectType = "pptx"
)

// Valid reports whether t is one of the supported project types.
func (t ProjectType) Valid() bool {
	return t == TypeDocx || t == TypePptx
}

// Extension returns the file extension (without the dot) of exported artifacts.
func (t ProjectType) Extension() string {
	return string(t)
}

// MediaType returns the MIME type of exported artifacts.
func (t ProjectType) MediaType() string {
	switch t {
	case TypePptx:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	default:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
}

// UnitLabel is the user-facing name of one section: "Section" or "Slide".
func (t ProjectType) UnitLabel() string {
	if t == TypePptx {
		return "Slide"
	}
	return "Section"
}

// RefinementEntry records one refinement applied to a section by the
// generation service.
type RefinementEntry struct {
	// Original is the section content before the refinement.
	Original string `json:"original" yaml:"original"`

	// Instruction is the free-text instruction the user gave.
	Instruction string `json:"instruction" yaml:"instruction"`

	// Refined is the content that replaced Original.
	Refined string `json:"refined" yaml:"refined"`

	// Timestamp is when the refinement was applied.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Section is one ordered content unit of a project.
type Section struct {
	// ID is assigned by the backing store; zero before persistence.
	ID int64 `json:"id" yaml:"id"`

	// ProjectID is the owning project.
	ProjectID int64 `json:"project_id" yaml:"project_id"`

	// Title is the section heading or slide title.
	Title string `json:"title" yaml:"title"`

	// Order is the 1-based position of the section within its project.
	Order int `json:"order" yaml:"order"`

	// Content is the generated or refined text. Empty until generation.
	Content string `json:"content" yaml:"content"`

	// RefinementHistory lists refinements in the order they were applied.
	RefinementHistory []RefinementEntry `json:"refinement_history" yaml:"refinement_history,omitempty"`
}

// HasContent reports whether the section carries generated text.
func (s Section) HasContent() bool {
	return strings.TrimSpace(s.Content) != ""
}

// Project is a document or slide deck made of ordered sections.
type Project struct {
	ID        int64       `json:"id" yaml:"id"`
	Title     string      `json:"title" yaml:"title"`
	Type      ProjectType `json:"type" yaml:"type"`
	Topic     string      `json:"topic" yaml:"topic"`
	Sections  []Section   `json:"sections" yaml:"sections"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
}

// HasContent reports whether at least one section has generated content.
func (p *Project) HasContent() bool {
	if p == nil {
		return false
	}
	for _, s := range p.Sections {
		if s.HasContent() {
			return true
		}
	}
	return false
}

// Section returns the section with the given id.
func (p *Project) Section(id int64) (Section, bool) {
	if p == nil {
		return Section{}, false
	}
	for _, s := range p.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	if p.Sections != nil {
		c.Sections = make([]Section, len(p.Sections))
		for i, s := range p.Sections {
			c.Sections[i] = s
			if s.RefinementHistory != nil {
				c.Sections[i].RefinementHistory = append([]RefinementEntry(nil), s.RefinementHistory...)
			}
		}
	}
	return &c
}

// SectionDraft is a section as authored before the project is persisted.
type SectionDraft struct {
	Title string `json:"title" yaml:"title"`
	Order int    `json:"order" yaml:"order"`
}

// ProjectDraft is the full create request sent to the project service.
type ProjectDraft struct {
	Title    string         `json:"title" yaml:"title"`
	Type     ProjectType    `json:"type" yaml:"type"`
	Topic    string         `json:"topic" yaml:"topic"`
	Sections []SectionDraft `json:"sections" yaml:"sections"`
}

// Clone returns a copy of the draft that shares no slices with d.
func (d ProjectDraft) Clone() ProjectDraft {
	c := d
	c.Sections = append([]SectionDraft(nil), d.Sections...)
	return c
}

// Artifact is an exported binary document ready to be written to disk.
type Artifact struct {
	// Filename is "<title>.<docx|pptx>".
	Filename string `json:"filename" yaml:"filename"`

	// MediaType is the artifact's MIME type.
	MediaType string `json:"media_type" yaml:"media_type"`

	// Data holds the complete artifact bytes.
	Data []byte `json:"-" yaml:"-"`
}

// ArtifactFilename returns "<title>.<ext>" with characters that are unsafe
// in file names replaced.
func ArtifactFilename(title string, t ProjectType) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(title))
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "project"
	}
	return name + "." + t.Extension()
}
