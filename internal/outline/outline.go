// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outline implements the structural operations on a project's
// ordered sections and loads outlines from YAML files.
//
// Every operation that changes the structure leaves the sections numbered
// 1..n in slice order.
package outline

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// AddSection appends an untitled section numbered len(sections)+1.
func AddSection(sections []types.SectionDraft) []types.SectionDraft {
	return append(sections, types.SectionDraft{Order: len(sections) + 1})
}

// RemoveSection removes the section at index and renumbers the rest.
// An out-of-range index leaves the sections unchanged.
func RemoveSection(sections []types.SectionDraft, index int) []types.SectionDraft {
	if index < 0 || index >= len(sections) {
		return sections
	}
	out := make([]types.SectionDraft, 0, len(sections)-1)
	out = append(out, sections[:index]...)
	out = append(out, sections[index+1:]...)
	return Renumber(out)
}

// SetTitle replaces the title of the section at index. An out-of-range
// index leaves the sections unchanged.
func SetTitle(sections []types.SectionDraft, index int, title string) []types.SectionDraft {
	if index < 0 || index >= len(sections) {
		return sections
	}
	sections[index].Title = title
	return sections
}

// Renumber sets each section's order to its 1-based position.
func Renumber(sections []types.SectionDraft) []types.SectionDraft {
	for i := range sections {
		sections[i].Order = i + 1
	}
	return sections
}

// IsContiguous reports whether the orders are exactly 1..n in slice order.
func IsContiguous(sections []types.SectionDraft) bool {
	for i, s := range sections {
		if s.Order != i+1 {
			return false
		}
	}
	return true
}

// FromTitles builds a numbered section list from titles.
func FromTitles(titles []string) []types.SectionDraft {
	sections := make([]types.SectionDraft, len(titles))
	for i, t := range titles {
		sections[i] = types.SectionDraft{Title: strings.TrimSpace(t), Order: i + 1}
	}
	return sections
}

// File is the on-disk outline format:
//
//	title: Q3 Review
//	type: docx
//	topic: quarterly sales
//	sections:
//	  - Intro
//	  - Numbers
type File struct {
	Title    string   `yaml:"title"`
	Type     string   `yaml:"type"`
	Topic    string   `yaml:"topic"`
	Sections []string `yaml:"sections"`
}

// LoadOutline reads an outline file and returns it as a project draft.
// A missing type defaults to docx. The draft is not validated here; the
// wizard gates it before anything is sent.
func LoadOutline(path string) (types.ProjectDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ProjectDraft{}, fmt.Errorf("reading outline: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return types.ProjectDraft{}, fmt.Errorf("parsing outline: %w", err)
	}

	pt := types.ProjectType(strings.ToLower(strings.TrimSpace(f.Type)))
	if pt == "" {
		pt = types.TypeDocx
	}

	return types.ProjectDraft{
		Title:    strings.TrimSpace(f.Title),
		Type:     pt,
		Topic:    strings.TrimSpace(f.Topic),
		Sections: FromTitles(f.Sections),
	}, nil
}

// ValidateDraft checks everything a project needs before it is created:
// a title, a topic, a supported type, at least one section, a title on
// every section and contiguous orders. All problems are reported together.
func ValidateDraft(d types.ProjectDraft) error {
	var problems []string
	if strings.TrimSpace(d.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(d.Topic) == "" {
		problems = append(problems, "topic is required")
	}
	if !d.Type.Valid() {
		problems = append(problems, fmt.Sprintf("type %q must be docx or pptx", d.Type))
	}
	if len(d.Sections) == 0 {
		problems = append(problems, "at least one section is required")
	}
	for i, s := range d.Sections {
		if strings.TrimSpace(s.Title) == "" {
			problems = append(problems, fmt.Sprintf("%s %d has no title", d.Type.UnitLabel(), i+1))
		}
	}
	if !IsContiguous(d.Sections) {
		problems = append(problems, "section orders must be 1..n")
	}
	if len(problems) > 0 {
		return apperr.New(apperr.KindValidation, strings.Join(problems, "; "))
	}
	return nil
}
