// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wizard implements the two-step project authoring flow: collect
// the basics (title, topic, type), then define the ordered sections, then
// submit the draft to the project service.
//
// A Wizard is used from one goroutine.
package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/outline"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// Step is the wizard's current state.
type Step int

const (
	StepBasics Step = iota
	StepStructure
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepBasics:
		return "basics"
	case StepStructure:
		return "structure"
	case StepSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Creator persists a draft. The api client satisfies it.
type Creator interface {
	CreateProject(ctx context.Context, sess *session.Session, draft types.ProjectDraft) (*types.Project, error)
}

// Wizard holds a project draft while it is being authored.
type Wizard struct {
	step    Step
	draft   types.ProjectDraft
	project *types.Project
}

// New returns a wizard collecting basics, with the type set to docx.
func New() *Wizard {
	return &Wizard{draft: types.ProjectDraft{Type: types.TypeDocx}}
}

// FromDraft returns a wizard collecting basics, prefilled with d.
func FromDraft(d types.ProjectDraft) *Wizard {
	w := &Wizard{draft: d.Clone()}
	if w.draft.Type == "" {
		w.draft.Type = types.TypeDocx
	}
	return w
}

// Step returns the current step.
func (w *Wizard) Step() Step { return w.step }

// Draft returns a copy of the draft.
func (w *Wizard) Draft() types.ProjectDraft { return w.draft.Clone() }

// Project returns the created project once the wizard is submitted.
func (w *Wizard) Project() *types.Project { return w.project }

func (w *Wizard) require(step Step) error {
	if w.step != step {
		return apperr.Newf(apperr.KindValidation, "not available in step %s", w.step)
	}
	return nil
}

func (w *Wizard) SetTitle(title string) error {
	if err := w.require(StepBasics); err != nil {
		return err
	}
	w.draft.Title = title
	return nil
}

func (w *Wizard) SetTopic(topic string) error {
	if err := w.require(StepBasics); err != nil {
		return err
	}
	w.draft.Topic = topic
	return nil
}

// SetType selects docx or pptx.
func (w *Wizard) SetType(t types.ProjectType) error {
	if err := w.require(StepBasics); err != nil {
		return err
	}
	if !t.Valid() {
		return apperr.Newf(apperr.KindValidation, "type %q must be docx or pptx", t)
	}
	w.draft.Type = t
	return nil
}

// ToggleType switches between docx and pptx.
func (w *Wizard) ToggleType() error {
	if w.draft.Type == types.TypePptx {
		return w.SetType(types.TypeDocx)
	}
	return w.SetType(types.TypePptx)
}

// CanAdvance reports whether Next would succeed.
func (w *Wizard) CanAdvance() bool {
	return w.step == StepBasics &&
		strings.TrimSpace(w.draft.Title) != "" &&
		strings.TrimSpace(w.draft.Topic) != ""
}

// Next moves from basics to structure. Title and topic must be non-empty.
// An empty structure is seeded with one untitled section.
func (w *Wizard) Next() error {
	if err := w.require(StepBasics); err != nil {
		return err
	}
	if !w.CanAdvance() {
		return apperr.New(apperr.KindValidation, "title and topic are required")
	}
	if len(w.draft.Sections) == 0 {
		w.draft.Sections = outline.AddSection(nil)
	}
	w.step = StepStructure
	return nil
}

// Back returns to basics keeping everything entered so far.
func (w *Wizard) Back() error {
	if err := w.require(StepStructure); err != nil {
		return err
	}
	w.step = StepBasics
	return nil
}

func (w *Wizard) AddSection() error {
	if err := w.require(StepStructure); err != nil {
		return err
	}
	w.draft.Sections = outline.AddSection(w.draft.Sections)
	return nil
}

// RemoveSection removes the section at index; out of range is a no-op.
func (w *Wizard) RemoveSection(index int) error {
	if err := w.require(StepStructure); err != nil {
		return err
	}
	w.draft.Sections = outline.RemoveSection(w.draft.Sections, index)
	return nil
}

func (w *Wizard) SetSectionTitle(index int, title string) error {
	if err := w.require(StepStructure); err != nil {
		return err
	}
	w.draft.Sections = outline.SetTitle(w.draft.Sections, index, title)
	return nil
}

// Validate checks the whole draft.
func (w *Wizard) Validate() error {
	return outline.ValidateDraft(w.draft)
}

// CanSubmit reports whether Submit would pass validation.
func (w *Wizard) CanSubmit() bool {
	return w.step == StepStructure && w.Validate() == nil
}

// Submit validates the draft and sends it to creator. Validation failures
// never reach creator. On failure the wizard stays in the structure step
// with the draft untouched; on success it holds the created project.
func (w *Wizard) Submit(ctx context.Context, sess *session.Session, creator Creator) (*types.Project, error) {
	if err := w.require(StepStructure); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := session.Check(sess); err != nil {
		return nil, err
	}

	draft := w.draft.Clone()
	for i := range draft.Sections {
		draft.Sections[i].Title = strings.TrimSpace(draft.Sections[i].Title)
	}
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Topic = strings.TrimSpace(draft.Topic)

	p, err := creator.CreateProject(ctx, sess, draft)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	w.project = p
	w.step = StepSubmitted
	return p, nil
}
