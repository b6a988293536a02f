// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package editor is the entry point of the authoring workflow. An Editor
// owns one project store and wires it to the wizard, the generation client
// and the export gateway. Every operation takes the caller's session.
package editor

import (
	"context"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/export"
	"github.com/pdiddy/doc-studio/internal/generation"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/internal/store"
	"github.com/pdiddy/doc-studio/internal/wizard"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// Service is the set of collaborator services an Editor needs. The api
// client implements it.
type Service interface {
	wizard.Creator
	store.Fetcher
	generation.Backend
	export.Backend
}

// Editor is one editing session. Editors share nothing with each other.
type Editor struct {
	svc   Service
	store *store.Store
	gen   *generation.Client
	exp   *export.Gateway
}

// New returns an editor with no project open.
func New(svc Service) *Editor {
	st := store.New(svc)
	return &Editor{
		svc:   svc,
		store: st,
		gen:   generation.New(svc, st),
		exp:   export.New(svc),
	}
}

// CreateProject runs draft through the wizard, creates it, and opens it.
func (e *Editor) CreateProject(ctx context.Context, sess *session.Session, draft types.ProjectDraft) (*types.Project, error) {
	if err := session.Check(sess); err != nil {
		return nil, err
	}
	w := wizard.FromDraft(draft)
	if err := w.Next(); err != nil {
		return nil, err
	}
	return e.Submit(ctx, sess, w)
}

// Submit submits a wizard that is in the structure step and opens the
// created project.
func (e *Editor) Submit(ctx context.Context, sess *session.Session, w *wizard.Wizard) (*types.Project, error) {
	p, err := w.Submit(ctx, sess, e.svc)
	if err != nil {
		return nil, err
	}
	return e.OpenProject(ctx, sess, p.ID)
}

// OpenProject loads id into the store, replacing whatever was open.
func (e *Editor) OpenProject(ctx context.Context, sess *session.Session, id int64) (*types.Project, error) {
	if err := session.Check(sess); err != nil {
		return nil, err
	}
	return e.store.Load(ctx, sess, id)
}

// GenerateAll generates every section of the open project.
func (e *Editor) GenerateAll(ctx context.Context, sess *session.Session) error {
	if err := session.Check(sess); err != nil {
		return err
	}
	id, err := e.openID()
	if err != nil {
		return err
	}
	return e.gen.GenerateAll(ctx, sess, id)
}

// RefineSection rewrites one section of the open project.
func (e *Editor) RefineSection(ctx context.Context, sess *session.Session, sectionID int64, instruction string) (string, error) {
	if err := session.Check(sess); err != nil {
		return "", err
	}
	id, err := e.openID()
	if err != nil {
		return "", err
	}
	if _, ok := e.store.Snapshot().Section(sectionID); !ok {
		return "", apperr.Newf(apperr.KindNotFound, "section %d is not part of project %d", sectionID, id)
	}
	return e.gen.Refine(ctx, sess, id, sectionID, instruction)
}

// ExportProject exports the open project as it is in the store.
func (e *Editor) ExportProject(ctx context.Context, sess *session.Session) (*types.Artifact, error) {
	if err := session.Check(sess); err != nil {
		return nil, err
	}
	return e.exp.Export(ctx, sess, e.store.Snapshot())
}

// Refresh refetches the open project.
func (e *Editor) Refresh(ctx context.Context, sess *session.Session) error {
	if err := session.Check(sess); err != nil {
		return err
	}
	return e.store.Refresh(ctx, sess)
}

// Snapshot returns a copy of the open project, or nil.
func (e *Editor) Snapshot() *types.Project { return e.store.Snapshot() }

// HasContent reports whether the open project has any generated content.
func (e *Editor) HasContent() bool { return e.store.HasContent() }

// Busy reports whether a generation or refinement of the open project is
// pending.
func (e *Editor) Busy() bool {
	id, ok := e.store.ProjectID()
	return ok && e.gen.ProjectBusy(id)
}

// Generating reports whether a generate-all of the open project is pending.
func (e *Editor) Generating() bool {
	id, ok := e.store.ProjectID()
	return ok && e.gen.Generating(id)
}

// SectionBusy reports whether sectionID is being refined.
func (e *Editor) SectionBusy(sectionID int64) bool { return e.gen.SectionBusy(sectionID) }

// State returns the latest request state for scope.
func (e *Editor) State(scope generation.Scope) types.RequestState { return e.gen.State(scope) }

// Close forgets the open project; responses still in flight are dropped.
func (e *Editor) Close() { e.store.Close() }

func (e *Editor) openID() (int64, error) {
	id, ok := e.store.ProjectID()
	if !ok {
		return 0, apperr.New(apperr.KindValidation, "no project is open")
	}
	return id, nil
}
