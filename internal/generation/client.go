// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generation issues bulk generation and per-section refinement
// requests, tracks which of them are in flight, and refreshes the project
// store after each one completes.
//
// Rules enforced before any request is sent:
//   - at most one generate-all per project;
//   - no refinement of a project while its generate-all is pending, and
//     no generate-all while any of its refinements is pending;
//   - at most one refinement per section. Different sections may be
//     refined at the same time.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/pkg/logger"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// Backend is the generation service.
type Backend interface {
	GenerateAll(ctx context.Context, sess *session.Session, projectID int64) error
	Refine(ctx context.Context, sess *session.Session, sectionID int64, instruction string) (string, error)
}

// Refresher reloads a project after the service changed it.
type Refresher interface {
	RefreshProject(ctx context.Context, sess *session.Session, projectID int64) error
}

// ScopeKind says whether a Scope names a project or a section.
type ScopeKind string

const (
	ScopeProject ScopeKind = "project"
	ScopeSection ScopeKind = "section"
)

// Scope identifies what a request acts on.
type Scope struct {
	Kind ScopeKind
	ID   int64
}

func ProjectScope(id int64) Scope { return Scope{Kind: ScopeProject, ID: id} }
func SectionScope(id int64) Scope { return Scope{Kind: ScopeSection, ID: id} }

// Client is safe for concurrent use.
type Client struct {
	backend   Backend
	refresher Refresher

	// Now is the clock used for request timestamps.
	Now func() time.Time

	mu         sync.Mutex
	generating map[int64]bool  // project id
	refining   map[int64]int64 // section id -> project id
	refineSets map[int64]int   // project id -> pending refinements
	states     map[Scope]types.RequestState
}

// New returns a client sending requests to backend and refreshing through
// refresher.
func New(backend Backend, refresher Refresher) *Client {
	return &Client{
		backend:    backend,
		refresher:  refresher,
		Now:        time.Now,
		generating: make(map[int64]bool),
		refining:   make(map[int64]int64),
		refineSets: make(map[int64]int),
		states:     make(map[Scope]types.RequestState),
	}
}

// GenerateAll asks the service to write every section of projectID, then
// refreshes the project. The service call is not retried.
func (c *Client) GenerateAll(ctx context.Context, sess *session.Session, projectID int64) error {
	if err := session.Check(sess); err != nil {
		return err
	}

	scope := ProjectScope(projectID)
	c.mu.Lock()
	if c.generating[projectID] {
		c.mu.Unlock()
		return apperr.Newf(apperr.KindBusy, "generation of project %d is already running", projectID)
	}
	if n := c.refineSets[projectID]; n > 0 {
		c.mu.Unlock()
		return apperr.Newf(apperr.KindBusy, "project %d has %d refinement(s) in progress", projectID, n)
	}
	c.generating[projectID] = true
	c.start(scope)
	c.mu.Unlock()

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)
	logger.Info(ctx, "generating all sections")

	err := c.backend.GenerateAll(ctx, sess, projectID)
	if err != nil {
		err = asGenerationError(err, fmt.Sprintf("generating project %d", projectID))
	} else {
		err = c.refresh(ctx, sess, projectID)
	}

	c.mu.Lock()
	delete(c.generating, projectID)
	c.finish(scope, err)
	c.mu.Unlock()

	if err != nil {
		logger.Error(ctx, "generation failed", err)
	}
	return err
}

// Refine asks the service to rewrite sectionID following instruction, then
// refreshes the owning project. It returns the refined text reported by
// the service. An empty instruction is rejected without a request.
func (c *Client) Refine(ctx context.Context, sess *session.Session, projectID, sectionID int64, instruction string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", apperr.New(apperr.KindValidation, "refinement instruction is empty")
	}
	if err := session.Check(sess); err != nil {
		return "", err
	}

	scope := SectionScope(sectionID)
	c.mu.Lock()
	if c.generating[projectID] {
		c.mu.Unlock()
		return "", apperr.Newf(apperr.KindBusy, "generation of project %d is running", projectID)
	}
	if _, ok := c.refining[sectionID]; ok {
		c.mu.Unlock()
		return "", apperr.Newf(apperr.KindBusy, "section %d is already being refined", sectionID)
	}
	c.refining[sectionID] = projectID
	c.refineSets[projectID]++
	c.start(scope)
	c.mu.Unlock()

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)
	ctx = logger.WithContext(ctx, logger.SectionIDKey, sectionID)
	logger.Info(ctx, "refining section", "instruction", instruction)

	refined, err := c.backend.Refine(ctx, sess, sectionID, instruction)
	if err != nil {
		err = asGenerationError(err, fmt.Sprintf("refining section %d", sectionID))
	} else {
		err = c.refresh(ctx, sess, projectID)
	}

	c.mu.Lock()
	delete(c.refining, sectionID)
	if c.refineSets[projectID]--; c.refineSets[projectID] <= 0 {
		delete(c.refineSets, projectID)
	}
	c.finish(scope, err)
	c.mu.Unlock()

	if err != nil {
		logger.Error(ctx, "refinement failed", err)
		return "", err
	}
	return refined, nil
}

func (c *Client) refresh(ctx context.Context, sess *session.Session, projectID int64) error {
	if c.refresher == nil {
		return nil
	}
	if err := c.refresher.RefreshProject(ctx, sess, projectID); err != nil {
		return fmt.Errorf("refreshing project %d: %w", projectID, err)
	}
	return nil
}

// start and finish must be called with mu held.
func (c *Client) start(scope Scope) {
	c.states[scope] = types.RequestState{Status: types.RequestPending, StartedAt: c.Now()}
}

func (c *Client) finish(scope Scope, err error) {
	st := c.states[scope]
	st.FinishedAt = c.Now()
	st.Err = err
	st.Status = types.RequestSucceeded
	if err != nil {
		st.Status = types.RequestFailed
	}
	c.states[scope] = st
}

// State returns the state of the latest request for scope.
func (c *Client) State(scope Scope) types.RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[scope]; ok {
		return st
	}
	return types.RequestState{Status: types.RequestIdle}
}

// Generating reports whether a generate-all of projectID is pending.
func (c *Client) Generating(projectID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating[projectID]
}

// ProjectBusy reports whether any request touching projectID is pending.
func (c *Client) ProjectBusy(projectID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating[projectID] || c.refineSets[projectID] > 0
}

// SectionBusy reports whether a refinement of sectionID is pending.
func (c *Client) SectionBusy(sectionID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.refining[sectionID]
	return ok
}

// asGenerationError keeps session, busy and cancellation failures as they
// are and classifies everything else as a generation failure.
func asGenerationError(err error, msg string) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, apperr.ErrUnauthorized), errors.Is(err, apperr.ErrBusy), errors.Is(err, apperr.ErrGeneration):
		return err
	default:
		return apperr.Wrap(err, apperr.KindGeneration, msg)
	}
}
