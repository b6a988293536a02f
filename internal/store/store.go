// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store holds the single authoritative copy of the project open in
// an editing session. Local state is only ever replaced wholesale by a
// fetch from the project service.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/pkg/logger"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// Fetcher reads a full project from the project service.
type Fetcher interface {
	GetProject(ctx context.Context, sess *session.Session, id int64) (*types.Project, error)
}

// ErrSuperseded is returned by Load when a later Load or a Close started
// before its fetch completed. Local state is not touched.
var ErrSuperseded = errors.New("load superseded")

// Store is safe for concurrent use. Fetches run without the lock held.
type Store struct {
	fetcher Fetcher

	mu      sync.Mutex
	id      int64
	open    bool
	project *types.Project
	// epoch advances when a Load is applied and on Close. A refresh that
	// started in an older epoch is discarded.
	epoch uint64
	// loads advances when a Load starts and on Close.
	loads uint64
}

// New returns an empty store reading from fetcher.
func New(fetcher Fetcher) *Store {
	return &Store{fetcher: fetcher}
}

// Load fetches project id and replaces local state with it. When loads
// overlap the most recently started one wins and the others return
// ErrSuperseded. On failure the previous project stays open and its
// refreshes in flight still apply.
func (s *Store) Load(ctx context.Context, sess *session.Session, id int64) (*types.Project, error) {
	s.mu.Lock()
	s.loads++
	start := s.loads
	s.mu.Unlock()

	p, err := s.fetcher.GetProject(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loads != start {
		logger.Debug(ctx, "discarding superseded load", "project_id", id)
		return nil, fmt.Errorf("opening project %d: %w", id, ErrSuperseded)
	}
	s.epoch++
	s.id = id
	s.open = true
	s.project = p
	return p.Clone(), nil
}

// Refresh refetches the open project. A response that arrives after the
// store moved to another project (or was closed) is discarded; overlapping
// refreshes of the same project are applied in completion order.
func (s *Store) Refresh(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return apperr.New(apperr.KindValidation, "no project is open")
	}
	id, epoch := s.id, s.epoch
	s.mu.Unlock()

	return s.refresh(ctx, sess, id, epoch)
}

// RefreshProject refetches id if it is still the open project.
func (s *Store) RefreshProject(ctx context.Context, sess *session.Session, id int64) error {
	s.mu.Lock()
	if !s.open || s.id != id {
		s.mu.Unlock()
		logger.Debug(ctx, "skipping refresh of project no longer open", "project_id", id)
		return nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	return s.refresh(ctx, sess, id, epoch)
}

func (s *Store) refresh(ctx context.Context, sess *session.Session, id int64, epoch uint64) error {
	p, err := s.fetcher.GetProject(ctx, sess, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		logger.Debug(ctx, "discarding stale refresh", "project_id", id)
		return nil
	}
	s.project = p
	return nil
}

// Close forgets the open project. Fetches still in flight are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.loads++
	s.id = 0
	s.open = false
	s.project = nil
}

// Snapshot returns a deep copy of the open project, or nil.
func (s *Store) Snapshot() *types.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Clone()
}

// ProjectID returns the open project's id and whether one is open.
func (s *Store) ProjectID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.open
}

// HasContent reports whether any section of the open project has content.
func (s *Store) HasContent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.HasContent()
}
