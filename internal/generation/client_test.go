// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/internal/store"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// fakeService is an in-memory generation and project service. When gate is
// non-nil every generation call waits for a value on it.
type fakeService struct {
	mu          sync.Mutex
	project     *types.Project
	generateErr error
	refineErr   error
	gate        chan struct{}
	entered     chan string
	calls       int
}

func newFakeService(titles ...string) *fakeService {
	p := &types.Project{ID: 1, Title: "Q3 Review", Type: types.TypeDocx, Topic: "quarterly sales"}
	for i, t := range titles {
		p.Sections = append(p.Sections, types.Section{ID: int64(10 + i), ProjectID: 1, Title: t, Order: i + 1})
	}
	return &fakeService{project: p, entered: make(chan string, 16)}
}

func (f *fakeService) wait(name string) {
	f.entered <- name
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeService) GenerateAll(_ context.Context, _ *session.Session, projectID int64) error {
	f.wait("generate")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.generateErr != nil {
		return f.generateErr
	}
	for i := range f.project.Sections {
		f.project.Sections[i].Content = "content for " + f.project.Sections[i].Title
	}
	return nil
}

func (f *fakeService) Refine(_ context.Context, _ *session.Session, sectionID int64, instruction string) (string, error) {
	f.wait(fmt.Sprintf("refine %d", sectionID))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.refineErr != nil {
		return "", f.refineErr
	}
	for i := range f.project.Sections {
		s := &f.project.Sections[i]
		if s.ID == sectionID {
			refined := s.Content + " (" + instruction + ")"
			s.RefinementHistory = append(s.RefinementHistory, types.RefinementEntry{Original: s.Content, Instruction: instruction, Refined: refined})
			s.Content = refined
			return refined, nil
		}
	}
	return "", apperr.New(apperr.KindGeneration, "section not found")
}

func (f *fakeService) GetProject(_ context.Context, _ *session.Session, id int64) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.project.ID {
		return nil, apperr.New(apperr.KindNotFound, "project not found")
	}
	return f.project.Clone(), nil
}

func (f *fakeService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setup(t *testing.T, svc *fakeService) (*Client, *store.Store, *session.Session) {
	t.Helper()
	sess, err := session.New("tok", "")
	require.NoError(t, err)
	st := store.New(svc)
	_, err = st.Load(context.Background(), sess, 1)
	require.NoError(t, err)
	return New(svc, st), st, sess
}

func TestGenerateAllRefreshesStore(t *testing.T) {
	svc := newFakeService("Intro", "Numbers")
	c, st, sess := setup(t, svc)

	require.NoError(t, c.GenerateAll(context.Background(), sess, 1))

	server, _ := svc.GetProject(context.Background(), sess, 1)
	assert.Equal(t, server, st.Snapshot())
	assert.True(t, st.HasContent())
	assert.Equal(t, types.RequestSucceeded, c.State(ProjectScope(1)).Status)
	assert.False(t, c.ProjectBusy(1))
}

func TestGenerateAllFailureLeavesStoreUntouched(t *testing.T) {
	svc := newFakeService("Intro")
	svc.generateErr = errors.New("upstream model timeout")
	c, st, sess := setup(t, svc)
	before := st.Snapshot()

	err := c.GenerateAll(context.Background(), sess, 1)
	assert.ErrorIs(t, err, apperr.ErrGeneration)
	assert.Equal(t, before, st.Snapshot())

	state := c.State(ProjectScope(1))
	assert.Equal(t, types.RequestFailed, state.Status)
	assert.Error(t, state.Err)
	assert.False(t, c.Generating(1))
	assert.Equal(t, 1, svc.callCount())
}

func TestSecondGenerateAllIsRejectedWhilePending(t *testing.T) {
	svc := newFakeService("Intro")
	svc.gate = make(chan struct{})
	c, _, sess := setup(t, svc)

	done := make(chan error)
	go func() { done <- c.GenerateAll(context.Background(), sess, 1) }()
	<-svc.entered

	assert.True(t, c.Generating(1))
	assert.Equal(t, types.RequestPending, c.State(ProjectScope(1)).Status)
	err := c.GenerateAll(context.Background(), sess, 1)
	assert.ErrorIs(t, err, apperr.ErrBusy)

	_, err = c.Refine(context.Background(), sess, 1, 10, "shorter")
	assert.ErrorIs(t, err, apperr.ErrBusy)

	svc.gate <- struct{}{}
	require.NoError(t, <-done)
	assert.Equal(t, 1, svc.callCount())
}

func TestRefineEmptyInstruction(t *testing.T) {
	svc := newFakeService("Intro")
	c, st, sess := setup(t, svc)
	before := st.Snapshot()

	for _, instr := range []string{"", "   \n\t"} {
		_, err := c.Refine(context.Background(), sess, 1, 10, instr)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
	assert.Equal(t, 0, svc.callCount())
	assert.Equal(t, before, st.Snapshot())
	assert.Equal(t, types.RequestIdle, c.State(SectionScope(10)).Status)
}

func TestRefineSameSectionRejectedOtherSectionAllowed(t *testing.T) {
	svc := newFakeService("Intro", "Numbers")
	svc.gate = make(chan struct{})
	c, _, sess := setup(t, svc)
	ctx := context.Background()

	first := make(chan error)
	go func() {
		_, err := c.Refine(ctx, sess, 1, 10, "shorter")
		first <- err
	}()
	assert.Equal(t, "refine 10", <-svc.entered)
	assert.True(t, c.SectionBusy(10))
	assert.False(t, c.SectionBusy(11))

	_, err := c.Refine(ctx, sess, 1, 10, "longer")
	assert.ErrorIs(t, err, apperr.ErrBusy)
	assert.ErrorIs(t, c.GenerateAll(ctx, sess, 1), apperr.ErrBusy)

	second := make(chan error)
	go func() {
		_, err := c.Refine(ctx, sess, 1, 11, "add a chart")
		second <- err
	}()
	assert.Equal(t, "refine 11", <-svc.entered)

	svc.gate <- struct{}{}
	svc.gate <- struct{}{}
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.False(t, c.ProjectBusy(1))
	assert.Equal(t, 2, svc.callCount())
}

func TestRefineAppliesAndRefreshes(t *testing.T) {
	svc := newFakeService("Intro")
	c, st, sess := setup(t, svc)
	ctx := context.Background()
	require.NoError(t, c.GenerateAll(ctx, sess, 1))

	refined, err := c.Refine(ctx, sess, 1, 10, "  make it shorter ")
	require.NoError(t, err)
	assert.Equal(t, "content for Intro (make it shorter)", refined)

	sec, ok := st.Snapshot().Section(10)
	require.True(t, ok)
	assert.Equal(t, refined, sec.Content)
	require.Len(t, sec.RefinementHistory, 1)
	assert.Equal(t, "make it shorter", sec.RefinementHistory[0].Instruction)
	assert.Equal(t, types.RequestSucceeded, c.State(SectionScope(10)).Status)
}

func TestRefineFailureIsGenerationError(t *testing.T) {
	svc := newFakeService("Intro")
	svc.refineErr = errors.New("model refused")
	c, st, sess := setup(t, svc)
	before := st.Snapshot()

	_, err := c.Refine(context.Background(), sess, 1, 10, "shorter")
	assert.ErrorIs(t, err, apperr.ErrGeneration)
	assert.Equal(t, before, st.Snapshot())
	assert.False(t, c.SectionBusy(10))
	assert.Equal(t, types.RequestFailed, c.State(SectionScope(10)).Status)
}

func TestRequestsNeedSession(t *testing.T) {
	svc := newFakeService("Intro")
	c, _, _ := setup(t, svc)

	assert.ErrorIs(t, c.GenerateAll(context.Background(), nil, 1), apperr.ErrUnauthorized)
	_, err := c.Refine(context.Background(), nil, 1, 10, "x")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, 0, svc.callCount())
}

func TestUnauthorizedBackendErrorKeepsKind(t *testing.T) {
	svc := newFakeService("Intro")
	svc.generateErr = apperr.New(apperr.KindUnauthorized, "token expired")
	c, _, sess := setup(t, svc)

	err := c.GenerateAll(context.Background(), sess, 1)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.NotErrorIs(t, err, apperr.ErrGeneration)
}
