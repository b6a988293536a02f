// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/internal/wizard"
	"github.com/pdiddy/doc-studio/pkg/types"
)

type fakeCreator struct {
	calls int
	got   types.ProjectDraft
	err   error
}

func (f *fakeCreator) CreateProject(_ context.Context, _ *session.Session, d types.ProjectDraft) (*types.Project, error) {
	f.calls++
	f.got = d
	if f.err != nil {
		return nil, f.err
	}
	p := &types.Project{ID: 7, Title: d.Title, Type: d.Type, Topic: d.Topic}
	for _, s := range d.Sections {
		p.Sections = append(p.Sections, types.Section{ID: int64(s.Order), ProjectID: 7, Title: s.Title, Order: s.Order})
	}
	return p, nil
}

func newModel(t *testing.T, creator wizard.Creator) *Model {
	t.Helper()
	sess, err := session.New("token", "ana@example.com")
	require.NoError(t, err)
	return New(context.Background(), sess, creator, types.ProjectDraft{})
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func typeText(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// send feeds msgs to m and returns the last command.
func send(m *Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

// runSubmit executes the submit command and delivers its result.
func runSubmit(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	res, ok := msg.(submittedMsg)
	require.True(t, ok, "got %T", msg)
	_, next := m.Update(res)
	return next
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestWizardFlowCreatesProject(t *testing.T) {
	creator := &fakeCreator{}
	m := newModel(t, creator)

	send(m,
		typeText("Q3 Review"),
		key(tea.KeyTab),
		typeText("quarterly sales"),
		key(tea.KeyTab),
		key(tea.KeySpace),
		key(tea.KeyEnter),
	)
	require.Equal(t, wizard.StepStructure, m.Wizard().Step())
	assert.Equal(t, types.TypePptx, m.Wizard().Draft().Type)
	require.Len(t, m.sections, 1)

	send(m,
		typeText("Intro"),
		key(tea.KeyEnter),
		typeText("Numbers"),
	)
	draft := m.Wizard().Draft()
	require.Len(t, draft.Sections, 2)
	assert.Equal(t, "Intro", draft.Sections[0].Title)
	assert.Equal(t, "Numbers", draft.Sections[1].Title)

	cmd := send(m, key(tea.KeyCtrlS))
	assert.True(t, m.submitting)
	assert.True(t, isQuit(runSubmit(t, m, cmd)))

	p, err := m.Result()
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, 1, creator.calls)
	assert.Equal(t, "Q3 Review", creator.got.Title)
	assert.Equal(t, types.TypePptx, creator.got.Type)
	assert.Equal(t, wizard.StepSubmitted, m.Wizard().Step())
}

func TestEnterWithoutBasicsStays(t *testing.T) {
	m := newModel(t, &fakeCreator{})

	send(m, typeText("Only a title"), key(tea.KeyEnter))

	assert.Equal(t, wizard.StepBasics, m.Wizard().Step())
	assert.Contains(t, m.errMsg, "title and topic are required")
	assert.Contains(t, m.View(), "title and topic are required")
}

func TestSubmitWithUntitledSectionIsRejectedLocally(t *testing.T) {
	creator := &fakeCreator{}
	m := newModel(t, creator)

	send(m, typeText("Q3 Review"), key(tea.KeyTab), typeText("sales"), key(tea.KeyEnter))
	cmd := send(m, key(tea.KeyCtrlS))

	assert.Nil(t, cmd)
	assert.False(t, m.submitting)
	assert.Contains(t, m.errMsg, "Section 1 has no title")
	assert.Zero(t, creator.calls)
}

func TestRemoveSectionRenumbers(t *testing.T) {
	m := newModel(t, &fakeCreator{})
	send(m, typeText("Deck"), key(tea.KeyTab), typeText("topic"), key(tea.KeyEnter))

	send(m,
		typeText("A"), key(tea.KeyEnter),
		typeText("B"), key(tea.KeyEnter),
		typeText("C"),
		key(tea.KeyUp),
		key(tea.KeyCtrlD),
	)

	draft := m.Wizard().Draft()
	require.Len(t, draft.Sections, 2)
	assert.Equal(t, "A", draft.Sections[0].Title)
	assert.Equal(t, "C", draft.Sections[1].Title)
	assert.Equal(t, 2, draft.Sections[1].Order)
	assert.Equal(t, 1, m.cursor)
	assert.Equal(t, "C", m.sections[1].Value())
}

func TestBackKeepsEverything(t *testing.T) {
	m := newModel(t, &fakeCreator{})
	send(m, typeText("Deck"), key(tea.KeyTab), typeText("topic"), key(tea.KeyEnter), typeText("Intro"))

	send(m, key(tea.KeyEsc))
	require.Equal(t, wizard.StepBasics, m.Wizard().Step())
	assert.Equal(t, "Deck", m.title.Value())

	send(m, key(tea.KeyEnter))
	require.Equal(t, wizard.StepStructure, m.Wizard().Step())
	require.Len(t, m.sections, 1)
	assert.Equal(t, "Intro", m.sections[0].Value())
}

func TestCreateFailureKeepsDraft(t *testing.T) {
	creator := &fakeCreator{err: errors.New("service down")}
	m := newModel(t, creator)
	send(m, typeText("Deck"), key(tea.KeyTab), typeText("topic"), key(tea.KeyEnter), typeText("Intro"))

	cmd := send(m, key(tea.KeyCtrlS))
	next := runSubmit(t, m, cmd)

	assert.Nil(t, next)
	assert.False(t, m.submitting)
	assert.Contains(t, m.errMsg, "service down")
	assert.Equal(t, wizard.StepStructure, m.Wizard().Step())
	assert.Equal(t, "Intro", m.Wizard().Draft().Sections[0].Title)

	p, err := m.Result()
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestKeysIgnoredWhileSubmitting(t *testing.T) {
	m := newModel(t, &fakeCreator{})
	send(m, typeText("Deck"), key(tea.KeyTab), typeText("topic"), key(tea.KeyEnter), typeText("Intro"))
	send(m, key(tea.KeyCtrlS))
	require.True(t, m.submitting)

	send(m, key(tea.KeyCtrlN), typeText("x"))

	assert.Len(t, m.Wizard().Draft().Sections, 1)
	assert.Equal(t, "Intro", m.Wizard().Draft().Sections[0].Title)
}

func TestCancel(t *testing.T) {
	m := newModel(t, &fakeCreator{})

	cmd := send(m, key(tea.KeyCtrlC))

	assert.True(t, isQuit(cmd))
	_, err := m.Result()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestViewShowsUnitLabel(t *testing.T) {
	m := newModel(t, &fakeCreator{})
	send(m, typeText("Deck"), key(tea.KeyTab), typeText("topic"), key(tea.KeyTab), key(tea.KeySpace), key(tea.KeyEnter))

	view := m.View()
	assert.Contains(t, view, "Slide 1")
	assert.Contains(t, view, "structure")
}
