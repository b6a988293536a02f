// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tui is the interactive terminal front end of the authoring
// wizard. All state changes go through wizard.Wizard; this package only
// maps keys to wizard operations and renders the draft.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/internal/wizard"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// ErrCancelled is returned by Run when the user leaves without submitting.
var ErrCancelled = errors.New("wizard cancelled")

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6BCB77")).MarginBottom(1)
	stepActive  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	stepIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	labelStyle  = lipgloss.NewStyle().Width(8).Foreground(lipgloss.Color("#CCCCCC"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	errorStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1)
)

// basics fields, in focus order.
const (
	fieldTitle = iota
	fieldTopic
	fieldType
	fieldCount
)

// submittedMsg carries the outcome of a create request. wiz is the copy
// the request was submitted from.
type submittedMsg struct {
	wiz *wizard.Wizard
	err error
}

// Model drives a wizard.Wizard from keyboard input.
type Model struct {
	ctx     context.Context
	sess    *session.Session
	creator wizard.Creator
	wiz     *wizard.Wizard

	title    textinput.Model
	topic    textinput.Model
	sections []textinput.Model

	focus      int // basics field
	cursor     int // structure row
	submitting bool
	cancelled  bool
	errMsg     string
	width      int
}

// New returns a model for a wizard prefilled with draft.
func New(ctx context.Context, sess *session.Session, creator wizard.Creator, draft types.ProjectDraft) *Model {
	m := &Model{
		ctx:     ctx,
		sess:    sess,
		creator: creator,
		wiz:     wizard.FromDraft(draft),
	}
	m.title = newInput("Project title", draft.Title)
	m.topic = newInput("What is it about?", draft.Topic)
	m.title.Focus()
	return m
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Width = 48
	ti.SetValue(value)
	return ti
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Wizard returns the underlying wizard.
func (m *Model) Wizard() *wizard.Wizard { return m.wiz }

// Result returns the created project, ErrCancelled, or nil while the
// wizard is still open.
func (m *Model) Result() (*types.Project, error) {
	if m.cancelled {
		return nil, ErrCancelled
	}
	return m.wiz.Project(), nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case submittedMsg:
		m.submitting = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.wiz = msg.wiz
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
		if m.submitting {
			return m, nil
		}
		if m.wiz.Step() == wizard.StepStructure {
			return m.updateStructure(msg)
		}
		return m.updateBasics(msg)
	}
	return m, nil
}

func (m *Model) updateBasics(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.cancelled = true
		return m, tea.Quit
	case "tab", "down":
		return m, m.setFocus((m.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
	case "enter":
		if err := m.wiz.Next(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.syncSections()
		return m, m.setCursor(0)
	}

	if m.focus == fieldType {
		switch msg.String() {
		case " ", "left", "right", "h", "l":
			m.setErr(m.wiz.ToggleType())
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == fieldTitle {
		m.title, cmd = m.title.Update(msg)
		m.setErr(m.wiz.SetTitle(m.title.Value()))
	} else {
		m.topic, cmd = m.topic.Update(msg)
		m.setErr(m.wiz.SetTopic(m.topic.Value()))
	}
	return m, cmd
}

func (m *Model) updateStructure(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.setErr(m.wiz.Back())
		return m, m.setFocus(fieldTitle)
	case "up", "shift+tab":
		return m, m.setCursor(m.cursor - 1)
	case "down", "tab":
		return m, m.setCursor(m.cursor + 1)
	case "ctrl+n":
		m.setErr(m.wiz.AddSection())
		m.syncSections()
		return m, m.setCursor(len(m.sections) - 1)
	case "ctrl+d":
		m.setErr(m.wiz.RemoveSection(m.cursor))
		m.syncSections()
		return m, m.setCursor(m.cursor)
	case "enter":
		if m.cursor < len(m.sections)-1 {
			return m, m.setCursor(m.cursor + 1)
		}
		m.setErr(m.wiz.AddSection())
		m.syncSections()
		return m, m.setCursor(len(m.sections) - 1)
	case "ctrl+s":
		if err := m.wiz.Validate(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.submitting = true
		return m, m.submit()
	}

	if len(m.sections) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.sections[m.cursor], cmd = m.sections[m.cursor].Update(msg)
	m.setErr(m.wiz.SetSectionTitle(m.cursor, m.sections[m.cursor].Value()))
	return m, cmd
}

// submit creates the project from a copy of the wizard so that the
// model is only mutated from Update.
func (m *Model) submit() tea.Cmd {
	ctx, sess, creator := m.ctx, m.sess, m.creator
	wiz := wizard.FromDraft(m.wiz.Draft())
	return func() tea.Msg {
		if err := wiz.Next(); err != nil {
			return submittedMsg{err: err}
		}
		_, err := wiz.Submit(ctx, sess, creator)
		return submittedMsg{wiz: wiz, err: err}
	}
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.errMsg = err.Error()
	}
}

func (m *Model) setFocus(field int) tea.Cmd {
	m.focus = field
	m.title.Blur()
	m.topic.Blur()
	switch field {
	case fieldTitle:
		return m.title.Focus()
	case fieldTopic:
		return m.topic.Focus()
	}
	return nil
}

// syncSections rebuilds the section inputs from the wizard's draft.
func (m *Model) syncSections() {
	sections := m.wiz.Draft().Sections
	inputs := make([]textinput.Model, len(sections))
	for i, s := range sections {
		inputs[i] = newInput("Untitled", s.Title)
	}
	m.sections = inputs
}

func (m *Model) setCursor(i int) tea.Cmd {
	if len(m.sections) == 0 {
		m.cursor = 0
		return nil
	}
	if i < 0 {
		i = 0
	}
	if i >= len(m.sections) {
		i = len(m.sections) - 1
	}
	m.cursor = i
	for j := range m.sections {
		m.sections[j].Blur()
	}
	return m.sections[i].Focus()
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("NEW PROJECT"))
	b.WriteString("\n")
	b.WriteString(m.renderSteps())
	b.WriteString("\n\n")

	switch m.wiz.Step() {
	case wizard.StepBasics:
		b.WriteString(m.renderBasics())
	case wizard.StepStructure:
		b.WriteString(m.renderStructure())
	case wizard.StepSubmitted:
		if p := m.wiz.Project(); p != nil {
			fmt.Fprintf(&b, "Created project %d: %s\n", p.ID, p.Title)
		}
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m *Model) renderSteps() string {
	steps := []wizard.Step{wizard.StepBasics, wizard.StepStructure}
	parts := make([]string, len(steps))
	for i, s := range steps {
		if s == m.wiz.Step() {
			parts[i] = stepActive.Render(s.String())
		} else {
			parts[i] = stepIdle.Render(s.String())
		}
	}
	return strings.Join(parts, stepIdle.Render(" › "))
}

func (m *Model) renderBasics() string {
	draft := m.wiz.Draft()
	docx, pptx := "( ) docx", "( ) pptx"
	if draft.Type == types.TypePptx {
		pptx = "(•) pptx"
	} else {
		docx = "(•) docx"
	}

	rows := []string{
		m.marker(m.focus == fieldTitle) + labelStyle.Render("Title") + m.title.View(),
		m.marker(m.focus == fieldTopic) + labelStyle.Render("Topic") + m.topic.View(),
		m.marker(m.focus == fieldType) + labelStyle.Render("Type") + docx + "  " + pptx,
	}
	return strings.Join(rows, "\n") + "\n"
}

func (m *Model) renderStructure() string {
	draft := m.wiz.Draft()
	unit := draft.Type.UnitLabel()

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): %s\n\n", draft.Title, draft.Type, draft.Topic)
	for i := range m.sections {
		label := fmt.Sprintf("%s %d", unit, i+1)
		b.WriteString(m.marker(i == m.cursor))
		b.WriteString(lipgloss.NewStyle().Width(10).Render(label))
		b.WriteString(m.sections[i].View())
		b.WriteString("\n")
	}
	if m.submitting {
		b.WriteString("\nCreating project...\n")
	}
	return b.String()
}

func (m *Model) marker(active bool) string {
	if active {
		return cursorStyle.Render("> ")
	}
	return "  "
}

func (m *Model) help() string {
	if m.wiz.Step() == wizard.StepStructure {
		return "enter next/add • ctrl+n add • ctrl+d remove • ctrl+s create • esc back • ctrl+c quit"
	}
	return "tab move • space toggle type • enter continue • esc quit"
}

// Run shows the wizard on in/out until the user creates a project or quits.
func Run(ctx context.Context, sess *session.Session, creator wizard.Creator, draft types.ProjectDraft, in io.Reader, out io.Writer) (*types.Project, error) {
	m := New(ctx, sess, creator, draft)
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("running wizard: %w", err)
	}
	fm, ok := final.(*Model)
	if !ok {
		return nil, fmt.Errorf("unexpected wizard model %T", final)
	}
	p, err := fm.Result()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrCancelled
	}
	return p, nil
}
