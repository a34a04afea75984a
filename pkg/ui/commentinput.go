package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// CommentInputModel provides a modal for entering a comment or review body
// before it is queued.
type CommentInputModel struct {
	textarea textarea.Model
	kind     model.ActionKind
	target   model.Target
	width    int

	submitted bool
	cancelled bool
	body      string
}

// NewCommentInputModel creates a new input modal for the given action kind.
func NewCommentInputModel(kind model.ActionKind, target model.Target) CommentInputModel {
	ta := textarea.New()
	ta.Placeholder = "Write your feedback..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(60)
	ta.SetHeight(6)

	return CommentInputModel{
		textarea: ta,
		kind:     kind,
		target:   target,
	}
}

// Init implements tea.Model
func (m CommentInputModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model
func (m CommentInputModel) Update(msg tea.Msg) (CommentInputModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.cancelled = true
			return m, nil
		case "ctrl+s", "ctrl+j":
			// ctrl+j for terminals that can't report ctrl+enter
			m.submitted = true
			m.body = m.textarea.Value()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}

	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// Submitted returns the entered body once the user confirms.
func (m CommentInputModel) Submitted() (string, bool) {
	return m.body, m.submitted
}

// Cancelled returns true if the user dismissed the modal.
func (m CommentInputModel) Cancelled() bool {
	return m.cancelled
}

func (m CommentInputModel) title() string {
	switch m.kind {
	case model.ActionApprove:
		return "Approve"
	case model.ActionRequestChanges:
		return "Request Changes"
	default:
		return "Comment"
	}
}

// View implements tea.Model
func (m CommentInputModel) View() string {
	var b strings.Builder

	width := 64
	if m.width > 0 && m.width < 74 {
		width = m.width - 10
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		Width(width).
		Align(lipgloss.Center)
	b.WriteString(titleStyle.Render(m.title() + " " + m.target.String()))
	b.WriteString("\n\n")
	b.WriteString(m.textarea.View())
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render("ctrl+s queue • esc cancel"))

	return PanelStyle.Width(width).Render(b.String())
}
