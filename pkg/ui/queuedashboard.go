package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/kraitsura/lazyreview/pkg/model"
	"github.com/kraitsura/lazyreview/pkg/queue"
)

// QueueDashboardModel shows the pending/failed actions with their last
// errors and the outcome of the most recent replay pass.
type QueueDashboardModel struct {
	actions []model.QueuedAction
	cursor  int
	width   int
	height  int

	lastSummary *queue.Summary
}

// NewQueueDashboardModel creates an empty dashboard.
func NewQueueDashboardModel() QueueDashboardModel {
	return QueueDashboardModel{}
}

// SetActions replaces the displayed actions, clamping the cursor.
func (m *QueueDashboardModel) SetActions(actions []model.QueuedAction) {
	m.actions = actions
	if m.cursor >= len(actions) {
		m.cursor = len(actions) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// SetSummary records the latest replay pass outcome for display.
func (m *QueueDashboardModel) SetSummary(s queue.Summary) {
	m.lastSummary = &s
}

// SetSize sets dimensions
func (m *QueueDashboardModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Selected returns the action under the cursor, if any.
func (m QueueDashboardModel) Selected() (model.QueuedAction, bool) {
	if m.cursor < 0 || m.cursor >= len(m.actions) {
		return model.QueuedAction{}, false
	}
	return m.actions[m.cursor], true
}

// Update handles navigation input
func (m QueueDashboardModel) Update(msg tea.Msg) (QueueDashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.actions)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// View renders the dashboard
func (m QueueDashboardModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Offline Queue"))
	b.WriteString("\n")

	if m.lastSummary != nil {
		s := m.lastSummary
		line := fmt.Sprintf("last pass: %d replayed, %d failed, %d skipped", s.Succeeded, s.Failed, s.Skipped)
		style := lipgloss.NewStyle().Foreground(ColorSuccess)
		if s.Failed > 0 {
			style = lipgloss.NewStyle().Foreground(ColorWarning)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(RenderDivider(m.width - 2))
	b.WriteString("\n")

	if len(m.actions) == 0 {
		b.WriteString(HelpStyle.Render("Nothing queued. Review actions taken offline will appear here."))
		b.WriteString("\n")
		return b.String()
	}

	bodyWidth := m.width - 52
	if bodyWidth < 12 {
		bodyWidth = 12
	}

	for i, a := range m.actions {
		rowStyle := ItemStyle
		if i == m.cursor {
			rowStyle = SelectedItemStyle
		}

		kind := RenderActionBadge(string(a.Kind))
		target := lipgloss.NewStyle().Foreground(ColorSubtext).Width(26).
			Render(runewidth.Truncate(fmt.Sprintf("%s/%s#%d", a.Target.Owner, a.Target.Repo, a.Target.Number), 25, "…"))
		age := lipgloss.NewStyle().Foreground(ColorMuted).Width(5).Render(formatAge(a.EnqueuedAt))
		body := lipgloss.NewStyle().Foreground(ColorText).Width(bodyWidth).
			Render(runewidth.Truncate(a.Payload.Body, bodyWidth-1, "…"))

		b.WriteString(rowStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, kind, " ", target, age, body)))
		b.WriteString("\n")
		if a.Status == model.ActionFailed {
			b.WriteString(rowStyle.Render("  " + RenderQueueStatus(string(a.Status), runewidth.Truncate(a.LastError, m.width-8, "…"))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("f flush queue • x drop action • tab back to list"))
	return b.String()
}
