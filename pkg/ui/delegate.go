package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// PRDelegate renders one pull request per row.
type PRDelegate struct {
	// QueuedCounts maps "owner/repo#number" to the number of queued
	// actions, shown as a marker so pending work is visible in the list.
	QueuedCounts map[string]int
}

func (d PRDelegate) Height() int {
	return 1
}

func (d PRDelegate) Spacing() int {
	return 0
}

func (d PRDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d PRDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(PRItem)
	if !ok {
		return
	}

	var baseStyle lipgloss.Style
	if index == m.Index() {
		baseStyle = SelectedItemStyle
	} else {
		baseStyle = ItemStyle
	}

	ref := fmt.Sprintf("%s/%s#%d", i.PR.Owner, i.PR.Repo, i.PR.Number)
	refCol := lipgloss.NewStyle().Foreground(ColorMuted).Width(28).Render(runewidth.Truncate(ref, 27, "…"))

	state := RenderStateBadge(string(i.PR.State))

	queued := "   "
	if n := d.QueuedCounts[ref]; n > 0 {
		queued = lipgloss.NewStyle().Foreground(ColorWarning).Render(fmt.Sprintf("⇡%d ", n))
	}

	author := lipgloss.NewStyle().Foreground(ColorSubtext).Width(14).Render(runewidth.Truncate("@"+i.PR.Author, 13, "…"))

	// Fixed widths: ref(28) + state(4) + queued(3) + author(14) + gaps
	availableWidth := m.Width() - 28 - 4 - 3 - 14 - 8
	if availableWidth < 10 {
		availableWidth = 10
	}

	titleStyle := lipgloss.NewStyle().Foreground(ColorText).Width(availableWidth)
	if index == m.Index() {
		titleStyle = titleStyle.Foreground(ColorPrimary).Bold(true)
	}
	title := titleStyle.Render(runewidth.Truncate(i.PR.Title, availableWidth-1, "…"))

	row := lipgloss.JoinHorizontal(lipgloss.Left, refCol, " ", state, " ", queued, title, author)
	fmt.Fprint(w, baseStyle.Render(row))
}
