package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette, Dracula-inspired.
var (
	ColorBg          = lipgloss.Color("#282A36")
	ColorBgSubtle    = lipgloss.Color("#363949")
	ColorBgHighlight = lipgloss.Color("#44475A")
	ColorText        = lipgloss.Color("#F8F8F2")
	ColorSubtext     = lipgloss.Color("#BFBFBF")
	ColorMuted       = lipgloss.Color("#6272A4")

	ColorPrimary = lipgloss.Color("#BD93F9")
	ColorInfo    = lipgloss.Color("#8BE9FD")
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorWarning = lipgloss.Color("#FFB86C")
	ColorDanger  = lipgloss.Color("#FF5555")

	// State background colors (for badges)
	ColorOpenBg   = lipgloss.Color("#1A3D2A")
	ColorMergedBg = lipgloss.Color("#2A2A3D")
	ColorClosedBg = lipgloss.Color("#3D1A1A")
)

var (
	ItemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	SelectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Background(ColorBgHighlight)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext).
			Background(ColorBgSubtle).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// RenderStateBadge returns a styled pull request state badge
func RenderStateBadge(state string) string {
	var fg, bg lipgloss.Color
	var label string

	switch state {
	case "open":
		fg, bg, label = ColorSuccess, ColorOpenBg, "OPEN"
	case "merged":
		fg, bg, label = ColorPrimary, ColorMergedBg, "MRGD"
	case "closed":
		fg, bg, label = ColorDanger, ColorClosedBg, "CLSD"
	default:
		fg, bg, label = ColorMuted, ColorBgSubtle, "????"
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Render(label)
}

// RenderActionBadge returns a styled queued action kind badge
func RenderActionBadge(kind string) string {
	var fg lipgloss.Color
	var label string

	switch kind {
	case "approve":
		fg, label = ColorSuccess, "APPROVE"
	case "requestChanges":
		fg, label = ColorWarning, "CHANGES"
	case "comment":
		fg, label = ColorInfo, "COMMENT"
	case "review":
		fg, label = ColorPrimary, "REVIEW "
	default:
		fg, label = ColorMuted, "???????"
	}

	return lipgloss.NewStyle().Foreground(fg).Bold(true).Render(label)
}

// RenderQueueStatus returns a styled pending/failed marker
func RenderQueueStatus(status, lastError string) string {
	if status == "failed" {
		return lipgloss.NewStyle().Foreground(ColorDanger).Render("✗ " + lastError)
	}
	return lipgloss.NewStyle().Foreground(ColorMuted).Render("· pending")
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}
