package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader returns a consistently styled header with an optional muted subtitle.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	subtitle = truncateEnd(subtitle, width-2)
	rows := []string{HeaderStyle.Render(title)}
	if subtitle != "" {
		rows = append(rows, renderMuted(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderInputFrame draws a rounded bordered container around a rendered input view.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth + 4).
		Render(inputView)
}

func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}

// renderPageBar draws the page window. Gaps between non-adjacent pages get
// an ellipsis. Pages are shown one-based.
func renderPageBar(window []int, current, totalPages int) string {
	if totalPages == 0 || len(window) == 0 {
		return renderMuted("no pages")
	}

	var parts []string
	if current > 0 {
		parts = append(parts, PageStyle.Render("‹"))
	}
	for i, p := range window {
		if i > 0 && p-window[i-1] > 1 {
			parts = append(parts, renderMuted("…"))
		}
		label := itoa(p + 1)
		if p == current {
			parts = append(parts, CurrentPageStyle.Render(label))
		} else {
			parts = append(parts, PageStyle.Render(label))
		}
	}
	if current < totalPages-1 {
		parts = append(parts, PageStyle.Render("›"))
	}
	return strings.Join(parts, "")
}
