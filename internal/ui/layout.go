package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskclient/internal/theme"
)

// Layout splits the terminal into a header line, the content area, a
// message line and a status bar.
type Layout struct {
	Width  int
	Height int
}

// chromeHeight is header + message line + status bar.
const chromeHeight = 3

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentHeight returns the rows left for the main view, never negative.
func (l Layout) ContentHeight() int {
	return max(l.Height-chromeHeight, 0)
}

// RenderHeader renders the title on the left and the session state on
// the right, filling the gap with the header background.
func (l Layout) RenderHeader(title, state string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(state)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, l.fill(theme.HeaderStyle, left, right), right)
}

// RenderMessage renders the line under the content: an error takes
// precedence over a notice.
func (l Layout) RenderMessage(errText, notice string) string {
	style := lipgloss.NewStyle().Width(l.Width).MaxHeight(1)
	switch {
	case errText != "":
		return style.Inherit(theme.ErrorStyle).Render(errText)
	case notice != "":
		return style.Inherit(theme.NoticeStyle).Render(notice)
	default:
		return style.Render("")
	}
}

// RenderStatusBar renders keyboard hints across the full width.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, l.fill(theme.StatusBarStyle, rendered))
}

// RenderWithFrame stacks header, content, message line and status bar.
// The content is padded or cut to ContentHeight.
func (l Layout) RenderWithFrame(header, content, message, statusBar string) string {
	body := lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, message, statusBar)
}

// fill renders blank space in style's background wide enough to pad the
// given parts to the full width.
func (l Layout) fill(style lipgloss.Style, parts ...string) string {
	gap := l.Width
	for _, p := range parts {
		gap -= lipgloss.Width(p)
	}
	if gap <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
}
