package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskclient/internal/keys"
	"github.com/nhle/taskclient/internal/theme"
	"github.com/nhle/taskclient/internal/ui/command"
)

// Model is the help overlay: key bindings, palette commands and where
// the client is connected.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	width   int
	height  int
	baseURL string
	account string
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	m := Model{keys: keys, help: h}
	m.SetSize(width, height)
	return m
}

// SetSession records the service and account shown at the bottom.
func (m *Model) SetSession(baseURL, account string) {
	m.baseURL = baseURL
	m.account = account
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	heading := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginTop(1)

	var commands strings.Builder
	for _, c := range command.Known {
		commands.WriteString(theme.HelpStyle.Render(":" + c.Usage))
		commands.WriteString("  " + c.Summary + "\n")
	}

	sections := []string{
		heading.UnsetMarginTop().Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		heading.Render("Commands"),
		strings.TrimRight(commands.String(), "\n"),
	}
	if m.baseURL != "" {
		sections = append(sections,
			heading.Render("Session"),
			"Service  "+m.baseURL,
			"Account  "+m.account,
		)
	}

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-8, 0)
}
