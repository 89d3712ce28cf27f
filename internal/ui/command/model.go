package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskclient/internal/theme"
)

// Name identifies a palette command.
type Name string

// Palette commands.
const (
	Refresh Name = "refresh"
	NewTask Name = "new"
	Search  Name = "search"
	Title   Name = "title"
	Filter  Name = "filter"
	Sort    Name = "sort"
	Logout  Name = "logout"
	Quit    Name = "quit"
)

// Spec documents one command for completion and help.
type Spec struct {
	Name    Name
	Usage   string
	Summary string
	NeedArg bool
}

// Known lists every command the palette accepts.
var Known = []Spec{
	{Name: Refresh, Usage: "refresh", Summary: "reload tasks from the service"},
	{Name: NewTask, Usage: "new", Summary: "create a task"},
	{Name: Search, Usage: "search <text>", Summary: "filter the list locally by title or description"},
	{Name: Title, Usage: "title <text>", Summary: "ask the service for titles containing text (empty clears)"},
	{Name: Filter, Usage: "filter all|in-progress|completed", Summary: "show one status", NeedArg: true},
	{Name: Sort, Usage: "sort none|deadline|priority", Summary: "order the list", NeedArg: true},
	{Name: Logout, Usage: "logout", Summary: "forget the saved session"},
	{Name: Quit, Usage: "quit", Summary: "exit"},
}

// CommandMsg is emitted when the user executes a valid command.
type CommandMsg struct {
	Name Name
	Arg  string
}

// ErrorMsg is emitted when the input is not a valid command.
type ErrorMsg struct {
	Err error
}

// Parse splits input into a command and its argument. The leading ":" is
// optional and command names may be abbreviated to any unique prefix.
func Parse(input string) (CommandMsg, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), ":")
	word, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	word = strings.ToLower(word)
	arg = strings.TrimSpace(arg)
	if word == "" {
		return CommandMsg{}, fmt.Errorf("empty command")
	}

	var matches []Spec
	for _, s := range Known {
		if string(s.Name) == word {
			matches = []Spec{s}
			break
		}
		if strings.HasPrefix(string(s.Name), word) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return CommandMsg{}, fmt.Errorf("unknown command %q", word)
	case 1:
	default:
		return CommandMsg{}, fmt.Errorf("ambiguous command %q", word)
	}

	spec := matches[0]
	if spec.NeedArg && arg == "" {
		return CommandMsg{}, fmt.Errorf("usage: %s", spec.Usage)
	}
	return CommandMsg{Name: spec.Name, Arg: arg}, nil
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	suggestions := make([]string, 0, len(Known))
	for _, s := range Known {
		suggestions = append(suggestions, string(s.Name))
	}
	ti.SetSuggestions(suggestions)
	ti.Focus()

	m := Model{input: ti}
	m.SetSize(width, height)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		raw := m.input.Value()
		m.input.Reset()
		if strings.TrimSpace(raw) == "" {
			return m, nil
		}
		parsed, err := Parse(raw)
		if err != nil {
			return m, func() tea.Msg { return ErrorMsg{Err: err} }
		}
		return m, func() tea.Msg { return parsed }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Command Palette")

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, m.input.View()))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-6, 0)
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
