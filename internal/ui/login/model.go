package login

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskclient/internal/theme"
)

// Mode selects between signing in and creating an account.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// LoginMsg is dispatched when the sign-in form is submitted.
type LoginMsg struct {
	Email    string
	Password string
}

// RegisterMsg is dispatched when the registration form is submitted.
type RegisterMsg struct {
	Name     string
	Email    string
	Password string
}

// QuitMsg is dispatched when the user aborts the form.
type QuitMsg struct{}

var errInvalidEmail = errors.New("enter a valid email address")

var switchKey = key.NewBinding(
	key.WithKeys("ctrl+r"),
	key.WithHelp("ctrl+r", "switch sign in / register"),
)

// formBindings keeps field values stable across model copies.
type formBindings struct {
	name     string
	email    string
	password string
}

// Model is the sign-in and registration screen.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	mode    Mode
	busy    bool
	errText string
	notice  string
	width   int
	height  int
}

// New creates the form in sign-in mode.
func New(width, height int) Model {
	m := Model{fb: &formBindings{}, width: width, height: height}
	m.form = m.buildForm()
	return m
}

// Init returns the form's initial command.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Mode returns the current mode.
func (m Model) Mode() Mode { return m.mode }

// Busy reports whether a submission is outstanding.
func (m Model) Busy() bool { return m.busy }

// Reset shows the form in the given mode with the password cleared. The
// email is kept so a freshly registered user only types the password.
func (m *Model) Reset(mode Mode, notice string) tea.Cmd {
	m.mode = mode
	m.busy = false
	m.errText = ""
	m.notice = notice
	m.fb.password = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Fail reopens the form after a rejected submission.
func (m *Model) Fail(text string) tea.Cmd {
	m.busy = false
	m.errText = text
	m.notice = ""
	m.fb.password = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form. Input is ignored while busy.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, switchKey) {
		next := ModeRegister
		if m.mode == ModeRegister {
			next = ModeLogin
		}
		cmd := m.Reset(next, "")
		return m, cmd
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.busy = true
		out := m.submission()
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		return m, func() tea.Msg { return QuitMsg{} }
	}
	return m, cmd
}

func (m Model) submission() tea.Msg {
	email := strings.TrimSpace(m.fb.email)
	if m.mode == ModeRegister {
		return RegisterMsg{Name: strings.TrimSpace(m.fb.name), Email: email, Password: m.fb.password}
	}
	return LoginMsg{Email: email, Password: m.fb.password}
}

// View renders the form.
func (m Model) View() string {
	title := "Sign in"
	if m.mode == ModeRegister {
		title = "Create an account"
	}

	parts := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1).Render(title),
	}
	if m.notice != "" {
		parts = append(parts, theme.NoticeStyle.Render(m.notice))
	}
	if m.errText != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errText))
	}
	if m.busy {
		parts = append(parts, theme.HelpStyle.Render("Contacting server…"))
	} else {
		parts = append(parts, m.form.View())
	}
	parts = append(parts, theme.HelpStyle.Render(switchKey.Help().Key+" "+switchKey.Help().Desc))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		theme.DetailPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form = m.form.WithWidth(m.formWidth())
}

func (m *Model) buildForm() *huh.Form {
	var fields []huh.Field
	if m.mode == ModeRegister {
		fields = append(fields, huh.NewInput().
			Title("Name").
			Value(&m.fb.name).
			Validate(required("name")))
	}
	fields = append(fields,
		huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(&m.fb.email).
			Validate(validateEmail),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&m.fb.password).
			Validate(required("password")),
	)
	return huh.NewForm(huh.NewGroup(fields...)).
		WithShowHelp(false).
		WithWidth(m.formWidth())
}

func (m Model) formWidth() int {
	return min(max(m.width-10, 30), 60)
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if at := strings.Index(s, "@"); at <= 0 || at == len(s)-1 {
		return errInvalidEmail
	}
	return nil
}
