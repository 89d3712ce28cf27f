package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/theme"
)

// CreateMsg is dispatched when the create form is submitted.
type CreateMsg struct {
	Draft model.Draft
}

// UpdateMsg is dispatched when the edit form is submitted with changes.
type UpdateMsg struct {
	ID    string
	Patch model.Patch
}

// CancelMsg is dispatched when the user leaves the form, or submits an
// edit without changing anything.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	deadline    string
	status      model.Status
	priority    model.Priority
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	original model.Task
	editMode bool
	busy     bool
	errText  string
	width    int
	height   int
	now      func() time.Time
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
		now:    time.Now,
	}
}

// StartCreate initializes the form for a new task with default status
// and priority.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	*m.fb = formBindings{status: model.DefaultStatus, priority: model.DefaultPriority}
	return m.reset()
}

// StartEdit initializes the form with an existing task.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.editMode = true
	m.original = t
	*m.fb = formBindings{
		title:       t.Title,
		description: t.Description,
		deadline:    t.Deadline.String(),
		status:      t.Status,
		priority:    t.Priority,
	}
	return m.reset()
}

func (m *Model) reset() tea.Cmd {
	m.busy = false
	m.errText = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Busy reports whether a submission is outstanding.
func (m Model) Busy() bool {
	return m.busy
}

// Fail reopens the form after a rejected submission, keeping the entered
// values and showing text above the fields.
func (m *Model) Fail(text string) tea.Cmd {
	m.busy = false
	m.errText = text
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form. Esc cancels. Input is
// ignored while a submission is outstanding.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.busy {
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		out := m.submission()
		if _, cancelled := out.(CancelMsg); !cancelled {
			m.busy = true
		}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	parts := []string{
		lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1).
			Render(titleText),
	}
	if m.errText != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errText))
	}
	if m.busy {
		parts = append(parts, theme.HelpStyle.Render("Saving…"))
	} else {
		parts = append(parts, m.form.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth()).WithHeight(m.formHeight())
	}
}

func (m *Model) buildForm() *huh.Form {
	deadlineCheck := validateOptionalDate
	if !m.editMode {
		deadlineCheck = validateFutureDate(m.now)
	}

	statusOpts := make([]huh.Option[model.Status], 0, len(model.Statuses))
	for _, s := range model.Statuses {
		statusOpts = append(statusOpts, huh.NewOption(string(s), s))
	}
	priorityOpts := make([]huh.Option[model.Priority], 0, len(model.Priorities))
	for _, p := range model.Priorities {
		priorityOpts = append(priorityOpts, huh.NewOption(string(p), p))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Details...").
				Value(&m.fb.description).
				Validate(validateRequired("Description")),
			huh.NewInput().
				Title("Deadline").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.deadline).
				Validate(deadlineCheck),
			huh.NewSelect[model.Status]().
				Title("Status").
				Options(statusOpts...).
				Value(&m.fb.status),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(priorityOpts...).
				Value(&m.fb.priority),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// submission turns the bound values into a create or update message.
func (m Model) submission() tea.Msg {
	deadline, _ := model.ParseDate(m.fb.deadline)

	if !m.editMode {
		draft := model.Draft{
			Title:       strings.TrimSpace(m.fb.title),
			Description: strings.TrimSpace(m.fb.description),
			Deadline:    deadline,
			Status:      m.fb.status,
			Priority:    m.fb.priority,
		}
		return CreateMsg{Draft: draft}
	}

	patch := diff(m.original, model.Task{
		Title:       strings.TrimSpace(m.fb.title),
		Description: strings.TrimSpace(m.fb.description),
		Deadline:    deadline,
		Status:      m.fb.status,
		Priority:    m.fb.priority,
	})
	if patch.IsEmpty() {
		return CancelMsg{}
	}
	return UpdateMsg{ID: m.original.ID, Patch: patch}
}

// diff returns a patch holding only the fields that changed.
func diff(before, after model.Task) model.Patch {
	var p model.Patch
	if after.Title != before.Title {
		p.Title = &after.Title
	}
	if after.Description != before.Description {
		p.Description = &after.Description
	}
	if after.Deadline.Compare(before.Deadline) != 0 {
		p.Deadline = &after.Deadline
	}
	if after.Status != before.Status {
		p.Status = &after.Status
	}
	if after.Priority != before.Priority {
		p.Priority = &after.Priority
	}
	return p
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-6, 12)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	if _, err := model.ParseDate(s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

// validateFutureDate also rejects dates before today.
func validateFutureDate(now func() time.Time) func(string) error {
	return func(s string) error {
		d, err := model.ParseDate(s)
		if err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		if !d.IsZero() && d.Before(model.Today(now())) {
			return fmt.Errorf("deadline cannot be in the past")
		}
		return nil
	}
}
