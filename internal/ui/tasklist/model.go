package tasklist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskclient/internal/keys"
	"github.com/nhle/taskclient/internal/message"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/theme"
	"github.com/nhle/taskclient/internal/view"
)

// QueryChangedMsg is sent when the search, status filter or sort changes.
// The receiver should derive a new sequence and call SetTasks.
type QueryChangedMsg struct {
	Query view.Query
}

// SelectedTaskMsg is sent when the user opens a task.
type SelectedTaskMsg struct{ Task model.Task }

// Intents the list cannot carry out itself.
type (
	NewTaskMsg    struct{}
	RefreshMsg    struct{}
	EditTaskMsg   struct{ Task model.Task }
	ToggleTaskMsg struct{ Task model.Task }
	DeleteTaskMsg struct{ Task model.Task }
	CopyIDMsg     struct{ Task model.Task }
)

// Model is the main task list view component.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	catalog     *message.Catalog
	spinner     spinner.Model
	query       view.Query
	searchMode  bool
	searchInput textinput.Model
	loading     bool
	cached      bool
	cachedAge   time.Duration
	total       int
	width       int
	height      int
	now         func() time.Time
}

// New creates a new task list model.
func New(k *keys.KeyMap, catalog *message.Catalog, q view.Query, width, height int) Model {
	now := time.Now
	l := list.New([]list.Item{}, ItemDelegate{now: now}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	si := textinput.New()
	si.Placeholder = "search title or description..."
	si.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	if q.Status == "" {
		q.Status = view.StatusAll
	}
	if q.Sort == "" {
		q.Sort = view.SortNone
	}

	m := Model{
		list:        l,
		keys:        k,
		catalog:     catalog,
		spinner:     sp,
		query:       q,
		searchInput: si,
		now:         now,
	}
	m.SetSize(width, height)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Query returns the current view query.
func (m Model) Query() view.Query {
	return m.query
}

// Searching reports whether the search box has focus, in which case the
// caller must not interpret keys as shortcuts.
func (m Model) Searching() bool {
	return m.searchMode
}

// SetTasks replaces the displayed sequence. total is the size of the
// unfiltered collection, used to pick the empty-state text.
func (m *Model) SetTasks(tasks []model.Task, total int) tea.Cmd {
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = TaskItem{Task: t}
	}
	m.total = total
	return m.list.SetItems(items)
}

// SetLoading shows or hides the spinner.
func (m *Model) SetLoading(loading bool) tea.Cmd {
	start := loading && !m.loading
	m.loading = loading
	if start {
		return m.spinner.Tick
	}
	return nil
}

// SetCached flags the list as restored from the local cache.
func (m *Model) SetCached(cached bool, age time.Duration) {
	m.cached = cached
	m.cachedAge = age
}

// SetQuery replaces the query and notifies the receiver.
func (m *Model) SetQuery(q view.Query) tea.Cmd {
	m.query = q
	return m.queryChanged()
}

// Selected returns the focused task, if any.
func (m Model) Selected() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys filters as the user types; enter keeps the term and
// esc clears it.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case tea.KeyEsc:
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.query.Search = ""
		return m, m.queryChanged()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if v := m.searchInput.Value(); v != m.query.Search {
		m.query.Search = v
		return m, tea.Batch(cmd, m.queryChanged())
	}
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query.Search)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleStatus):
		m.query.Status = m.query.Status.Next()
		return m, m.queryChanged()

	case key.Matches(msg, m.keys.CycleSort):
		m.query.Sort = m.query.Sort.Next()
		return m, m.queryChanged()

	case key.Matches(msg, m.keys.Refresh):
		return m, emit(RefreshMsg{})

	case key.Matches(msg, m.keys.New):
		return m, emit(NewTaskMsg{})
	}

	if t, ok := m.Selected(); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			return m, emit(SelectedTaskMsg{Task: t})
		case key.Matches(msg, m.keys.Edit):
			return m, emit(EditTaskMsg{Task: t})
		case key.Matches(msg, m.keys.Toggle):
			return m, emit(ToggleTaskMsg{Task: t})
		case key.Matches(msg, m.keys.Delete):
			return m, emit(DeleteTaskMsg{Task: t})
		case key.Matches(msg, m.keys.CopyID):
			return m, emit(CopyIDMsg{Task: t})
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) queryChanged() tea.Cmd {
	return emit(QueryChangedMsg{Query: m.query})
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the filter bar and the list.
func (m Model) View() string {
	bar := m.renderFilterBar()

	var body string
	if len(m.list.Items()) == 0 {
		body = m.renderEmptyState()
	} else {
		body = m.list.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, body)
}

// renderFilterBar shows the search box (or term), status filter, sort,
// and the loading and cached indicators.
func (m Model) renderFilterBar() string {
	muted := lipgloss.NewStyle().Foreground(theme.ColorGray)

	search := muted.Render("/ search")
	if m.searchMode {
		search = m.searchInput.View()
	} else if m.query.Search != "" {
		search = "/ " + m.query.Search
	}

	parts := []string{
		search,
		muted.Render(fmt.Sprintf("status: %s", m.query.Status)),
		muted.Render(fmt.Sprintf("sort: %s", m.query.Sort)),
	}
	if m.loading {
		parts = append(parts, m.spinner.View()+" "+m.catalog.T(message.StateLoading, nil))
	}
	if m.cached {
		parts = append(parts, theme.BadgeStyle.Render(
			m.catalog.T(message.StateCached, map[string]any{"Age": relativeTime(m.cachedAge)})))
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, joinSpaced(parts)...))
}

func joinSpaced(parts []string) []string {
	out := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			out = append(out, "   ")
		}
		out = append(out, p)
	}
	return out
}

// renderEmptyState shows guidance text when nothing is displayed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(max(m.height-1, 0)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return style.Render(m.spinner.View() + " " + m.catalog.T(message.StateLoading, nil))
	case m.total > 0 || !m.query.IsZero():
		return style.Render(m.catalog.T(message.StateNoMatch, nil))
	default:
		return style.Render(m.catalog.T(message.StateEmpty, nil))
	}
}

// SetSize updates the list dimensions. One row is reserved for the
// filter bar.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, max(height-1, 0))
	m.searchInput.Width = max(width-30, 10)
}
