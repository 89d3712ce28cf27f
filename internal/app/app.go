// Package app is the root Bubble Tea model. It routes between views and
// turns user intents into task controller calls.
package app

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	"github.com/nhle/taskclient/internal/api"
	"github.com/nhle/taskclient/internal/credential"
	"github.com/nhle/taskclient/internal/keys"
	"github.com/nhle/taskclient/internal/message"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/store"
	"github.com/nhle/taskclient/internal/tasks"
	"github.com/nhle/taskclient/internal/ui"
	"github.com/nhle/taskclient/internal/ui/command"
	"github.com/nhle/taskclient/internal/ui/detail"
	helpview "github.com/nhle/taskclient/internal/ui/help"
	"github.com/nhle/taskclient/internal/ui/login"
	"github.com/nhle/taskclient/internal/ui/taskform"
	"github.com/nhle/taskclient/internal/ui/tasklist"
	"github.com/nhle/taskclient/internal/view"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewDetail
	ViewHelp
	ViewCommand
	ViewForm
	ViewConfirm
)

// Session holds the signed-in credential. *credential.Store satisfies it.
type Session interface {
	Get() (credential.Credential, bool)
	Set(c credential.Credential) error
	Clear() error
}

// Auth signs users in and registers accounts. *api.Client satisfies it.
type Auth interface {
	Login(ctx context.Context, email, password string) (*credential.Credential, error)
	Register(ctx context.Context, name, email, password string) (*api.User, error)
}

// Deps are the collaborators of the root model. Cache may be nil.
type Deps struct {
	Repo    tasks.Repository
	Auth    Auth
	Session Session
	Cache   store.SnapshotStore
	Catalog *message.Catalog
	Logger  *zap.Logger

	// BaseURL is shown in the help view.
	BaseURL string

	// Query is the initial status filter and sort.
	Query view.Query

	// Clipboard copies text; clipboard.WriteAll when nil.
	Clipboard func(string) error
	Now       func() time.Time
}

// Model is the root Bubble Tea model.
type Model struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	ctrl    *tasks.Controller
	owner   string
	account string

	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	hints        help.Model

	login       login.Model
	taskList    tasklist.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model
	form        taskform.Model

	confirm       *huh.Form
	confirmed     *bool
	pendingDelete model.Task

	// busy is set while a mutation is outstanding; loading counts
	// refreshes and mutations in flight.
	busy    bool
	loading int

	errText string
	notice  string
	ready   bool
}

// New creates the root model. A stored credential opens the task list
// directly; otherwise the sign-in form is shown.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Catalog == nil {
		deps.Catalog = message.MustNew(message.LanguageEn)
	}
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.WriteAll
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	k := keys.DefaultKeyMap()

	m := Model{
		deps:        deps,
		ctx:         ctx,
		cancel:      cancel,
		logger:      deps.Logger.Named("app"),
		keys:        k,
		hints:       help.New(),
		currentView: ViewLogin,
		login:       login.New(80, 24),
		taskList:    tasklist.New(k, deps.Catalog, deps.Query, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		form:        taskform.New(80, 24),
		confirmed:   new(bool),
	}

	if cred, ok := deps.Session.Get(); ok {
		m.startSession(cred)
	}
	return m
}

// Init restores the cached list and starts the first refresh, or shows
// the sign-in form.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewLogin {
		return m.login.Init()
	}
	return m.restore()
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// Close cancels requests in flight and tears the session down.
func (m Model) Close() {
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	m.cancel()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := msg.Width, m.layout.ContentHeight()
		m.login.SetSize(w, h)
		m.taskList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.form.SetSize(w, h)
		m.hints.Width = w
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case restoredMsg:
		if msg.ctrl != m.ctrl {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("restoring task snapshot", zap.Error(msg.err))
		}
		return m, tea.Batch(m.syncList(), m.refresh())

	case refreshedMsg:
		return m.handleRefreshed(msg)

	case mutatedMsg:
		return m.handleMutated(msg)

	case loggedInMsg:
		return m.handleLoggedIn(msg)

	case registeredMsg:
		return m.handleRegistered(msg)

	case copiedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.notice = m.deps.Catalog.T(message.TaskCopied, map[string]any{"ID": msg.id})
		return m, nil

	case login.LoginMsg:
		cmd := m.signIn(msg.Email, msg.Password)
		return m, cmd

	case login.RegisterMsg:
		cmd := m.register(msg.Name, msg.Email, msg.Password)
		return m, cmd

	case login.QuitMsg:
		cmd := m.quit()
		return m, cmd

	case tasklist.QueryChangedMsg:
		cmd := m.syncList()
		return m, cmd

	case tasklist.RefreshMsg:
		cmd := m.refresh()
		return m, cmd

	case tasklist.NewTaskMsg:
		cmd := m.openCreate()
		return m, cmd

	case tasklist.SelectedTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetTask(msg.Task)
		return m, nil

	case tasklist.EditTaskMsg:
		cmd := m.openEdit(msg.Task)
		return m, cmd

	case tasklist.ToggleTaskMsg:
		cmd := m.toggle(msg.Task)
		return m, cmd

	case tasklist.DeleteTaskMsg:
		cmd := m.askDelete(msg.Task)
		return m, cmd

	case tasklist.CopyIDMsg:
		cmd := m.copyID(msg.Task)
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionEdit:
			cmd := m.openEdit(msg.Task)
			return m, cmd
		case detail.ActionToggle:
			cmd := m.toggle(msg.Task)
			return m, cmd
		case detail.ActionDelete:
			cmd := m.askDelete(msg.Task)
			return m, cmd
		case detail.ActionCopyID:
			cmd := m.copyID(msg.Task)
			return m, cmd
		}
		return m, nil

	case taskform.CreateMsg:
		cmd := m.create(msg.Draft)
		return m, cmd

	case taskform.UpdateMsg:
		cmd := m.update(msg.ID, msg.Patch)
		return m, cmd

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(msg)
		return m, cmd

	case command.ErrorMsg:
		m.currentView = m.previousView
		m.errText = msg.Err.Error()
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKeys(msg); handled {
			return next, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that work across views. Views that take
// text input only see ctrl+c here.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		cmd := m.quit()
		return m, cmd, true
	}

	typing := m.currentView == ViewLogin || m.currentView == ViewForm ||
		m.currentView == ViewCommand || m.currentView == ViewConfirm ||
		(m.currentView == ViewList && m.taskList.Searching())
	if typing {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd, true

	case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
		m.currentView = m.previousView
		return m, nil, true

	case key.Matches(msg, m.keys.Quit) && m.currentView == ViewList:
		cmd := m.quit()
		return m, cmd, true

	case key.Matches(msg, m.keys.Logout) && m.currentView == ViewList:
		cmd := m.logout()
		return m, cmd, true
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	case ViewConfirm:
		return m.updateConfirm(msg)
	}

	// The list spinner keeps ticking while another view is on top.
	if _, ok := msg.(spinner.TickMsg); ok && m.currentView != ViewList {
		var tick tea.Cmd
		m.taskList, tick = m.taskList.Update(msg)
		cmd = tea.Batch(cmd, tick)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Tasks", m.sessionStatus())
	line := m.layout.RenderMessage(m.errText, m.notice)
	statusBar := m.layout.RenderStatusBar(m.keyHints())
	return m.layout.RenderWithFrame(header, m.renderContent(), line, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.login.View()
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewForm:
		return m.form.View()
	case ViewConfirm:
		return m.confirm.View()
	default:
		return ""
	}
}

// sessionStatus returns the right side of the header.
func (m Model) sessionStatus() string {
	if m.ctrl == nil {
		return "signed out"
	}
	state := m.ctrl.Snapshot().State.String()
	if m.loading > 0 {
		state = tasks.StateLoading.String()
	}
	return m.deps.Catalog.T(message.StateSignedInAs, map[string]any{"Owner": m.account}) + " · " + state
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter next | ctrl+r sign in / register | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | e edit | x toggle | d delete | y copy id | j/k scroll"
	case ViewForm:
		return "enter next | shift+tab back | esc cancel"
	case ViewConfirm:
		return "←/→ choose | enter confirm | esc cancel"
	default:
		return m.hints.ShortHelpView(m.keys.ShortHelp())
	}
}
