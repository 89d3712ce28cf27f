package app

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/taskclient/internal/api"
	"github.com/nhle/taskclient/internal/credential"
	"github.com/nhle/taskclient/internal/message"
	"github.com/nhle/taskclient/internal/tasks"
	"github.com/nhle/taskclient/internal/ui/login"
)

// loggedInMsg carries the result of a sign-in attempt.
type loggedInMsg struct {
	cred *credential.Credential
	err  error
}

// registeredMsg carries the result of a registration attempt.
type registeredMsg struct {
	user *api.User
	err  error
}

// startSession opens a controller for cred and shows the task list.
func (m *Model) startSession(cred credential.Credential) {
	m.owner = cred.Owner()
	m.account = cred.Name
	if m.account == "" {
		m.account = m.owner
	}

	opts := []tasks.Option{
		tasks.WithLogger(m.deps.Logger.Named("tasks")),
		tasks.WithClock(m.deps.Now),
	}
	if m.deps.Cache != nil {
		opts = append(opts, tasks.WithCache(m.deps.Cache, m.owner))
	}
	m.ctrl = tasks.NewController(m.deps.Repo, opts...)

	m.helpView.SetSession(m.deps.BaseURL, m.account)
	m.currentView = ViewList
	m.previousView = ViewList
	m.loading = 0
	m.busy = false
	m.errText = ""
}

// endSession closes the controller and empties the list.
func (m *Model) endSession() {
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	m.ctrl = nil
	m.loading = 0
	m.busy = false
	m.taskList.SetTasks(nil, 0)
	m.taskList.SetLoading(false)
	m.taskList.SetCached(false, 0)
}

// expire handles an Unauthenticated error from any call: the credential
// is dropped and the sign-in form is shown.
func (m *Model) expire() tea.Cmd {
	m.logger.Info("session rejected, signing out", zap.String("owner", m.owner))
	m.endSession()
	if err := m.deps.Session.Clear(); err != nil {
		m.logger.Error("clearing credential", zap.Error(err))
	}
	m.currentView = ViewLogin
	m.errText = ""
	m.notice = ""
	return m.login.Fail(m.deps.Catalog.T(message.ErrUnauthenticated, nil))
}

// logout forgets the credential and the owner's cached tasks.
func (m *Model) logout() tea.Cmd {
	owner := m.owner
	m.endSession()
	if err := m.deps.Session.Clear(); err != nil {
		m.logger.Error("clearing credential", zap.Error(err))
	}
	if m.deps.Cache != nil {
		if err := m.deps.Cache.ClearSnapshot(m.ctx, owner); err != nil {
			m.logger.Warn("clearing task snapshot", zap.String("owner", owner), zap.Error(err))
		}
	}
	m.logger.Info("signed out", zap.String("owner", owner))

	m.currentView = ViewLogin
	m.errText = ""
	m.notice = ""
	return m.login.Reset(login.ModeLogin, m.deps.Catalog.T(message.SignedOut, nil))
}

func (m *Model) quit() tea.Cmd {
	m.Close()
	return tea.Quit
}

// signIn exchanges the form's email and password for a credential.
func (m *Model) signIn(email, password string) tea.Cmd {
	auth, ctx := m.deps.Auth, m.ctx
	return func() tea.Msg {
		cred, err := auth.Login(ctx, email, password)
		return loggedInMsg{cred: cred, err: err}
	}
}

func (m Model) handleLoggedIn(msg loggedInMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Info("sign in failed", zap.Error(msg.err))
		cmd := m.login.Fail(m.describeAuth(msg.err))
		return m, cmd
	}
	if err := m.deps.Session.Set(*msg.cred); err != nil {
		m.logger.Error("storing credential", zap.Error(err))
		cmd := m.login.Fail(err.Error())
		return m, cmd
	}

	m.startSession(*msg.cred)
	m.notice = m.deps.Catalog.T(message.SignedIn, map[string]any{"Name": m.account})
	cmd := m.restore()
	return m, cmd
}

// register creates an account; the user signs in afterwards.
func (m *Model) register(name, email, password string) tea.Cmd {
	auth, ctx := m.deps.Auth, m.ctx
	return func() tea.Msg {
		user, err := auth.Register(ctx, name, email, password)
		return registeredMsg{user: user, err: err}
	}
}

func (m Model) handleRegistered(msg registeredMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Info("registration failed", zap.Error(msg.err))
		cmd := m.login.Fail(m.describeAuth(msg.err))
		return m, cmd
	}
	cmd := m.login.Reset(login.ModeLogin, m.deps.Catalog.T(message.Registered, nil))
	return m, cmd
}

// describeAuth prefers the server's message for rejected credentials.
func (m Model) describeAuth(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Kind == api.KindUnauthenticated && apiErr.Message != "" {
		return apiErr.Message
	}
	return m.deps.Catalog.Describe(err)
}
