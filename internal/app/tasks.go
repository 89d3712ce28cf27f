package app

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/taskclient/internal/api"
	"github.com/nhle/taskclient/internal/message"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/tasks"
	"github.com/nhle/taskclient/internal/ui/command"
	"github.com/nhle/taskclient/internal/view"
)

// restoredMsg is sent after the cached snapshot has been loaded.
type restoredMsg struct {
	ctrl *tasks.Controller
	ok   bool
	err  error
}

// refreshedMsg is sent when a refresh returns. ctrl identifies the
// session that issued it.
type refreshedMsg struct {
	ctrl *tasks.Controller
	err  error
}

type mutation int

const (
	mutationCreate mutation = iota
	mutationUpdate
	mutationDelete
)

// mutatedMsg is sent when a create, update, toggle or delete returns.
type mutatedMsg struct {
	ctrl     *tasks.Controller
	kind     mutation
	fromForm bool
	task     *model.Task
	err      error
}

// copiedMsg is sent after a task id was put on the clipboard.
type copiedMsg struct {
	id  string
	err error
}

func (m *Model) restore() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ok, err := ctrl.Restore(ctx)
		return restoredMsg{ctrl: ctrl, ok: ok, err: err}
	}
}

// refresh reloads the collection in the background.
func (m *Model) refresh() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	ctrl, ctx := m.ctrl, m.ctx
	m.loading++
	return tea.Batch(m.taskList.SetLoading(true), func() tea.Msg {
		return refreshedMsg{ctrl: ctrl, err: ctrl.Refresh(ctx)}
	})
}

func (m Model) handleRefreshed(msg refreshedMsg) (tea.Model, tea.Cmd) {
	if msg.ctrl != m.ctrl {
		return m, nil
	}
	m.loading = max(m.loading-1, 0)

	switch {
	case errors.Is(msg.err, tasks.ErrClosed):
		return m, nil
	case api.IsUnauthenticated(msg.err):
		cmd := m.expire()
		return m, cmd
	}
	cmd := m.syncList()
	return m, cmd
}

// syncList pushes the controller's collection, state and the current
// query through to the list and detail views.
func (m *Model) syncList() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	snap := m.ctrl.Snapshot()
	cmd := m.taskList.SetTasks(m.ctrl.View(m.taskList.Query()), len(snap.Tasks))
	m.taskList.SetLoading(m.loading > 0)

	age := m.deps.Now().Sub(snap.UpdatedAt)
	m.taskList.SetCached(snap.Cached, age)

	switch snap.State {
	case tasks.StateError:
		m.errText = m.deps.Catalog.Describe(snap.Err)
	case tasks.StateReady:
		m.errText = ""
	}

	if m.currentView == ViewDetail && !m.detail.Refresh(snap.Tasks) {
		m.currentView = ViewList
	}
	return cmd
}

func (m *Model) openCreate() tea.Cmd {
	if m.busy {
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewForm
	return m.form.StartCreate()
}

func (m *Model) openEdit(t model.Task) tea.Cmd {
	if m.busy {
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewForm
	return m.form.StartEdit(t)
}

// mutate runs fn for ctrl in the background and reports its result. Only
// one mutation may be outstanding.
func (m *Model) mutate(kind mutation, fromForm bool, fn func(ctrl *tasks.Controller) (*model.Task, error)) tea.Cmd {
	if m.ctrl == nil || m.busy {
		return nil
	}
	m.busy = true
	m.loading++
	ctrl := m.ctrl
	return tea.Batch(m.taskList.SetLoading(true), func() tea.Msg {
		t, err := fn(ctrl)
		return mutatedMsg{ctrl: ctrl, kind: kind, fromForm: fromForm, task: t, err: err}
	})
}

func (m *Model) create(d model.Draft) tea.Cmd {
	ctx := m.ctx
	return m.mutate(mutationCreate, true, func(c *tasks.Controller) (*model.Task, error) {
		return c.Create(ctx, d)
	})
}

func (m *Model) update(id string, p model.Patch) tea.Cmd {
	ctx := m.ctx
	return m.mutate(mutationUpdate, true, func(c *tasks.Controller) (*model.Task, error) {
		return c.Update(ctx, id, p)
	})
}

func (m *Model) toggle(t model.Task) tea.Cmd {
	ctx := m.ctx
	return m.mutate(mutationUpdate, false, func(c *tasks.Controller) (*model.Task, error) {
		return c.Toggle(ctx, t.ID)
	})
}

func (m *Model) remove(t model.Task) tea.Cmd {
	ctx := m.ctx
	return m.mutate(mutationDelete, false, func(c *tasks.Controller) (*model.Task, error) {
		return nil, c.Delete(ctx, t.ID)
	})
}

func (m Model) handleMutated(msg mutatedMsg) (tea.Model, tea.Cmd) {
	if msg.ctrl != m.ctrl {
		return m, nil
	}
	m.busy = false
	m.loading = max(m.loading-1, 0)

	switch {
	case errors.Is(msg.err, tasks.ErrClosed):
		return m, nil
	case api.IsUnauthenticated(msg.err):
		cmd := m.expire()
		return m, cmd
	}

	if !tasks.Applied(msg.err) {
		m.logger.Info("task change rejected", zap.Error(msg.err))
		text := m.deps.Catalog.Describe(msg.err)
		if msg.fromForm && m.currentView == ViewForm {
			cmd := m.form.Fail(text)
			return m, cmd
		}
		m.notice = ""
		m.errText = text
		return m, nil
	}

	if msg.fromForm && m.currentView == ViewForm {
		m.currentView = m.previousView
	}
	m.notice = m.deps.Catalog.T(mutationNotice[msg.kind], nil)
	cmd := m.syncList()
	return m, cmd
}

var mutationNotice = map[mutation]string{
	mutationCreate: message.TaskCreated,
	mutationUpdate: message.TaskUpdated,
	mutationDelete: message.TaskDeleted,
}

func (m *Model) copyID(t model.Task) tea.Cmd {
	write, id := m.deps.Clipboard, t.ID
	return func() tea.Msg {
		if err := write(id); err != nil {
			return copiedMsg{id: id, err: fmt.Errorf("copying to clipboard: %w", err)}
		}
		return copiedMsg{id: id}
	}
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	m.logger.Debug("command", zap.String("name", string(c.Name)), zap.String("arg", c.Arg))

	q := m.taskList.Query()
	switch c.Name {
	case command.Refresh:
		return m.refresh()
	case command.NewTask:
		return m.openCreate()
	case command.Search:
		q.Search = c.Arg
		return m.taskList.SetQuery(q)
	case command.Title:
		if m.ctrl == nil {
			return nil
		}
		m.ctrl.SetTitleFilter(c.Arg)
		return m.refresh()
	case command.Filter:
		s, err := view.ParseStatusFilter(c.Arg)
		if err != nil {
			m.errText = err.Error()
			return nil
		}
		q.Status = s
		return m.taskList.SetQuery(q)
	case command.Sort:
		k, err := view.ParseSortKey(c.Arg)
		if err != nil {
			m.errText = err.Error()
			return nil
		}
		q.Sort = k
		return m.taskList.SetQuery(q)
	case command.Logout:
		if m.ctrl == nil {
			return nil
		}
		return m.logout()
	case command.Quit:
		return m.quit()
	}
	return nil
}
