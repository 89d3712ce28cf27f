package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/taskclient/internal/message"
	"github.com/nhle/taskclient/internal/model"
)

// askDelete shows a yes/no prompt before deleting t.
func (m *Model) askDelete(t model.Task) tea.Cmd {
	if m.busy {
		return nil
	}
	m.pendingDelete = t
	*m.confirmed = false
	m.confirm = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(m.deps.Catalog.T(message.ConfirmDelete, map[string]any{"Title": t.Title})).
			Affirmative("Delete").
			Negative("Keep").
			Value(m.confirmed),
	)).WithShowHelp(false).WithWidth(max(m.layout.Width-4, 30))

	m.previousView = m.currentView
	m.currentView = ViewConfirm
	return m.confirm.Init()
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		m.currentView = m.previousView
		return m, nil
	}

	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateCompleted:
		m.currentView = m.previousView
		if m.currentView == ViewDetail {
			m.currentView = ViewList
		}
		if !*m.confirmed {
			return m, nil
		}
		removeCmd := m.remove(m.pendingDelete)
		return m, removeCmd
	case huh.StateAborted:
		m.currentView = m.previousView
		return m, nil
	}
	return m, cmd
}
