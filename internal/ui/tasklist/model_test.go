package tasklist_test

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskclient/internal/keys"
	"github.com/nhle/taskclient/internal/message"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/ui/tasklist"
	"github.com/nhle/taskclient/internal/view"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newList(t *testing.T, tasks ...model.Task) tasklist.Model {
	t.Helper()
	m := tasklist.New(keys.DefaultKeyMap(), message.MustNew("en"), view.Query{}, 100, 20)
	m.SetTasks(tasks, len(tasks))
	return m
}

func sample() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Write report", Status: model.StatusInProgress, Priority: model.PriorityHigh, Deadline: model.MustParseDate("2024-01-10")},
		{ID: "2", Title: "Gym", Status: model.StatusCompleted, Priority: model.PriorityLow},
	}
}

func TestNew_NormalizesQuery(t *testing.T) {
	m := newList(t)
	assert.Equal(t, view.Query{Status: view.StatusAll, Sort: view.SortNone}, m.Query())
}

func TestKeys_EmitIntentsForSelectedTask(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want tea.Msg
	}{
		{tea.KeyMsg{Type: tea.KeyEnter}, tasklist.SelectedTaskMsg{Task: sample()[0]}},
		{runes("e"), tasklist.EditTaskMsg{Task: sample()[0]}},
		{runes("x"), tasklist.ToggleTaskMsg{Task: sample()[0]}},
		{runes("d"), tasklist.DeleteTaskMsg{Task: sample()[0]}},
		{runes("y"), tasklist.CopyIDMsg{Task: sample()[0]}},
		{runes("n"), tasklist.NewTaskMsg{}},
		{runes("r"), tasklist.RefreshMsg{}},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			m := newList(t, sample()...)
			_, cmd := m.Update(tt.key)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func isTaskIntent(msg tea.Msg) bool {
	switch msg.(type) {
	case tasklist.SelectedTaskMsg, tasklist.EditTaskMsg, tasklist.ToggleTaskMsg,
		tasklist.DeleteTaskMsg, tasklist.CopyIDMsg:
		return true
	}
	return false
}

func TestKeys_TaskActionsNeedSelection(t *testing.T) {
	m := newList(t)
	for _, k := range []tea.KeyMsg{runes("e"), runes("x"), runes("d"), runes("y"), {Type: tea.KeyEnter}} {
		_, cmd := m.Update(k)
		if cmd != nil {
			assert.False(t, isTaskIntent(cmd()), k.String())
		}
	}

	_, cmd := m.Update(runes("n"))
	require.NotNil(t, cmd)
	assert.Equal(t, tasklist.NewTaskMsg{}, cmd())
}

func TestCycleStatusAndSort(t *testing.T) {
	m := newList(t, sample()...)

	m, cmd := m.Update(runes("s"))
	require.NotNil(t, cmd)
	assert.Equal(t, tasklist.QueryChangedMsg{Query: view.Query{
		Status: view.StatusFilter(model.StatusInProgress), Sort: view.SortNone,
	}}, cmd())

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	assert.Equal(t, view.SortDeadline, m.Query().Sort)
	assert.Equal(t, tasklist.QueryChangedMsg{Query: m.Query()}, cmd())
}

func TestSearch_TypingUpdatesQuery(t *testing.T) {
	m := newList(t, sample()...)

	m, _ = m.Update(runes("/"))
	require.True(t, m.Searching())

	m, cmd := m.Update(runes("g"))
	require.NotNil(t, cmd)
	assert.Equal(t, "g", m.Query().Search)

	// Shortcuts are text while searching.
	m, _ = m.Update(runes("d"))
	assert.Equal(t, "gd", m.Query().Search)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.Searching())
	assert.Equal(t, "gd", m.Query().Search)

	m, _ = m.Update(runes("/"))
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Searching())
	assert.Empty(t, m.Query().Search)
	require.NotNil(t, cmd)
	assert.Equal(t, tasklist.QueryChangedMsg{Query: m.Query()}, cmd())
}

func TestView_EmptyStates(t *testing.T) {
	en := message.MustNew("en")

	m := newList(t)
	assert.Contains(t, m.View(), en.T(message.StateEmpty, nil))

	m.SetTasks(nil, 3)
	assert.Contains(t, m.View(), en.T(message.StateNoMatch, nil))

	m.SetLoading(true)
	assert.Contains(t, m.View(), en.T(message.StateLoading, nil))
}

func TestView_ShowsTasksAndBadges(t *testing.T) {
	m := newList(t, sample()...)
	m.SetCached(true, 90*time.Minute)

	out := m.View()
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "Gym")
	assert.Contains(t, out, "status: all")
	assert.Contains(t, out, "1h")
}

func TestSetLoading_StartsSpinnerOnce(t *testing.T) {
	m := newList(t)
	assert.NotNil(t, m.SetLoading(true))
	assert.Nil(t, m.SetLoading(true))
	assert.Nil(t, m.SetLoading(false))
}
