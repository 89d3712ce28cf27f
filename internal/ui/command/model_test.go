package command_test

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskclient/internal/ui/command"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want command.CommandMsg
	}{
		{"refresh", command.CommandMsg{Name: command.Refresh}},
		{":ref", command.CommandMsg{Name: command.Refresh}},
		{"  search  buy milk ", command.CommandMsg{Name: command.Search, Arg: "buy milk"}},
		{"search", command.CommandMsg{Name: command.Search}},
		{"FILTER completed", command.CommandMsg{Name: command.Filter, Arg: "completed"}},
		{"so deadline", command.CommandMsg{Name: command.Sort, Arg: "deadline"}},
		{"t report", command.CommandMsg{Name: command.Title, Arg: "report"}},
		{"q", command.CommandMsg{Name: command.Quit}},
		{"new", command.CommandMsg{Name: command.NewTask}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := command.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", ":", "frobnicate", "s", "filter", "sort  "} {
		_, err := command.Parse(in)
		assert.Error(t, err, in)
	}
}

func TestModel_EnterEmitsCommand(t *testing.T) {
	m := command.New(80, 24)
	for _, r := range "sort priority" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, command.CommandMsg{Name: command.Sort, Arg: "priority"}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "empty input is ignored")
}

func TestModel_EnterReportsBadCommand(t *testing.T) {
	m := command.New(80, 24)
	for _, r := range "nope" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(command.ErrorMsg)
	require.True(t, ok)
	assert.Error(t, msg.Err)
}
