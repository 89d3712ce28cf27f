package login

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmission_FollowsMode(t *testing.T) {
	m := New(80, 24)
	m.fb.name = " Ann "
	m.fb.email = " ann@example.com "
	m.fb.password = "secret"

	assert.Equal(t, LoginMsg{Email: "ann@example.com", Password: "secret"}, m.submission())

	m.mode = ModeRegister
	assert.Equal(t, RegisterMsg{Name: "Ann", Email: "ann@example.com", Password: "secret"}, m.submission())
}

func TestSwitchKey_TogglesMode(t *testing.T) {
	m := New(80, 24)
	assert.Contains(t, m.View(), "Sign in")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, ModeRegister, m.Mode())
	assert.Contains(t, m.View(), "Create an account")
	assert.Contains(t, m.View(), "Name")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, ModeLogin, m.Mode())
}

func TestReset_KeepsEmailDropsPassword(t *testing.T) {
	m := New(80, 24)
	m.mode = ModeRegister
	m.fb.email = "ann@example.com"
	m.fb.password = "secret"
	m.busy = true

	m.Reset(ModeLogin, "Account created. Sign in to continue.")
	assert.False(t, m.Busy())
	assert.Equal(t, "ann@example.com", m.fb.email)
	assert.Empty(t, m.fb.password)
	assert.Contains(t, m.View(), "Account created")
}

func TestBusy_IgnoresInput(t *testing.T) {
	m := New(80, 24)
	m.busy = true
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, cmd)

	m.Fail("Invalid credentials")
	require.False(t, m.Busy())
	assert.Contains(t, m.View(), "Invalid credentials")
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, validateEmail("a@b"))
	assert.Error(t, validateEmail(""))
	assert.Error(t, validateEmail("@b"))
	assert.Error(t, validateEmail("a@"))
	assert.Error(t, validateEmail("ab"))
}
