package cli_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskclient/internal/cli"
	"github.com/nhle/taskclient/internal/credential"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/testutil"
)

var fixedNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type result struct {
	code   int
	stdout string
	stderr string
}

func setup(t *testing.T) (*testutil.FakeAPI, *cli.Env) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	fake := testutil.NewFakeAPI(t)
	t.Setenv("TASKCLIENT_API_BASE_URL", fake.URL())
	t.Setenv("TASKCLIENT_CACHE_PATH", filepath.Join(home, "cache", "tasks.db"))
	t.Setenv("TASKCLIENT_LOG_FILE", filepath.Join(home, "log", "taskclient.log"))

	return fake, &cli.Env{
		Keyring: keyring.NewArrayKeyring(nil),
		Now:     func() time.Time { return fixedNow },
	}
}

func run(t *testing.T, env *cli.Env, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli.Execute(args, &stdout, &stderr, env)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func signIn(t *testing.T, fake *testutil.FakeAPI, env *cli.Env) {
	t.Helper()
	fake.AddUser("Ada", "ada@example.com", "secret")
	res := run(t, env, "login", "--email", "ada@example.com", "--password", "secret")
	require.Equal(t, 0, res.code, res.stderr)
}

func TestLogin_Whoami_Logout(t *testing.T) {
	fake, env := setup(t)
	signIn(t, fake, env)

	res := run(t, env, "whoami")
	assert.Contains(t, res.stdout, "Signed in as ada@example.com (Ada)")
	assert.Contains(t, res.stdout, fake.URL())

	res = run(t, env, "logout")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "Signed out.")

	res = run(t, env, "whoami")
	assert.Contains(t, res.stdout, "Not signed in.")
}

func TestLogin_WrongPassword(t *testing.T) {
	fake, env := setup(t)
	fake.AddUser("Ada", "ada@example.com", "secret")

	res := run(t, env, "login", "-e", "ada@example.com", "-p", "nope")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Invalid credentials")
	assert.NotContains(t, res.stderr, "taskclient login")
	assert.Contains(t, run(t, env, "whoami").stdout, "Not signed in.")
}

func TestRegister(t *testing.T) {
	_, env := setup(t)

	res := run(t, env, "register", "-n", "Bob", "-e", "bob@example.com", "-p", "pw")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Account created")

	res = run(t, env, "register", "-n", "Bob", "-e", "bob@example.com", "-p", "pw")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "User already exists")
}

func TestList_WithoutSessionMakesNoRequest(t *testing.T) {
	fake, env := setup(t)

	res := run(t, env, "list")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "sign in again")
	assert.Contains(t, res.stderr, "taskclient login")
	assert.Zero(t, fake.RequestCount())
}

func TestAddThenList(t *testing.T) {
	fake, env := setup(t)
	signIn(t, fake, env)

	res := run(t, env, "add", "Buy milk", "-d", "2 litres", "-p", "high", "--deadline", "2024-01-05")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Task created.")
	assert.Contains(t, res.stdout, "Buy milk")

	res = run(t, env, "list", "--json")
	require.Equal(t, 0, res.code, res.stderr)
	var got []model.Task
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Buy milk", got[0].Title)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.Equal(t, model.StatusInProgress, got[0].Status)
	assert.Equal(t, "2024-01-05", got[0].Deadline.String())
}

func TestAdd_ValidationFailsWithoutRequest(t *testing.T) {
	fake, env := setup(t)
	signIn(t, fake, env)
	before := fake.RequestCount()

	res := run(t, env, "add", "Taxes", "-d", "file them", "--deadline", "2023-12-31")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Deadline cannot be in the past.")

	res = run(t, env, "add", "Taxes", "-d", "x", "-p", "urgent")
	assert.Equal(t, 1, res.code)
	assert.Equal(t, before, fake.RequestCount())
}

func TestList_FiltersAndSorts(t *testing.T) {
	fake, env := setup(t)
	signIn(t, fake, env)
	fake.Seed(
		model.Task{Title: "Later", Description: "x", Deadline: model.MustParseDate("2024-03-01")},
		model.Task{Title: "Sooner", Description: "x", Deadline: model.MustParseDate("2024-02-01")},
		model.Task{Title: "Done thing", Description: "x", Status: model.StatusCompleted},
	)

	res := run(t, env, "list", "--sort", "deadline", "--status", "in-progress")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Less(t, strings.Index(res.stdout, "Sooner"), strings.Index(res.stdout, "Later"))
	assert.NotContains(t, res.stdout, "Done thing")
	assert.Contains(t, res.stdout, "2 of 3 tasks")

	res = run(t, env, "list", "--search", "nothing matches")
	assert.Contains(t, res.stdout, "No tasks match your filters.")

	res = run(t, env, "list", "--title", "soon")
	assert.Contains(t, res.stdout, "1 of 1 tasks")
	assert.Equal(t, "soon", fake.LastRequest().URL.Query().Get("title"))

	res = run(t, env, "list", "--status", "archived")
	assert.Equal(t, 1, res.code)
}

func TestUpdateDoneReopenDelete(t *testing.T) {
	fake, env := setup(t)
	signIn(t, fake, env)
	id := fake.Seed(model.Task{Title: "Gym", Description: "legs"})[0].ID

	res := run(t, env, "update", id, "--title", "Gym day", "-p", "medium")
	require.Equal(t, 0, res.code, res.stderr)
	got := fake.Tasks()[0]
	assert.Equal(t, "Gym day", got.Title)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, "legs", got.Description)

	require.Equal(t, 0, run(t, env, "done", id).code)
	assert.Equal(t, model.StatusCompleted, fake.Tasks()[0].Status)

	require.Equal(t, 0, run(t, env, "reopen", id).code)
	assert.Equal(t, model.StatusInProgress, fake.Tasks()[0].Status)

	res = run(t, env, "delete", id, "--yes")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Task deleted.")
	assert.Empty(t, fake.Tasks())

	res = run(t, env, "done", id)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "That task no longer exists.")
}

func TestUpdate_NothingToChange(t *testing.T) {
	fake, env := setup(t)
	signIn(t, fake, env)

	res := run(t, env, "update", "some-id")
	assert.Equal(t, 1, res.code)
}

func TestRevokedSessionIsCleared(t *testing.T) {
	fake, env := setup(t)
	signIn(t, fake, env)
	creds, err := credential.New(env.Keyring)
	require.NoError(t, err)
	cred, ok := creds.Get()
	require.True(t, ok)
	fake.RevokeToken(cred.Token)

	res := run(t, env, "list")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "taskclient login")
	assert.Contains(t, run(t, env, "whoami").stdout, "Not signed in.")
}

func TestList_FallsBackToSavedTasksWhenOffline(t *testing.T) {
	fake, env := setup(t)
	signIn(t, fake, env)
	fake.Seed(model.Task{Title: "Saved task", Description: "x"})
	require.Equal(t, 0, run(t, env, "list").code)

	t.Setenv("TASKCLIENT_API_BASE_URL", "http://127.0.0.1:1/api")
	res := run(t, env, "list")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Saved task")
	assert.Contains(t, res.stderr, "Could not reach the task service")
}

func TestConfigInit_WritesEffectiveSettings(t *testing.T) {
	fake, env := setup(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	res := run(t, env, "--config", path, "config", "init")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Wrote "+path)

	t.Setenv("TASKCLIENT_API_BASE_URL", "")
	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, fake.URL(), cfg.API.BaseURL)

	res = run(t, env, "--config", path, "config", "init")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "already exists")

	res = run(t, env, "--config", path, "config", "show")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, fake.URL())
}
