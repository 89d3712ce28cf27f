package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskclient/internal/api"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/testutil"
)

var fixedNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newClient(t *testing.T, fake *testutil.FakeAPI, token string) *api.Client {
	t.Helper()
	return api.NewClient(fake.URL(), testutil.NewCredentials(t, token),
		api.WithClock(func() time.Time { return fixedNow }))
}

func signedIn(t *testing.T) (*testutil.FakeAPI, *api.Client) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	token := fake.AddUser("Ada", "ada@example.com", "secret")
	return fake, newClient(t, fake, token)
}

func TestList_AttachesBearerAndDecodes(t *testing.T) {
	fake, client := signedIn(t)
	seeded := fake.Seed(
		model.Task{Title: "Write report", Description: "Q1", Deadline: model.MustParseDate("2024-01-10"), Priority: model.PriorityHigh},
		model.Task{Title: "File taxes", Status: model.StatusCompleted},
	)

	tasks, err := client.List(context.Background(), api.ListOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, seeded[0].ID, tasks[0].ID)
	assert.Equal(t, "Write report", tasks[0].Title)
	assert.Equal(t, "2024-01-10", tasks[0].Deadline.String())
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, model.StatusInProgress, tasks[0].Status)
	assert.Equal(t, model.StatusCompleted, tasks[1].Status)
	assert.True(t, tasks[1].Deadline.IsZero())

	assert.Regexp(t, `^Bearer .+`, fake.LastAuthorization())
	assert.NotEmpty(t, fake.LastRequest().Header.Get(api.RequestIDHeader))
}

func TestList_TitleQuery(t *testing.T) {
	fake, client := signedIn(t)
	fake.Seed(model.Task{Title: "Alpha"}, model.Task{Title: "Beta"})

	tasks, err := client.List(context.Background(), api.ListOptions{Title: "alp"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Alpha", tasks[0].Title)
	assert.Equal(t, "alp", fake.LastRequest().URL.Query().Get("title"))
}

func TestCalls_WithoutCredentialIssueNoRequest(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	client := newClient(t, fake, "")
	ctx := context.Background()

	calls := map[string]func() error{
		"list": func() error {
			_, err := client.List(ctx, api.ListOptions{})
			return err
		},
		"create": func() error {
			_, err := client.Create(ctx, model.Draft{Title: "t", Description: "d"})
			return err
		},
		"update": func() error {
			_, err := client.Update(ctx, "x", model.StatusPatch(model.StatusCompleted))
			return err
		},
		"delete": func() error {
			return client.Delete(ctx, "x")
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.True(t, api.IsUnauthenticated(err), "got %v", err)
		})
	}
	assert.Equal(t, 0, fake.RequestCount())
}

func TestCreate_AppliesDefaults(t *testing.T) {
	fake, client := signedIn(t)

	created, err := client.Create(context.Background(), model.Draft{Title: "Plan trip", Description: "Book flights"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.StatusInProgress, created.Status)
	assert.Equal(t, model.PriorityLow, created.Priority)

	stored := fake.Tasks()
	require.Len(t, stored, 1)
	assert.Equal(t, created.ID, stored[0].ID)
}

func TestCreate_ClientSideValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft model.Draft
		want  string
	}{
		{"missing title", model.Draft{Description: "d"}, "Title is required."},
		{"missing description", model.Draft{Title: "t"}, "Description is required."},
		{"bad priority", model.Draft{Title: "t", Description: "d", Priority: "urgent"}, "Priority must be low, medium or high."},
		{"past deadline", model.Draft{Title: "t", Description: "d", Deadline: model.MustParseDate("2023-12-31")}, "Deadline cannot be in the past."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, client := signedIn(t)

			_, err := client.Create(context.Background(), tt.draft)
			require.Error(t, err)
			assert.True(t, api.IsKind(err, api.KindValidation))
			assert.Equal(t, tt.want, api.ServerMessage(err))
			assert.Equal(t, 0, fake.RequestCount())
		})
	}
}

func TestCreate_DeadlineTodayAllowed(t *testing.T) {
	_, client := signedIn(t)

	created, err := client.Create(context.Background(), model.Draft{
		Title: "t", Description: "d", Deadline: model.MustParseDate("2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", created.Deadline.String())
}

func TestUpdate_PartialAndNotFound(t *testing.T) {
	fake, client := signedIn(t)
	seeded := fake.Seed(model.Task{Title: "Alpha", Description: "keep"})

	updated, err := client.Update(context.Background(), seeded[0].ID, model.StatusPatch(model.StatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.Equal(t, "keep", updated.Description)

	_, err = client.Update(context.Background(), "missing", model.StatusPatch(model.StatusCompleted))
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindNotFound))
	assert.Equal(t, "Task not found", api.ServerMessage(err))
}

func TestUpdate_EmptyPatchRejected(t *testing.T) {
	fake, client := signedIn(t)

	_, err := client.Update(context.Background(), "abc", model.Patch{})
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Equal(t, 0, fake.RequestCount())
}

func TestDelete(t *testing.T) {
	fake, client := signedIn(t)
	seeded := fake.Seed(model.Task{Title: "Gone"})

	require.NoError(t, client.Delete(context.Background(), seeded[0].ID))
	assert.Empty(t, fake.Tasks())

	err := client.Delete(context.Background(), seeded[0].ID)
	assert.True(t, api.IsKind(err, api.KindNotFound))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    gin.H
		kind    api.Kind
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, gin.H{"message": "Token expired"}, api.KindUnauthenticated, "Token expired"},
		{"forbidden", http.StatusForbidden, nil, api.KindUnauthenticated, ""},
		{"not found", http.StatusNotFound, gin.H{"message": "Task not found"}, api.KindNotFound, "Task not found"},
		{"validation message", http.StatusBadRequest, gin.H{"message": "Deadline is invalid"}, api.KindValidation, "Deadline is invalid"},
		{"validation error field", http.StatusUnprocessableEntity, gin.H{"error": "title too long"}, api.KindValidation, "title too long"},
		{"validation errors list", http.StatusBadRequest, gin.H{"errors": []gin.H{{"msg": "a"}, {"msg": "b"}}}, api.KindValidation, "a; b"},
		{"server fault", http.StatusInternalServerError, gin.H{"message": "Server Error"}, api.KindServerFault, "Server Error"},
		{"bad gateway without body", http.StatusBadGateway, nil, api.KindServerFault, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, client := signedIn(t)
			fake.FailNext(tt.status, tt.body)

			_, err := client.List(context.Background(), api.ListOptions{})
			require.Error(t, err)

			var apiErr *api.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestServerRejectsToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	token := fake.AddUser("Ada", "ada@example.com", "secret")
	creds := testutil.NewCredentials(t, token)
	client := api.NewClient(fake.URL(), creds)
	fake.RevokeToken(token)

	_, err := client.List(context.Background(), api.ListOptions{})
	assert.True(t, api.IsUnauthenticated(err))

	// The repository never clears the credential itself.
	_, ok := creds.Get()
	assert.True(t, ok)
}

func TestUnexpectedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"unknown status", `[{"_id":"1","title":"t","status":"blocked","priority":"low"}]`},
		{"unknown priority", `[{"_id":"1","title":"t","status":"completed","priority":"urgent"}]`},
		{"missing id", `[{"title":"t"}]`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			client := api.NewClient(srv.URL, testutil.NewCredentials(t, "tok"))
			_, err := client.List(context.Background(), api.ListOptions{})
			require.Error(t, err)
			assert.True(t, api.IsKind(err, api.KindServerFault), "got %v", err)
		})
	}
}

func TestList_AcceptsWrappedArrayAndLegacyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tasks":[{"id":"7","title":"Old","status":"in progress","deadline":"2024-03-04T00:00:00.000Z"}]}`))
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, testutil.NewCredentials(t, "tok"))
	tasks, err := client.List(context.Background(), api.ListOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "7", tasks[0].ID)
	assert.Equal(t, model.StatusInProgress, tasks[0].Status)
	assert.Equal(t, model.PriorityLow, tasks[0].Priority)
	assert.Equal(t, "2024-03-04", tasks[0].Deadline.String())
}

func TestNetworkFailures(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client := api.NewClient(url, testutil.NewCredentials(t, "tok"))
		_, err := client.List(context.Background(), api.ListOptions{})
		assert.True(t, api.IsKind(err, api.KindNetwork), "got %v", err)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		client := api.NewClient(srv.URL, testutil.NewCredentials(t, "tok"), api.WithTimeout(50*time.Millisecond))
		_, err := client.List(context.Background(), api.ListOptions{})
		assert.True(t, api.IsKind(err, api.KindNetwork), "got %v", err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		fake, client := signedIn(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.List(ctx, api.ListOptions{})
		assert.True(t, api.IsKind(err, api.KindNetwork), "got %v", err)
		assert.Equal(t, 0, fake.RequestCount())
	})
}

func TestRegisterAndLogin(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	client := newClient(t, fake, "")
	ctx := context.Background()

	user, err := client.Register(ctx, "Grace", "grace@example.com", "hopper")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Grace", user.Name)

	_, err = client.Register(ctx, "Grace", "grace@example.com", "hopper")
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Equal(t, "User already exists", api.ServerMessage(err))

	cred, err := client.Login(ctx, "grace@example.com", "hopper")
	require.NoError(t, err)
	assert.NotEmpty(t, cred.Token)
	assert.Equal(t, "Grace", cred.Name)
	assert.Equal(t, "grace@example.com", cred.Email)
	assert.Empty(t, fake.LastAuthorization())

	_, err = client.Login(ctx, "grace@example.com", "wrong")
	assert.True(t, api.IsUnauthenticated(err))
	assert.Equal(t, "Invalid credentials", api.ServerMessage(err))
}

func TestLogin_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"x"}`))
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, testutil.NewCredentials(t, ""))
	_, err := client.Login(context.Background(), "a@b.c", "pw")
	assert.True(t, api.IsKind(err, api.KindServerFault))
}
