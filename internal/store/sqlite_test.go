package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/store"
	"github.com/nhle/taskclient/internal/testutil"
)

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "b", Title: "Second alphabetically", Description: "kept first", Deadline: model.MustParseDate("2024-02-01"), Status: model.StatusInProgress, Priority: model.PriorityHigh},
		{ID: "a", Title: "First alphabetically", Status: model.StatusCompleted, Priority: model.PriorityLow},
	}
}

func TestSnapshot_RoundTripPreservesOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	require.NoError(t, s.SaveSnapshot(ctx, "ada@example.com", sampleTasks()))

	got, fetchedAt, err := s.LoadSnapshot(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, sampleTasks(), got)
	assert.True(t, fetchedAt.After(before), "fetched at %v", fetchedAt)
}

func TestSnapshot_SaveReplaces(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, "ada", sampleTasks()))
	replacement := []model.Task{{ID: "c", Title: "Only", Status: model.StatusInProgress, Priority: model.PriorityMedium}}
	require.NoError(t, s.SaveSnapshot(ctx, "ada", replacement))

	got, _, err := s.LoadSnapshot(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestSnapshot_OwnersAreIsolated(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, "ada", sampleTasks()))

	got, fetchedAt, err := s.LoadSnapshot(ctx, "grace")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, fetchedAt.IsZero())

	require.NoError(t, s.ClearSnapshot(ctx, "grace"))
	got, _, err = s.LoadSnapshot(ctx, "ada")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSnapshot_ClearAndEmptySave(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, "", sampleTasks()))
	got, _, err := s.LoadSnapshot(ctx, store.DefaultOwner)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, s.ClearSnapshot(ctx, ""))
	got, _, err = s.LoadSnapshot(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveSnapshot(ctx, "ada", sampleTasks()))
	require.NoError(t, s.SaveSnapshot(ctx, "ada", nil))
	got, _, err = s.LoadSnapshot(ctx, "ada")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshot_DuplicateIDsRejectedAtomically(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, "ada", sampleTasks()))

	dupes := []model.Task{
		{ID: "x", Title: "one", Status: model.StatusInProgress, Priority: model.PriorityLow},
		{ID: "x", Title: "two", Status: model.StatusInProgress, Priority: model.PriorityLow},
	}
	require.Error(t, s.SaveSnapshot(ctx, "ada", dupes))

	got, _, err := s.LoadSnapshot(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, sampleTasks(), got)
}

func TestMigrations_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "ada", sampleTasks()))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	got, _, err := s.LoadSnapshot(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, sampleTasks(), got)
}
