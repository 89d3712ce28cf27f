package testutil

import (
	"testing"

	"github.com/99designs/keyring"

	"github.com/nhle/taskclient/internal/credential"
	"github.com/nhle/taskclient/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewCredentials returns a credential store backed by an in-memory keyring.
// A non-empty token is stored as the active session.
func NewCredentials(t *testing.T, token string) *credential.Store {
	t.Helper()

	s, err := credential.New(keyring.NewArrayKeyring(nil))
	if err != nil {
		t.Fatalf("creating credential store: %v", err)
	}
	if token != "" {
		if err := s.Set(credential.Credential{Token: token, Email: "ada@example.com", Name: "Ada"}); err != nil {
			t.Fatalf("storing credential: %v", err)
		}
	}
	return s
}
