package credential

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EmptyKeyring(t *testing.T) {
	s, err := New(keyring.NewArrayKeyring(nil))
	require.NoError(t, err)

	_, ok := s.Get()
	assert.False(t, ok)
}

func TestStore_SetGetClear(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s, err := New(ring)
	require.NoError(t, err)

	require.NoError(t, s.Set(Credential{Token: "abc", Name: "Ada", Email: "ada@example.com"}))

	got, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, "abc", got.Token)
	assert.Equal(t, "ada@example.com", got.Owner())

	item, err := ring.Get(sessionKey)
	require.NoError(t, err)
	var stored Credential
	require.NoError(t, json.Unmarshal(item.Data, &stored))
	assert.Equal(t, got, stored)

	require.NoError(t, s.Clear())
	_, ok = s.Get()
	assert.False(t, ok)
	_, err = ring.Get(sessionKey)
	assert.True(t, errors.Is(err, keyring.ErrKeyNotFound))

	// A second clear is harmless.
	require.NoError(t, s.Clear())
}

func TestStore_SetReplacesPrevious(t *testing.T) {
	s, err := New(keyring.NewArrayKeyring(nil))
	require.NoError(t, err)

	require.NoError(t, s.Set(Credential{Token: "first"}))
	require.NoError(t, s.Set(Credential{Token: "second", Name: "Bo"}))

	got, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, Credential{Token: "second", Name: "Bo"}, got)
}

func TestStore_SetRejectsEmptyToken(t *testing.T) {
	s, err := New(keyring.NewArrayKeyring(nil))
	require.NoError(t, err)

	assert.Error(t, s.Set(Credential{Token: "  "}))
	_, ok := s.Get()
	assert.False(t, ok)
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	first, err := New(ring)
	require.NoError(t, err)
	require.NoError(t, first.Set(Credential{Token: "tok", Email: "a@b.c"}))

	second, err := New(ring)
	require.NoError(t, err)
	got, ok := second.Get()
	require.True(t, ok)
	assert.Equal(t, "tok", got.Token)
}

func TestStore_MigratesLegacyShapes(t *testing.T) {
	tests := []struct {
		name  string
		items []keyring.Item
		want  Credential
	}{
		{
			name:  "bare token",
			items: []keyring.Item{{Key: legacyTokenKey, Data: []byte("bare-token\n")}},
			want:  Credential{Token: "bare-token"},
		},
		{
			name:  "wrapped token",
			items: []keyring.Item{{Key: legacyWrappedKey, Data: []byte(`{"token":"wrapped","name":"Cy"}`)}},
			want:  Credential{Token: "wrapped", Name: "Cy"},
		},
		{
			name: "wrapped wins over bare",
			items: []keyring.Item{
				{Key: legacyTokenKey, Data: []byte("bare")},
				{Key: legacyWrappedKey, Data: []byte(`{"token":"wrapped"}`)},
			},
			want: Credential{Token: "wrapped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring := keyring.NewArrayKeyring(tt.items)
			s, err := New(ring)
			require.NoError(t, err)

			got, ok := s.Get()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			_, err = ring.Get(sessionKey)
			assert.NoError(t, err)
			for _, key := range []string{legacyTokenKey, legacyWrappedKey} {
				_, err := ring.Get(key)
				assert.True(t, errors.Is(err, keyring.ErrKeyNotFound), "legacy key %q left behind", key)
			}
		})
	}
}

func TestStore_DropsCorruptSession(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{{Key: sessionKey, Data: []byte("{not json")}})
	s, err := New(ring)
	require.NoError(t, err)

	_, ok := s.Get()
	assert.False(t, ok)
	_, err = ring.Get(sessionKey)
	assert.True(t, errors.Is(err, keyring.ErrKeyNotFound))
}

// stubRing wraps a keyring so tests can hold writes open or make them fail.
type stubRing struct {
	keyring.Keyring

	entered   chan struct{}
	release   chan struct{}
	removeErr error
}

func (r *stubRing) Set(item keyring.Item) error {
	if r.entered != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	return r.Keyring.Set(item)
}

func (r *stubRing) Remove(key string) error {
	if r.removeErr != nil {
		return r.removeErr
	}
	return r.Keyring.Remove(key)
}

func TestStore_CorruptSessionRemoveFailure(t *testing.T) {
	ring := &stubRing{
		Keyring:   keyring.NewArrayKeyring([]keyring.Item{{Key: sessionKey, Data: []byte("{not json")}}),
		removeErr: errors.New("keyring locked"),
	}

	_, err := New(ring)
	require.Error(t, err)
	assert.ErrorContains(t, err, "keyring locked")
}

func TestStore_GetDoesNotWaitForKeyringWrite(t *testing.T) {
	ring := &stubRing{
		Keyring: keyring.NewArrayKeyring(nil),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, err := New(ring)
	require.NoError(t, err)

	setDone := make(chan error, 1)
	go func() { setDone <- s.Set(Credential{Token: "slow"}) }()
	<-ring.entered

	got := make(chan bool, 1)
	go func() {
		_, ok := s.Get()
		got <- ok
	}()
	select {
	case ok := <-got:
		assert.False(t, ok, "credential is visible only once persisted")
	case <-time.After(time.Second):
		close(ring.release)
		t.Fatal("Get blocked on a keyring write")
	}

	close(ring.release)
	require.NoError(t, <-setDone)
	cred, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, "slow", cred.Token)
}

func TestCredential_Owner(t *testing.T) {
	assert.Equal(t, "a@b.c", Credential{Email: "a@b.c", Name: "A"}.Owner())
	assert.Equal(t, "A", Credential{Name: "A"}.Owner())
	assert.Equal(t, "default", Credential{}.Owner())
}
