package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Keyring keys. sessionKey holds the canonical record; the legacy keys are
// only read during migration.
const (
	sessionKey       = "session"
	legacyTokenKey   = "token"
	legacyWrappedKey = "user"
)

// ErrNoCredential is returned when an operation needs a session and none
// is stored.
var ErrNoCredential = errors.New("no credential stored")

// Credential is an authenticated session: a bearer token plus the
// identity it was issued to.
type Credential struct {
	Token string `json:"token"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Owner returns a stable label for the account, used to key local data.
func (c Credential) Owner() string {
	switch {
	case c.Email != "":
		return c.Email
	case c.Name != "":
		return c.Name
	default:
		return "default"
	}
}

// Store holds at most one credential, mirrored in memory and persisted
// in a keyring. Get never touches the keyring.
type Store struct {
	ring keyring.Keyring

	// writeMu orders keyring writes; mu guards only cur, so Get never
	// waits on keyring I/O.
	writeMu sync.Mutex

	mu  sync.RWMutex
	cur *Credential
}

// New wraps ring and loads the stored session, migrating legacy
// bare-token and wrapped-token entries into the canonical record.
func New(ring keyring.Keyring) (*Store, error) {
	s := &Store{ring: ring}
	cred, err := s.load()
	if err != nil {
		return nil, err
	}
	s.cur = cred
	return s, nil
}

func (s *Store) load() (*Credential, error) {
	item, err := s.ring.Get(sessionKey)
	switch {
	case err == nil:
		var c Credential
		if err := json.Unmarshal(item.Data, &c); err != nil || c.Token == "" {
			// An unreadable session is as good as none; drop it so the
			// user is asked to sign in again.
			if err := s.ring.Remove(sessionKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
				return nil, fmt.Errorf("deleting unreadable credential %q: %w", sessionKey, err)
			}
			return nil, nil
		}
		return &c, nil
	case !errors.Is(err, keyring.ErrKeyNotFound):
		return nil, fmt.Errorf("getting credential %q: %w", sessionKey, err)
	}

	cred, err := s.loadLegacy()
	if err != nil || cred == nil {
		return nil, err
	}
	if err := s.write(*cred); err != nil {
		return nil, err
	}
	for _, key := range []string{legacyWrappedKey, legacyTokenKey} {
		if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, fmt.Errorf("deleting credential %q: %w", key, err)
		}
	}
	return cred, nil
}

// loadLegacy reads the two pre-session shapes: {"token": ...} under "user"
// and a bare token string under "token". The wrapped form wins.
func (s *Store) loadLegacy() (*Credential, error) {
	item, err := s.ring.Get(legacyWrappedKey)
	if err == nil {
		var c Credential
		if json.Unmarshal(item.Data, &c) == nil && c.Token != "" {
			return &c, nil
		}
	} else if !errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("getting credential %q: %w", legacyWrappedKey, err)
	}

	item, err = s.ring.Get(legacyTokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting credential %q: %w", legacyTokenKey, err)
	}
	token := strings.TrimSpace(string(item.Data))
	if token == "" {
		return nil, nil
	}
	return &Credential{Token: token}, nil
}

func (s *Store) write(c Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	err = s.ring.Set(keyring.Item{
		Key:         sessionKey,
		Data:        data,
		Label:       "task client session",
		Description: "bearer token for the task service",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", sessionKey, err)
	}
	return nil
}

// Get returns the current credential, if any.
func (s *Store) Get() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cur == nil {
		return Credential{}, false
	}
	return *s.cur, true
}

// Set persists c and makes it the active credential, replacing any
// previous one.
func (s *Store) Set(c Credential) error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("credential token must not be empty")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.write(c); err != nil {
		return err
	}
	s.swap(&c)
	return nil
}

// Clear removes the stored credential. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// The session is dropped in memory even if the keyring refuses.
	s.swap(nil)
	if err := s.ring.Remove(sessionKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", sessionKey, err)
	}
	return nil
}

func (s *Store) swap(c *Credential) {
	s.mu.Lock()
	s.cur = c
	s.mu.Unlock()
}
