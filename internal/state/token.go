package state

import (
	"errors"
	"sync"
)

// Bucket and key under which the session token is persisted.
const (
	SessionBucket = "session"
	TokenKey      = "token"
)

// TokenStorage is the durable cell holding the session token. It is the
// only session artifact that survives a restart.
type TokenStorage interface {
	// Load returns the persisted token, or "" when none is stored.
	Load() (string, error)
	Save(token string) error
	// Remove deletes the persisted token. Removing an absent token is not an error.
	Remove() error
}

// StoreTokenStorage persists the token in a Store.
type StoreTokenStorage struct {
	store Store
}

// NewTokenStorage returns a TokenStorage backed by store.
func NewTokenStorage(store Store) *StoreTokenStorage {
	return &StoreTokenStorage{store: store}
}

// Load implements TokenStorage.
func (t *StoreTokenStorage) Load() (string, error) {
	v, err := t.store.Get(SessionBucket, TokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Save implements TokenStorage.
func (t *StoreTokenStorage) Save(token string) error {
	return t.store.Set(SessionBucket, TokenKey, []byte(token))
}

// Remove implements TokenStorage.
func (t *StoreTokenStorage) Remove() error {
	err := t.store.Delete(SessionBucket, TokenKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// MemoryTokenStorage keeps the token in process memory.
type MemoryTokenStorage struct {
	mu    sync.Mutex
	token string
	set   bool

	// FailSave and FailRemove inject errors for tests.
	FailSave   error
	FailRemove error
}

// NewMemoryTokenStorage returns storage pre-seeded with token ("" for empty).
func NewMemoryTokenStorage(token string) *MemoryTokenStorage {
	return &MemoryTokenStorage{token: token, set: token != ""}
}

// Load implements TokenStorage.
func (m *MemoryTokenStorage) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save implements TokenStorage.
func (m *MemoryTokenStorage) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.token = token
	m.set = true
	return nil
}

// Remove implements TokenStorage.
func (m *MemoryTokenStorage) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRemove != nil {
		return m.FailRemove
	}
	m.token = ""
	m.set = false
	return nil
}

// Present reports whether an entry exists.
func (m *MemoryTokenStorage) Present() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set
}
