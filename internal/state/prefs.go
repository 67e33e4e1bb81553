package state

import (
	"errors"
)

const (
	prefsBucket = "console"
	prefsKey    = "prefs"
)

// ConsolePrefs are the console settings remembered between runs.
type ConsolePrefs struct {
	LastRoute string `json:"last_route,omitempty"`
}

// PrefsStore keeps ConsolePrefs in a Store.
type PrefsStore struct {
	store Store
}

// NewPrefsStore returns prefs backed by store.
func NewPrefsStore(store Store) *PrefsStore {
	return &PrefsStore{store: store}
}

// Load returns the saved prefs. Nothing saved yet is not an error.
func (p *PrefsStore) Load() (ConsolePrefs, error) {
	var prefs ConsolePrefs
	err := p.store.GetJSON(prefsBucket, prefsKey, &prefs)
	if errors.Is(err, ErrNotFound) {
		return ConsolePrefs{}, nil
	}
	return prefs, err
}

// Save replaces the saved prefs.
func (p *PrefsStore) Save(prefs ConsolePrefs) error {
	return p.store.SetJSON(prefsBucket, prefsKey, prefs)
}

// SetLastRoute records the page the console should reopen on.
func (p *PrefsStore) SetLastRoute(path string) error {
	prefs, err := p.Load()
	if err != nil {
		return err
	}
	if prefs.LastRoute == path {
		return nil
	}
	prefs.LastRoute = path
	return p.Save(prefs)
}
