package prefs

import (
	"fyne.io/fyne/v2"
)

// FyneStore adapts fyne's per-application preference storage to the
// KeyValueStore collaborator. Fyne preferences cannot fail at the API level,
// so reads only ever return the value or ErrNotFound.
type FyneStore struct {
	Prefs fyne.Preferences
}

// NewFyneStore wraps the preference storage of a fyne application.
func NewFyneStore(p fyne.Preferences) *FyneStore {
	return &FyneStore{Prefs: p}
}

// Get returns the stored value for key, or ErrNotFound when absent.
// Fyne does not distinguish an empty stored string from an absent key; an
// empty value therefore reads as absent, which matches how every caller in
// this module treats the two.
func (s *FyneStore) Get(key string) (string, error) {
	v := s.Prefs.String(key)
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores the value under key.
func (s *FyneStore) Set(key, value string) error {
	s.Prefs.SetString(key, value)
	return nil
}

// Remove deletes the key.
func (s *FyneStore) Remove(key string) error {
	s.Prefs.RemoveValue(key)
	return nil
}
