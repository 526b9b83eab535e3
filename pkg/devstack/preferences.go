// File: pkg/devstack/preferences.go
// Brief: Persisted toggle and mode preferences, one JSON file per stack.

package devstack

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Preferences is the persisted operator choice for a stack.
type Preferences struct {
	Toggles map[string]bool `json:"stack_toggle_status"`
	Modes   map[string]bool `json:"stack_mode_status"`
}

// PreferenceStore reads and writes `.<stack>.json` files in Dir.
type PreferenceStore struct {
	Dir string
}

// NewPreferenceStore returns a store keeping its files in dir.
func NewPreferenceStore(dir string) *PreferenceStore {
	return &PreferenceStore{Dir: dir}
}

// Path returns the preference file for stack.
func (s *PreferenceStore) Path(stack string) string {
	dir := strings.TrimSpace(s.Dir)
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "."+stack+".json")
}

// Load reads the preferences of stack. A missing file is reported through
// found=false, not as an error.
func (s *PreferenceStore) Load(stack string) (prefs Preferences, found bool, err error) {
	path := s.Path(stack)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Preferences{}, false, nil
		}
		return Preferences{}, false, fmt.Errorf("read preferences %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, false, fmt.Errorf("decode preferences %s: %w", path, err)
	}
	if prefs.Toggles == nil {
		prefs.Toggles = map[string]bool{}
	}
	if prefs.Modes == nil {
		prefs.Modes = map[string]bool{}
	}
	return prefs, true, nil
}

// Save replaces the preference file of stack.
func (s *PreferenceStore) Save(stack string, prefs Preferences) error {
	if prefs.Toggles == nil {
		prefs.Toggles = map[string]bool{}
	}
	if prefs.Modes == nil {
		prefs.Modes = map[string]bool{}
	}
	path := s.Path(stack)
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write preferences %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write preferences %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write preferences %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write preferences %s: %w", path, err)
	}
	return nil
}
