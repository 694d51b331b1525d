// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"encoding/json"
	stderrors "errors"

	"odoomcp/cli/internal/keychain"
)

// State records the last successful interactive login. It holds no secret.
type State struct {
	URL      string `json:"url"`
	Database string `json:"database"`
	Username string `json:"username,omitempty"`
	Mode     Mode   `json:"mode"`
}

// Account is the keychain account this state points at.
func (s State) Account() string {
	return keychain.Account(s.URL, s.Database, s.Username)
}

// Store persists State and secrets in a keychain manager.
type Store struct {
	km *keychain.Manager
}

// NewStore wraps km.
func NewStore(km *keychain.Manager) *Store {
	return &Store{km: km}
}

// DefaultStore opens the process-wide OS keychain.
func DefaultStore() (*Store, error) {
	km, err := keychain.GetManager()
	if err != nil {
		return nil, err
	}
	return NewStore(km), nil
}

// Load reads the auth state. Missing state yields the zero value.
func (s *Store) Load() (State, error) {
	var st State
	data, err := s.km.LoadAuthState()
	if stderrors.Is(err, keychain.ErrNotFound) || (err == nil && len(data) == 0) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}

// Save records st and the secret belonging to it.
func (s *Store) Save(st State, secret string) error {
	if err := s.km.SaveSecret(st.Account(), secret); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return s.km.SaveAuthState(b)
}

// Secret returns the stored secret for st, or keychain.ErrNotFound.
func (s *Store) Secret(st State) (string, error) {
	return s.km.LoadSecret(st.Account())
}

// Clear removes the secret of st and the recorded state.
func (s *Store) Clear(st State) error {
	if err := s.km.DeleteSecret(st.Account()); err != nil {
		return err
	}
	return s.km.ClearAuthState()
}
