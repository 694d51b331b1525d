// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"context"
)

// Verifier performs a real login with creds against the server described by
// st and returns the display name of the authenticated user.
type Verifier func(ctx context.Context, st State, creds Credentials) (string, error)

// Service centralizes the interactive login and logout flows.
type Service struct {
	store  *Store
	verify Verifier
}

// NewService constructs an auth Service.
func NewService(store *Store, verify Verifier) *Service {
	return &Service{store: store, verify: verify}
}

// Login verifies creds and, only when the server accepts them, stores the
// secret in the keychain and records st as the current account.
func (s *Service) Login(ctx context.Context, st State, creds Credentials) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}
	st.Mode = creds.Mode()
	if st.Mode == ModePassword {
		st.Username = creds.Username
	}

	user, err := s.verify(ctx, st, creds)
	if err != nil {
		return "", err
	}
	if err := s.store.Save(st, creds.Secret()); err != nil {
		return "", err
	}
	return user, nil
}

// Logout forgets the current account. It reports the state that was cleared;
// a zero State means nobody was logged in.
func (s *Service) Logout() (State, error) {
	st, err := s.store.Load()
	if err != nil {
		return State{}, err
	}
	if st.URL == "" {
		return State{}, nil
	}
	return st, s.store.Clear(st)
}

// Current returns the recorded state and its credentials, if any.
func (s *Service) Current() (State, Credentials, error) {
	st, err := s.store.Load()
	if err != nil || st.URL == "" {
		return st, Credentials{}, err
	}
	secret, err := s.store.Secret(st)
	if err != nil {
		return st, Credentials{}, err
	}
	if st.Mode == ModeAPIKey {
		return st, Credentials{APIKey: secret}, nil
	}
	return st, Credentials{Username: st.Username, Password: secret}, nil
}
