// Package identity provides an in-memory core.Identity for the CLI and tests.
package identity

import (
	"context"
	"sync"

	"github.com/oron-mozes/creo-sub000/core"
)

// Static tracks authenticated users and their display names in memory.
type Static struct {
	mu    sync.RWMutex
	authn map[string]bool
	names map[string]string
}

var _ core.Identity = (*Static)(nil)

// NewStatic creates a provider where the given users start authenticated.
func NewStatic(authenticated ...string) *Static {
	s := &Static{authn: map[string]bool{}, names: map[string]string{}}
	for _, u := range authenticated {
		s.authn[u] = true
	}
	return s
}

// Authenticate marks userID as signed in.
func (s *Static) Authenticate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authn[userID] = true
}

// Revoke signs userID out.
func (s *Static) Revoke(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authn, userID)
}

// SetDisplayName records the hint returned by ProfileHint.
func (s *Static) SetDisplayName(userID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[userID] = name
}

// IsAuthenticated implements core.Identity.
func (s *Static) IsAuthenticated(_ context.Context, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authn[userID]
}

// ProfileHint implements core.Identity. Unknown users yield nil.
func (s *Static) ProfileHint(_ context.Context, userID string) (*core.ProfileHint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[userID]
	if !ok {
		return nil, nil
	}
	return &core.ProfileHint{DisplayName: name}, nil
}
