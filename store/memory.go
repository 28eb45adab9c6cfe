package store

import (
	"context"
	"sync"

	"github.com/oron-mozes/creo-sub000/core"
)

var _ core.Store = (*InMemoryStore)(nil)

// InMemoryStore is a volatile core.Store kept in process maps. Returned
// values are copies; callers cannot mutate stored state.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]core.Message
	seen     map[string]struct{}
	profiles map[string]map[string]any
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		messages: make(map[string][]core.Message),
		seen:     make(map[string]struct{}),
		profiles: make(map[string]map[string]any),
	}
}

// AppendMessage implements core.MessageStore.
func (s *InMemoryStore) AppendMessage(_ context.Context, msg core.Message) error {
	if msg.SessionID == "" {
		return core.ErrMissingSessionID
	}
	if msg.ID == "" {
		msg.ID = core.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[msg.ID]; dup {
		return nil
	}
	s.seen[msg.ID] = struct{}{}
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

// Messages implements core.MessageStore.
func (s *InMemoryStore) Messages(_ context.Context, sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Message(nil), s.messages[sessionID]...), nil
}

// GetBusinessProfile implements core.ProfileStore.
func (s *InMemoryStore) GetBusinessProfile(_ context.Context, userID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return cloneProfile(p)
}

// SetBusinessProfile implements core.ProfileStore.
func (s *InMemoryStore) SetBusinessProfile(_ context.Context, userID string, profile map[string]any) error {
	if userID == "" {
		return core.ErrMissingUserID
	}
	p, err := cloneProfile(profile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = p
	return nil
}
