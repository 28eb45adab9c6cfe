package core

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Metadata keys understood by the engine.
const (
	// MetaAuthRequiredTriggered is the one-shot flag a worker raises when it
	// refused to act for an unauthenticated user.
	MetaAuthRequiredTriggered = "auth_required_triggered"
	// MetaPendingAnswer holds the turn ID of an answer withheld by the auth gate.
	MetaPendingAnswer = "pending_answer"
)

// Turn is one entry of the shared conversation history.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileHint is identity-provided context about the user.
type ProfileHint struct {
	DisplayName string `json:"display_name"`
}

// SessionSummary is the compact cross-session view used for continuity.
type SessionSummary struct {
	SessionID     string
	Created       time.Time
	LastActive    time.Time
	TurnCount     int
	HasProfile    bool
	LastUser      string
	LastAssistant string
}

// MemorySnapshot is a deep copy of a SessionMemory's shared fields taken at a
// point in time. It is safe to read without locks and never aliases live state.
type MemorySnapshot struct {
	SessionID       string
	UserID          string
	Turns           []Turn
	BusinessProfile map[string]any
	CampaignBrief   map[string]any
	Stage           WorkflowStage
	WorkerStatuses  map[string]string
	Metadata        map[string]any
	ProfileHint     *ProfileHint
	Created         time.Time
	Updated         time.Time
}

// SessionMemory is the per-conversation state bundle. Shared fields are
// visible to every worker; Scratch spaces are private to a single worker name.
//
// Field access is guarded by an internal RWMutex so every method is safe for
// concurrent use. Whole-turn serialization is separate: callers processing a
// turn hold LockTurn for its duration so turn N completes before turn N+1
// appends its user message.
type SessionMemory struct {
	id     string
	userID string

	turnMu sync.Mutex

	mu       sync.RWMutex
	turns    []Turn
	profile  map[string]any
	brief    map[string]any
	stage    WorkflowStage
	statuses map[string]string
	metadata map[string]any
	hint     *ProfileHint
	scratch  map[string]*Scratch
	created  time.Time
	updated  time.Time
}

// NewSessionMemory creates an empty session owned by userID.
func NewSessionMemory(sessionID, userID string) *SessionMemory {
	now := time.Now().UTC()
	return &SessionMemory{
		id:       sessionID,
		userID:   userID,
		statuses: map[string]string{},
		metadata: map[string]any{},
		scratch:  map[string]*Scratch{},
		created:  now,
		updated:  now,
	}
}

// ID returns the session id.
func (m *SessionMemory) ID() string { return m.id }

// UserID returns the owning user id.
func (m *SessionMemory) UserID() string { return m.userID }

// Created returns the creation time.
func (m *SessionMemory) Created() time.Time { return m.created }

// LastActive returns the time of the most recent mutation.
func (m *SessionMemory) LastActive() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

// LockTurn serializes turn processing for this session.
func (m *SessionMemory) LockTurn() { m.turnMu.Lock() }

// UnlockTurn releases the turn lock.
func (m *SessionMemory) UnlockTurn() { m.turnMu.Unlock() }

// AppendMessage appends a turn and returns it. An empty id is replaced with a
// generated one.
func (m *SessionMemory) AppendMessage(role, text, id string) Turn {
	if id == "" {
		id = NewID()
	}
	t := Turn{ID: id, Role: role, Text: text, CreatedAt: time.Now().UTC()}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	m.updated = t.CreatedAt
	return t
}

// Turns returns a copy of the conversation history.
func (m *SessionMemory) Turns() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// TurnCount returns the number of turns.
func (m *SessionMemory) TurnCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// FindTurn returns the turn with the given id.
func (m *SessionMemory) FindTurn(id string) (Turn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.turns) - 1; i >= 0; i-- {
		if m.turns[i].ID == id {
			return m.turns[i], true
		}
	}
	return Turn{}, false
}

// Stage returns the current stage and whether one is set.
func (m *SessionMemory) Stage() (WorkflowStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stage, m.stage != StageNone
}

// SetStage validates and sets the stage, returning the previous value.
// Invalid stages are rejected with ErrInvalidStage and leave state untouched.
func (m *SessionMemory) SetStage(stage WorkflowStage) (WorkflowStage, error) {
	if !stage.Valid() {
		return StageNone, fmt.Errorf("%w: %q", ErrInvalidStage, string(stage))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.stage
	m.stage = stage
	m.updated = time.Now().UTC()
	return prev, nil
}

// ClearStage resets the stage to StageNone.
func (m *SessionMemory) ClearStage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stage = StageNone
	m.updated = time.Now().UTC()
}

// BusinessProfile returns a copy of the profile, or nil when absent.
func (m *SessionMemory) BusinessProfile() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMap(m.profile)
}

// HasBusinessProfile reports whether a profile is present.
func (m *SessionMemory) HasBusinessProfile() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile != nil
}

// SetBusinessProfile stores a copy of data. A nil map clears the profile.
func (m *SessionMemory) SetBusinessProfile(data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = copyMap(data)
	m.updated = time.Now().UTC()
}

// CampaignBrief returns a copy of the brief, or nil when absent.
func (m *SessionMemory) CampaignBrief() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMap(m.brief)
}

// HasCampaignBrief reports whether a brief is present.
func (m *SessionMemory) HasCampaignBrief() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.brief != nil
}

// SetCampaignBrief stores a copy of data. A nil map clears the brief.
func (m *SessionMemory) SetCampaignBrief(data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brief = copyMap(data)
	m.updated = time.Now().UTC()
}

// WorkerStatus returns the surfaced status of a worker.
func (m *SessionMemory) WorkerStatus(worker string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[worker]
	return s, ok
}

// SetWorkerStatus records a status the worker wants surfaced to all workers.
// An empty status removes the entry.
func (m *SessionMemory) SetWorkerStatus(worker, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == "" {
		delete(m.statuses, worker)
	} else {
		m.statuses[worker] = status
	}
	m.updated = time.Now().UTC()
}

// ProfileHint returns the identity hint, if any.
func (m *SessionMemory) ProfileHint() *ProfileHint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.hint == nil {
		return nil
	}
	h := *m.hint
	return &h
}

// SetProfileHint replaces the identity hint without touching history.
func (m *SessionMemory) SetProfileHint(h ProfileHint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hint = &h
}

// SetMeta stores a metadata value.
func (m *SessionMemory) SetMeta(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
}

// Meta returns a metadata value.
func (m *SessionMemory) Meta(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.metadata[key]
	return v, ok
}

// TakeMeta returns and deletes a metadata value atomically.
func (m *SessionMemory) TakeMeta(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.metadata[key]
	delete(m.metadata, key)
	return v, ok
}

// SetFlag raises a boolean one-shot flag.
func (m *SessionMemory) SetFlag(key string) { m.SetMeta(key, true) }

// TakeFlag reports whether the flag was raised and clears it in the same step.
func (m *SessionMemory) TakeFlag(key string) bool {
	v, ok := m.TakeMeta(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// WorkerScratch returns the private scratch space of worker, creating it when
// absent. The same *Scratch is returned for the same name on every call.
func (m *SessionMemory) WorkerScratch(worker string) *Scratch {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scratch[worker]
	if !ok {
		s = newScratch()
		m.scratch[worker] = s
	}
	return s
}

// Workers returns the names of workers that own scratch space, sorted.
func (m *SessionMemory) Workers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.scratch))
	for name := range m.scratch {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a deep copy of the shared fields.
func (m *SessionMemory) Snapshot() MemorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MemorySnapshot{
		SessionID:       m.id,
		UserID:          m.userID,
		Turns:           make([]Turn, len(m.turns)),
		BusinessProfile: copyMap(m.profile),
		CampaignBrief:   copyMap(m.brief),
		Stage:           m.stage,
		WorkerStatuses:  make(map[string]string, len(m.statuses)),
		Metadata:        copyMap(m.metadata),
		Created:         m.created,
		Updated:         m.updated,
	}
	copy(snap.Turns, m.turns)
	for k, v := range m.statuses {
		snap.WorkerStatuses[k] = v
	}
	if m.hint != nil {
		h := *m.hint
		snap.ProfileHint = &h
	}
	return snap
}

// Summary returns the one-line view used by other sessions of the same user.
func (m *SessionMemory) Summary() SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := SessionSummary{
		SessionID:  m.id,
		Created:    m.created,
		LastActive: m.updated,
		TurnCount:  len(m.turns),
		HasProfile: m.profile != nil,
	}
	for i := len(m.turns) - 1; i >= 0 && (s.LastUser == "" || s.LastAssistant == ""); i-- {
		switch m.turns[i].Role {
		case RoleUser:
			if s.LastUser == "" {
				s.LastUser = m.turns[i].Text
			}
		case RoleAssistant:
			if s.LastAssistant == "" {
				s.LastAssistant = m.turns[i].Text
			}
		}
	}
	return s
}

// Scratch is a worker-private key/value area.
type Scratch struct {
	mu     sync.RWMutex
	values map[string]any
}

func newScratch() *Scratch { return &Scratch{values: map[string]any{}} }

// Get returns a value.
func (s *Scratch) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value.
func (s *Scratch) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Append adds value to the list stored under key, creating it if needed.
func (s *Scratch) Append(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, _ := s.values[key].([]any)
	s.values[key] = append(list, value)
}

// Delete removes a key.
func (s *Scratch) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Len returns the number of keys.
func (s *Scratch) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns a deep copy of the scratch contents.
func (s *Scratch) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := copyMap(s.values)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// copyMap deep-copies nested maps and slices; other values are shared.
func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		cp := make([]any, len(t))
		for i := range t {
			cp[i] = copyValue(t[i])
		}
		return cp
	case []string:
		cp := make([]string, len(t))
		copy(cp, t)
		return cp
	default:
		return v
	}
}
