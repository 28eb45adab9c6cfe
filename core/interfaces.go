package core

import (
	"context"
	"time"
)

// PipelineRequest is the input handed to the worker pipeline for one turn.
type PipelineRequest struct {
	UserID    string
	SessionID string
	// Input is the compacted, augmented input built for this turn.
	Input string
	// Message is the raw user message.
	Message string
	// Snapshot is a copy of the session's shared state taken after the user
	// message was appended.
	Snapshot MemorySnapshot
}

// Pipeline runs one turn through the workers and streams their events. The
// event channel is closed when the pipeline finishes; the error channel
// carries at most one error. Implementations must stop when ctx is done.
type Pipeline interface {
	Run(ctx context.Context, req PipelineRequest) (<-chan Event, <-chan error)
}

// Identity answers authentication questions about a user.
type Identity interface {
	IsAuthenticated(ctx context.Context, userID string) bool
	ProfileHint(ctx context.Context, userID string) (*ProfileHint, error)
}

// Message is a persisted conversation entry.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageStore persists conversation messages. AppendMessage is idempotent
// for a repeated message ID.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg Message) error
	Messages(ctx context.Context, sessionID string) ([]Message, error)
}

// ProfileStore persists business profiles per user. GetBusinessProfile returns
// nil without error when no profile exists.
type ProfileStore interface {
	GetBusinessProfile(ctx context.Context, userID string) (map[string]any, error)
	SetBusinessProfile(ctx context.Context, userID string, profile map[string]any) error
}

// Store is the combined persistence surface used by the dispatcher.
type Store interface {
	MessageStore
	ProfileStore
}

// FinalFlags annotate a terminal message.
type FinalFlags struct {
	AuthRequired bool   `json:"auth_required,omitempty"`
	UIHint       string `json:"ui_hint,omitempty"`
	Degraded     bool   `json:"degraded,omitempty"`
	Fallback     bool   `json:"fallback,omitempty"`
}

// Transport delivers output to the client room keyed by session id.
type Transport interface {
	EmitPartial(sessionID, text, messageID string) error
	EmitFinal(sessionID, text, messageID string, flags FinalFlags) error
}
