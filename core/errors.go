package core

import "errors"

var (
	// ErrInvalidStage is returned when a stage string is outside the WorkflowStage enum.
	ErrInvalidStage = errors.New("invalid workflow stage")
	// ErrMissingUserID is returned when a call lacks the owning user identity.
	ErrMissingUserID = errors.New("user id is required")
	// ErrMissingSessionID is returned when a call lacks a session identity.
	ErrMissingSessionID = errors.New("session id is required")
	// ErrMissingPipeline is returned when no worker pipeline can be bound to a user.
	ErrMissingPipeline = errors.New("worker pipeline not configured")
	// ErrContextClosed is returned when a worker context was cleared while in use.
	ErrContextClosed = errors.New("worker context closed")
	// ErrSessionNotFound is returned by lookups for unknown sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUpstreamOverloaded marks transient model provider overload / rate limiting.
	ErrUpstreamOverloaded = errors.New("upstream model overloaded")
	// ErrModelCallLimit is returned when a run exceeds its model call budget.
	ErrModelCallLimit = errors.New("model call limit exceeded")
)

// ErrorCodeOverloaded is set on Event.ErrorCode by workers that caught an
// upstream overload themselves instead of returning it.
const ErrorCodeOverloaded = "overloaded"
