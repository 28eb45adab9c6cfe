package core

import "time"

// Outcome classifies how a turn ended.
type Outcome string

const (
	// OutcomeAnswered means the coordinating worker produced a final answer.
	OutcomeAnswered Outcome = "answered"
	// OutcomeAuthRequired means the answer was withheld behind a login prompt.
	OutcomeAuthRequired Outcome = "auth_required"
	// OutcomeFallbackPresentation means streamed presentation chunks were used.
	OutcomeFallbackPresentation Outcome = "fallback_presentation"
	// OutcomeFallbackWorkers means unstreamed chunks from other workers were used.
	OutcomeFallbackWorkers Outcome = "fallback_workers"
	// OutcomeUnavailable means nothing was produced and a static notice was sent.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeOverloaded means the upstream model was overloaded and an apology was sent.
	OutcomeOverloaded Outcome = "overloaded"
)

// Degraded reports whether the outcome is a degraded-service completion.
func (o Outcome) Degraded() bool {
	return o == OutcomeUnavailable || o == OutcomeOverloaded
}

// TurnResult is the per-turn audit record. It is logged and returned to the
// caller; it is not persisted.
type TurnResult struct {
	UserID           string
	SessionID        string
	MessageID        string
	Outcome          Outcome
	Text             string // text delivered as the terminal message
	PresentationText string // concatenated presentation chunks
	RawEvents        int
	Parts            int
	TextEvents       int
	StageBefore      WorkflowStage
	StageAfter       WorkflowStage
	ProfileBefore    bool
	ProfileAfter     bool
	Duration         time.Duration
}

// LogAttrs renders the result as key/value pairs for structured loggers.
func (r TurnResult) LogAttrs() []any {
	return []any{
		"user_id", r.UserID,
		"session_id", r.SessionID,
		"message_id", r.MessageID,
		"outcome", string(r.Outcome),
		"raw_events", r.RawEvents,
		"parts", r.Parts,
		"text_events", r.TextEvents,
		"presentation_chars", len(r.PresentationText),
		"stage_before", r.StageBefore.String(),
		"stage_after", r.StageAfter.String(),
		"profile_before", r.ProfileBefore,
		"profile_after", r.ProfileAfter,
		"duration_ms", r.Duration.Milliseconds(),
	}
}
