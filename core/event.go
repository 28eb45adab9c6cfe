package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventActions carries structured side effects attached to an Event by the
// worker that produced it. The dispatcher applies them to SessionMemory as the
// event is observed; workers never mutate session state directly. Pointer and
// map fields distinguish "not set" from zero values.
type EventActions struct {
	StageTransition   *WorkflowStage `json:"stage_transition,omitempty"`
	BusinessProfile   map[string]any `json:"business_profile,omitempty"`
	CampaignBrief     map[string]any `json:"campaign_brief,omitempty"`
	ScratchDelta      map[string]any `json:"scratch_delta,omitempty"`
	WorkerStatus      *string        `json:"worker_status,omitempty"`
	AuthRequired      *bool          `json:"auth_required,omitempty"`
	TransferToAgent   *string        `json:"transfer_to_agent,omitempty"`
	SkipSummarization *bool          `json:"skip_summarization,omitempty"`
}

// Empty reports whether no action is set.
func (a EventActions) Empty() bool {
	return a.StageTransition == nil &&
		len(a.BusinessProfile) == 0 &&
		len(a.CampaignBrief) == 0 &&
		len(a.ScratchDelta) == 0 &&
		a.WorkerStatus == nil &&
		a.AuthRequired == nil &&
		a.TransferToAgent == nil &&
		a.SkipSummarization == nil
}

// Merge copies every action set on other into a. Later values win.
func (a *EventActions) Merge(other EventActions) {
	if other.StageTransition != nil {
		a.StageTransition = other.StageTransition
	}
	if len(other.BusinessProfile) > 0 {
		a.BusinessProfile = other.BusinessProfile
	}
	if len(other.CampaignBrief) > 0 {
		a.CampaignBrief = other.CampaignBrief
	}
	if len(other.ScratchDelta) > 0 {
		if a.ScratchDelta == nil {
			a.ScratchDelta = map[string]any{}
		}
		for k, v := range other.ScratchDelta {
			a.ScratchDelta[k] = v
		}
	}
	if other.WorkerStatus != nil {
		a.WorkerStatus = other.WorkerStatus
	}
	if other.AuthRequired != nil {
		a.AuthRequired = other.AuthRequired
	}
	if other.TransferToAgent != nil {
		a.TransferToAgent = other.TransferToAgent
	}
	if other.SkipSummarization != nil {
		a.SkipSummarization = other.SkipSummarization
	}
}

// Event is one record in the stream a worker pipeline produces for a turn.
// Author names the producing worker. Partial marks streaming fragments.
// TurnComplete marks the producing worker's own final answer for the turn.
// After emission an Event should be treated as immutable.
type Event struct {
	ID           string            `json:"id"`
	InvocationID string            `json:"invocation_id"`
	Author       string            `json:"author"`
	Actions      EventActions      `json:"actions"`
	Branch       *string           `json:"branch,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Content      *Content          `json:"content,omitempty"`
	Partial      *bool             `json:"partial,omitempty"`
	TurnComplete *bool             `json:"turn_complete,omitempty"`
	ErrorCode    *string           `json:"error_code,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates a bare event authored by author bound to an invocation.
func NewEvent(invocationID, author string) Event {
	return Event{
		ID:           NewID(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    time.Now().UTC(),
		Actions:      EventActions{},
	}
}

// NewMessageEvent creates an assistant message event with a single text part.
func NewMessageEvent(author, message string) Event {
	e := NewEvent("", author)
	e.Content = &Content{Role: RoleAssistant, Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewPartialEvent creates a streaming text fragment authored by author.
func NewPartialEvent(author, fragment string) Event {
	e := NewMessageEvent(author, fragment)
	partial := true
	e.Partial = &partial
	return e
}

// NewFinalEvent creates the author's final answer for the turn.
func NewFinalEvent(author, text string) Event {
	e := NewMessageEvent(author, text)
	complete := true
	e.TurnComplete = &complete
	return e
}

// NewFunctionCallEvent represents an agent requesting execution of a named tool.
func NewFunctionCallEvent(author, functionName, args string) Event {
	e := NewEvent("", author)
	e.Content = &Content{
		Role: RoleAssistant,
		Parts: []Part{
			FunctionCallPart{FunctionCall: FunctionCall{Name: functionName, Arguments: args}},
		},
	}
	return e
}

// NewFunctionResponseEvent records the result (or error) of a tool invocation.
func NewFunctionResponseEvent(author, id, functionName string, result any, err error) Event {
	e := NewEvent("", author)
	fr := FunctionResponse{ID: id, Name: functionName, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	e.Content = &Content{Role: RoleTool, Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
	return e
}

// NewErrorEvent creates an event reporting a worker-level failure.
func NewErrorEvent(author, code, message string) Event {
	e := NewEvent("", author)
	e.ErrorCode = &code
	e.ErrorMessage = &message
	return e
}

// NewID returns a random UUID string.
func NewID() string { return uuid.NewString() }

// IsPartial reports whether the event is a streaming fragment.
func (e Event) IsPartial() bool { return e.Partial != nil && *e.Partial }

// IsFinal reports whether the producing worker marked this as its final answer.
func (e Event) IsFinal() bool { return e.TurnComplete != nil && *e.TurnComplete && !e.IsPartial() }

// IsOverloaded reports whether the event carries the overload error code.
func (e Event) IsOverloaded() bool {
	return e.ErrorCode != nil && *e.ErrorCode == ErrorCodeOverloaded
}

// Text concatenates the text parts of the event content in order.
func (e Event) Text() string {
	if e.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range e.Content.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// PartCount returns the number of content parts.
func (e Event) PartCount() int {
	if e.Content == nil {
		return 0
	}
	return len(e.Content.Parts)
}

// GetFunctionCalls returns the FunctionCall parts in order.
func (e Event) GetFunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// GetFunctionResponses returns the FunctionResponse parts in order.
func (e Event) GetFunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range e.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// IsFinalResponse is the model-loop heuristic: no pending tool calls or
// responses and not a fragment.
func (e Event) IsFinalResponse() bool {
	if e.Actions.SkipSummarization != nil && *e.Actions.SkipSummarization {
		return true
	}
	return len(e.GetFunctionCalls()) == 0 &&
		len(e.GetFunctionResponses()) == 0 &&
		!e.IsPartial()
}
