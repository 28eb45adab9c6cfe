package testutil

import (
	"github.com/oron-mozes/creo-sub000/core"
)

// EventBuilder provides a fluent helper for constructing worker events in tests.
// Example:
//
//	ev := NewEventBuilder().Author("coordinator").Text("hello").Final().Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	author        string
	invocationID  string
	id            string
	role          string
	textParts     []string
	funcCalls     []core.FunctionCall
	funcResponses []core.FunctionResponse
	partial       *bool
	turnComplete  *bool
	customParts   []core.Part
	actions       core.EventActions
	errorCode     *string
	errorMessage  *string
}

// NewEventBuilder creates a builder with default author "agent".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "agent"} }

// Author sets the producing worker (chainable).
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Invocation sets the run id (chainable).
func (b *EventBuilder) Invocation(id string) *EventBuilder { b.invocationID = id; return b }

// ID overrides the generated event id (chainable).
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Text appends an assistant text part (chainable).
func (b *EventBuilder) Text(t string) *EventBuilder {
	b.role = core.RoleAssistant
	b.textParts = append(b.textParts, t)
	return b
}

// UserText appends a user text part (chainable).
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.role = core.RoleUser
	b.textParts = append(b.textParts, t)
	return b
}

// Partial marks the event as a streaming fragment (chainable).
func (b *EventBuilder) Partial() *EventBuilder { p := true; b.partial = &p; return b }

// Final marks the event as the author's final answer (chainable).
func (b *EventBuilder) Final() *EventBuilder { c := true; b.turnComplete = &c; return b }

// AddPart appends a custom content part (chainable).
func (b *EventBuilder) AddPart(p core.Part) *EventBuilder {
	b.customParts = append(b.customParts, p)
	return b
}

// FunctionCall adds a function call part (chainable).
func (b *EventBuilder) FunctionCall(name, args string) *EventBuilder {
	b.funcCalls = append(b.funcCalls, core.FunctionCall{Name: name, Arguments: args})
	return b
}

// FunctionResponse adds a function response part (chainable).
func (b *EventBuilder) FunctionResponse(id, name string, result any, err error) *EventBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	b.funcResponses = append(b.funcResponses, fr)
	return b
}

// Stage requests a workflow stage transition (chainable).
func (b *EventBuilder) Stage(s core.WorkflowStage) *EventBuilder {
	b.actions.StageTransition = &s
	return b
}

// Profile attaches a business profile update (chainable).
func (b *EventBuilder) Profile(p map[string]any) *EventBuilder { b.actions.BusinessProfile = p; return b }

// Brief attaches a campaign brief update (chainable).
func (b *EventBuilder) Brief(p map[string]any) *EventBuilder { b.actions.CampaignBrief = p; return b }

// Scratch attaches a private scratch write (chainable).
func (b *EventBuilder) Scratch(key string, value any) *EventBuilder {
	if b.actions.ScratchDelta == nil {
		b.actions.ScratchDelta = map[string]any{}
	}
	b.actions.ScratchDelta[key] = value
	return b
}

// Status attaches a worker status update (chainable).
func (b *EventBuilder) Status(s string) *EventBuilder { b.actions.WorkerStatus = &s; return b }

// AuthRequired raises the one-shot auth flag (chainable).
func (b *EventBuilder) AuthRequired() *EventBuilder { t := true; b.actions.AuthRequired = &t; return b }

// Transfer sets the target agent for a transfer action (chainable).
func (b *EventBuilder) Transfer(to string) *EventBuilder { b.actions.TransferToAgent = &to; return b }

// Error marks the event as a worker failure (chainable).
func (b *EventBuilder) Error(code, msg string) *EventBuilder {
	b.errorCode = &code
	b.errorMessage = &msg
	return b
}

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.invocationID, b.author)
	if b.id != "" {
		ev.ID = b.id
	}
	ev.Partial = b.partial
	ev.TurnComplete = b.turnComplete
	ev.ErrorCode = b.errorCode
	ev.ErrorMessage = b.errorMessage
	ev.Actions = b.actions

	parts := make([]core.Part, 0, len(b.textParts)+len(b.funcCalls)+len(b.funcResponses)+len(b.customParts))
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, fc := range b.funcCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	for _, fr := range b.funcResponses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}
	parts = append(parts, b.customParts...)
	if len(parts) > 0 {
		role := b.role
		if role == "" {
			role = core.RoleAssistant
		}
		ev.Content = &core.Content{Role: role, Parts: parts}
	}
	return ev
}
