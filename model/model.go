package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oron-mozes/creo-sub000/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "bedrock", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface agents need to drive generation. The
// response channel is closed when generation ends; the error channel carries
// at most one error, already passed through Classify by provider adapters.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// MockTurn is one scripted model reply.
type MockTurn struct {
	Text      string
	ToolCalls []core.FunctionCall
	Err       error
}

// MockModel is an in-memory Model for tests and the offline CLI. Scripted
// turns are consumed in order; once exhausted it falls back to canned
// responses keyed by the last user text, then to an echo.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	script    []MockTurn
	requests  []Request
}

var _ Model = (*MockModel)(nil)

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider, SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for an input text.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Script appends scripted turns.
func (m *MockModel) Script(turns ...MockTurn) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, turns...)
	return m
}

// Requests returns every request seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *MockModel) next(req Request) MockTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		t := m.script[0]
		m.script = m.script[1:]
		return t
	}

	input := lastUserText(req.Contents)
	if r, ok := m.responses[input]; ok {
		return MockTurn{Text: r}
	}
	return MockTurn{Text: fmt.Sprintf("Mock response to: %s", input)}
}

// Generate implements Model. Streaming requests emit one partial per word
// before the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}

		turn := m.next(req)
		if turn.Err != nil {
			errCh <- Classify(turn.Err)
			return
		}

		if req.Stream && turn.Text != "" {
			for _, word := range strings.SplitAfter(turn.Text, " ") {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.NewTextContent(core.RoleAssistant, word),
				}:
				}
			}
		}

		parts := make([]core.Part, 0, len(turn.ToolCalls)+1)
		if turn.Text != "" {
			parts = append(parts, core.TextPart{Text: turn.Text})
		}
		finish := "stop"
		for i, fc := range turn.ToolCalls {
			if fc.ID == "" {
				fc.ID = fmt.Sprintf("call_%d_%s", i, fc.Name)
			}
			parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
			finish = "tool_calls"
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{
			Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
			FinishReason: finish,
		}:
		}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

func lastUserText(contents []core.Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role != core.RoleUser {
			continue
		}
		var b strings.Builder
		for _, p := range contents[i].Parts {
			if tp, ok := p.(core.TextPart); ok {
				b.WriteString(tp.Text)
			}
		}
		return b.String()
	}
	return ""
}
