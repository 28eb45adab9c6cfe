package testutil

import (
	"context"
	"sync"

	"github.com/oron-mozes/creo-sub000/core"
)

// ScriptedPipeline is a core.Pipeline that replays fixed events and an
// optional terminal error. Requests are recorded for assertions.
type ScriptedPipeline struct {
	Events []core.Event
	Err    error
	// Block, when set, makes Run wait for ctx cancellation after the events.
	Block bool
	// OnRun, when set, produces the events for each request instead of Events.
	OnRun func(req core.PipelineRequest) []core.Event

	mu       sync.Mutex
	requests []core.PipelineRequest
}

var _ core.Pipeline = (*ScriptedPipeline)(nil)

// Run implements core.Pipeline.
func (p *ScriptedPipeline) Run(ctx context.Context, req core.PipelineRequest) (<-chan core.Event, <-chan error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	events := p.Events
	if p.OnRun != nil {
		events = p.OnRun(req)
	}
	p.mu.Unlock()

	eventChan := make(chan core.Event)
	errorChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errorChan)

		for _, ev := range events {
			select {
			case <-ctx.Done():
				errorChan <- ctx.Err()
				return
			case eventChan <- ev:
			}
		}
		if p.Block {
			<-ctx.Done()
			errorChan <- ctx.Err()
			return
		}
		if p.Err != nil {
			errorChan <- p.Err
		}
	}()

	return eventChan, errorChan
}

// Requests returns the requests seen so far.
func (p *ScriptedPipeline) Requests() []core.PipelineRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.PipelineRequest(nil), p.requests...)
}

// Delivery is one message recorded by RecordingTransport.
type Delivery struct {
	SessionID string
	Text      string
	MessageID string
	Final     bool
	Flags     core.FinalFlags
}

// RecordingTransport is a core.Transport that records every delivery.
type RecordingTransport struct {
	mu         sync.Mutex
	deliveries []Delivery
	Err        error
}

var _ core.Transport = (*RecordingTransport)(nil)

// EmitPartial implements core.Transport.
func (t *RecordingTransport) EmitPartial(sessionID, text, messageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deliveries = append(t.deliveries, Delivery{SessionID: sessionID, Text: text, MessageID: messageID})
	return t.Err
}

// EmitFinal implements core.Transport.
func (t *RecordingTransport) EmitFinal(sessionID, text, messageID string, flags core.FinalFlags) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deliveries = append(t.deliveries, Delivery{SessionID: sessionID, Text: text, MessageID: messageID, Final: true, Flags: flags})
	return t.Err
}

// Deliveries returns all recorded deliveries in order.
func (t *RecordingTransport) Deliveries() []Delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Delivery(nil), t.deliveries...)
}

// Partials returns the texts of partial deliveries.
func (t *RecordingTransport) Partials() []string {
	var out []string
	for _, d := range t.Deliveries() {
		if !d.Final {
			out = append(out, d.Text)
		}
	}
	return out
}

// Finals returns the final deliveries.
func (t *RecordingTransport) Finals() []Delivery {
	var out []Delivery
	for _, d := range t.Deliveries() {
		if d.Final {
			out = append(out, d)
		}
	}
	return out
}
