package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oron-mozes/creo-sub000/agent"
	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/model"
)

type blockingAgent struct {
	agent.BaseAgent
	started chan struct{}
}

func (b *blockingAgent) Run(rc *core.RunContext) error {
	close(b.started)
	<-rc.Done()
	return rc.Err()
}

type failingAgent struct{ agent.BaseAgent }

func (f *failingAgent) Run(*core.RunContext) error { return errors.New("boom") }

func collect(events <-chan core.Event, errs <-chan error) ([]core.Event, error) {
	var out []core.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out, <-errs
}

func TestRunner_StreamsRootAgentEvents(t *testing.T) {
	llm := model.NewMockModel("m", "mock").Script(model.MockTurn{Text: "hello world"})
	root := agent.NewModelAgent("presenter", llm, func(o *agent.ModelAgentOptions) { o.AllowTransfer = false })

	r := New(root)
	events, err := collect(r.Run(context.Background(), core.PipelineRequest{UserID: "u", SessionID: "s", Input: "hi"}))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, events[2].IsFinal())
	assert.Equal(t, events[0].InvocationID, events[2].InvocationID)
	assert.Equal(t, 0, root.ActiveRuns())
	assert.Empty(t, r.ActiveRuns())
}

func TestRunner_AgentErrorOnErrorChannel(t *testing.T) {
	r := New(&failingAgent{BaseAgent: agent.NewBaseAgent("bad")})
	_, err := collect(r.Run(context.Background(), core.PipelineRequest{Input: "x"}))
	assert.ErrorContains(t, err, "boom")
}

func TestRunner_CancelStopsRun(t *testing.T) {
	a := &blockingAgent{BaseAgent: agent.NewBaseAgent("slow"), started: make(chan struct{})}
	r := New(a)

	events, errs := r.Run(context.Background(), core.PipelineRequest{Input: "x"})
	<-a.started

	ids := r.ActiveRuns()
	require.Len(t, ids, 1)
	require.NoError(t, r.Cancel(ids[0]))

	_, err := collect(events, errs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, r.Cancel("unknown"))
}

func TestRunner_ConcurrencyLimit(t *testing.T) {
	a := &blockingAgent{BaseAgent: agent.NewBaseAgent("slow"), started: make(chan struct{})}
	r := New(a, func(o *Options) { o.MaxConcurrentRuns = 1 })

	ctx1, cancel1 := context.WithCancel(context.Background())
	events1, errs1 := r.Run(ctx1, core.PipelineRequest{Input: "x"})
	<-a.started

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	_, err := collect(r.Run(ctx2, core.PipelineRequest{Input: "y"}))
	assert.ErrorIs(t, err, context.DeadlineExceeded, "second run waits for the slot until its context expires")

	cancel1()
	_, err = collect(events1, errs1)
	assert.ErrorIs(t, err, context.Canceled)
}
