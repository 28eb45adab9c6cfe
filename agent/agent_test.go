package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/logging"
	"github.com/oron-mozes/creo-sub000/model"
)

// MockAgent for testing composite agents
type MockAgent struct {
	mock.Mock
	name string
}

func NewMockAgent(name string) *MockAgent {
	return &MockAgent{name: name}
}

func (m *MockAgent) Name() string        { return m.name }
func (m *MockAgent) Description() string { return "mock " + m.name }

func (m *MockAgent) Run(runCtx *core.RunContext) error {
	args := m.Called(runCtx)
	return args.Error(0)
}

func (m *MockAgent) Start(_ *core.RunContext) error { return nil }
func (m *MockAgent) Stop(_ *core.RunContext) error  { return nil }

func (m *MockAgent) SetSubAgents(_ ...core.Agent) error { return nil }
func (m *MockAgent) SubAgents() []core.Agent            { return nil }
func (m *MockAgent) Parent() core.Agent                 { return nil }

func (m *MockAgent) FindAgent(name string) core.Agent {
	if name == m.name {
		return m
	}
	return nil
}

// newRunContext builds a run context whose emit channel is large enough for a
// whole test run.
func newRunContext(t *testing.T, snap core.MemorySnapshot, input string) (*core.RunContext, chan core.Event) {
	t.Helper()
	emit := make(chan core.Event, 256)
	req := core.PipelineRequest{UserID: "u1", SessionID: "s1", Input: input, Message: input, Snapshot: snap}
	rc := core.NewRunContext(context.Background(), req, "run-1", core.AgentInfo{Name: "root", Type: "test"}, 0, emit, logging.NoOpLogger{})
	return rc, emit
}

func drain(emit chan core.Event) []core.Event {
	var out []core.Event
	for {
		select {
		case ev := <-emit:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestBaseAgent_Hierarchy(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	root := NewModelAgent("root", llm)
	a := NewModelAgent("a", llm)
	b := NewModelAgent("b", llm)
	leaf := NewMockAgent("leaf")

	require.NoError(t, a.SetSubAgents(leaf))
	require.NoError(t, root.SetSubAgents(a, b))

	assert.Equal(t, "root", a.Parent().Name())
	assert.Same(t, leaf, root.FindAgent("leaf"))
	assert.Equal(t, "b", root.FindAgent("b").Name())
	assert.Nil(t, root.FindAgent("missing"))

	assert.Error(t, root.SetSubAgents(a, NewModelAgent("a", llm)), "duplicate names are rejected")
}

func TestBaseAgent_StartStopCountsRuns(t *testing.T) {
	b := NewBaseAgent("worker")
	rc, _ := newRunContext(t, core.MemorySnapshot{}, "x")

	require.NoError(t, b.Start(rc))
	require.NoError(t, b.Start(rc))
	assert.Equal(t, 2, b.ActiveRuns())

	require.NoError(t, b.Stop(rc))
	require.NoError(t, b.Stop(rc))
	assert.Error(t, b.Stop(rc))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc.Context = ctx
	assert.ErrorIs(t, b.Start(rc), context.Canceled)
}
