package core

import (
	"context"

	"github.com/oron-mozes/creo-sub000/logging"
)

// RunContext is the per-turn execution scope passed to Agent.Run. It carries:
//   - the cancellation Context of the turn
//   - identifiers (user, session, run) and the running agent's info
//   - the compacted Input and raw Message of the turn
//   - a read-only Snapshot of the session's shared state
//   - the Emit channel events are written to
//   - the model call Budget shared by the whole run
//
// Agents never mutate SessionMemory directly. State changes travel as
// EventActions on emitted events and are applied by the dispatcher.
type RunContext struct {
	Context                  context.Context
	UserID, SessionID, RunID string
	Agent                    AgentInfo
	Input                    string
	Message                  string
	Snapshot                 MemorySnapshot
	Emit                     chan<- Event
	Budget                   *CallBudget
	Branch                   string

	*loggerAdapter
}

// NewRunContext builds the root context for one pipeline run.
func NewRunContext(
	ctx context.Context,
	req PipelineRequest,
	runID string,
	agent AgentInfo,
	maxModelCalls int,
	emit chan<- Event,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		RunID:         runID,
		Agent:         agent,
		Input:         req.Input,
		Message:       req.Message,
		Snapshot:      req.Snapshot,
		Emit:          emit,
		Budget:        NewCallBudget(maxModelCalls),
		loggerAdapter: newLoggerAdapter(logger, "session_id", req.SessionID, "run", runID),
	}
}

// Done mirrors context.Context's Done.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error, if any.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// NewChildContext derives a context for a sub-agent. The child writes to emit
// (letting the parent intercept its output), runs as agent, and uses input in
// place of the parent's Input when non-empty.
func (rc *RunContext) NewChildContext(emit chan<- Event, agent AgentInfo, input string) *RunContext {
	if input == "" {
		input = rc.Input
	}
	branch := agent.Name
	if rc.Branch != "" {
		branch = rc.Branch + "." + agent.Name
	}
	return &RunContext{
		Context:       rc.Context,
		UserID:        rc.UserID,
		SessionID:     rc.SessionID,
		RunID:         rc.RunID,
		Agent:         agent,
		Input:         input,
		Message:       rc.Message,
		Snapshot:      rc.Snapshot,
		Emit:          emit,
		Budget:        rc.Budget,
		Branch:        branch,
		loggerAdapter: rc.loggerAdapter,
	}
}

// EmitEvent stamps run correlation fields and sends ev, honoring cancellation.
func (rc *RunContext) EmitEvent(ev Event) error {
	if ev.InvocationID == "" {
		ev.InvocationID = rc.RunID
	}
	if ev.Author == "" {
		ev.Author = rc.Agent.Name
	}
	if ev.Branch == nil && rc.Branch != "" {
		b := rc.Branch
		ev.Branch = &b
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
		return nil
	}
}
