package core

import (
	"context"
	"fmt"

	"github.com/oron-mozes/creo-sub000/logging"
)

// ToolContext is the surface a tool sees while executing. Side effects are
// recorded as EventActions and attached to the function response event; the
// session itself is only readable through the run snapshot.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	actions        EventActions

	*loggerAdapter
}

// NewToolContext binds a tool invocation to its run and function call id.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		loggerAdapter:  runCtx.loggerAdapter,
	}
}

// Context returns the turn's context.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// UserID returns the user the turn belongs to.
func (tc *ToolContext) UserID() string { return tc.runCtx.UserID }

// SessionID returns the session the turn belongs to.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RunID returns the run id.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Logger returns the run logger.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the id correlating the model's call with this execution.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the agent executing the tool.
func (tc *ToolContext) AgentName() string { return tc.runCtx.Agent.Name }

// Snapshot returns the session state as of the start of the turn.
func (tc *ToolContext) Snapshot() MemorySnapshot { return tc.runCtx.Snapshot }

// Actions returns the accumulated actions.
func (tc *ToolContext) Actions() *EventActions { return &tc.actions }

// SetStage requests a stage transition. Unknown stages are rejected.
func (tc *ToolContext) SetStage(stage WorkflowStage) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, string(stage))
	}
	tc.actions.StageTransition = &stage
	tc.LogDebug("tool.stage.request", "agent", tc.AgentName(), "stage", stage.String(), "fc_id", tc.functionCallID)
	return nil
}

// SaveBusinessProfile requests the shared business profile be replaced.
func (tc *ToolContext) SaveBusinessProfile(profile map[string]any) {
	tc.actions.BusinessProfile = copyMap(profile)
}

// SaveCampaignBrief requests the shared campaign brief be replaced.
func (tc *ToolContext) SaveCampaignBrief(brief map[string]any) {
	tc.actions.CampaignBrief = copyMap(brief)
}

// SetScratch writes into the executing agent's private scratch space.
func (tc *ToolContext) SetScratch(key string, value any) {
	if tc.actions.ScratchDelta == nil {
		tc.actions.ScratchDelta = map[string]any{}
	}
	tc.actions.ScratchDelta[key] = value
}

// SetWorkerStatus surfaces a status for the executing agent.
func (tc *ToolContext) SetWorkerStatus(status string) {
	tc.actions.WorkerStatus = &status
}

// RequireAuthentication raises the one-shot auth flag for this turn.
func (tc *ToolContext) RequireAuthentication() {
	t := true
	tc.actions.AuthRequired = &t
	tc.LogInfo("tool.auth.required", "agent", tc.AgentName(), "fc_id", tc.functionCallID)
}

// TransferToAgent asks the running agent to hand control to a sub-agent.
func (tc *ToolContext) TransferToAgent(name string) {
	tc.actions.TransferToAgent = &name
	tc.LogInfo("tool.transfer.request", "from_agent", tc.AgentName(), "to_agent", name, "fc_id", tc.functionCallID)
}

// SkipSummarization marks the response as final without another model turn.
func (tc *ToolContext) SkipSummarization() {
	b := true
	tc.actions.SkipSummarization = &b
}
