package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/logging"
)

func newToolContext(t *testing.T, agentName, fcID string) *core.ToolContext {
	t.Helper()
	emit := make(chan core.Event, 10)
	req := core.PipelineRequest{UserID: "u1", SessionID: "s1", Message: "hi", Input: "hi"}
	runCtx := core.NewRunContext(context.Background(), req, "run-1", core.AgentInfo{Name: agentName, Type: "test"}, 0, emit, logging.NoOpLogger{})
	return core.NewToolContext(runCtx, fcID)
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool := NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})

	result, err := sumTool.Call(newToolContext(t, "worker", "fc1"), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		"required": []any{"a"},
	}
	tTool := NewFunctionTool("test", "Test", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return 0, nil
	})

	_, err := tTool.Call(newToolContext(t, "worker", "fc2"), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	execTool := NewFunctionTool("fail", "Fails", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})

	_, err := execTool.Call(newToolContext(t, "worker", "fc3"), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Equal(t, "boom", toolErr.Message)
}

func TestFunctionTool_ForwardsToolError(t *testing.T) {
	custom := NewToolError("custom", "nope", "E_CUSTOM")
	ft := NewFunctionTool("custom", "", map[string]any{}, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, custom
	})

	_, err := ft.Call(newToolContext(t, "worker", "fc4"), map[string]any{})
	assert.Same(t, custom, err)
}

// -------------------- Workflow Tools --------------------

func TestWorkflowTools_Definitions(t *testing.T) {
	defs := Definitions(WorkflowTools())
	require.Len(t, defs, 5)

	names := make([]string, len(defs))
	for i, d := range defs {
		assert.Equal(t, "function", d.Type)
		names[i] = d.Function.Name
	}
	assert.Equal(t, []string{
		SetWorkflowStageName,
		SaveBusinessProfileName,
		SaveCampaignBriefName,
		RequireAuthenticationName,
		SetWorkerStatusName,
	}, names)
}

func TestWorkflowTools_RejectBadArguments(t *testing.T) {
	cases := map[string]map[string]any{
		SetWorkflowStageName:    {"stage": "shipping"},
		SaveBusinessProfileName: {"profile": "coffee shop"},
		SaveCampaignBriefName:   {},
		SetWorkerStatusName:     {"status": 7},
	}
	for _, tl := range WorkflowTools() {
		args, ok := cases[tl.Name()]
		if !ok {
			continue
		}
		t.Run(tl.Name(), func(t *testing.T) {
			_, err := tl.Call(newToolContext(t, "worker", "fc-"+tl.Name()), args)
			var toolErr *ToolError
			require.ErrorAs(t, err, &toolErr)
			assert.Equal(t, CodeValidation, toolErr.Code)
		})
	}
}

func TestSetWorkflowStage(t *testing.T) {
	st := NewSetWorkflowStageTool()

	tc := newToolContext(t, "onboarding", "fc-stage")
	res, err := st.Call(tc, map[string]any{"stage": "campaign_brief"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"stage": "campaign_brief"}, res)
	require.NotNil(t, tc.Actions().StageTransition)
	assert.Equal(t, core.StageCampaignBrief, *tc.Actions().StageTransition)

	bad := newToolContext(t, "onboarding", "fc-bad")
	_, err = st.Call(bad, map[string]any{"stage": "launch_party"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.Nil(t, bad.Actions().StageTransition)
}

func TestSaveBusinessProfile(t *testing.T) {
	st := NewSaveBusinessProfileTool()
	profile := map[string]any{"name": "Bean There", "category": "coffee shop"}

	tc := newToolContext(t, "onboarding", "fc-profile")
	_, err := st.Call(tc, map[string]any{"profile": profile})
	require.NoError(t, err)
	assert.Equal(t, profile, tc.Actions().BusinessProfile)

	profile["name"] = "mutated"
	assert.Equal(t, "Bean There", tc.Actions().BusinessProfile["name"], "action holds a copy")

	_, err = st.Call(newToolContext(t, "onboarding", "fc-empty"), map[string]any{"profile": map[string]any{}})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeInvalidArg, toolErr.Code)
}

func TestSaveCampaignBrief(t *testing.T) {
	tc := newToolContext(t, "campaign_brief", "fc-brief")
	_, err := NewSaveCampaignBriefTool().Call(tc, map[string]any{"brief": map[string]any{"goal": "foot traffic"}})
	require.NoError(t, err)
	assert.Equal(t, "foot traffic", tc.Actions().CampaignBrief["goal"])
}

func TestRequireAuthentication(t *testing.T) {
	tc := newToolContext(t, "creator_finder", "fc-auth")
	_, err := NewRequireAuthenticationTool().Call(tc, map[string]any{"reason": "search needs an account"})
	require.NoError(t, err)
	require.NotNil(t, tc.Actions().AuthRequired)
	assert.True(t, *tc.Actions().AuthRequired)
	assert.Equal(t, "search needs an account", tc.Actions().ScratchDelta["auth_reason"])
}

func TestSetWorkerStatus(t *testing.T) {
	tc := newToolContext(t, "creator_finder", "fc-status")
	res, err := NewSetWorkerStatusTool().Call(tc, map[string]any{"status": "found 3 creators"})
	require.NoError(t, err)
	assert.Equal(t, "creator_finder", res.(map[string]any)["worker"])
	require.NotNil(t, tc.Actions().WorkerStatus)
	assert.Equal(t, "found 3 creators", *tc.Actions().WorkerStatus)
}

func TestTransferToAgent(t *testing.T) {
	tt := NewTransferToAgentTool()
	tc := newToolContext(t, "coordinator", "fc-transfer")

	_, err := tt.Call(tc, map[string]any{"agent": "onboarding"})
	require.NoError(t, err)
	require.NotNil(t, tc.Actions().TransferToAgent)
	assert.Equal(t, "onboarding", *tc.Actions().TransferToAgent)

	_, err = tt.Call(tc, map[string]any{"agent": ""})
	assert.Error(t, err)

	_, err = tt.Call(tc, map[string]any{"agent": "coordinator"})
	assert.Error(t, err, "self transfer")
}

func TestTransferToAgent_Targets(t *testing.T) {
	tt := NewTransferToAgentTool("onboarding", "campaign_brief")
	props := tt.Parameters()["properties"].(map[string]any)
	assert.Equal(t, []string{"onboarding", "campaign_brief"}, props["agent"].(map[string]any)["enum"])
	assert.Contains(t, tt.Description(), "onboarding, campaign_brief")

	tc := newToolContext(t, "coordinator", "fc-transfer")
	_, err := tt.Call(tc, map[string]any{"agent": "presenter"})
	var terr *ToolError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, CodeNotFound, terr.Code)
	assert.Nil(t, tc.Actions().TransferToAgent)

	_, err = tt.Call(tc, map[string]any{"agent": "campaign_brief"})
	require.NoError(t, err)
	assert.Equal(t, "campaign_brief", *tc.Actions().TransferToAgent)
}

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Equal(t, "tool error [E123] in demo: something failed", err.Error())
	assert.Equal(t, "tool error in demo: x", (&ToolError{Tool: "demo", Message: "x"}).Error())
}
