package tool

import (
	"github.com/oron-mozes/creo-sub000/core"
)

// Workflow tool names.
const (
	SetWorkflowStageName      = "set_workflow_stage"
	SaveBusinessProfileName   = "save_business_profile"
	SaveCampaignBriefName     = "save_campaign_brief"
	RequireAuthenticationName = "require_authentication"
	SetWorkerStatusName       = "set_worker_status"
)

// WorkflowTools returns the tools every stage worker gets: stage changes,
// shared profile and brief writes, worker status and the auth flag.
func WorkflowTools() []Tool {
	return []Tool{
		NewSetWorkflowStageTool(),
		NewSaveBusinessProfileTool(),
		NewSaveCampaignBriefTool(),
		NewRequireAuthenticationTool(),
		NewSetWorkerStatusTool(),
	}
}

func stageNames() []string {
	stages := core.Stages()
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}

// NewSetWorkflowStageTool moves the session to another workflow stage.
func NewSetWorkflowStageTool() *FunctionTool {
	return NewFunctionTool(
		SetWorkflowStageName,
		"Move the session to another workflow stage once the current stage's work is done.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"stage": map[string]any{
					"type":        "string",
					"enum":        stageNames(),
					"description": "Target stage",
				},
			},
			"required": []string{"stage"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			raw, err := stringArg(SetWorkflowStageName, args, "stage")
			if err != nil {
				return nil, err
			}
			stage, err := core.ParseStage(raw)
			if err != nil {
				return nil, NewToolError(SetWorkflowStageName, err.Error(), CodeInvalidArg)
			}
			if err := tc.SetStage(stage); err != nil {
				return nil, NewToolError(SetWorkflowStageName, err.Error(), CodeInvalidArg)
			}
			return map[string]any{"stage": stage.String()}, nil
		},
	)
}

// NewSaveBusinessProfileTool replaces the shared business profile.
func NewSaveBusinessProfileTool() *FunctionTool {
	return NewFunctionTool(
		SaveBusinessProfileName,
		"Save the business profile gathered from the user (name, category, location, audience, goals).",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"profile": map[string]any{"type": "object", "description": "Business profile fields"},
			},
			"required": []string{"profile"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			profile, err := objectArg(SaveBusinessProfileName, args, "profile")
			if err != nil {
				return nil, err
			}
			tc.SaveBusinessProfile(profile)
			return map[string]any{"saved": true, "fields": len(profile)}, nil
		},
	)
}

// NewSaveCampaignBriefTool replaces the shared campaign brief.
func NewSaveCampaignBriefTool() *FunctionTool {
	return NewFunctionTool(
		SaveCampaignBriefName,
		"Save the campaign brief (objective, budget, timeline, deliverables).",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"brief": map[string]any{"type": "object", "description": "Campaign brief fields"},
			},
			"required": []string{"brief"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			brief, err := objectArg(SaveCampaignBriefName, args, "brief")
			if err != nil {
				return nil, err
			}
			tc.SaveCampaignBrief(brief)
			return map[string]any{"saved": true, "fields": len(brief)}, nil
		},
	)
}

// NewRequireAuthenticationTool raises the one-shot auth flag. Workers call it
// when they refuse to act until the user signs in.
func NewRequireAuthenticationTool() *FunctionTool {
	return NewFunctionTool(
		RequireAuthenticationName,
		"Ask the user to sign in before continuing. Use when the next step needs an account.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{"type": "string", "description": "Why sign-in is needed"},
			},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			reason, _ := args["reason"].(string)
			tc.RequireAuthentication()
			if reason != "" {
				tc.SetScratch("auth_reason", reason)
			}
			return map[string]any{"auth_required": true}, nil
		},
	)
}

// NewSetWorkerStatusTool surfaces a short status line for the calling worker.
// An empty status clears it.
func NewSetWorkerStatusTool() *FunctionTool {
	return NewFunctionTool(
		SetWorkerStatusName,
		"Publish a short status line about your progress that other workers can see.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{"type": "string", "description": "Status line; empty clears it"},
			},
			"required": []string{"status"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			status, _ := args["status"].(string)
			tc.SetWorkerStatus(status)
			return map[string]any{"worker": tc.AgentName(), "status": status}, nil
		},
	)
}
