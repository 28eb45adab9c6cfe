package agent

import (
	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/model"
	"github.com/oron-mozes/creo-sub000/tool"
)

// Default worker names.
const (
	CoordinatorName = "coordinator"
	PresenterName   = "presenter"
)

const sharedRules = `
The user is a small business owner planning an influencer marketing campaign.
The session context block lists the current stage, the saved business profile and campaign brief.
Save what you learn with the tools; never claim something is saved unless the tool succeeded.
When your stage is complete, call set_workflow_stage with the next stage.
Write short working notes for the presenter, not a reply to the user.`

// StageInstructions are the default stage worker prompts.
var StageInstructions = map[core.WorkflowStage]string{
	core.StageOnboarding: `You are the onboarding worker. Learn what the business is: name, category, location, audience and goals.
Call save_business_profile as soon as you know the name and category, and update it as you learn more.
Move to campaign_brief once the profile is saved.` + sharedRules,
	core.StageCampaignBrief: `You are the campaign brief worker. Business profile: {{json .profile}}.
Brief fields captured so far: {{keys .brief}}.
Agree on objective, budget, timeline and deliverables, then call save_campaign_brief.
Move to creator_finder once the brief is saved.` + sharedRules,
	core.StageCreatorFinder: `You are the creator finder worker. Suggest creator profiles that fit the brief: {{json .brief}}.
Finding creators requires an account: if the user is not signed in, call require_authentication and stop.
Use set_worker_status to report how many candidates you have.` + sharedRules,
	core.StageOutreachMessage: `You are the outreach worker. Draft a short, personal outreach message for the selected creators.
Move to campaign_builder once the user approves a draft.` + sharedRules,
	core.StageCampaignBuilder: `You are the campaign builder worker. Assemble the final plan from the profile, brief, creators and outreach.
Publish the plan status with set_worker_status.` + sharedRules,
}

// PresenterInstruction is the default presentation worker prompt.
const PresenterInstruction = `You write the reply the user reads. Greet {{default "the user" .display_name}} naturally when appropriate.
Use the worker notes that follow the message to answer in two to four friendly sentences.
Ask at most one question. Never mention workers, tools, stages or notes.`

// TeamOptions configures NewTeam.
type TeamOptions struct {
	CoordinatorName string
	PresenterName   string
	Instructions    map[core.WorkflowStage]string
	Presenter       string
	EnableStreaming bool
	MaxToolRounds   int
}

// NewTeam builds the standard worker tree: one model worker per stage with
// the workflow tools, a streaming presenter, and a coordinator routing
// between them. Stage workers are named after their stage.
func NewTeam(llm model.Model, optFns ...func(o *TeamOptions)) (*CoordinatorAgent, error) {
	opts := TeamOptions{
		CoordinatorName: CoordinatorName,
		PresenterName:   PresenterName,
		Instructions:    StageInstructions,
		Presenter:       PresenterInstruction,
		EnableStreaming: true,
		MaxToolRounds:   5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	workers := make(map[core.WorkflowStage]core.Agent, len(core.Stages()))
	for _, stage := range core.Stages() {
		text, ok := opts.Instructions[stage]
		if !ok {
			text = StageInstructions[stage]
		}
		workers[stage] = NewModelAgent(string(stage), llm, func(o *ModelAgentOptions) {
			o.Instruction = NewInstructionFromText(text)
			o.Tools = tool.WorkflowTools()
			o.EnableStreaming = false
			o.AllowTransfer = false
			o.MaxToolRounds = opts.MaxToolRounds
		})
	}

	presenter := NewModelAgent(opts.PresenterName, llm, func(o *ModelAgentOptions) {
		o.Instruction = NewInstructionFromText(opts.Presenter)
		o.EnableStreaming = opts.EnableStreaming
		o.AllowTransfer = false
		o.MaxToolRounds = 0
	})

	return NewCoordinatorAgent(opts.CoordinatorName, workers, presenter)
}
