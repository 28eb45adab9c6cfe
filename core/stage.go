package core

import (
	"fmt"
	"strings"
)

// WorkflowStage identifies which part of the business workflow is active for a
// session. The zero value StageNone means no stage has been set yet.
type WorkflowStage string

const (
	// StageNone is the unset stage.
	StageNone WorkflowStage = ""
	// StageOnboarding collects the business profile.
	StageOnboarding WorkflowStage = "onboarding"
	// StageCampaignBrief drafts the campaign brief.
	StageCampaignBrief WorkflowStage = "campaign_brief"
	// StageCreatorFinder discovers creators matching the brief.
	StageCreatorFinder WorkflowStage = "creator_finder"
	// StageOutreachMessage composes outreach to selected creators.
	StageOutreachMessage WorkflowStage = "outreach_message"
	// StageCampaignBuilder assembles the final campaign plan.
	StageCampaignBuilder WorkflowStage = "campaign_builder"
)

// Stages lists every valid stage in workflow order.
func Stages() []WorkflowStage {
	return []WorkflowStage{
		StageOnboarding,
		StageCampaignBrief,
		StageCreatorFinder,
		StageOutreachMessage,
		StageCampaignBuilder,
	}
}

// Valid reports whether s is one of the closed enum values. StageNone is not valid.
func (s WorkflowStage) Valid() bool {
	switch s {
	case StageOnboarding, StageCampaignBrief, StageCreatorFinder, StageOutreachMessage, StageCampaignBuilder:
		return true
	default:
		return false
	}
}

// String renders the stage, using "none" for the unset stage.
func (s WorkflowStage) String() string {
	if s == StageNone {
		return "none"
	}
	return string(s)
}

// ParseStage converts client or worker supplied text into a WorkflowStage.
// Matching is case-insensitive and accepts "-" or " " in place of "_".
// "none" and the empty string parse to StageNone.
func ParseStage(raw string) (WorkflowStage, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	if norm == "" || norm == "none" {
		return StageNone, nil
	}

	s := WorkflowStage(norm)
	if !s.Valid() {
		return StageNone, fmt.Errorf("%w: %q", ErrInvalidStage, raw)
	}

	return s, nil
}
