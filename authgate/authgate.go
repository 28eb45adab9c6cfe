// Package authgate decides when a coordinator's answer must be withheld
// behind a login prompt.
package authgate

import "github.com/oron-mozes/creo-sub000/core"

const (
	// LoginPrompt is delivered in place of a gated answer.
	LoginPrompt = "To continue, please sign in. Your progress is saved and I'll pick up right where we left off."
	// UIHintLogin tells the client to render its login affordance.
	UIHintLogin = "show_login"
)

// ShouldGate reports whether delivery must be replaced by a login prompt.
//
//   - authenticated users are never gated
//   - the outreach stage always gates
//   - a ready brief with no stage set yet gates, since discovery is next
func ShouldGate(stage core.WorkflowStage, briefReady, authenticated bool) bool {
	switch {
	case authenticated:
		return false
	case stage == core.StageOutreachMessage:
		return true
	case briefReady && stage == core.StageNone:
		return true
	default:
		return false
	}
}

// Decide combines the predicate with a worker-raised one-shot flag. The flag
// has already been taken (cleared) by the caller.
func Decide(stage core.WorkflowStage, briefReady, authenticated, flagged bool) bool {
	if authenticated {
		return false
	}
	return flagged || ShouldGate(stage, briefReady, authenticated)
}

// BriefReady reports whether a snapshot carries both a business profile and
// a campaign brief.
func BriefReady(snap core.MemorySnapshot) bool {
	return snap.BusinessProfile != nil && snap.CampaignBrief != nil
}
