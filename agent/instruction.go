package agent

import (
	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/internal/util"
)

// Provider produces an instruction for a run.
type Provider interface {
	Instruction(*core.RunContext) (string, error)
}

// Func adapts a function to Provider.
type Func func(*core.RunContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(rc *core.RunContext) (string, error) { return f(rc) }

// Instruction is a system prompt source: static template text or a Provider.
//
// Static text may reference run data with text/template markers, for example
// {{.stage}} or {{default "there" .display_name}}. See TemplateData for keys.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates a template instruction.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates a dynamic instruction.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates a dynamic instruction from a function.
func NewInstructionFromFunc(f func(*core.RunContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic reports whether the instruction is template text.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve renders the instruction for rc.
func (i Instruction) Resolve(rc *core.RunContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(rc)
	}
	return util.RenderTemplate(i.text, TemplateData(rc))
}

// TemplateData exposes the run snapshot to instruction templates.
func TemplateData(rc *core.RunContext) map[string]any {
	snap := rc.Snapshot
	data := map[string]any{
		"agent":       rc.Agent.Name,
		"user_id":     rc.UserID,
		"session_id":  rc.SessionID,
		"stage":       snap.Stage.String(),
		"has_profile": snap.BusinessProfile != nil,
		"has_brief":   snap.CampaignBrief != nil,
		"profile":     snap.BusinessProfile,
		"brief":       snap.CampaignBrief,
	}
	if snap.ProfileHint != nil && snap.ProfileHint.DisplayName != "" {
		data["display_name"] = snap.ProfileHint.DisplayName
	}
	return data
}
