// Package compact builds the augmented input handed to the worker pipeline on
// every turn. Build is pure: the same Input and Options always produce the
// same string, and nothing is read from outside its arguments.
package compact

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/internal/util"
)

// Block markers.
const (
	HeaderOpen     = "[SESSION CONTEXT]"
	HeaderClose    = "[/SESSION CONTEXT]"
	SummaryBlock   = "[EARLIER CONVERSATION SUMMARY]"
	RecentBlock    = "[RECENT CONVERSATION]"
	OtherBlock     = "[OTHER SESSIONS]"
	MessageBlock   = "[CURRENT MESSAGE]"
	noneValue      = "none"
	timeFormat     = "2006-01-02T15:04Z07:00"
	profileMaxChar = 1000
)

// Options bounds the compacted input.
type Options struct {
	// Threshold is the number of most recent turns kept verbatim. Older turns
	// collapse into a summary.
	Threshold int
	// SnippetChars caps every quoted snippet.
	SnippetChars int
	// MaxOtherSessions caps the cross-session block.
	MaxOtherSessions int
}

// DefaultOptions returns threshold 20, 200 char snippets and 4 other sessions.
func DefaultOptions() Options {
	return Options{Threshold: 20, SnippetChars: 200, MaxOtherSessions: 4}
}

// Input is everything Build reads.
type Input struct {
	Stage           core.WorkflowStage
	BusinessProfile map[string]any
	CampaignBrief   map[string]any
	WorkerStatuses  map[string]string
	// History excludes the current message.
	History       []core.Turn
	OtherSessions []core.SessionSummary
	Message       string
}

// FromSnapshot derives an Input from a session snapshot. The snapshot's last
// turn is dropped when it is the current message.
func FromSnapshot(snap core.MemorySnapshot, others []core.SessionSummary, message string) Input {
	history := snap.Turns
	if n := len(history); n > 0 && history[n-1].Role == core.RoleUser && history[n-1].Text == message {
		history = history[:n-1]
	}
	return Input{
		Stage:           snap.Stage,
		BusinessProfile: snap.BusinessProfile,
		CampaignBrief:   snap.CampaignBrief,
		WorkerStatuses:  snap.WorkerStatuses,
		History:         history,
		OtherSessions:   others,
		Message:         message,
	}
}

// Build renders the compacted input. Blocks appear in a fixed order: header,
// summary (only when history exceeds the threshold), recent turns, other
// sessions, current message.
func Build(in Input, opts Options) string {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions().Threshold
	}
	if opts.SnippetChars <= 0 {
		opts.SnippetChars = DefaultOptions().SnippetChars
	}

	var b strings.Builder
	writeHeader(&b, in)

	older, recent := split(in.History, opts.Threshold)
	if len(older) > 0 {
		writeSummary(&b, older, opts.SnippetChars)
	}
	if len(recent) > 0 {
		b.WriteString(RecentBlock)
		b.WriteByte('\n')
		for _, t := range recent {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
		}
		b.WriteByte('\n')
	}

	others := in.OtherSessions
	if opts.MaxOtherSessions >= 0 && len(others) > opts.MaxOtherSessions {
		others = others[:opts.MaxOtherSessions]
	}
	if len(others) > 0 {
		writeOthers(&b, others, opts.SnippetChars)
	}

	b.WriteString(MessageBlock)
	b.WriteByte('\n')
	b.WriteString(in.Message)
	return b.String()
}

// split returns the turns to summarize and the turns to keep verbatim.
func split(history []core.Turn, threshold int) (older, recent []core.Turn) {
	if len(history) <= threshold {
		return nil, history
	}
	cut := len(history) - threshold
	return history[:cut], history[cut:]
}

func writeHeader(b *strings.Builder, in Input) {
	b.WriteString(HeaderOpen)
	b.WriteByte('\n')
	fmt.Fprintf(b, "stage: %s\n", in.Stage.String())
	fmt.Fprintf(b, "business_profile: %s\n", renderProfile(in.BusinessProfile))
	brief := noneValue
	if in.CampaignBrief != nil {
		brief = "present"
	}
	fmt.Fprintf(b, "campaign_brief: %s\n", brief)

	workers := make([]string, 0, len(in.WorkerStatuses))
	for w := range in.WorkerStatuses {
		workers = append(workers, w)
	}
	sort.Strings(workers)
	for _, w := range workers {
		fmt.Fprintf(b, "status.%s: %s\n", w, in.WorkerStatuses[w])
	}
	b.WriteString(HeaderClose)
	b.WriteString("\n\n")
}

// renderProfile emits the profile as compact JSON; map keys marshal sorted.
func renderProfile(p map[string]any) string {
	if p == nil {
		return noneValue
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "present"
	}
	return util.Truncate(string(raw), profileMaxChar)
}

func writeSummary(b *strings.Builder, older []core.Turn, max int) {
	var users, assistants []core.Turn
	for _, t := range older {
		switch t.Role {
		case core.RoleUser:
			users = append(users, t)
		case core.RoleAssistant:
			assistants = append(assistants, t)
		}
	}

	b.WriteString(SummaryBlock)
	b.WriteByte('\n')
	fmt.Fprintf(b, "turns: %d (user: %d, assistant: %d)\n", len(older), len(users), len(assistants))
	writeEnds(b, "user", users, max)
	writeEnds(b, "assistant", assistants, max)
	b.WriteByte('\n')
}

func writeEnds(b *strings.Builder, role string, turns []core.Turn, max int) {
	if len(turns) == 0 {
		return
	}
	fmt.Fprintf(b, "first_%s: %q\n", role, util.Snippet(turns[0].Text, max))
	if len(turns) > 1 {
		fmt.Fprintf(b, "last_%s: %q\n", role, util.Snippet(turns[len(turns)-1].Text, max))
	}
}

func writeOthers(b *strings.Builder, others []core.SessionSummary, max int) {
	b.WriteString(OtherBlock)
	b.WriteByte('\n')
	for _, s := range others {
		profile := "no"
		if s.HasProfile {
			profile = "yes"
		}
		fmt.Fprintf(b, "- session %s created=%s turns=%d profile=%s last_user=%q last_assistant=%q\n",
			s.SessionID,
			s.Created.UTC().Format(timeFormat),
			s.TurnCount,
			profile,
			util.Snippet(s.LastUser, max),
			util.Snippet(s.LastAssistant, max),
		)
	}
	b.WriteByte('\n')
}
