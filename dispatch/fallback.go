package dispatch

import (
	"context"
	"strings"

	"github.com/oron-mozes/creo-sub000/authgate"
	"github.com/oron-mozes/creo-sub000/core"
)

// Degraded-service notices. Both are delivered as the turn's single final
// message.
const (
	OverloadMessage    = "Sorry, we're getting a lot of requests right now. Please try again in a moment."
	UnavailableMessage = "The assistant is temporarily unavailable. Please try again shortly."
)

// SystemAuthor authors the synthetic events the dispatcher creates itself.
const SystemAuthor = "system"

// fallback ends a turn the coordinator never completed. In order of
// preference:
//
//  1. presentation chunks, already streamed, become the final answer
//  2. chunks from any worker are sent as one chunk, then the final answer
//  3. a static notice
//
// An upstream overload with nothing streamed yields an apology instead.
// Tier 2 text has not reached the client yet, so it passes the auth gate
// like a coordinator answer; the other tiers drop a raised auth flag.
func (t *turn) fallback(ctx context.Context, flagged bool) {
	log := t.d.opts.Logger

	switch {
	case len(t.presenter) > 0:
		text := strings.Join(t.presenter, "")
		log.Warn("dispatch.fallback.presentation", "session_id", t.sessionID, "chunks", len(t.presenter))
		t.dropFlag(flagged, "already streamed")
		t.complete(ctx, core.OutcomeFallbackPresentation, text, core.FinalFlags{Fallback: true})

	case t.overloaded:
		ev := core.NewFinalEvent(SystemAuthor, OverloadMessage)
		log.Warn("dispatch.fallback.overloaded", "session_id", t.sessionID, "event_id", ev.ID)
		t.dropFlag(flagged, "overloaded")
		t.degraded(core.OutcomeOverloaded, ev.Text())

	case len(t.chunks) > 0:
		text := strings.Join(t.chunks, "")
		log.Warn("dispatch.fallback.workers", "session_id", t.sessionID, "chunks", len(t.chunks))
		if t.gated(ctx, flagged) {
			reply := t.mem.AppendMessage(core.RoleAssistant, text, t.messageID)
			t.d.persist(ctx, t.mem, reply)
			t.holdForLogin(reply, "fallback", string(core.OutcomeFallbackWorkers), "flagged", flagged)
			return
		}
		t.deliverPartial(text)
		t.complete(ctx, core.OutcomeFallbackWorkers, text, core.FinalFlags{Fallback: true})

	default:
		log.Warn("dispatch.fallback.unavailable", "session_id", t.sessionID, "events", t.result.RawEvents)
		t.dropFlag(flagged, "no answer")
		t.degraded(core.OutcomeUnavailable, UnavailableMessage)
	}
}

func (t *turn) gated(ctx context.Context, flagged bool) bool {
	snap := t.mem.Snapshot()
	authenticated := t.d.opts.Identity.IsAuthenticated(ctx, t.mem.UserID())
	return authgate.Decide(snap.Stage, authgate.BriefReady(snap), authenticated, flagged)
}

func (t *turn) dropFlag(flagged bool, reason string) {
	if flagged {
		t.d.opts.Logger.Info("dispatch.auth.flag_dropped", "session_id", t.sessionID, "reason", reason)
	}
}

// complete persists text as the turn's answer and delivers it as the final.
func (t *turn) complete(ctx context.Context, outcome core.Outcome, text string, flags core.FinalFlags) {
	reply := t.mem.AppendMessage(core.RoleAssistant, text, t.messageID)
	t.d.persist(ctx, t.mem, reply)

	t.result.Outcome = outcome
	t.result.Text = text
	t.deliverFinal(text, flags)
}

// degraded delivers a notice without recording it as conversation.
func (t *turn) degraded(outcome core.Outcome, text string) {
	t.result.Outcome = outcome
	t.result.Text = text
	t.deliverFinal(text, core.FinalFlags{Degraded: true})
}
