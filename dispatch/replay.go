package dispatch

import (
	"context"
	"errors"

	"github.com/oron-mozes/creo-sub000/core"
)

// ReplayPending redelivers an answer withheld by the auth gate once the user
// has authenticated. It reports whether an answer was delivered. The pending
// marker is consumed only on delivery.
func (d *Dispatcher) ReplayPending(ctx context.Context, userID, sessionID string) (bool, error) {
	if userID == "" {
		return false, core.ErrMissingUserID
	}
	if sessionID == "" {
		return false, core.ErrMissingSessionID
	}

	mem, err := d.registry.Session(userID, sessionID)
	if errors.Is(err, core.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !d.opts.Identity.IsAuthenticated(ctx, userID) {
		return false, nil
	}

	mem.LockTurn()
	defer mem.UnlockTurn()

	v, ok := mem.TakeMeta(core.MetaPendingAnswer)
	if !ok {
		return false, nil
	}
	id, _ := v.(string)
	reply, found := mem.FindTurn(id)
	if !found {
		d.opts.Logger.Warn("dispatch.replay.missing", "session_id", sessionID, "message_id", id)
		return false, nil
	}

	if err := d.transport.EmitFinal(sessionID, reply.Text, reply.ID, core.FinalFlags{}); err != nil {
		mem.SetMeta(core.MetaPendingAnswer, id)
		return false, err
	}

	d.opts.Logger.Info("dispatch.replay.delivered", "user_id", userID, "session_id", sessionID, "message_id", id)
	return true, nil
}
