// Package dispatch runs a user's turn through the worker pipeline and turns
// the resulting event stream into client deliveries.
//
// Every event is audited into its author's scratch space and its actions are
// applied to session memory. Only the presentation worker's text streams to
// the client. The turn completes when the coordinator emits a final event
// with text; the auth gate may replace that answer with a login prompt.
// Streams that end without one fall back to what was produced so far.
//
// Each turn ends with exactly one final delivery.
//
// Basic usage:
//
//	d, _ := dispatch.New(registry, hub, func(o *dispatch.Options) {
//		o.Identity = ids
//		o.Store = st
//	})
//	res, err := d.Dispatch(ctx, dispatch.Request{UserID: "u1", SessionID: "s1", Message: "hi"})
package dispatch
