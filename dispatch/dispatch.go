package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oron-mozes/creo-sub000/authgate"
	"github.com/oron-mozes/creo-sub000/compact"
	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/logging"
	"github.com/oron-mozes/creo-sub000/session"
	"github.com/oron-mozes/creo-sub000/store"
)

// AuditKey is the scratch key under which every observed event is recorded
// for the worker that produced it.
const AuditKey = "audit_log"

// Options configures a Dispatcher.
type Options struct {
	// PresentationWorker names the only worker whose output is streamed.
	PresentationWorker string
	// CoordinatorWorker names the worker whose final event completes a turn.
	CoordinatorWorker string
	// TurnTimeout bounds the pipeline call. Zero disables the bound.
	TurnTimeout time.Duration
	Compaction  compact.Options
	Store       core.Store
	Identity    core.Identity
	Logger      logging.Logger
}

// Request is one inbound user message.
type Request struct {
	UserID      string
	SessionID   string
	Message     string
	ProfileHint *core.ProfileHint
}

// Dispatcher runs turns through the per-user pipeline and decides what the
// client observes.
type Dispatcher struct {
	registry  *session.Registry
	transport core.Transport
	opts      Options
}

// New creates a dispatcher. Without a store, messages and profiles are kept
// in memory; without an identity provider every user is unauthenticated.
func New(registry *session.Registry, transport core.Transport, optFns ...func(o *Options)) (*Dispatcher, error) {
	if registry == nil {
		return nil, errors.New("dispatch: registry is required")
	}
	if transport == nil {
		return nil, errors.New("dispatch: transport is required")
	}

	opts := Options{
		PresentationWorker: "presenter",
		CoordinatorWorker:  "coordinator",
		TurnTimeout:        2 * time.Minute,
		Compaction:         compact.DefaultOptions(),
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore()
	}
	if opts.Identity == nil {
		opts.Identity = anonymous{}
	}

	return &Dispatcher{registry: registry, transport: transport, opts: opts}, nil
}

// Registry returns the registry the dispatcher resolves users from.
func (d *Dispatcher) Registry() *session.Registry { return d.registry }

// Dispatch processes one user message. Turns for the same session are
// serialized. Cancelling ctx stops delivery to the client but not the turn:
// the pipeline runs on the user's context and the result is still persisted.
//
// Errors are returned only for configuration problems detected before any
// state is touched. Pipeline failures end in a degraded completion.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*core.TurnResult, error) {
	if req.UserID == "" {
		return nil, core.ErrMissingUserID
	}
	if req.SessionID == "" {
		return nil, core.ErrMissingSessionID
	}

	start := time.Now()

	hint := req.ProfileHint
	if hint == nil {
		if h, err := d.opts.Identity.ProfileHint(ctx, req.UserID); err != nil {
			d.opts.Logger.Warn("dispatch.profile_hint.failed", "user_id", req.UserID, "error", err.Error())
		} else {
			hint = h
		}
	}

	wc, mem, release, err := d.registry.AcquireSession(req.UserID, req.SessionID, hint)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	defer release()

	mem.LockTurn()
	defer mem.UnlockTurn()

	// Persistence outlives the client connection.
	persistCtx := wc.Context()

	d.hydrateProfile(persistCtx, mem)

	userTurn := mem.AppendMessage(core.RoleUser, req.Message, "")
	d.persist(persistCtx, mem, userTurn)

	snap := mem.Snapshot()
	input := compact.Build(
		compact.FromSnapshot(snap, wc.OtherSessions(req.SessionID, d.opts.Compaction.MaxOtherSessions), req.Message),
		d.opts.Compaction,
	)

	t := &turn{
		d:          d,
		client:     ctx,
		persistCtx: persistCtx,
		mem:        mem,
		sessionID:  req.SessionID,
		messageID:  core.NewID(),
		result: core.TurnResult{
			UserID:        req.UserID,
			SessionID:     req.SessionID,
			StageBefore:   snap.Stage,
			ProfileBefore: snap.BusinessProfile != nil,
		},
	}
	t.result.MessageID = t.messageID

	runCtx, cancel := d.turnContext(wc.Context())
	defer cancel()

	events, errs := wc.Pipeline().Run(runCtx, core.PipelineRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Input:     input,
		Message:   req.Message,
		Snapshot:  snap,
	})
	t.consume(events, errs)
	cancel()

	t.finish(persistCtx)

	t.result.StageAfter, _ = mem.Stage()
	t.result.ProfileAfter = mem.HasBusinessProfile()
	t.result.Duration = time.Since(start)

	logging.LogTurn(d.opts.Logger, string(t.result.Outcome), t.result.Outcome.Degraded(), t.result.LogAttrs()...)

	return &t.result, nil
}

func (d *Dispatcher) turnContext(parent context.Context) (context.Context, context.CancelFunc) {
	if d.opts.TurnTimeout > 0 {
		return context.WithTimeout(parent, d.opts.TurnTimeout)
	}
	return context.WithCancel(parent)
}

// hydrateProfile loads the user's stored business profile into a session
// that has none yet.
func (d *Dispatcher) hydrateProfile(ctx context.Context, mem *core.SessionMemory) {
	if mem.HasBusinessProfile() {
		return
	}
	profile, err := d.opts.Store.GetBusinessProfile(ctx, mem.UserID())
	if err != nil {
		d.opts.Logger.Warn("dispatch.profile.load_failed", "user_id", mem.UserID(), "error", err.Error())
		return
	}
	if profile != nil {
		mem.SetBusinessProfile(profile)
		d.opts.Logger.Debug("dispatch.profile.hydrated", "user_id", mem.UserID(), "session_id", mem.ID())
	}
}

func (d *Dispatcher) persist(ctx context.Context, mem *core.SessionMemory, t core.Turn) {
	err := d.opts.Store.AppendMessage(ctx, core.Message{
		ID:        t.ID,
		SessionID: mem.ID(),
		UserID:    mem.UserID(),
		Role:      t.Role,
		Text:      t.Text,
		CreatedAt: t.CreatedAt,
	})
	if err != nil {
		d.opts.Logger.Error("dispatch.persist.failed", "session_id", mem.ID(), "message_id", t.ID, "error", err.Error())
	}
}

// turn holds the state of one Dispatch call.
type turn struct {
	d      *Dispatcher
	client context.Context
	// persistCtx is the user's context, unaffected by client disconnects.
	persistCtx context.Context
	mem        *core.SessionMemory
	sessionID  string
	messageID  string

	final       string
	completed   bool
	overloaded  bool
	presenter   []string
	chunks      []string
	segAuthor   string
	segStreamed bool

	result core.TurnResult
}

// consume reads the pipeline stream until the coordinator's final event or
// the end of the stream.
func (t *turn) consume(events <-chan core.Event, errs <-chan error) {
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if t.observe(ev) {
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.pipelineFailed(err)
		}
	}
}

func (t *turn) pipelineFailed(err error) {
	if err == nil {
		return
	}
	log := t.d.opts.Logger
	switch {
	case errors.Is(err, core.ErrUpstreamOverloaded):
		t.overloaded = true
		log.Warn("dispatch.pipeline.overloaded", "session_id", t.sessionID, "error", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("dispatch.pipeline.timeout", "session_id", t.sessionID, "timeout", t.d.opts.TurnTimeout.String())
	default:
		log.Warn("dispatch.pipeline.failed", "session_id", t.sessionID, "error", err.Error())
	}
}

// observe records and applies one event. It reports true once the
// coordinator has completed the turn.
func (t *turn) observe(ev core.Event) bool {
	t.result.RawEvents++
	t.result.Parts += ev.PartCount()

	text := ev.Text()
	if text != "" {
		t.result.TextEvents++
	}

	t.audit(ev, text)
	t.apply(ev)

	if ev.IsOverloaded() {
		t.overloaded = true
		t.d.opts.Logger.Warn("dispatch.event.overloaded", "session_id", t.sessionID, "author", ev.Author)
		return false
	}

	if ev.Author == t.d.opts.CoordinatorWorker && ev.IsFinal() && strings.TrimSpace(text) != "" {
		t.final = text
		t.completed = true
		return true
	}

	if !t.chunk(ev, text) {
		return false
	}
	t.chunks = append(t.chunks, text)
	if ev.Author == t.d.opts.PresentationWorker {
		t.presenter = append(t.presenter, text)
		t.deliverPartial(text)
	}
	return false
}

// chunk reports whether ev contributes new text. Streamed fragments always
// do; a closing non-partial event repeats its segment's fragments and only
// counts when nothing was streamed before it.
func (t *turn) chunk(ev core.Event, text string) bool {
	if ev.Author != t.segAuthor {
		t.segAuthor = ev.Author
		t.segStreamed = false
	}
	if ev.IsPartial() {
		t.segStreamed = true
		return text != ""
	}
	streamed := t.segStreamed
	t.segStreamed = false
	return text != "" && !streamed
}

func (t *turn) audit(ev core.Event, text string) {
	if ev.Author == "" {
		return
	}
	t.mem.WorkerScratch(ev.Author).Append(AuditKey, map[string]any{
		"event_id":  ev.ID,
		"partial":   ev.IsPartial(),
		"final":     ev.IsFinal(),
		"text_len":  len(text),
		"timestamp": ev.Timestamp,
	})
}

// apply folds the event's actions into session memory.
func (t *turn) apply(ev core.Event) {
	a := ev.Actions
	if a.Empty() {
		return
	}
	log := t.d.opts.Logger

	if len(a.BusinessProfile) > 0 {
		t.mem.SetBusinessProfile(a.BusinessProfile)
		if err := t.d.opts.Store.SetBusinessProfile(t.persistCtx, t.mem.UserID(), a.BusinessProfile); err != nil {
			log.Error("dispatch.profile.persist_failed", "user_id", t.mem.UserID(), "error", err.Error())
		}
		if stage, _ := t.mem.Stage(); stage == core.StageNone || stage == core.StageOnboarding {
			t.setStage(core.StageCampaignBrief, "profile_saved")
		}
	}
	if len(a.CampaignBrief) > 0 {
		t.mem.SetCampaignBrief(a.CampaignBrief)
	}
	if a.StageTransition != nil {
		t.setStage(*a.StageTransition, ev.Author)
	}
	if len(a.ScratchDelta) > 0 {
		scratch := t.mem.WorkerScratch(ev.Author)
		for k, v := range a.ScratchDelta {
			scratch.Set(k, v)
		}
	}
	if a.WorkerStatus != nil {
		t.mem.SetWorkerStatus(ev.Author, *a.WorkerStatus)
	}
	if a.AuthRequired != nil && *a.AuthRequired {
		t.mem.SetFlag(core.MetaAuthRequiredTriggered)
		log.Info("dispatch.auth.flagged", "session_id", t.sessionID, "author", ev.Author)
	}
}

func (t *turn) setStage(stage core.WorkflowStage, cause string) {
	prev, err := t.mem.SetStage(stage)
	if err != nil {
		t.d.opts.Logger.Warn("dispatch.stage.rejected", "session_id", t.sessionID, "stage", string(stage), "cause", cause, "error", err.Error())
		return
	}
	if prev != stage {
		logging.LogStageTransition(t.d.opts.Logger, prev.String(), stage.String(), cause)
	}
}

// finish delivers exactly one terminal message and persists the answer.
func (t *turn) finish(ctx context.Context) {
	t.result.PresentationText = strings.Join(t.presenter, "")

	flagged := t.mem.TakeFlag(core.MetaAuthRequiredTriggered)

	if t.completed {
		t.answer(ctx, flagged)
		return
	}
	t.fallback(ctx, flagged)
}

// answer delivers the coordinator's final text, or a login prompt when the
// gate fires.
func (t *turn) answer(ctx context.Context, flagged bool) {
	snap := t.mem.Snapshot()
	authenticated := t.d.opts.Identity.IsAuthenticated(ctx, t.mem.UserID())

	reply := t.mem.AppendMessage(core.RoleAssistant, t.final, t.messageID)
	t.d.persist(ctx, t.mem, reply)

	if authgate.Decide(snap.Stage, authgate.BriefReady(snap), authenticated, flagged) {
		t.holdForLogin(reply, "stage", snap.Stage.String(), "flagged", flagged)
		return
	}

	t.result.Outcome = core.OutcomeAnswered
	t.result.Text = t.final
	t.deliverFinal(t.final, core.FinalFlags{})
}

// holdForLogin keeps reply as the session's pending answer and delivers the
// login prompt in its place.
func (t *turn) holdForLogin(reply core.Turn, attrs ...any) {
	t.mem.SetMeta(core.MetaPendingAnswer, reply.ID)
	t.result.Outcome = core.OutcomeAuthRequired
	t.result.Text = authgate.LoginPrompt
	t.d.opts.Logger.Info("dispatch.auth.gated", append([]any{"session_id", t.sessionID, "reply_id", reply.ID}, attrs...)...)
	t.deliverFinal(authgate.LoginPrompt, core.FinalFlags{AuthRequired: true, UIHint: authgate.UIHintLogin})
}

func (t *turn) deliverPartial(text string) {
	if t.client.Err() != nil {
		return
	}
	if err := t.d.transport.EmitPartial(t.sessionID, text, t.messageID); err != nil {
		t.d.opts.Logger.Debug("dispatch.deliver.partial_failed", "session_id", t.sessionID, "error", err.Error())
	}
}

func (t *turn) deliverFinal(text string, flags core.FinalFlags) {
	if t.client.Err() != nil {
		t.d.opts.Logger.Info("dispatch.deliver.client_gone", "session_id", t.sessionID, "message_id", t.messageID)
		return
	}
	if err := t.d.transport.EmitFinal(t.sessionID, text, t.messageID, flags); err != nil {
		t.d.opts.Logger.Warn("dispatch.deliver.final_failed", "session_id", t.sessionID, "error", err.Error())
	}
}

// anonymous is the identity used when none is configured.
type anonymous struct{}

func (anonymous) IsAuthenticated(context.Context, string) bool { return false }

func (anonymous) ProfileHint(context.Context, string) (*core.ProfileHint, error) { return nil, nil }
