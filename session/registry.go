package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/logging"
)

// PipelineFactory builds the worker pipeline bound to a new user context.
type PipelineFactory func(userID string) (core.Pipeline, error)

// Options configures a Registry.
type Options struct {
	Logger logging.Logger
	// IdleTTL evicts users whose sessions have all been idle this long.
	// Zero disables eviction.
	IdleTTL time.Duration
	// Now overrides the clock for eviction.
	Now func() time.Time
}

// Registry maps user ids to their WorkerContext.
type Registry struct {
	factory PipelineFactory
	opts    Options

	mu    sync.RWMutex
	users map[string]*WorkerContext

	// building dedupes pipeline construction per user outside mu.
	building singleflight.Group

	// afterAcquire runs between registering a turn and creating its session.
	afterAcquire func(*WorkerContext)
}

// NewRegistry creates a registry. factory must not be nil.
func NewRegistry(factory PipelineFactory, optFns ...func(o *Options)) (*Registry, error) {
	if factory == nil {
		return nil, core.ErrMissingPipeline
	}

	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		factory: factory,
		opts:    opts,
		users:   make(map[string]*WorkerContext),
	}, nil
}

// ResolveOrCreate returns the user's context, creating it on first use.
// Concurrent calls for the same user observe a single context. The pipeline
// factory runs without the registry lock, so building one user's pipeline
// never stalls lookups of other users.
func (r *Registry) ResolveOrCreate(userID string) (*WorkerContext, error) {
	if userID == "" {
		return nil, core.ErrMissingUserID
	}

	if wc, ok := r.lookup(userID); ok {
		return wc, nil
	}

	v, err, _ := r.building.Do(userID, func() (any, error) {
		// A build that finished just before this one started already
		// registered the context.
		if wc, ok := r.lookup(userID); ok {
			return wc, nil
		}

		pipeline, err := r.factory(userID)
		if err != nil {
			return nil, fmt.Errorf("build pipeline for user %s: %w", userID, err)
		}
		if pipeline == nil {
			return nil, core.ErrMissingPipeline
		}

		wc := newWorkerContext(userID, pipeline)
		r.mu.Lock()
		r.users[userID] = wc
		r.mu.Unlock()

		r.opts.Logger.Info("registry.context.created", "user_id", userID)
		return wc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*WorkerContext), nil
}

func (r *Registry) lookup(userID string) (*WorkerContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wc, ok := r.users[userID]
	return wc, ok
}

// Acquire resolves the user's context and registers an in-flight turn on it.
// The caller must invoke release when the turn is done. If the context is
// cleared between resolve and registration, a fresh one is resolved once.
func (r *Registry) Acquire(userID string) (*WorkerContext, func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		wc, err := r.ResolveOrCreate(userID)
		if err != nil {
			return nil, nil, err
		}
		if wc.begin() {
			return wc, wc.end, nil
		}
	}
	return nil, nil, core.ErrContextClosed
}

// EnsureSession creates the session under the user's context if absent.
// Repeated calls return the same memory; a non-nil hint replaces the
// session's profile hint without touching its history.
func (r *Registry) EnsureSession(userID, sessionID string, hint *core.ProfileHint) (*core.SessionMemory, error) {
	if sessionID == "" {
		return nil, core.ErrMissingSessionID
	}

	for attempt := 0; attempt < 2; attempt++ {
		wc, err := r.ResolveOrCreate(userID)
		if err != nil {
			return nil, err
		}
		m, created, err := wc.ensureSession(sessionID, hint)
		if errors.Is(err, core.ErrContextClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if created {
			r.opts.Logger.Info("registry.session.created", "user_id", userID, "session_id", sessionID)
		}
		return m, nil
	}
	return nil, core.ErrContextClosed
}

// AcquireSession is Acquire followed by EnsureSession on the acquired
// context. The session always belongs to the context the turn is registered
// on: if that context is cleared before the session exists, the turn is
// released and acquired again on the user's fresh context.
func (r *Registry) AcquireSession(userID, sessionID string, hint *core.ProfileHint) (*WorkerContext, *core.SessionMemory, func(), error) {
	if sessionID == "" {
		return nil, nil, nil, core.ErrMissingSessionID
	}

	for attempt := 0; attempt < 2; attempt++ {
		wc, release, err := r.Acquire(userID)
		if err != nil {
			return nil, nil, nil, err
		}
		if r.afterAcquire != nil {
			r.afterAcquire(wc)
		}

		m, created, err := wc.ensureSession(sessionID, hint)
		if errors.Is(err, core.ErrContextClosed) {
			release()
			continue
		}
		if err != nil {
			release()
			return nil, nil, nil, err
		}
		if created {
			r.opts.Logger.Info("registry.session.created", "user_id", userID, "session_id", sessionID)
		}
		return wc, m, release, nil
	}
	return nil, nil, nil, core.ErrContextClosed
}

// Session looks up an existing session without creating anything.
func (r *Registry) Session(userID, sessionID string) (*core.SessionMemory, error) {
	r.mu.RLock()
	wc, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: user %s", core.ErrSessionNotFound, userID)
	}
	m, ok := wc.Session(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", core.ErrSessionNotFound, sessionID)
	}
	return m, nil
}

// Clear drops the user's context and every session it owns. It returns
// after in-flight turns on the context have finished or ctx is done.
// Clearing an unknown user is a no-op.
func (r *Registry) Clear(ctx context.Context, userID string) error {
	r.mu.Lock()
	wc, ok := r.users[userID]
	if ok {
		delete(r.users, userID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if err := wc.close(ctx); err != nil {
		r.opts.Logger.Warn("registry.context.clear_timeout", "user_id", userID, "error", err.Error())
		return fmt.Errorf("clear user %s: %w", userID, err)
	}
	r.opts.Logger.Info("registry.context.cleared", "user_id", userID)
	return nil
}

// ClearAll clears every user concurrently.
func (r *Registry) ClearAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, userID := range r.Users() {
		g.Go(func() error { return r.Clear(gctx, userID) })
	}
	return g.Wait()
}

// Users returns the ids of users with a live context.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live user contexts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// SweepIdle clears users whose latest session activity is older than the
// configured IdleTTL. It returns the evicted user ids.
func (r *Registry) SweepIdle(ctx context.Context) []string {
	if r.opts.IdleTTL <= 0 {
		return nil
	}
	cutoff := r.opts.Now().Add(-r.opts.IdleTTL).UnixNano()

	r.mu.RLock()
	var idle []string
	for id, wc := range r.users {
		latest, empty := wc.lastActive()
		if !empty && latest < cutoff {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range idle {
		if err := r.Clear(ctx, id); err != nil {
			r.opts.Logger.Warn("registry.sweep.clear_failed", "user_id", id, "error", err.Error())
		}
	}
	if len(idle) > 0 {
		r.opts.Logger.Info("registry.sweep.evicted", "count", len(idle))
	}
	return idle
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if r.opts.IdleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepIdle(ctx)
		}
	}
}
