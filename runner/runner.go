package runner

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/logging"
)

// Options configures a Runner.
type Options struct {
	// MaxConcurrentRuns caps simultaneous runs across sessions; 0 means unlimited.
	MaxConcurrentRuns int64
	EventBufferSize   int
	// MaxModelCalls is the per-run model call budget shared by every agent.
	MaxModelCalls int
	Logger        logging.Logger
}

// Runner drives a root agent per turn.
type Runner struct {
	agent core.Agent

	sem             *semaphore.Weighted
	eventBufferSize int
	maxModelCalls   int
	logger          logging.Logger

	mu         sync.RWMutex
	activeRuns map[string]context.CancelFunc
}

var _ core.Pipeline = (*Runner)(nil)

// New creates a Runner for agent.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 4,
		EventBufferSize:   100,
		MaxModelCalls:     25,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Runner{
		agent:           agent,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
	if opts.MaxConcurrentRuns > 0 {
		r.sem = semaphore.NewWeighted(opts.MaxConcurrentRuns)
	}

	return r
}

// Run implements core.Pipeline. The event channel closes when the root agent
// returns; the error channel then carries the agent's error, if any.
func (r *Runner) Run(ctx context.Context, req core.PipelineRequest) (<-chan core.Event, <-chan error) {
	runID := core.NewID()

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			close(eventsCh)
			close(errorsCh)
		}()

		if r.sem != nil {
			if err := r.sem.Acquire(ctx, 1); err != nil {
				errorsCh <- err
				return
			}
			defer r.sem.Release(1)
		}

		runCtx := core.NewRunContext(
			ctx,
			req,
			runID,
			core.AgentInfo{Name: r.agent.Name(), Type: "root"},
			r.maxModelCalls,
			eventsCh,
			r.logger,
		)

		r.logger.Debug("runner.run.start", "run", runID, "session_id", req.SessionID, "agent", r.agent.Name())

		if err := r.runAgent(runCtx); err != nil {
			errorsCh <- fmt.Errorf("agent execution failed: %w", err)
		}

		r.logger.Debug("runner.run.complete", "run", runID, "model_calls", runCtx.Budget.Count(), "by_worker", runCtx.Budget.Breakdown())
	}()

	return eventsCh, errorsCh
}

// Cancel stops an active run.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	cancel, exists := r.activeRuns[runID]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// ActiveRuns returns the ids of runs in progress.
func (r *Runner) ActiveRuns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		ids = append(ids, id)
	}
	return ids
}

func (r *Runner) runAgent(runCtx *core.RunContext) error {
	if err := r.agent.Start(runCtx); err != nil {
		return err
	}

	defer func() {
		if err := r.agent.Stop(runCtx); err != nil {
			r.logger.Warn("runner.agent.stop_failed", "agent", r.agent.Name(), "error", err.Error())
		}
	}()

	return r.agent.Run(runCtx)
}
