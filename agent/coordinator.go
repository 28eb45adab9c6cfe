package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oron-mozes/creo-sub000/core"
)

// NotesHeader opens the block of worker output handed to the presenter.
const NotesHeader = "[WORKER NOTES]"

// CoordinatorOptions configures a CoordinatorAgent.
type CoordinatorOptions struct {
	// DefaultStage routes sessions that have no stage yet.
	DefaultStage core.WorkflowStage
}

// CoordinatorAgent routes a turn to the worker owning the session's stage,
// hands that worker's output to the presentation worker, and closes the turn
// with a final event carrying the presented text.
//
// Child events are forwarded unchanged, so the event stream carries the
// worker's and the presenter's own events ahead of the coordinator's final.
// An upstream overload in either child is reported as an overload error
// event instead of an error, leaving recovery to the dispatcher.
type CoordinatorAgent struct {
	BaseAgent
	workers      map[core.WorkflowStage]core.Agent
	presenter    core.Agent
	defaultStage core.WorkflowStage
}

var _ core.Agent = (*CoordinatorAgent)(nil)

// NewCoordinatorAgent wires stage workers and the presenter under name.
func NewCoordinatorAgent(
	name string,
	workers map[core.WorkflowStage]core.Agent,
	presenter core.Agent,
	optFns ...func(o *CoordinatorOptions),
) (*CoordinatorAgent, error) {
	opts := CoordinatorOptions{DefaultStage: core.StageOnboarding}
	for _, fn := range optFns {
		fn(&opts)
	}

	if presenter == nil {
		return nil, errors.New("coordinator requires a presentation worker")
	}
	for stage := range workers {
		if !stage.Valid() {
			return nil, fmt.Errorf("worker bound to %w: %q", core.ErrInvalidStage, string(stage))
		}
	}
	if _, ok := workers[opts.DefaultStage]; !ok {
		return nil, fmt.Errorf("no worker for default stage %s", opts.DefaultStage)
	}

	c := &CoordinatorAgent{
		BaseAgent:    NewBaseAgent(name),
		workers:      workers,
		presenter:    presenter,
		defaultStage: opts.DefaultStage,
	}

	children := make([]core.Agent, 0, len(workers)+1)
	for _, stage := range core.Stages() {
		if w, ok := workers[stage]; ok {
			children = append(children, w)
		}
	}
	children = append(children, presenter)
	if err := c.SetSubAgents(children...); err != nil {
		return nil, err
	}

	return c, nil
}

// WorkerFor returns the worker that handles stage; StageNone maps to the
// default stage.
func (c *CoordinatorAgent) WorkerFor(stage core.WorkflowStage) (core.Agent, bool) {
	if stage == core.StageNone {
		stage = c.defaultStage
	}
	w, ok := c.workers[stage]
	return w, ok
}

// Run implements core.Agent.
func (c *CoordinatorAgent) Run(runCtx *core.RunContext) error {
	worker, ok := c.WorkerFor(runCtx.Snapshot.Stage)
	if !ok {
		return fmt.Errorf("no worker for stage %s", runCtx.Snapshot.Stage)
	}

	runCtx.LogDebug("coordinator.route", "stage", runCtx.Snapshot.Stage.String(), "worker", worker.Name())

	notes, err := c.runChild(runCtx, worker, "")
	if err != nil {
		return c.childFailed(runCtx, worker, err)
	}

	presented, err := c.runChild(runCtx, c.presenter, presenterInput(runCtx.Input, worker.Name(), notes))
	if err != nil {
		return c.childFailed(runCtx, c.presenter, err)
	}

	if strings.TrimSpace(presented) == "" {
		runCtx.LogWarn("coordinator.empty_presentation", "worker", worker.Name())
		return nil
	}

	return runCtx.EmitEvent(core.NewFinalEvent(c.Name(), presented))
}

func (c *CoordinatorAgent) childFailed(runCtx *core.RunContext, child core.Agent, err error) error {
	if errors.Is(err, core.ErrUpstreamOverloaded) {
		runCtx.LogWarn("coordinator.upstream_overloaded", "worker", child.Name(), "error", err.Error())
		return runCtx.EmitEvent(core.NewErrorEvent(c.Name(), core.ErrorCodeOverloaded, err.Error()))
	}
	return fmt.Errorf("worker %s: %w", child.Name(), err)
}

// runChild runs child on an intercepted emit channel, forwards its events and
// returns its answer: the final text, or the streamed partials when the child
// never closed with one.
func (c *CoordinatorAgent) runChild(runCtx *core.RunContext, child core.Agent, input string) (string, error) {
	events := make(chan core.Event, 16)
	childCtx := runCtx.NewChildContext(events, core.AgentInfo{Name: child.Name(), Type: "worker"}, input)

	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		errCh <- runAgent(childCtx, child)
	}()

	var (
		partial strings.Builder
		final   string
	)
	for ev := range events {
		if err := runCtx.EmitEvent(ev); err != nil {
			for range events {
			}
			<-errCh
			return "", err
		}
		switch {
		case ev.IsPartial():
			partial.WriteString(ev.Text())
		case ev.IsFinal():
			final = ev.Text()
		}
	}

	if err := <-errCh; err != nil {
		return "", err
	}
	if final != "" {
		return final, nil
	}
	return partial.String(), nil
}

func presenterInput(input, worker, notes string) string {
	if strings.TrimSpace(notes) == "" {
		notes = "(no notes)"
	}
	return fmt.Sprintf("%s\n\n%s\n%s: %s", input, NotesHeader, worker, notes)
}
