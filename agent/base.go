package agent

import (
	"fmt"
	"sync"

	"github.com/oron-mozes/creo-sub000/core"
)

// BaseAgent provides naming, hierarchy and run bookkeeping. Concrete agents
// embed it and implement Run.
//
// Start and Stop count concurrent runs instead of toggling a running flag:
// the same tree serves several sessions of one user at once.
type BaseAgent struct {
	name        string
	description string

	mu        sync.Mutex
	active    int
	parent    core.Agent
	subAgents []core.Agent
}

// NewBaseAgent creates a base agent with a default description.
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the agent name. Events emitted by the agent carry it as Author.
func (b *BaseAgent) Name() string { return b.name }

// Description returns the agent's description.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription replaces the description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// Start records the beginning of a run.
func (b *BaseAgent) Start(runCtx *core.RunContext) error {
	if err := runCtx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.active++

	return nil
}

// Stop records the end of a run.
func (b *BaseAgent) Stop(_ *core.RunContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == 0 {
		return fmt.Errorf("agent %s is not running", b.name)
	}
	b.active--

	return nil
}

// ActiveRuns returns the number of runs between Start and Stop.
func (b *BaseAgent) ActiveRuns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// SetSubAgents replaces the children and rewires their parent pointers.
func (b *BaseAgent) SetSubAgents(children ...core.Agent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]struct{}, len(children))
	for _, child := range children {
		if _, dup := seen[child.Name()]; dup {
			return fmt.Errorf("duplicate sub-agent name %q", child.Name())
		}
		seen[child.Name()] = struct{}{}
	}

	for _, child := range b.subAgents {
		if setter, ok := child.(interface{ setParent(core.Agent) }); ok {
			setter.setParent(nil)
		}
	}
	b.subAgents = nil

	for _, child := range children {
		if setter, ok := child.(interface{ setParent(core.Agent) }); ok {
			setter.setParent(&agentWrapper{b})
		}
		b.subAgents = append(b.subAgents, child)
	}

	return nil
}

func (b *BaseAgent) setParent(p core.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = p
}

// Parent returns the parent agent, or nil at the root.
func (b *BaseAgent) Parent() core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// SubAgents returns a copy of the children.
func (b *BaseAgent) SubAgents() []core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]core.Agent, len(b.subAgents))
	copy(result, b.subAgents)
	return result
}

// FindAgent searches this agent and its descendants depth-first.
func (b *BaseAgent) FindAgent(name string) core.Agent {
	if b.name == name {
		return &agentWrapper{b}
	}

	for _, child := range b.SubAgents() {
		if child.Name() == name {
			return child
		}
		if found := child.FindAgent(name); found != nil {
			return found
		}
	}
	return nil
}

// agentWrapper lets a bare BaseAgent satisfy core.Agent for hierarchy lookups.
type agentWrapper struct{ *BaseAgent }

func (w *agentWrapper) Run(_ *core.RunContext) error {
	return fmt.Errorf("cannot run BaseAgent %s directly", w.name)
}

func boolPtr(b bool) *bool { return &b }
