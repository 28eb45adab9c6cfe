package core

// Agent is a worker in the pipeline. Agents receive a RunContext, emit events
// through it and return when their part of the turn is done.
//
// Implementations must:
//   - Respect context cancellation
//   - Emit events only through the RunContext
//   - Be safe for concurrent runs (one agent tree serves every session of a user)
type Agent interface {
	Name() string
	Description() string
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
}

// AgentInfo identifies an agent in contexts and events.
type AgentInfo struct{ Name, Type string }
