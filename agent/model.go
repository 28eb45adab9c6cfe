package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/model"
	"github.com/oron-mozes/creo-sub000/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Instruction     Instruction
	EnableStreaming bool
	// MaxToolRounds bounds model calls that end in tool calls within one run.
	MaxToolRounds int
	AllowTransfer bool
	Tools         []tool.Tool
}

// ModelAgent drives a model through request -> response -> tool execution
// rounds until the model answers without calling tools.
//
// Every model chunk becomes an event authored by the agent: streamed text as
// partial events, the closing response as a non-partial event marked
// TurnComplete when it carries no tool calls. Tool results are emitted as
// function response events carrying the tool's EventActions.
type ModelAgent struct {
	BaseAgent
	llm             model.Model
	instruction     Instruction
	enableStreaming bool
	maxToolRounds   int
	allowTransfer   bool

	toolsMu sync.RWMutex
	tools   map[string]tool.Tool
}

var _ core.Agent = (*ModelAgent)(nil)

// NewModelAgent creates a model-backed agent.
//
// Defaults: streaming on, 5 tool rounds, transfer allowed, a generic
// instruction naming the agent.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:     NewInstructionFromText(fmt.Sprintf("You are %s, a helpful assistant.", name)),
		EnableStreaming: true,
		MaxToolRounds:   5,
		AllowTransfer:   true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent:       NewBaseAgent(name),
		llm:             llm,
		instruction:     opts.Instruction,
		enableStreaming: opts.EnableStreaming,
		maxToolRounds:   opts.MaxToolRounds,
		allowTransfer:   opts.AllowTransfer,
		tools:           make(map[string]tool.Tool),
	}
	a.RegisterTools(opts.Tools...)
	if opts.AllowTransfer {
		a.RegisterTool(tool.NewTransferToAgentTool())
	}

	return a
}

// RegisterTool adds a tool, replacing any tool with the same name.
func (a *ModelAgent) RegisterTool(t tool.Tool) {
	a.toolsMu.Lock()
	defer a.toolsMu.Unlock()
	a.tools[t.Name()] = t
}

// RegisterTools adds several tools.
func (a *ModelAgent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// HasTool reports whether a tool is registered.
func (a *ModelAgent) HasTool(name string) bool {
	a.toolsMu.RLock()
	defer a.toolsMu.RUnlock()
	_, ok := a.tools[name]
	return ok
}

// ListTools returns registered tool names, sorted.
func (a *ModelAgent) ListTools() []string {
	a.toolsMu.RLock()
	defer a.toolsMu.RUnlock()
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *ModelAgent) toolList() []tool.Tool {
	names := a.ListTools()

	a.toolsMu.RLock()
	defer a.toolsMu.RUnlock()

	out := make([]tool.Tool, 0, len(names))
	for _, n := range names {
		if !a.allowTransfer && n == tool.TransferToAgentName {
			continue
		}
		out = append(out, a.tools[n])
	}
	return out
}

// Model returns the underlying model.
func (a *ModelAgent) Model() model.Model { return a.llm }

// ExecuteTool decodes JSON arguments and invokes the named tool.
func (a *ModelAgent) ExecuteTool(toolCtx *core.ToolContext, toolName string, args string) (any, error) {
	a.toolsMu.RLock()
	t, exists := a.tools[toolName]
	a.toolsMu.RUnlock()
	if !exists {
		return nil, tool.NewToolError(toolName, "tool not registered", tool.CodeNotFound)
	}

	argsMap := make(map[string]any)
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
			return nil, tool.NewToolError(toolName, fmt.Sprintf("failed to unmarshal args: %v", err), tool.CodeInvalidArg)
		}
	}

	return t.Call(toolCtx, argsMap)
}

// Run implements core.Agent.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name())

	instructions, err := a.instruction.Resolve(runCtx)
	if err != nil {
		return fmt.Errorf("resolve instruction for %s: %w", a.Name(), err)
	}

	contents := []core.Content{core.NewTextContent(core.RoleUser, runCtx.Input)}
	defs := tool.Definitions(a.toolList())

	for round := 0; ; round++ {
		if round > a.maxToolRounds {
			runCtx.LogWarn("agent.tool_rounds.exhausted", "agent", a.Name(), "rounds", a.maxToolRounds)
			return nil
		}
		if err := runCtx.Budget.Charge(a.Name()); err != nil {
			return err
		}

		req := model.Request{
			Instructions: instructions,
			Contents:     contents,
			Tools:        defs,
			Stream:       a.enableStreaming,
		}

		start := time.Now()
		last, err := a.runOnce(runCtx, req)
		runCtx.LogDebug("agent.model.call", "agent", a.Name(), "round", round, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
		if err != nil {
			return fmt.Errorf("agent %s: %w", a.Name(), err)
		}
		if last == nil {
			return nil
		}

		calls := last.GetFunctionCalls()
		if len(calls) == 0 {
			return nil
		}

		contents = append(contents, *last.Content)
		outcome, err := a.executeTools(runCtx, calls)
		if err != nil {
			return err
		}
		contents = append(contents, core.Content{Role: core.RoleTool, Parts: outcome.parts})

		if outcome.transfer != "" && a.allowTransfer {
			return a.transferTo(runCtx, outcome.transfer)
		}
		if outcome.skip {
			return nil
		}
	}
}

// runOnce performs one model call, emitting every chunk, and returns the
// closing non-partial event. A nil event means the model produced nothing.
func (a *ModelAgent) runOnce(runCtx *core.RunContext, req model.Request) (*core.Event, error) {
	respCh, errCh := a.llm.Generate(runCtx.Context, req)

	var last *core.Event
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			ev := core.NewEvent(runCtx.RunID, a.Name())
			content := resp.Content
			ev.Content = &content

			if resp.Partial {
				if ev.Text() == "" {
					continue
				}
				ev.Partial = boolPtr(true)
			} else if len(ev.GetFunctionCalls()) == 0 {
				ev.TurnComplete = boolPtr(true)
			}

			if err := runCtx.EmitEvent(ev); err != nil {
				return nil, err
			}
			if !resp.Partial {
				closing := ev
				last = &closing
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		case <-runCtx.Done():
			return nil, runCtx.Err()
		}
	}

	return last, nil
}

type toolOutcome struct {
	parts    []core.Part
	transfer string
	skip     bool
}

// executeTools runs calls in order and emits one function response event per
// call. Tool failures are reported to the model, not returned.
func (a *ModelAgent) executeTools(runCtx *core.RunContext, calls []core.FunctionCall) (toolOutcome, error) {
	var out toolOutcome

	for _, call := range calls {
		toolCtx := core.NewToolContext(runCtx, call.ID)

		start := time.Now()
		result, err := a.ExecuteTool(toolCtx, call.Name, call.Arguments)
		runCtx.LogInfo("agent.tool.executed", "agent", a.Name(), "tool", call.Name, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)

		respEv := core.NewFunctionResponseEvent(a.Name(), call.ID, call.Name, result, err)
		respEv.InvocationID = runCtx.RunID
		if err == nil {
			respEv.Actions = *toolCtx.Actions()
		}
		if err := runCtx.EmitEvent(respEv); err != nil {
			return out, err
		}

		out.parts = append(out.parts, respEv.Content.Parts...)
		if t := respEv.Actions.TransferToAgent; t != nil {
			out.transfer = *t
		}
		if s := respEv.Actions.SkipSummarization; s != nil && *s {
			out.skip = true
		}
	}

	return out, nil
}

// transferTo hands the rest of the run to a descendant agent.
func (a *ModelAgent) transferTo(runCtx *core.RunContext, name string) error {
	target := a.FindAgent(name)
	if target == nil || target.Name() == a.Name() {
		runCtx.LogWarn("agent.transfer.unknown_target", "agent", a.Name(), "target", name)
		return nil
	}

	runCtx.LogInfo("agent.transfer", "from_agent", a.Name(), "to_agent", name)
	child := runCtx.NewChildContext(runCtx.Emit, core.AgentInfo{Name: target.Name(), Type: "transfer"}, "")

	return runAgent(child, target)
}

// runAgent wraps Run with the Start/Stop lifecycle.
func runAgent(runCtx *core.RunContext, a core.Agent) (err error) {
	if err := a.Start(runCtx); err != nil {
		return err
	}
	defer func() {
		if stopErr := a.Stop(runCtx); stopErr != nil && err == nil {
			runCtx.LogWarn("agent.stop.error", "agent", a.Name(), "error", stopErr.Error())
		}
	}()

	return a.Run(runCtx)
}
