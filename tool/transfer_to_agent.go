package tool

import (
	"fmt"
	"slices"
	"strings"

	"github.com/oron-mozes/creo-sub000/core"
)

// TransferToAgentName is the function name of the transfer tool.
const TransferToAgentName = "transfer_to_agent"

// transferToAgentTool hands the rest of a run to another worker. When targets
// is non-empty only those workers are accepted and the schema lists them.
type transferToAgentTool struct {
	targets []string
}

// NewTransferToAgentTool creates the transfer tool. Passing no targets
// accepts any worker name and leaves resolution to the calling agent.
func NewTransferToAgentTool(targets ...string) Tool {
	return &transferToAgentTool{targets: slices.Clone(targets)}
}

func (t *transferToAgentTool) Name() string { return TransferToAgentName }

func (t *transferToAgentTool) Description() string {
	if len(t.targets) == 0 {
		return "Hand the conversation to another worker by name when it is better suited to answer."
	}
	return "Hand the conversation to another worker when it is better suited to answer. Workers: " +
		strings.Join(t.targets, ", ") + "."
}

func (t *transferToAgentTool) Parameters() map[string]any {
	agent := map[string]any{"type": "string", "description": "Target worker name"}
	if len(t.targets) > 0 {
		agent["enum"] = slices.Clone(t.targets)
	}
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"agent": agent},
		"required":   []string{"agent"},
	}
}

func (t *transferToAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	name, err := stringArg(t.Name(), args, "agent")
	if err != nil {
		return nil, err
	}
	if name == tc.AgentName() {
		return nil, NewToolError(t.Name(), "cannot transfer to itself", CodeInvalidArg)
	}
	if len(t.targets) > 0 && !slices.Contains(t.targets, name) {
		return nil, NewToolError(t.Name(), fmt.Sprintf("unknown worker %q", name), CodeNotFound)
	}

	tc.TransferToAgent(name)
	return map[string]any{"transferred": true, "agent": name}, nil
}
