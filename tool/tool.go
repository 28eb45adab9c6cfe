// Package tool implements the capabilities a worker model can call. Tools
// never touch session state directly: they record side effects on the
// ToolContext, and those effects travel as EventActions on the function
// response event for the dispatcher to apply.
package tool

import (
	"fmt"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/internal/util"
	"github.com/oron-mozes/creo-sub000/model"
)

// Tool is a named capability exposed to a model through function calling.
//
// Implementations must be safe for concurrent use: one tool instance serves
// every session of a user.
type Tool interface {
	// Name returns the function name the model calls (snake_case).
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Parameters returns the JSON schema of the arguments.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError is returned as ToolError.Details when arguments fail the schema.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "TOOL_NOT_FOUND"
	CodeInvalidArg = "INVALID_ARGUMENT"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Definitions renders tools as model function declarations in the given order.
func Definitions(tools []Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

func stringArg(tool string, args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", NewToolError(tool, fmt.Sprintf("missing required field %q", key), CodeInvalidArg)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", NewToolError(tool, fmt.Sprintf("field %q must be a non-empty string", key), CodeInvalidArg)
	}
	return s, nil
}

func objectArg(tool string, args map[string]any, key string) (map[string]any, error) {
	raw, ok := args[key]
	if !ok {
		return nil, NewToolError(tool, fmt.Sprintf("missing required field %q", key), CodeInvalidArg)
	}
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, NewToolError(tool, fmt.Sprintf("field %q must be a non-empty object", key), CodeInvalidArg)
	}
	return m, nil
}
