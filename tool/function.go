package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/internal/util"
)

// FunctionFunc is the implementation wrapped by a FunctionTool. It receives
// arguments that already passed schema validation.
type FunctionFunc func(toolCtx *core.ToolContext, args map[string]any) (any, error)

// FunctionTool exposes a plain Go function as a Tool.
//
// Failures are normalized to *ToolError:
//
//	schema mismatch           -> CodeValidation
//	function returned *ToolError -> forwarded unchanged
//	any other error           -> CodeExecution
//
// A FunctionTool holds no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          FunctionFunc
}

var _ Tool = (*FunctionTool)(nil)

// NewFunctionTool constructs a FunctionTool from an explicit schema.
//
// Example:
//
//	noteTool := NewFunctionTool(
//	  "remember_note",
//	  "Store a note in the worker's private scratch space",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "note": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"note"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    tc.SetScratch("note", args["note"])
//	    return "ok", nil
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn FunctionFunc) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args then invokes the wrapped function.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			logger.Error("tool.call.error", "tool", t.name, "code", toolErr.Code, "error", toolErr.Message)
			return nil, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
		}
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
