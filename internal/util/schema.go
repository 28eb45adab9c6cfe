package util

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError names the argument that failed its schema check.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateParameters checks model-supplied tool arguments against the tool's
// object schema: required fields, primitive types and string enums. Unknown
// arguments pass through. Schema lists may be []string when written in Go or
// []any when decoded from JSON.
func ValidateParameters(args map[string]any, schema map[string]any) error {
	for _, name := range stringList(schema["required"]) {
		if _, ok := args[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for name, value := range args {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}

		want, _ := prop["type"].(string)
		if !matchesType(value, want) {
			return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("expected type %s, got %T", want, value)}
		}

		if enum := stringList(prop["enum"]); len(enum) > 0 {
			if s, _ := value.(string); !slices.Contains(enum, s) {
				return &ValidationError{Field: name, Value: value, Message: "must be one of " + strings.Join(enum, ", ")}
			}
		}
	}

	return nil
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// matchesType accepts nil for any type and integral float64 for "integer",
// since decoded JSON numbers arrive as float64.
func matchesType(value any, want string) bool {
	if value == nil {
		return true
	}

	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		switch value.(type) {
		case []any, []string:
			return true
		}
		return false
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return true
}
