package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/template"
)

// instructionFuncs are available to every instruction template.
var instructionFuncs = template.FuncMap{
	"default": func(fallback, val any) any {
		if isBlank(val) {
			return fallback
		}
		return val
	},
	// json renders structured session data compactly; absent data reads "none".
	"json": func(val any) string {
		if isBlank(val) {
			return "none"
		}
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	},
	// keys lists the fields already captured in a map, sorted.
	"keys": func(val map[string]any) string {
		if len(val) == 0 {
			return "none"
		}
		ks := make([]string, 0, len(val))
		for k := range val {
			ks = append(ks, k)
		}
		sort.Strings(ks)
		return strings.Join(ks, ", ")
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// RenderTemplate expands {{...}} markers in an agent instruction against data.
// Instructions are plain prompt text, so no HTML escaping is applied.
func RenderTemplate(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("instruction").Option("missingkey=zero").Funcs(instructionFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse instruction: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render instruction: %w", err)
	}

	return buf.String(), nil
}

// isBlank is true for nil, "", and nil or empty maps and slices.
func isBlank(val any) bool {
	if val == nil {
		return true
	}
	if s, ok := val.(string); ok {
		return s == ""
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}
