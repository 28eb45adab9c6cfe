package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/model"
)

func TestTranslateModelForBedrock(t *testing.T) {
	assert.Equal(t, "us.anthropic.claude-sonnet-4-20250514-v1:0", TranslateModelForBedrock(DefaultModel))
	assert.Equal(t, "custom-model", TranslateModelForBedrock("custom-model"))
}

func TestNewModel_Defaults(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test"; o.Model = "" })
	assert.Equal(t, model.Info{Name: DefaultModel, Provider: "anthropic", SupportsTools: true}, m.Info())
}

func TestBuildMessages_ToolRoundTrip(t *testing.T) {
	contents := []core.Content{
		core.NewTextContent(core.RoleSystem, "ignored here"),
		core.NewTextContent(core.RoleUser, "I run a coffee shop"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t1", Name: "save_business_profile", Arguments: `{"profile":{"name":"Bean"}}`}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "t1", Name: "save_business_profile", Response: map[string]any{"ok": true}}},
		}},
	}

	msgs := buildMessages(contents)
	require.Len(t, msgs, 3)

	raw, err := json.Marshal(msgs)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `"tool_use"`)
	assert.Contains(t, s, `"tool_result"`)
	assert.Contains(t, s, `"tool_use_id":"t1"`)
	assert.NotContains(t, s, "ignored here")
}

func TestSystemBlocks(t *testing.T) {
	blocks := systemBlocks(model.Request{
		Instructions: "be brief",
		Contents:     []core.Content{core.NewTextContent(core.RoleSystem, "context")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "be brief", blocks[0].Text)
	assert.Equal(t, "context", blocks[1].Text)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "set_workflow_stage",
			Description: "move the session to a stage",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"stage": map[string]any{"type": "string"}},
				"required":   []any{"stage"},
			},
		},
	}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "set_workflow_stage", tools[0].OfTool.Name)
	assert.Equal(t, []string{"stage"}, tools[0].OfTool.InputSchema.Required)
}

func TestClassify_StatusCodes(t *testing.T) {
	apiErr := func(code int) error {
		return &anthropic.Error{
			StatusCode: code,
			Request:    httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil),
			Response:   &http.Response{StatusCode: code},
		}
	}

	for _, code := range []int{429, 503, 529} {
		err := classify(fmt.Errorf("anthropic api error: %w", apiErr(code)))
		assert.ErrorIs(t, err, core.ErrUpstreamOverloaded, "status %d", code)
	}

	err := classify(fmt.Errorf("anthropic api error: %w", apiErr(400)))
	assert.False(t, errors.Is(err, core.ErrUpstreamOverloaded))
}
