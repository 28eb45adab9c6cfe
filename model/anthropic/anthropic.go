// Package anthropic provides a model.Model backed by the Anthropic Messages
// API, reachable directly or through AWS Bedrock.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/oron-mozes/creo-sub000/core"
	"github.com/oron-mozes/creo-sub000/model"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

// Options configures the Anthropic model adapter.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind model.Model.
type Model struct {
	client   *anthropic.Client
	opts     Options
	provider string
}

var _ model.Model = (*Model)(nil)

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       DefaultModel,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	return opts
}

// NewModel creates a model using the API key from Options or ANTHROPIC_API_KEY.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts, provider: "anthropic"}
}

// NewModelFromClient creates a model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns), provider: "anthropic"}
}

// NewBedrockModel creates a model served through AWS Bedrock using the
// default AWS credential chain, optionally pinned to a region and profile.
// Standard model ids are translated to Bedrock inference profiles.
func NewBedrockModel(ctx context.Context, region, profile string, optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns)

	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}

	client := anthropic.NewClient(bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	opts.Model = TranslateModelForBedrock(opts.Model)

	return &Model{client: &client, opts: opts, provider: "bedrock"}
}

// TranslateModelForBedrock converts Anthropic model ids to Bedrock
// cross-region inference profiles. Unknown ids are returned unchanged.
func TranslateModelForBedrock(name string) string {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if b, ok := bedrockModels[anthropic.Model(name)]; ok {
		return b
	}
	return name
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(m.opts.Model),
			Messages:    buildMessages(req.Contents),
			MaxTokens:   m.opts.MaxTokens,
			Temperature: anthropic.Float(m.opts.Temperature),
		}
		if system := systemBlocks(req); len(system) > 0 {
			params.System = system
		}
		if len(req.Tools) > 0 {
			params.Tools = buildTools(req.Tools)
		}

		var (
			msg *anthropic.Message
			err error
		)
		if req.Stream {
			msg, err = m.stream(ctx, params, out)
		} else {
			msg, err = m.client.Messages.New(ctx, params)
		}
		if err != nil {
			errCh <- classify(fmt.Errorf("anthropic api error: %w", err))
			return
		}

		select {
		case out <- toResponse(msg):
		case <-ctx.Done():
			errCh <- ctx.Err()
		}
	}()

	return out, errCh
}

// stream forwards text deltas as partial responses and returns the
// accumulated message.
func (m *Model) stream(ctx context.Context, params anthropic.MessageNewParams, out chan<- model.Response) (*anthropic.Message, error) {
	stream := m.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate stream: %w", err)
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				select {
				case out <- model.Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, delta.Text)}:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &message, nil
}

func toResponse(msg *anthropic.Message) model.Response {
	var parts []core.Part
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			if b.Text != "" {
				parts = append(parts, core.TextPart{Text: b.Text})
			}
		case anthropic.ToolUseBlock:
			args := ""
			if raw, err := json.Marshal(b.Input); err == nil {
				args = string(raw)
			}
			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			}})
		}
	}

	finish := "stop"
	if msg.StopReason != "" {
		finish = string(msg.StopReason)
	}

	return model.Response{
		ID:           msg.ID,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: finish,
		Usage: &model.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

// classify maps 429/503/529 API errors onto core.ErrUpstreamOverloaded.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && model.IsOverloadStatus(apiErr.StatusCode) {
		return model.Overloaded(err)
	}
	return model.Classify(err)
}

func systemBlocks(req model.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, c := range req.Contents {
		if c.Role != core.RoleSystem {
			continue
		}
		for _, p := range c.Parts {
			if tp, ok := p.(core.TextPart); ok && tp.Text != "" {
				blocks = append(blocks, anthropic.TextBlockParam{Text: tp.Text})
			}
		}
	}
	return blocks
}

// buildMessages converts contents to Anthropic messages. Tool results travel
// in a user message directly after the assistant message that requested them.
func buildMessages(contents []core.Content) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	for _, c := range contents {
		switch c.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			if blocks := assistantBlocks(c.Parts); len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		case core.RoleTool:
			if blocks := toolResultBlocks(c.Parts); len(blocks) > 0 {
				messages = append(messages, anthropic.NewUserMessage(blocks...))
			}
		default:
			var blocks []anthropic.ContentBlockParamUnion
			for _, p := range c.Parts {
				if tp, ok := p.(core.TextPart); ok && tp.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(tp.Text))
				}
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewUserMessage(blocks...))
			}
		}
	}
	return messages
}

func assistantBlocks(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case core.FunctionCallPart:
			var input any = map[string]any{}
			if part.FunctionCall.Arguments != "" {
				if err := json.Unmarshal([]byte(part.FunctionCall.Arguments), &input); err != nil {
					input = part.FunctionCall.Arguments
				}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(part.FunctionCall.ID, input, part.FunctionCall.Name))
		}
	}
	return blocks
}

func toolResultBlocks(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		fr, ok := p.(core.FunctionResponsePart)
		if !ok || fr.FunctionResponse.ID == "" {
			continue
		}
		text, isErr := resultText(fr.FunctionResponse)
		blocks = append(blocks, anthropic.NewToolResultBlock(fr.FunctionResponse.ID, text, isErr))
	}
	return blocks
}

func resultText(fr core.FunctionResponse) (string, bool) {
	if fr.Error != "" {
		return fr.Error, true
	}
	if s, ok := fr.Response.(string); ok {
		return s, false
	}
	raw, err := json.Marshal(fr.Response)
	if err != nil {
		return fmt.Sprintf("%v", fr.Response), false
	}
	return string(raw), false
}

func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if params := tool.Function.Parameters; params != nil {
			if properties, ok := params["properties"]; ok {
				inputSchema.Properties = properties
			}
			switch req := params["required"].(type) {
			case []string:
				inputSchema.Required = req
			case []any:
				for _, r := range req {
					if s, ok := r.(string); ok {
						inputSchema.Required = append(inputSchema.Required, s)
					}
				}
			}
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Function.Name)
		if out[i].OfTool != nil && tool.Function.Description != "" {
			out[i].OfTool.Description = anthropic.String(tool.Function.Description)
		}
	}
	return out
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: m.provider, SupportsTools: true}
}
