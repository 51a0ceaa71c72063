package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"ragchat/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// ClaudeProvider sends the whole transcript to the Anthropic messages API.
type ClaudeProvider struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewClaudeProvider(cfg ClaudeConfig, opts ...option.RequestOption) *ClaudeProvider {
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)
	return NewClaudeProviderWithClient(&client, cfg)
}

func NewClaudeProviderWithClient(client *anthropic.Client, cfg ClaudeConfig) *ClaudeProvider {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 3500
	}
	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	return &ClaudeProvider{client: client, model: model, maxTokens: maxTokens}
}

func (p *ClaudeProvider) Name() models.ModelChoice {
	return models.ModelClaude
}

func (p *ClaudeProvider) FullHistorySupported() bool {
	return true
}

// Client exposes the underlying client for other Anthropic API users.
func (p *ClaudeProvider) Client() *anthropic.Client {
	return p.client
}

func (p *ClaudeProvider) Generate(ctx context.Context, messages []models.Message, tools []models.ToolContract) (*ModelResponse, error) {
	params, err := toAnthropicMessages(messages)
	if err != nil {
		return nil, err
	}
	toolSpecs := toAnthropicTools(tools)

	logClaudeRequest(params, toolSpecs)

	response, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages:  params,
		Tools:     toolSpecs,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to call Anthropic API")
		return nil, err
	}

	logClaudeResponse(response)

	blocks := make([]models.ContentBlock, 0, len(response.Content))
	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, models.TextBlock{Text: block.Text})
		case anthropic.ToolUseBlock:
			input := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return nil, fmt.Errorf("failed to decode input of tool %s: %w", block.Name, err)
				}
			}
			blocks = append(blocks, models.ToolUseBlock{ID: block.ID, Name: block.Name, Input: input})
		default:
			log.Debug().Str("type", fmt.Sprintf("%T", block)).Msg("Skipping unsupported response block")
		}
	}

	return &ModelResponse{
		Blocks:     blocks,
		StopReason: string(response.StopReason),
		Model:      string(response.Model),
	}, nil
}

func toAnthropicMessages(messages []models.Message) ([]anthropic.MessageParam, error) {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		if msg.IsText() {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
		}

		visitor := models.BlockVisitor{
			Text: func(b models.TextBlock) error {
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				return nil
			},
			ToolUse: func(b models.ToolUseBlock) error {
				input := b.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, input, b.Name))
				return nil
			},
			ToolResult: func(b models.ToolResultBlock) error {
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
				return nil
			},
		}
		for _, block := range msg.Blocks {
			if err := visitor.Visit(block); err != nil {
				return nil, err
			}
		}

		switch msg.Role {
		case models.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		default:
			params = append(params, anthropic.NewUserMessage(blocks...))
		}
	}
	return params, nil
}

// toAnthropicTools passes the contract schema through unchanged.
func toAnthropicTools(tools []models.ToolContract) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	specs := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties:  tool.InputSchema["properties"],
			Required:    requiredFields(tool.InputSchema["required"]),
			ExtraFields: map[string]any{},
		}
		for key, value := range tool.InputSchema {
			switch key {
			case "type", "properties", "required":
			default:
				schema.ExtraFields[key] = value
			}
		}
		if schema.Properties == nil {
			schema.Properties = map[string]any{}
		}

		specs = append(specs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: schema,
			},
		})
	}
	return specs
}

func requiredFields(v any) []string {
	switch required := v.(type) {
	case []string:
		return required
	case []any:
		fields := make([]string, 0, len(required))
		for _, field := range required {
			if s, ok := field.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	default:
		return nil
	}
}

func logClaudeRequest(messages []anthropic.MessageParam, tools []anthropic.ToolUnionParam) {
	if !log.Debug().Enabled() {
		return
	}
	roles := make([]string, len(messages))
	for i, msg := range messages {
		roles[i] = string(msg.Role)
	}
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		if tool.OfTool != nil {
			names = append(names, tool.OfTool.Name)
		}
	}
	log.Debug().Strs("roles", roles).Strs("tools", names).Msg("Anthropic request")
}

func logClaudeResponse(response *anthropic.Message) {
	toolCalls := 0
	for _, block := range response.Content {
		if _, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			toolCalls++
		}
	}
	log.Info().
		Str("model", string(response.Model)).
		Str("stop_reason", string(response.StopReason)).
		Int("blocks", len(response.Content)).
		Int("tool_calls", toolCalls).
		Msg("Anthropic response")
}
