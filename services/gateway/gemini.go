package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"ragchat/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
}

// GeminiProvider talks to Gemini through langchaingo. It receives only the
// latest message, flattened into a single prompt string.
type GeminiProvider struct {
	llm         llms.Model
	model       string
	temperature float64
}

func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return NewGeminiProviderWithModel(llm, cfg), nil
}

func NewGeminiProviderWithModel(llm llms.Model, cfg GeminiConfig) *GeminiProvider {
	return &GeminiProvider{llm: llm, model: cfg.Model, temperature: cfg.Temperature}
}

func (p *GeminiProvider) Name() models.ModelChoice {
	return models.ModelGemini
}

func (p *GeminiProvider) FullHistorySupported() bool {
	return false
}

func (p *GeminiProvider) Generate(ctx context.Context, messages []models.Message, tools []models.ToolContract) (*ModelResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no message to send")
	}
	latest := messages[len(messages)-1]

	msgType := llms.ChatMessageTypeHuman
	if latest.Role == models.RoleAssistant {
		msgType = llms.ChatMessageTypeAI
	}
	content := []llms.MessageContent{llms.TextParts(msgType, latest.PlainText())}

	opts := []llms.CallOption{llms.WithTemperature(p.temperature)}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(toGeminiTools(tools)))
	}

	log.Debug().Str("model", p.model).Int("tools", len(tools)).Msg("Gemini request")

	resp, err := p.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to call Gemini API")
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return &ModelResponse{Model: p.model}, nil
	}

	choice := resp.Choices[0]
	var blocks []models.ContentBlock
	if choice.Content != "" {
		blocks = append(blocks, models.TextBlock{Text: choice.Content})
	}
	for _, call := range choice.ToolCalls {
		if call.FunctionCall == nil {
			continue
		}
		input := map[string]any{}
		if call.FunctionCall.Arguments != "" {
			if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &input); err != nil {
				return nil, fmt.Errorf("failed to decode arguments of tool %s: %w", call.FunctionCall.Name, err)
			}
		}
		id := call.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		blocks = append(blocks, models.ToolUseBlock{ID: id, Name: call.FunctionCall.Name, Input: input})
	}

	log.Info().
		Str("model", p.model).
		Str("stop_reason", choice.StopReason).
		Int("blocks", len(blocks)).
		Msg("Gemini response")

	return &ModelResponse{Blocks: blocks, StopReason: choice.StopReason, Model: p.model}, nil
}

func toGeminiTools(tools []models.ToolContract) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		params, _ := stripSchema(tool.InputSchema).(map[string]any)
		if params == nil {
			params = map[string]any{}
		}
		if _, ok := params["type"]; !ok {
			params["type"] = "object"
		}
		if _, ok := params["properties"]; !ok {
			params["properties"] = map[string]any{}
		}

		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// stripSchema returns a copy of the schema without the keys Gemini rejects.
func stripSchema(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for key, value := range node {
			if key == "$schema" || key == "additionalProperties" {
				continue
			}
			out[key] = stripSchema(value)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, value := range node {
			out[i] = stripSchema(value)
		}
		return out
	default:
		return v
	}
}
