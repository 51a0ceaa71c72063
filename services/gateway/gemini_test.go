package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ragchat/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeLLM struct {
	response *llms.ContentResponse
	err      error

	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	return f.response, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGeminiProviderFlattensLatestMessage(t *testing.T) {
	llm := &fakeLLM{response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content: "Looking it up",
		ToolCalls: []llms.ToolCall{{
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "context_retriever", Arguments: `{"user_query":"lincoln"}`},
		}},
	}}}}
	provider := NewGeminiProviderWithModel(llm, GeminiConfig{Model: "gemini-2.5-pro"})
	gw := New(provider)

	tools := []models.ToolContract{{
		Name:        "context_retriever",
		Description: "search",
		InputSchema: map[string]any{
			"$schema":              "https://json-schema.org/draft/2020-12/schema",
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"user_query": map[string]any{"type": "string", "additionalProperties": false},
			},
			"required": []any{"user_query"},
		},
	}}

	resp, err := gw.Generate(context.Background(), models.ModelGemini, conversation(), tools)
	require.NoError(t, err)

	require.Len(t, llm.messages, 1)
	require.Len(t, llm.messages[0].Parts, 1)
	text, ok := llm.messages[0].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.True(t, strings.Contains(text.Text, "Echo: hi"))
	assert.Equal(t, llms.ChatMessageTypeHuman, llm.messages[0].Role)

	require.Len(t, llm.options.Tools, 1)
	params := llm.options.Tools[0].Function.Parameters.(map[string]any)
	assert.NotContains(t, params, "$schema")
	assert.NotContains(t, params, "additionalProperties")
	prop := params["properties"].(map[string]any)["user_query"].(map[string]any)
	assert.NotContains(t, prop, "additionalProperties")

	require.Len(t, resp.Blocks, 2)
	assert.Equal(t, models.TextBlock{Text: "Looking it up"}, resp.Blocks[0])
	use := resp.Blocks[1].(models.ToolUseBlock)
	assert.Equal(t, "context_retriever", use.Name)
	assert.Equal(t, map[string]any{"user_query": "lincoln"}, use.Input)
	assert.True(t, strings.HasPrefix(use.ID, "call_"))
}

func TestGeminiProviderErrors(t *testing.T) {
	cause := errors.New("quota exceeded")
	gw := New(NewGeminiProviderWithModel(&fakeLLM{err: cause}, GeminiConfig{Model: "gemini-2.5-pro"}))

	_, err := gw.Generate(context.Background(), models.ModelGemini, conversation(), nil)
	require.ErrorIs(t, err, ErrProvider)
	require.ErrorIs(t, err, cause)

	bad := &fakeLLM{response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: "{not json"}}},
	}}}}
	_, err = New(NewGeminiProviderWithModel(bad, GeminiConfig{})).Generate(context.Background(), models.ModelGemini, conversation(), nil)
	require.Error(t, err)
}

func TestStripSchemaKeepsInputIntact(t *testing.T) {
	schema := map[string]any{"$schema": "x", "type": "object", "properties": map[string]any{}}
	stripped := stripSchema(schema).(map[string]any)
	assert.NotContains(t, stripped, "$schema")
	assert.Contains(t, schema, "$schema")
}
