package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragchat/models"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claudeServer(t *testing.T, reply string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClaude(srv *httptest.Server) *ClaudeProvider {
	return NewClaudeProvider(
		ClaudeConfig{APIKey: "test", Model: "claude-sonnet-4-20250514", MaxTokens: 1024},
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
}

func TestClaudeProviderToolUse(t *testing.T) {
	reply := `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [
			{"type": "text", "text": "Let me check."},
			{"type": "tool_use", "id": "toolu_1", "name": "echo", "input": {"message": "hi"}}
		],
		"stop_reason": "tool_use",
		"stop_sequence": null,
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`
	var captured map[string]any
	provider := newTestClaude(claudeServer(t, reply, &captured))

	tools := []models.ToolContract{{
		Name:        "echo",
		Description: "A simple echo tool",
		InputSchema: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{"message": map[string]any{"type": "string"}},
			"required":             []any{"message"},
			"additionalProperties": false,
		},
	}}

	resp, err := provider.Generate(context.Background(), conversation(), tools)
	require.NoError(t, err)

	require.Len(t, resp.Blocks, 2)
	assert.Equal(t, models.TextBlock{Text: "Let me check."}, resp.Blocks[0])
	assert.Equal(t, models.ToolUseBlock{ID: "toolu_1", Name: "echo", Input: map[string]any{"message": "hi"}}, resp.Blocks[1])
	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolUses(), 1)

	assert.Equal(t, "claude-sonnet-4-20250514", captured["model"])
	assert.EqualValues(t, 1024, captured["max_tokens"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 3)
	last := messages[2].(map[string]any)
	assert.Equal(t, "user", last["role"])
	resultBlock := last["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", resultBlock["type"])
	assert.Equal(t, "t1", resultBlock["tool_use_id"])

	sentTools := captured["tools"].([]any)
	require.Len(t, sentTools, 1)
	schema := sentTools[0].(map[string]any)["input_schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"message"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])
}

func TestClaudeProviderText(t *testing.T) {
	reply := `{
		"id": "msg_2",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": "Abraham Lincoln was the 16th president."}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 10, "output_tokens": 8}
	}`
	var captured map[string]any
	provider := newTestClaude(claudeServer(t, reply, &captured))

	resp, err := provider.Generate(context.Background(), []models.Message{
		models.NewTextMessage(models.RoleUser, "who was Abraham Lincoln?"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Blocks, 1)
	assert.Empty(t, resp.ToolUses())
	assert.NotContains(t, captured, "tools")
}

func TestClaudeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := newTestClaude(srv).Generate(context.Background(), conversation(), nil)
	require.Error(t, err)
}
