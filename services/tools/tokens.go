package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/anthropics/anthropic-sdk-go"
)

type CountTokensToolInput struct {
	CurrentQuery string `json:"current_query" jsonschema:"required,description=The query whose input token usage should be counted"`
}

type CountTokensTool struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewCountTokensTool(client *anthropic.Client, model string) CountTokensTool {
	return CountTokensTool{client: client, model: anthropic.Model(model)}
}

func (CountTokensTool) Name() string {
	return "count_claude_message_tokens"
}

func (CountTokensTool) Description() string {
	return "returns the total input token that is being used for the current query within the present chat session."
}

func (CountTokensTool) InputSchema() map[string]any {
	return generateSchema[CountTokensToolInput]()
}

func (c CountTokensTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[CountTokensToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse count tokens tool input: %w", err)
	}

	count, err := c.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model: c.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(params.CurrentQuery)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}

	return strconv.FormatInt(count.InputTokens, 10), nil
}
