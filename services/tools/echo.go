package tools

import (
	"context"
	"fmt"
)

type EchoToolInput struct {
	Message string `json:"message" jsonschema:"required,description=The message to echo back"`
}

type EchoTool struct{}

func (EchoTool) Name() string {
	return "echo"
}

func (EchoTool) Description() string {
	return "A simple echo tool"
}

func (EchoTool) InputSchema() map[string]any {
	return generateSchema[EchoToolInput]()
}

func (EchoTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[EchoToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse echo tool input: %w", err)
	}
	return "Echo: " + params.Message, nil
}
