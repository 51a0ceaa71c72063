package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	ServerName    = "ragchat-tools"
	ServerVersion = "0.1.0"
)

// NewMCPServer exposes every tool of the registry and the built-in prompts
// over the model context protocol.
func NewMCPServer(registry *Registry) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)

	for _, t := range registry.Tools() {
		server.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		}, toolHandler(registry, t.Name()))
	}

	for _, p := range Prompts() {
		server.AddPrompt(toMCPPrompt(p), promptHandler(p))
	}

	log.Info().Int("tools", len(registry.Names())).Int("prompts", len(Prompts())).Msg("MCP server initialized")
	return server
}

func toolHandler(registry *Registry, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
			}
		}

		result, err := registry.Call(ctx, name, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

func toMCPPrompt(p Prompt) *mcp.Prompt {
	args := make([]*mcp.PromptArgument, 0, len(p.Info.Arguments))
	for _, a := range p.Info.Arguments {
		args = append(args, &mcp.PromptArgument{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
		})
	}
	return &mcp.Prompt{
		Name:        p.Info.Name,
		Description: p.Info.Description,
		Arguments:   args,
	}
}

func promptHandler(p Prompt) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		rendered := p.Render(req.Params.Arguments)

		messages := make([]*mcp.PromptMessage, 0, len(rendered))
		for _, m := range rendered {
			messages = append(messages, &mcp.PromptMessage{
				Role:    mcp.Role(m.Role),
				Content: &mcp.TextContent{Text: m.Text},
			})
		}

		return &mcp.GetPromptResult{
			Description: p.Info.Description,
			Messages:    messages,
		}, nil
	}
}
