package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ragchat/app"
	"ragchat/config"
	"ragchat/logx"
	"ragchat/services/tools"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// toolserver serves the tool registry and prompts over MCP on stdio. Logs
// go to stderr so stdout stays reserved for the protocol.
func main() {
	cfg := config.MustLoad()
	logx.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.NewStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vector store")
	}

	var client *anthropic.Client
	if cfg.AnthropicAPIKey != "" {
		c := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
		client = &c
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY not set, count_claude_message_tokens disabled")
	}

	registry, err := app.NewToolRegistry(cfg, store, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build tool registry")
	}

	server := tools.NewMCPServer(registry)
	log.Info().Strs("tools", registry.Names()).Msg("Tool server listening on stdio")

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Tool server stopped")
	}
}
