// Package app builds the services shared by the HTTP server and the chat
// client from a Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"ragchat/config"
	"ragchat/db"
	"ragchat/models"
	"ragchat/services/chat"
	"ragchat/services/dataset"
	"ragchat/services/formatter"
	"ragchat/services/gateway"
	"ragchat/services/tools"
	"ragchat/services/transcript"
	"ragchat/services/vectorstore"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

// Toolbox is the tool surface the orchestrator and the HTTP facade need,
// served either in process or by a remote MCP server.
type Toolbox interface {
	chat.ToolRegistry
	Prompts(ctx context.Context) ([]models.PromptInfo, error)
}

type App struct {
	Config      *config.Config
	Store       vectorstore.Store
	Tools       Toolbox
	Gateway     *gateway.Gateway
	Selector    *gateway.Selector
	Chat        *chat.Service
	Formatter   formatter.Formatter
	History     *transcript.VectorSink
	Transcripts db.TranscriptRepository

	closers []func() error
}

// localToolbox pairs the in-process registry with the built-in prompts.
type localToolbox struct {
	*tools.Registry
	tools.LocalPrompts
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store

	anthropicClient := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))

	if err := a.initTools(store, &anthropicClient); err != nil {
		return nil, err
	}

	if err := a.initGateway(ctx, &anthropicClient); err != nil {
		a.Close()
		return nil, err
	}

	recorder, err := a.initRecorders(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Chat = chat.NewService(a.Gateway, a.Tools, recorder, cfg.MaxTurns)

	a.Formatter = formatter.Passthrough{}
	if cfg.FormatterEnabled && cfg.OpenAIAPIKey != "" {
		a.Formatter = formatter.NewProfessor(formatter.ProfessorConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.FormatterModel,
		})
	}

	log.Info().
		Str("default_model", string(a.Selector.Get())).
		Interface("providers", a.Gateway.Supported()).
		Bool("remote_tools", cfg.ToolServer != "").
		Bool("memory_store", cfg.UseMemoryStore()).
		Msg("Application initialized")

	return a, nil
}

// NewStore returns the configured vector store, creating the Pinecone index
// when it does not exist yet.
func NewStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	if cfg.UseMemoryStore() {
		log.Warn().Msg("Using in-memory vector store, data is lost on exit")
		return vectorstore.NewMemoryStore(), nil
	}

	pcCfg := vectorstore.PineconeConfig{
		APIKey:       cfg.PineconeAPIKey,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		IndexName:    cfg.PineconeIndexName,
		Cloud:        cfg.PineconeCloud,
		Region:       cfg.PineconeRegion,
		Dimension:    cfg.EmbeddingDimension,
	}
	store, err := vectorstore.NewPineconeStore(pcCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if err := store.EnsureIndex(ctx, pcCfg); err != nil {
		return nil, fmt.Errorf("failed to prepare index %s: %w", cfg.PineconeIndexName, err)
	}
	return store, nil
}

func (a *App) initTools(store vectorstore.Store, client *anthropic.Client) error {
	if a.Config.ToolServer != "" {
		remote := tools.NewRemoteRegistry(a.Config.ToolServer)
		a.Tools = remote
		a.closers = append(a.closers, remote.Close)
		return nil
	}

	registry, err := NewToolRegistry(a.Config, store, client)
	if err != nil {
		return err
	}
	a.Tools = localToolbox{Registry: registry}
	return nil
}

// NewToolRegistry builds the in-process registry with every built-in tool.
// A nil client leaves out the token counter.
func NewToolRegistry(cfg *config.Config, store vectorstore.Store, client *anthropic.Client) (*tools.Registry, error) {
	loader := NewDatasetLoader(cfg, store)
	registry, err := tools.NewRegistry(tools.DefaultTools(store, loader, client, cfg.TokenCountModel)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	return registry, nil
}

func (a *App) initGateway(ctx context.Context, client *anthropic.Client) error {
	providers := []gateway.Provider{
		gateway.NewClaudeProviderWithClient(client, gateway.ClaudeConfig{
			Model:     a.Config.AnthropicModel,
			MaxTokens: a.Config.MaxTokens,
		}),
	}

	if a.Config.GeminiAPIKey != "" {
		gemini, err := gateway.NewGeminiProvider(ctx, gateway.GeminiConfig{
			APIKey: a.Config.GeminiAPIKey,
			Model:  a.Config.GeminiModel,
		})
		if err != nil {
			return err
		}
		providers = append(providers, gemini)
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, gemini provider disabled")
	}

	a.Gateway = gateway.New(providers...)
	a.Selector = gateway.NewSelector(models.ModelChoice(a.Config.DefaultModel))
	return nil
}

func (a *App) initRecorders(ctx context.Context) (transcript.Recorder, error) {
	a.History = transcript.NewVectorSink(a.Store, a.Config.HistoryAuthor)

	files, err := transcript.NewFileSink(a.Config.ConversationsDir)
	if err != nil {
		return nil, err
	}
	recorders := transcript.Multi{a.History, files}

	if a.Config.DatabaseURL != "" {
		repo, err := db.NewPostgresTranscriptRepository(a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize transcript database: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.Transcripts = repo
		recorders = append(recorders, transcript.NewPostgresSink(repo))
	}

	return recorders, nil
}

// NewDatasetLoader returns the loader that fills empty collections with the
// reference question-answer dataset.
func NewDatasetLoader(cfg *config.Config, store vectorstore.Store) *dataset.Loader {
	return dataset.NewLoader(dataset.NewClient(cfg.DatasetBaseURL), store, cfg.HistoryAuthor)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
