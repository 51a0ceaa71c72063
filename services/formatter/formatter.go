// Package formatter turns a finished transcript into a readable markdown
// answer.
package formatter

import (
	"context"
	"encoding/json"
	"fmt"

	"ragchat/models"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

const professorInstructions = "You are a helpful assistant who can take raw string data and convert it into easily readable markdown format."

type Formatter interface {
	Format(ctx context.Context, t *models.Transcript) (string, error)
}

// Passthrough returns the final assistant text unchanged.
type Passthrough struct{}

func (Passthrough) Format(ctx context.Context, t *models.Transcript) (string, error) {
	return t.FinalAnswer(), nil
}

type ProfessorConfig struct {
	APIKey string
	Model  string
}

// Professor asks an OpenAI chat model to rewrite the whole transcript as
// markdown.
type Professor struct {
	client openai.Client
	model  openai.ChatModel
}

func NewProfessor(cfg ProfessorConfig, opts ...option.RequestOption) *Professor {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)
	model := openai.ChatModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &Professor{client: client, model: model}
}

func (p *Professor) Format(ctx context.Context, t *models.Transcript) (string, error) {
	input, err := json.Marshal(t.Messages)
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript for formatting: %w", err)
	}

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(professorInstructions),
			openai.UserMessage(string(input)),
		},
	})
	if err != nil {
		log.Error().Err(err).Str("transcript_id", t.ID).Msg("Failed to format answer")
		return "", fmt.Errorf("failed to format answer: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("failed to format answer: no choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}
