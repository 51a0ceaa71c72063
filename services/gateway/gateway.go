// Package gateway gives the orchestrator one way to ask a model for the next
// response, whichever provider serves the request.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ragchat/models"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrUnsupportedModelChoice = errors.New("unsupported model choice")
	ErrProvider               = errors.New("model provider call failed")
)

// ModelResponse holds the blocks of one assistant reply in provider order.
type ModelResponse struct {
	Blocks     []models.ContentBlock
	StopReason string
	Model      string
}

// ToolUses returns the tool invocation requests of the reply.
func (r *ModelResponse) ToolUses() []models.ToolUseBlock {
	return models.NewBlockMessage(models.RoleAssistant, r.Blocks...).ToolUses()
}

type Provider interface {
	Name() models.ModelChoice
	// FullHistorySupported reports whether the provider receives the whole
	// transcript. Providers that do not only see the latest message.
	FullHistorySupported() bool
	Generate(ctx context.Context, messages []models.Message, tools []models.ToolContract) (*ModelResponse, error)
}

type Gateway struct {
	providers map[models.ModelChoice]Provider
}

func New(providers ...Provider) *Gateway {
	g := &Gateway{providers: map[models.ModelChoice]Provider{}}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

// Supported lists the configured choices in name order.
func (g *Gateway) Supported() []models.ModelChoice {
	choices := lo.Keys(g.providers)
	sort.Slice(choices, func(i, j int) bool { return choices[i] < choices[j] })
	return choices
}

func (g *Gateway) Supports(choice models.ModelChoice) bool {
	_, ok := g.providers[Normalize(string(choice))]
	return ok
}

func (g *Gateway) Generate(ctx context.Context, choice models.ModelChoice, messages []models.Message, tools []models.ToolContract) (*ModelResponse, error) {
	provider, ok := g.providers[Normalize(string(choice))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedModelChoice, choice, g.Supported())
	}

	if !provider.FullHistorySupported() && len(messages) > 1 {
		log.Debug().
			Str("provider", string(provider.Name())).
			Int("dropped", len(messages)-1).
			Msg("Provider receives only the latest message")
		messages = messages[len(messages)-1:]
	}

	resp, err := provider.Generate(ctx, messages, tools)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProvider, provider.Name(), err)
	}
	return resp, nil
}

func Normalize(value string) models.ModelChoice {
	return models.ModelChoice(strings.ToLower(strings.TrimSpace(value)))
}
