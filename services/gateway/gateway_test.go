package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ragchat/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	name        models.ModelChoice
	fullHistory bool
	err         error

	mu       sync.Mutex
	calls    int
	received [][]models.Message
}

func (p *recordingProvider) Name() models.ModelChoice   { return p.name }
func (p *recordingProvider) FullHistorySupported() bool { return p.fullHistory }

func (p *recordingProvider) Generate(ctx context.Context, messages []models.Message, tools []models.ToolContract) (*ModelResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.received = append(p.received, messages)
	if p.err != nil {
		return nil, p.err
	}
	return &ModelResponse{Blocks: []models.ContentBlock{models.TextBlock{Text: "ok"}}}, nil
}

func conversation() []models.Message {
	return []models.Message{
		models.NewTextMessage(models.RoleUser, "first"),
		models.NewBlockMessage(models.RoleAssistant, models.ToolUseBlock{ID: "t1", Name: "echo", Input: map[string]any{"message": "hi"}}),
		models.NewToolResultMessage(models.ToolResultBlock{ToolUseID: "t1", Content: "Echo: hi"}),
	}
}

func TestGatewayRoutesByChoice(t *testing.T) {
	claude := &recordingProvider{name: models.ModelClaude, fullHistory: true}
	gemini := &recordingProvider{name: models.ModelGemini}
	gw := New(claude, gemini)

	tests := []struct {
		name         string
		choice       models.ModelChoice
		target       *recordingProvider
		expectedSent int
	}{
		{name: "claude gets full history", choice: "claude", target: claude, expectedSent: 3},
		{name: "gemini gets latest message only", choice: "gemini", target: gemini, expectedSent: 1},
		{name: "choice is normalised", choice: "  CLAUDE ", target: claude, expectedSent: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := gw.Generate(context.Background(), tt.choice, conversation(), nil)
			require.NoError(t, err)
			require.Len(t, resp.Blocks, 1)

			sent := tt.target.received[len(tt.target.received)-1]
			assert.Len(t, sent, tt.expectedSent)
			assert.True(t, sent[len(sent)-1].IsToolResult())
		})
	}
}

func TestGatewayUnsupportedChoiceContactsNoProvider(t *testing.T) {
	claude := &recordingProvider{name: models.ModelClaude, fullHistory: true}
	gemini := &recordingProvider{name: models.ModelGemini}
	gw := New(claude, gemini)

	_, err := gw.Generate(context.Background(), "gpt-9", conversation(), nil)
	require.ErrorIs(t, err, ErrUnsupportedModelChoice)
	assert.Zero(t, claude.calls)
	assert.Zero(t, gemini.calls)
	assert.False(t, gw.Supports("gpt-9"))
	assert.Equal(t, []models.ModelChoice{models.ModelClaude, models.ModelGemini}, gw.Supported())
}

func TestGatewayWrapsProviderErrors(t *testing.T) {
	cause := errors.New("401 unauthorized")
	claude := &recordingProvider{name: models.ModelClaude, fullHistory: true, err: cause}
	gemini := &recordingProvider{name: models.ModelGemini}
	gw := New(claude, gemini)

	_, err := gw.Generate(context.Background(), models.ModelClaude, conversation(), nil)
	require.ErrorIs(t, err, ErrProvider)
	require.ErrorIs(t, err, cause)
	assert.Zero(t, gemini.calls, "no fallback to the other provider")
}

func TestSelector(t *testing.T) {
	gw := New(&recordingProvider{name: models.ModelClaude}, &recordingProvider{name: models.ModelGemini})
	selector := NewSelector(models.ModelClaude)
	assert.Equal(t, models.ModelClaude, selector.Get())

	assert.Equal(t, models.ModelGemini, selector.Set(" Gemini", gw.Supports))
	assert.Equal(t, models.ModelGemini, selector.Get())

	selector.Set("unknown", gw.Supports)
	_, err := gw.Generate(context.Background(), selector.Get(), conversation(), nil)
	require.ErrorIs(t, err, ErrUnsupportedModelChoice)

	var wg sync.WaitGroup
	for _, value := range []string{"claude", "gemini", "claude", "gemini"} {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			selector.Set(v, gw.Supports)
			_ = selector.Get()
		}(value)
	}
	wg.Wait()
	assert.Contains(t, []models.ModelChoice{models.ModelClaude, models.ModelGemini}, selector.Get())
}
