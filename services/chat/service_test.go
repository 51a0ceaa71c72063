package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ragchat/models"
	"ragchat/services/gateway"
	"ragchat/services/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGateway struct {
	mu      sync.Mutex
	replies [][]models.ContentBlock
	calls   int
	seen    [][]models.Message
	err     error
	onCall  func(call int)
}

func (g *scriptedGateway) Generate(ctx context.Context, choice models.ModelChoice, messages []models.Message, contracts []models.ToolContract) (*gateway.ModelResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	g.seen = append(g.seen, messages)
	if g.onCall != nil {
		g.onCall(g.calls)
	}
	if g.err != nil {
		return nil, g.err
	}
	if len(g.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return &gateway.ModelResponse{Blocks: reply}, nil
}

type memoryRecorder struct {
	mu        sync.Mutex
	snapshots []int
	err       error
}

func (r *memoryRecorder) Record(ctx context.Context, t *models.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.err != nil {
		return r.err
	}
	r.snapshots = append(r.snapshots, t.Len())
	return nil
}

func (r *memoryRecorder) last() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return 0
	}
	return r.snapshots[len(r.snapshots)-1]
}

func text(s string) models.ContentBlock {
	return models.TextBlock{Text: s}
}

func echoCall(id, message string) models.ContentBlock {
	return models.ToolUseBlock{ID: id, Name: "echo", Input: map[string]any{"message": message}}
}

func echoRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	registry, err := tools.NewRegistry(tools.EchoTool{})
	require.NoError(t, err)
	return registry
}

func emptyRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	registry, err := tools.NewRegistry()
	require.NoError(t, err)
	return registry
}

var claude = SessionConfig{SessionID: "s1", Model: models.ModelClaude}

func TestProcessQueryPlainAnswer(t *testing.T) {
	gw := &scriptedGateway{replies: [][]models.ContentBlock{{text("Abraham Lincoln was the 16th president.")}}}
	recorder := &memoryRecorder{}
	svc := NewService(gw, emptyRegistry(t), recorder, 5)

	transcript, err := svc.ProcessQuery(context.Background(), "who was Abraham Lincoln?", claude)
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	require.Equal(t, 2, transcript.Len())
	assert.Equal(t, models.RoleUser, transcript.Messages[0].Role)
	assert.Equal(t, "Abraham Lincoln was the 16th president.", transcript.FinalAnswer())
	assert.Equal(t, []int{1, 2}, recorder.snapshots)
	assert.Equal(t, "s1", transcript.SessionID)
	assert.Equal(t, models.ModelClaude, transcript.Model)
}

func TestProcessQuerySingleToolRoundTrip(t *testing.T) {
	gw := &scriptedGateway{replies: [][]models.ContentBlock{
		{text("Let me echo that."), echoCall("t1", "hi")},
		{text("The tool said hi.")},
	}}
	recorder := &memoryRecorder{}
	svc := NewService(gw, echoRegistry(t), recorder, 5)

	transcript, err := svc.ProcessQuery(context.Background(), "echo hi", claude)
	require.NoError(t, err)

	require.Equal(t, 4, transcript.Len())
	assistant := transcript.Messages[1]
	require.Len(t, assistant.Blocks, 2)
	assert.Equal(t, text("Let me echo that."), assistant.Blocks[0])

	result := transcript.Messages[2]
	require.True(t, result.IsToolResult())
	assert.Equal(t, models.ToolResultBlock{ToolUseID: "t1", Content: "Echo: hi"}, result.Blocks[0])

	assert.Equal(t, "The tool said hi.", transcript.FinalAnswer())
	assert.Equal(t, []int{1, 2, 3, 4}, recorder.snapshots)
	require.NoError(t, transcript.Validate())

	require.Len(t, gw.seen, 2)
	assert.Len(t, gw.seen[1], 3)
}

func TestProcessQueryRunsToolsInOrder(t *testing.T) {
	gw := &scriptedGateway{replies: [][]models.ContentBlock{
		{echoCall("a", "first"), echoCall("b", "second")},
		{text("done")},
	}}
	svc := NewService(gw, echoRegistry(t), &memoryRecorder{}, 5)

	transcript, err := svc.ProcessQuery(context.Background(), "two calls", claude)
	require.NoError(t, err)
	require.Equal(t, 5, transcript.Len())
	assert.Equal(t, "a", transcript.Messages[2].Blocks[0].(models.ToolResultBlock).ToolUseID)
	assert.Equal(t, "Echo: second", transcript.Messages[3].Blocks[0].(models.ToolResultBlock).Content)
	require.NoError(t, transcript.Validate())
}

func TestProcessQueryJoinsMultipleTextBlocks(t *testing.T) {
	gw := &scriptedGateway{replies: [][]models.ContentBlock{{text("part one"), text("part two")}}}
	svc := NewService(gw, emptyRegistry(t), &memoryRecorder{}, 5)

	transcript, err := svc.ProcessQuery(context.Background(), "", claude)
	require.NoError(t, err)
	assert.Equal(t, "part one\npart two", transcript.FinalAnswer())
	assert.Equal(t, "", transcript.Messages[0].Text)
}

func TestProcessQueryUnknownToolAborts(t *testing.T) {
	gw := &scriptedGateway{replies: [][]models.ContentBlock{
		{models.ToolUseBlock{ID: "x", Name: "nonexistent_tool", Input: map[string]any{}}},
		{text("never reached")},
	}}
	recorder := &memoryRecorder{}
	svc := NewService(gw, echoRegistry(t), recorder, 5)

	transcript, err := svc.ProcessQuery(context.Background(), "break it", claude)
	require.ErrorIs(t, err, tools.ErrToolNotFound)
	assert.Nil(t, transcript)
	assert.Equal(t, 1, gw.calls, "no further model calls")
	assert.Equal(t, 2, recorder.last())
}

func TestProcessQueryErrors(t *testing.T) {
	providerErr := fmt.Errorf("%w: claude: 401", gateway.ErrProvider)

	tests := []struct {
		name      string
		gateway   *scriptedGateway
		recorder  *memoryRecorder
		maxTurns  int
		expectErr error
		calls     int
	}{
		{
			name:      "provider failure",
			gateway:   &scriptedGateway{err: providerErr},
			recorder:  &memoryRecorder{},
			expectErr: gateway.ErrProvider,
			calls:     1,
		},
		{
			name:      "empty response",
			gateway:   &scriptedGateway{replies: [][]models.ContentBlock{{}}},
			recorder:  &memoryRecorder{},
			expectErr: ErrEmptyResponse,
			calls:     1,
		},
		{
			name: "turn limit",
			gateway: &scriptedGateway{replies: [][]models.ContentBlock{
				{echoCall("1", "a")}, {echoCall("2", "b")}, {echoCall("3", "c")},
			}},
			recorder:  &memoryRecorder{},
			maxTurns:  2,
			expectErr: ErrTurnLimitExceeded,
			calls:     2,
		},
		{
			name:      "persistence failure",
			gateway:   &scriptedGateway{replies: [][]models.ContentBlock{{text("hi")}}},
			recorder:  &memoryRecorder{err: errors.New("disk full")},
			expectErr: ErrPersistence,
			calls:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.gateway, echoRegistry(t), tt.recorder, 10)
			cfg := claude
			cfg.MaxTurns = tt.maxTurns

			transcript, err := svc.ProcessQuery(context.Background(), "q", cfg)
			require.ErrorIs(t, err, tt.expectErr)
			assert.Nil(t, transcript)
			assert.Equal(t, tt.calls, tt.gateway.calls)
		})
	}
}

func TestProcessQueryUnsupportedModel(t *testing.T) {
	svc := NewService(gateway.New(), emptyRegistry(t), &memoryRecorder{}, 5)

	_, err := svc.ProcessQuery(context.Background(), "hello", SessionConfig{Model: "mystery"})
	require.ErrorIs(t, err, gateway.ErrUnsupportedModelChoice)
}

func TestProcessQueryCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &scriptedGateway{
		replies: [][]models.ContentBlock{{echoCall("t1", "hi")}, {text("unreachable")}},
		onCall: func(call int) {
			if call == 1 {
				cancel()
			}
		},
	}
	recorder := &memoryRecorder{}
	svc := NewService(gw, echoRegistry(t), recorder, 5)

	_, err := svc.ProcessQuery(ctx, "hi", claude)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, 2, recorder.last(), "assistant message persisted with a detached context")
}

func TestProcessQueryConcurrentSessions(t *testing.T) {
	recorder := &memoryRecorder{}
	registry := echoRegistry(t)

	var wg sync.WaitGroup
	results := make([]*models.Transcript, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gw := &scriptedGateway{replies: [][]models.ContentBlock{
				{echoCall(fmt.Sprintf("s%d-1", i), "one"), echoCall(fmt.Sprintf("s%d-2", i), "two")},
				{echoCall(fmt.Sprintf("s%d-3", i), "three")},
				{text(fmt.Sprintf("session %d done", i))},
			}}
			svc := NewService(gw, registry, recorder, 5)
			results[i], errs[i] = svc.ProcessQuery(context.Background(), "go", SessionConfig{
				SessionID: fmt.Sprintf("session-%d", i),
				Model:     models.ModelClaude,
			})
		}(i)
	}
	wg.Wait()

	for i, transcript := range results {
		require.NoError(t, errs[i])
		require.NoError(t, transcript.Validate())
		assert.Equal(t, 7, transcript.Len())
		assert.Equal(t, fmt.Sprintf("session %d done", i), transcript.FinalAnswer())
	}
	assert.Len(t, recorder.snapshots, 8*7)
}
