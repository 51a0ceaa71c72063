// Package chat runs the turn loop between the model gateway and the tool
// registry for one user query.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"ragchat/models"
	"ragchat/services/gateway"
	"ragchat/services/transcript"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultMaxTurns = 10

var (
	ErrTurnLimitExceeded = errors.New("turn limit exceeded")
	ErrEmptyResponse     = errors.New("model returned an empty response")
	ErrPersistence       = errors.New("failed to persist transcript")
)

type ModelGateway interface {
	Generate(ctx context.Context, choice models.ModelChoice, messages []models.Message, tools []models.ToolContract) (*gateway.ModelResponse, error)
}

type ToolRegistry interface {
	Contracts(ctx context.Context) ([]models.ToolContract, error)
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

// SessionConfig carries the per-query settings. Model is required; a zero
// MaxTurns falls back to the service default.
type SessionConfig struct {
	SessionID string
	Model     models.ModelChoice
	MaxTurns  int
}

type Service struct {
	gateway  ModelGateway
	tools    ToolRegistry
	recorder transcript.Recorder
	maxTurns int

	newID func() string
	now   func() time.Time
}

func NewService(gw ModelGateway, tools ToolRegistry, recorder transcript.Recorder, maxTurns int) *Service {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if recorder == nil {
		recorder = transcript.Multi{}
	}
	return &Service{
		gateway:  gw,
		tools:    tools,
		recorder: recorder,
		maxTurns: maxTurns,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// ProcessQuery answers query, calling tools as the model requests them, and
// returns the finished transcript. Every mutation is recorded before the loop
// continues. On failure no transcript is returned.
func (s *Service) ProcessQuery(ctx context.Context, query string, cfg SessionConfig) (_ *models.Transcript, err error) {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = s.maxTurns
	}

	t := &models.Transcript{
		ID:        s.newID(),
		SessionID: cfg.SessionID,
		Model:     cfg.Model,
		StartedAt: s.now().UTC(),
	}
	logger := log.With().
		Str("transcript_id", t.ID).
		Str("session_id", cfg.SessionID).
		Str("model", string(cfg.Model)).
		Logger()

	logger.Info().Int("max_turns", maxTurns).Msg("Starting query processing")

	run := &turnState{recorder: s.recorder, transcript: t, logger: logger}
	defer run.flushOnError(ctx, &err)

	if err := run.append(ctx, models.NewTextMessage(models.RoleUser, query)); err != nil {
		return nil, err
	}

	contracts, err := s.tools.Contracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	for turn := 1; ; turn++ {
		if turn > maxTurns {
			logger.Warn().Int("turns", maxTurns).Msg("Turn limit reached without a final answer")
			return nil, fmt.Errorf("%w: no final answer after %d model calls", ErrTurnLimitExceeded, maxTurns)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("query cancelled before model call %d: %w", turn, err)
		}

		resp, err := s.gateway.Generate(ctx, cfg.Model, slices.Clone(t.Messages), contracts)
		if err != nil {
			logger.Error().Err(err).Int("turn", turn).Msg("Model call failed")
			return nil, err
		}
		if len(resp.Blocks) == 0 {
			return nil, ErrEmptyResponse
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			answer := joinText(resp.Blocks)
			if err := run.append(ctx, models.NewTextMessage(models.RoleAssistant, answer)); err != nil {
				return nil, err
			}
			logger.Info().Int("turns", turn).Int("messages", t.Len()).Msg("Successfully processed query")
			return t, nil
		}

		if err := run.append(ctx, models.NewBlockMessage(models.RoleAssistant, resp.Blocks...)); err != nil {
			return nil, err
		}

		for _, use := range uses {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("query cancelled before tool %s: %w", use.Name, err)
			}

			logger.Info().Str("tool", use.Name).Str("tool_use_id", use.ID).Msg("Invoking tool")
			result, err := s.tools.Call(ctx, use.Name, use.Input)
			if err != nil {
				logger.Error().Err(err).Str("tool", use.Name).Msg("Tool invocation failed")
				return nil, err
			}

			if err := run.append(ctx, models.NewToolResultMessage(models.ToolResultBlock{
				ToolUseID: use.ID,
				Content:   result,
			})); err != nil {
				return nil, err
			}
		}
	}
}

// turnState tracks whether the latest mutation has reached the recorder.
type turnState struct {
	recorder   transcript.Recorder
	transcript *models.Transcript
	logger     zerolog.Logger
	unsaved    bool
}

func (r *turnState) append(ctx context.Context, msg models.Message) error {
	r.transcript.Append(msg)
	r.unsaved = true

	if err := r.recorder.Record(ctx, r.transcript); err != nil {
		r.logger.Error().Err(err).Int("messages", r.transcript.Len()).Msg("Failed to persist transcript")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	r.unsaved = false
	return nil
}

// flushOnError records the transcript once more with a detached context
// when the caller's context ended before the latest mutation was stored.
func (r *turnState) flushOnError(ctx context.Context, errp *error) {
	if *errp == nil || !r.unsaved || ctx.Err() == nil {
		return
	}
	if err := r.recorder.Record(context.WithoutCancel(ctx), r.transcript); err != nil {
		r.logger.Error().Err(err).Msg("Failed to persist transcript after cancellation")
		return
	}
	r.unsaved = false
	r.logger.Info().Int("messages", r.transcript.Len()).Msg("Persisted transcript after cancellation")
}

func joinText(blocks []models.ContentBlock) string {
	var parts []string
	for _, block := range blocks {
		if text, ok := block.(models.TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
