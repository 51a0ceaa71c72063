package transcript

import (
	"context"
	"fmt"

	"ragchat/db"
	"ragchat/models"
)

type PostgresSink struct {
	repo db.TranscriptRepository
}

func NewPostgresSink(repo db.TranscriptRepository) *PostgresSink {
	return &PostgresSink{repo: repo}
}

func (s *PostgresSink) Record(ctx context.Context, t *models.Transcript) error {
	if err := s.repo.SaveTranscript(ctx, models.NewTranscriptRecord(t)); err != nil {
		return fmt.Errorf("failed to store transcript row: %w", err)
	}
	return nil
}
