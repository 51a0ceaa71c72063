package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ragchat/models"

	"github.com/rs/zerolog/log"
)

const fileTimeLayout = "2006-01-02_15-04-05"

// FileSink keeps one JSON file per transcript, rewritten on every mutation.
type FileSink struct {
	dir string
	mu  sync.Mutex
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Path(t *models.Transcript) string {
	id := t.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("conversation_%s_%s.json", t.StartedAt.Format(fileTimeLayout), id)
	return filepath.Join(s.dir, name)
}

func (s *FileSink) Record(ctx context.Context, t *models.Transcript) error {
	data, err := json.MarshalIndent(t.Messages, "", "  ")
	if err != nil {
		log.Error().Err(err).Str("transcript_id", t.ID).Msg("Failed to serialize transcript")
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(t)
	tmp, err := os.CreateTemp(s.dir, ".conversation-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write transcript file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close transcript file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move transcript file into place: %w", err)
	}

	log.Debug().Str("path", path).Int("messages", len(t.Messages)).Msg("Transcript written")
	return nil
}

// ReadFile loads the ordered message list of a persisted transcript.
func ReadFile(path string) ([]models.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var messages []models.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return messages, nil
}
