package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ragchat/models"
	"ragchat/services/vectorstore"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const historyIdentification = "user query history"

// VectorSink stores every revision of a transcript as its own document in
// the history collection, so follow-up queries can search earlier turns.
type VectorSink struct {
	store      vectorstore.Store
	author     string
	collection string
	now        func() time.Time
}

func NewVectorSink(store vectorstore.Store, author string) *VectorSink {
	return &VectorSink{
		store:      store,
		author:     author,
		collection: vectorstore.HistoryCollection,
		now:        time.Now,
	}
}

func (s *VectorSink) Record(ctx context.Context, t *models.Transcript) error {
	text, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	doc := vectorstore.Document{
		ID:   uuid.NewString(),
		Text: string(text),
		Metadata: map[string]any{
			"identification": historyIdentification,
			"author":         s.author,
			"created_at":     s.now().UTC().Format(time.RFC3339),
			"session_id":     t.SessionID,
			"transcript_id":  t.ID,
		},
	}

	if _, err := s.store.Upsert(ctx, s.collection, []vectorstore.Document{doc}); err != nil {
		return fmt.Errorf("failed to store transcript in %s: %w", s.collection, err)
	}
	return nil
}

// Clear drops the history collection. A missing collection is not an error.
func (s *VectorSink) Clear(ctx context.Context) error {
	err := s.store.DeleteCollection(ctx, s.collection)
	if err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return fmt.Errorf("failed to clear %s: %w", s.collection, err)
	}
	log.Info().Str("collection", s.collection).Msg("Conversation history cleared")
	return nil
}
