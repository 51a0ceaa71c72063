package dataset

import (
	"context"
	"fmt"

	"ragchat/services/vectorstore"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type Source interface {
	FetchQAPairs(ctx context.Context, dataset, config, split string) ([]QAPair, error)
}

// Loader copies the question-answer dataset into a vector store collection.
type Loader struct {
	source  Source
	store   vectorstore.Store
	author  string
	dataset string
	config  string
	split   string
}

func NewLoader(source Source, store vectorstore.Store, author string) *Loader {
	return &Loader{
		source:  source,
		store:   store,
		author:  author,
		dataset: DefaultDataset,
		config:  DefaultConfig,
		split:   DefaultSplit,
	}
}

func Documents(pairs []QAPair, author string) []vectorstore.Document {
	return lo.Map(pairs, func(pair QAPair, _ int) vectorstore.Document {
		return vectorstore.Document{
			ID:   pair.ID,
			Text: fmt.Sprintf("Question: %s Answer: %s", pair.Question, pair.Answer),
			Metadata: map[string]any{
				"author":   author,
				"question": pair.Question,
			},
		}
	})
}

// Load downloads the dataset and stores it in collection, in batches.
func (l *Loader) Load(ctx context.Context, collection string) (int, error) {
	pairs, err := l.source.FetchQAPairs(ctx, l.dataset, l.config, l.split)
	if err != nil {
		return 0, err
	}

	docs := Documents(pairs, l.author)
	stored := 0
	for i, batch := range lo.Chunk(docs, pageSize) {
		count, err := l.store.Upsert(ctx, collection, batch)
		if err != nil {
			return stored, fmt.Errorf("failed to store batch %d: %w", i+1, err)
		}
		stored += count
		log.Debug().Str("collection", collection).Int("batch", i+1).Int("count", count).Msg("Stored dataset batch")
	}

	log.Info().Str("collection", collection).Int("documents", stored).Msg("Successfully loaded dataset")
	return stored, nil
}
