package vectorstore

import (
	"context"
	"errors"
)

const (
	DefaultCollection = "complete_collection"
	HistoryCollection = "contextual_data"

	// metadata key holding the raw document text
	TextKey = "text"
)

var ErrCollectionNotFound = errors.New("collection not found")

type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Match struct {
	Document
	Score float32 `json:"score"`
}

// Store is a similarity-searchable document store partitioned into named
// collections.
type Store interface {
	Upsert(ctx context.Context, collection string, docs []Document) (int, error)
	Query(ctx context.Context, collection, text string, topK int) ([]Match, error)
	Peek(ctx context.Context, collection string, limit int) ([]Document, error)
	Count(ctx context.Context, collection string) (int, error)
	Collections(ctx context.Context) (map[string]int, error)
	DeleteCollection(ctx context.Context, collection string) error
	RenameCollection(ctx context.Context, from, to string) (int, error)
}
