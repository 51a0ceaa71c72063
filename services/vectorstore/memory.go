package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// MemoryStore keeps collections in process memory and ranks documents by
// fuzzy word overlap. It backs local runs without Pinecone and the tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]map[string]Document{}}
}

func (s *MemoryStore) Upsert(ctx context.Context, collection string, docs []Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(docs) == 0 {
		return 0, nil
	}

	c, ok := s.collections[collection]
	if !ok {
		c = map[string]Document{}
		s.collections[collection] = c
	}
	for _, doc := range docs {
		c[doc.ID] = doc
	}
	return len(docs), nil
}

func (s *MemoryStore) Query(ctx context.Context, collection, text string, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(text))
	var matches []Match
	for _, doc := range s.collections[collection] {
		words := strings.Fields(strings.ToLower(doc.Text))
		hits := lo.CountBy(terms, func(term string) bool {
			return len(fuzzy.FindFold(term, words)) > 0
		})
		if hits == 0 {
			continue
		}
		matches = append(matches, Match{Document: doc, Score: float32(hits) / float32(len(terms))})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStore) Peek(ctx context.Context, collection string, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := lo.Values(s.collections[collection])
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

func (s *MemoryStore) Collections(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.MapValues(s.collections, func(c map[string]Document, _ string) int {
		return len(c)
	}), nil
}

func (s *MemoryStore) DeleteCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	delete(s.collections, collection)
	return nil
}

func (s *MemoryStore) RenameCollection(ctx context.Context, from, to string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.collections[from]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, from)
	}
	if from == to {
		return len(src), nil
	}

	dst, ok := s.collections[to]
	if !ok {
		dst = map[string]Document{}
		s.collections[to] = dst
	}
	for id, doc := range src {
		dst[id] = doc
	}
	delete(s.collections, from)
	return len(src), nil
}
