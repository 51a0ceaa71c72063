package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	maxEmbedChars = 8000
	listPageSize  = uint32(100)
	upsertBatch   = 100
)

type PineconeConfig struct {
	APIKey       string
	OpenAIAPIKey string
	IndexName    string
	Cloud        string
	Region       string
	Dimension    int32
}

type PineconeStore struct {
	client    *pinecone.Client
	embedder  embeddings.Embedder
	indexName string

	mu    sync.Mutex
	host  string
	conns map[string]*pinecone.IndexConnection
}

func NewPineconeStore(cfg PineconeConfig) (*PineconeStore, error) {
	log.Info().Str("index", cfg.IndexName).Msg("Initializing Pinecone store")

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	llm, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(cfg.OpenAIAPIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &PineconeStore{
		client:    pc,
		embedder:  embedder,
		indexName: cfg.IndexName,
		conns:     map[string]*pinecone.IndexConnection{},
	}, nil
}

// EnsureIndex creates the serverless index if it does not exist yet and waits
// until it is ready.
func (s *PineconeStore) EnsureIndex(ctx context.Context, cfg PineconeConfig) error {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == s.indexName {
			log.Info().Str("index", s.indexName).Msg("Index already exists")
			return nil
		}
	}

	log.Info().Str("index", s.indexName).Msg("Creating Pinecone index")
	dimension := cfg.Dimension
	deletionProtection := pinecone.DeletionProtectionDisabled
	metric := pinecone.Cosine

	_, err = s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               s.indexName,
		Dimension:          &dimension,
		Metric:             &metric,
		Cloud:              pinecone.Cloud(cfg.Cloud),
		Region:             cfg.Region,
		DeletionProtection: &deletionProtection,
		Tags:               &pinecone.IndexTags{"project": "ragchat"},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	for {
		idx, err := s.client.DescribeIndex(ctx, s.indexName)
		if err != nil {
			return fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Status != nil && idx.Status.Ready {
			log.Info().Str("index", s.indexName).Msg("Index is ready")
			return nil
		}
		log.Info().Str("index", s.indexName).Msg("Waiting for index to be ready")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
		}
	}
}

func (s *PineconeStore) conn(ctx context.Context, namespace string) (*pinecone.IndexConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.conns[namespace]; ok {
		return c, nil
	}

	if s.host == "" {
		idxDesc, err := s.client.DescribeIndex(ctx, s.indexName)
		if err != nil {
			return nil, fmt.Errorf("failed to describe index: %w", err)
		}
		s.host = idxDesc.Host
	}

	idxConn, err := s.client.Index(pinecone.NewIndexConnParams{
		Host:      s.host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	s.conns[namespace] = idxConn
	return idxConn, nil
}

func (s *PineconeStore) Upsert(ctx context.Context, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	idxConn, err := s.conn(ctx, collection)
	if err != nil {
		return 0, err
	}

	total := 0
	for start := 0; start < len(docs); start += upsertBatch {
		end := min(start+upsertBatch, len(docs))
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = truncate(doc.Text, maxEmbedChars)
		}

		vectorsValues, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return total, fmt.Errorf("failed to generate embeddings: %w", err)
		}

		vectors := make([]*pinecone.Vector, 0, len(batch))
		for i, doc := range batch {
			metadata := map[string]any{}
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			metadata[TextKey] = doc.Text

			metadataStruct, err := structpb.NewStruct(metadata)
			if err != nil {
				return total, fmt.Errorf("failed to create metadata struct for document %s: %w", doc.ID, err)
			}

			vectors = append(vectors, &pinecone.Vector{
				Id:       doc.ID,
				Values:   &vectorsValues[i],
				Metadata: metadataStruct,
			})
		}

		count, err := idxConn.UpsertVectors(ctx, vectors)
		if err != nil {
			return total, fmt.Errorf("failed to upsert vector batch: %w", err)
		}
		total += int(count)
		log.Debug().Str("collection", collection).Uint32("count", count).Int("batch", start/upsertBatch+1).Msg("Upserted vectors")
	}

	return total, nil
}

func (s *PineconeStore) Query(ctx context.Context, collection, text string, topK int) ([]Match, error) {
	idxConn, err := s.conn(ctx, collection)
	if err != nil {
		return nil, err
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, truncate(text, maxEmbedChars))
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	result, err := idxConn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          queryVector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	matches := make([]Match, 0, len(result.Matches))
	for _, match := range result.Matches {
		if match == nil || match.Vector == nil {
			continue
		}
		matches = append(matches, Match{
			Document: toDocument(match.Vector),
			Score:    match.Score,
		})
	}

	log.Debug().Str("collection", collection).Int("matches", len(matches)).Msg("Queried collection")
	return matches, nil
}

func (s *PineconeStore) Peek(ctx context.Context, collection string, limit int) ([]Document, error) {
	idxConn, err := s.conn(ctx, collection)
	if err != nil {
		return nil, err
	}

	pageLimit := uint32(limit)
	listResp, err := idxConn.ListVectors(ctx, &pinecone.ListVectorsRequest{
		Limit: &pageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vectors: %w", err)
	}

	ids := vectorIDs(listResp.VectorIds)
	if len(ids) == 0 {
		return []Document{}, nil
	}

	return s.fetch(ctx, idxConn, ids)
}

func (s *PineconeStore) fetch(ctx context.Context, idxConn *pinecone.IndexConnection, ids []string) ([]Document, error) {
	fetched, err := idxConn.FetchVectors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vectors: %w", err)
	}

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		if vector, ok := fetched.Vectors[id]; ok && vector != nil {
			docs = append(docs, toDocument(vector))
		}
	}
	return docs, nil
}

func (s *PineconeStore) Collections(ctx context.Context) (map[string]int, error) {
	idxConn, err := s.conn(ctx, "")
	if err != nil {
		return nil, err
	}

	stats, err := idxConn.DescribeIndexStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index stats: %w", err)
	}

	collections := make(map[string]int, len(stats.Namespaces))
	for name, summary := range stats.Namespaces {
		if summary == nil {
			continue
		}
		collections[name] = int(summary.VectorCount)
	}
	return collections, nil
}

func (s *PineconeStore) Count(ctx context.Context, collection string) (int, error) {
	collections, err := s.Collections(ctx)
	if err != nil {
		return 0, err
	}
	return collections[collection], nil
}

func (s *PineconeStore) DeleteCollection(ctx context.Context, collection string) error {
	collections, err := s.Collections(ctx)
	if err != nil {
		return err
	}
	if _, ok := collections[collection]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	idxConn, err := s.conn(ctx, collection)
	if err != nil {
		return err
	}

	if err := idxConn.DeleteAllVectorsInNamespace(ctx); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}

	log.Info().Str("collection", collection).Msg("Deleted collection")
	return nil
}

// RenameCollection copies every vector of from into to and then drops from.
// Pinecone namespaces have no rename operation.
func (s *PineconeStore) RenameCollection(ctx context.Context, from, to string) (int, error) {
	collections, err := s.Collections(ctx)
	if err != nil {
		return 0, err
	}
	count, ok := collections[from]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, from)
	}
	if from == to {
		return count, nil
	}

	src, err := s.conn(ctx, from)
	if err != nil {
		return 0, err
	}
	dst, err := s.conn(ctx, to)
	if err != nil {
		return 0, err
	}

	limit := listPageSize
	req := &pinecone.ListVectorsRequest{Limit: &limit}
	moved := 0

	for {
		listResp, err := src.ListVectors(ctx, req)
		if err != nil {
			return moved, fmt.Errorf("failed to list vectors: %w", err)
		}

		ids := vectorIDs(listResp.VectorIds)
		if len(ids) > 0 {
			fetched, err := src.FetchVectors(ctx, ids)
			if err != nil {
				return moved, fmt.Errorf("failed to fetch vectors: %w", err)
			}

			batch := make([]*pinecone.Vector, 0, len(fetched.Vectors))
			for _, id := range ids {
				if vector, ok := fetched.Vectors[id]; ok && vector != nil {
					batch = append(batch, vector)
				}
			}

			count, err := dst.UpsertVectors(ctx, batch)
			if err != nil {
				return moved, fmt.Errorf("failed to copy vector batch: %w", err)
			}
			moved += int(count)
		}

		if listResp.NextPaginationToken == nil {
			break
		}
		req = &pinecone.ListVectorsRequest{Limit: &limit, PaginationToken: listResp.NextPaginationToken}
	}

	if err := src.DeleteAllVectorsInNamespace(ctx); err != nil {
		return moved, fmt.Errorf("failed to delete collection %s after copy: %w", from, err)
	}

	log.Info().Str("from", from).Str("to", to).Int("vectors", moved).Msg("Renamed collection")
	return moved, nil
}

func toDocument(vector *pinecone.Vector) Document {
	doc := Document{ID: vector.Id}
	if vector.Metadata == nil {
		return doc
	}

	metadata := vector.Metadata.AsMap()
	if text, ok := metadata[TextKey].(string); ok {
		doc.Text = text
	}
	delete(metadata, TextKey)
	doc.Metadata = metadata
	return doc
}

func vectorIDs(raw []*string) []string {
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	sort.Strings(ids)
	return ids
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.ToValidUTF8(s[:limit], "")
}
