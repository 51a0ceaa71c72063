package tools

import (
	"context"
	"fmt"

	"ragchat/services/vectorstore"

	"github.com/rs/zerolog/log"
)

type ContextRetrieverToolInput struct {
	UserQuery               string `json:"user_query" jsonschema:"required,description=The question to search relevant context for"`
	NumberOfRelevantContext int    `json:"number_of_relevant_context,omitempty" jsonschema:"description=How many results to return (default: 3)"`
	NameOfCollection        string `json:"name_of_collection,omitempty" jsonschema:"description=Collection to search (default: complete_collection)"`
}

type ContextRetrieverTool struct {
	store  vectorstore.Store
	loader DataLoader
}

func NewContextRetrieverTool(store vectorstore.Store, loader DataLoader) ContextRetrieverTool {
	return ContextRetrieverTool{store: store, loader: loader}
}

func (ContextRetrieverTool) Name() string {
	return "context_retriever"
}

func (ContextRetrieverTool) Description() string {
	return "seaches the vector database to retrieve relevant context and allows control over number of relevant context user wants to retrieve (default : 3) of a particular collection. If the collection doesn't exist, new data will be created and inserted before search query is performed."
}

func (ContextRetrieverTool) InputSchema() map[string]any {
	return generateSchema[ContextRetrieverToolInput]()
}

func (c ContextRetrieverTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[ContextRetrieverToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse context retriever tool input: %w", err)
	}
	if params.NumberOfRelevantContext <= 0 {
		params.NumberOfRelevantContext = 3
	}
	if params.NameOfCollection == "" {
		params.NameOfCollection = vectorstore.DefaultCollection
	}

	count, err := c.store.Count(ctx, params.NameOfCollection)
	if err != nil {
		return "", err
	}
	if count == 0 {
		log.Info().Str("collection", params.NameOfCollection).Msg("Collection is empty, loading dataset before search")
		if _, err := fillCollection(ctx, c.store, c.loader, params.NameOfCollection); err != nil {
			return "", err
		}
	}

	matches, err := c.store.Query(ctx, params.NameOfCollection, params.UserQuery, params.NumberOfRelevantContext)
	if err != nil {
		return "", err
	}

	result, err := marshalResult(matches)
	if err != nil {
		return "", err
	}
	return "Query results are : \n " + result, nil
}

type QueryHistoryToolInput struct {
	UserQuery      string `json:"user_query" jsonschema:"required,description=The follow-up question to look up previous conversation for"`
	CollectionName string `json:"collection_name,omitempty" jsonschema:"description=History collection (default: contextual_data)"`
	NResults       int    `json:"n_results,omitempty" jsonschema:"description=How many past transcripts to return (default: 5)"`
}

type QueryHistoryTool struct {
	store vectorstore.Store
}

func NewQueryHistoryTool(store vectorstore.Store) QueryHistoryTool {
	return QueryHistoryTool{store: store}
}

func (QueryHistoryTool) Name() string {
	return "get_user_query_history"
}

func (QueryHistoryTool) Description() string {
	return "the user queries alongside llm response for the current session is stored within the collection 'contextual_data'. Can be used to search and retrieve the relevant data stored here for follow-up queries from the user for query history. If your unsure of the user query, use this tool to retrieve previous query related contextual information before attempting to answer. Keep responses brief and utilize previous conversation history stored within the 'contextual_data' to formulate your responses."
}

func (QueryHistoryTool) InputSchema() map[string]any {
	return generateSchema[QueryHistoryToolInput]()
}

func (q QueryHistoryTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[QueryHistoryToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse query history tool input: %w", err)
	}
	if params.CollectionName == "" {
		params.CollectionName = vectorstore.HistoryCollection
	}
	if params.NResults <= 0 {
		params.NResults = 5
	}

	matches, err := q.store.Query(ctx, params.CollectionName, params.UserQuery, params.NResults)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No previous conversation history found.", nil
	}

	return marshalResult(matches)
}
