package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ragchat/services/vectorstore"
)

// DataLoader fills an empty collection with the reference dataset.
type DataLoader interface {
	Load(ctx context.Context, collection string) (int, error)
}

type PeekToolInput struct {
	NumberOfRows     int    `json:"number_of_rows,omitempty" jsonschema:"description=How many rows to return (default: 3)"`
	NameOfCollection string `json:"name_of_collection,omitempty" jsonschema:"description=Collection to read from (default: complete_collection)"`
}

type PeekTool struct {
	store vectorstore.Store
}

func NewPeekTool(store vectorstore.Store) PeekTool {
	return PeekTool{store: store}
}

func (PeekTool) Name() string {
	return "peek_at_database"
}

func (PeekTool) Description() string {
	return "allows for users to retrieve the topmost levels of data. (Default : 3) from the collection you want to retrieve from (default collection name : complete_collection)."
}

func (PeekTool) InputSchema() map[string]any {
	return generateSchema[PeekToolInput]()
}

func (p PeekTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[PeekToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse peek tool input: %w", err)
	}
	if params.NumberOfRows <= 0 {
		params.NumberOfRows = 3
	}
	if params.NameOfCollection == "" {
		params.NameOfCollection = vectorstore.DefaultCollection
	}

	count, err := p.store.Count(ctx, params.NameOfCollection)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return fmt.Sprintf("Failed to retrieve topmost data due to : collection %s does not exist or is empty", params.NameOfCollection), nil
	}

	docs, err := p.store.Peek(ctx, params.NameOfCollection, params.NumberOfRows)
	if err != nil {
		return "", err
	}
	return marshalResult(docs)
}

type RenameCollectionToolInput struct {
	OriginalCollection string `json:"original_collection" jsonschema:"required,description=Current name of the collection"`
	NewCollectionName  string `json:"new_collection_name" jsonschema:"required,description=New name for the collection"`
}

type RenameCollectionTool struct {
	store vectorstore.Store
}

func NewRenameCollectionTool(store vectorstore.Store) RenameCollectionTool {
	return RenameCollectionTool{store: store}
}

func (RenameCollectionTool) Name() string {
	return "modify_collection_name"
}

func (RenameCollectionTool) Description() string {
	return "allows user to modify the name of an existing collection"
}

func (RenameCollectionTool) InputSchema() map[string]any {
	return generateSchema[RenameCollectionToolInput]()
}

func (r RenameCollectionTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[RenameCollectionToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse rename collection tool input: %w", err)
	}
	if params.OriginalCollection == "" || params.NewCollectionName == "" {
		return "", fmt.Errorf("original_collection and new_collection_name are required")
	}

	if params.OriginalCollection == params.NewCollectionName {
		collections, err := r.store.Collections(ctx)
		if err != nil {
			return "", err
		}
		if _, ok := collections[params.OriginalCollection]; !ok {
			return fmt.Sprintf("Failed to change collection name due to %v: %s", vectorstore.ErrCollectionNotFound, params.OriginalCollection), nil
		}
		return fmt.Sprintf("collection %s already has that name", params.OriginalCollection), nil
	}

	if _, err := r.store.RenameCollection(ctx, params.OriginalCollection, params.NewCollectionName); err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return fmt.Sprintf("Failed to change collection name due to %v", err), nil
		}
		return "", err
	}
	return fmt.Sprintf("successfully changed %s to %s", params.OriginalCollection, params.NewCollectionName), nil
}

type ListCollectionsToolInput struct{}

type ListCollectionsTool struct {
	store vectorstore.Store
}

func NewListCollectionsTool(store vectorstore.Store) ListCollectionsTool {
	return ListCollectionsTool{store: store}
}

func (ListCollectionsTool) Name() string {
	return "get_list_of_collections"
}

func (ListCollectionsTool) Description() string {
	return "allows for retrieval of list of availble collections"
}

func (ListCollectionsTool) InputSchema() map[string]any {
	return generateSchema[ListCollectionsToolInput]()
}

func (l ListCollectionsTool) Call(ctx context.Context, args map[string]any) (string, error) {
	collections, err := l.store.Collections(ctx)
	if err != nil {
		return "", err
	}

	type collectionInfo struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	infos := make([]collectionInfo, 0, len(collections))
	for name, count := range collections {
		infos = append(infos, collectionInfo{Name: name, Count: count})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return marshalResult(infos)
}

type DeleteCollectionToolInput struct {
	CollectionName string `json:"collection_name" jsonschema:"required,description=Name of the collection to delete"`
}

type DeleteCollectionTool struct {
	store vectorstore.Store
}

func NewDeleteCollectionTool(store vectorstore.Store) DeleteCollectionTool {
	return DeleteCollectionTool{store: store}
}

func (DeleteCollectionTool) Name() string {
	return "delete_collection_by_name"
}

func (DeleteCollectionTool) Description() string {
	return "delete a particular collection based on the provided name"
}

func (DeleteCollectionTool) InputSchema() map[string]any {
	return generateSchema[DeleteCollectionToolInput]()
}

func (d DeleteCollectionTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[DeleteCollectionToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse delete collection tool input: %w", err)
	}

	if err := d.store.DeleteCollection(ctx, params.CollectionName); err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return fmt.Sprintf("Failed to delete collection due to %v", err), nil
		}
		return "", err
	}
	return fmt.Sprintf("deleted collection %s", params.CollectionName), nil
}

type EnterDataToolInput struct {
	CollectionName string `json:"collection_name" jsonschema:"required,description=Collection to fill with the reference dataset"`
}

type EnterDataTool struct {
	store  vectorstore.Store
	loader DataLoader
}

func NewEnterDataTool(store vectorstore.Store, loader DataLoader) EnterDataTool {
	return EnterDataTool{store: store, loader: loader}
}

func (EnterDataTool) Name() string {
	return "enter_data"
}

func (EnterDataTool) Description() string {
	return "This tool will re-enter fresh batch of data on a newly created collection."
}

func (EnterDataTool) InputSchema() map[string]any {
	return generateSchema[EnterDataToolInput]()
}

func (e EnterDataTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[EnterDataToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse enter data tool input: %w", err)
	}
	return fillCollection(ctx, e.store, e.loader, params.CollectionName)
}

func fillCollection(ctx context.Context, store vectorstore.Store, loader DataLoader, collection string) (string, error) {
	count, err := store.Count(ctx, collection)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return fmt.Sprintf("%s already contains data of size %d.", collection, count), nil
	}

	if _, err := loader.Load(ctx, collection); err != nil {
		return "", fmt.Errorf("failed to load dataset into %s: %w", collection, err)
	}
	return fmt.Sprintf("Successfully loaded data into collection %s", collection), nil
}

type CollectionCountToolInput struct {
	NameOfCollection string `json:"name_of_collection" jsonschema:"required,description=Collection to count"`
}

type CollectionCountTool struct {
	store vectorstore.Store
}

func NewCollectionCountTool(store vectorstore.Store) CollectionCountTool {
	return CollectionCountTool{store: store}
}

func (CollectionCountTool) Name() string {
	return "get_collection_data_count"
}

func (CollectionCountTool) Description() string {
	return "returns the number of data contained within a particular collection"
}

func (CollectionCountTool) InputSchema() map[string]any {
	return generateSchema[CollectionCountToolInput]()
}

func (c CollectionCountTool) Call(ctx context.Context, args map[string]any) (string, error) {
	params, err := decodeArgs[CollectionCountToolInput](args)
	if err != nil {
		return "", fmt.Errorf("failed to parse collection count tool input: %w", err)
	}

	name := strings.ReplaceAll(strings.TrimSpace(params.NameOfCollection), " ", "")
	count, err := c.store.Count(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", count), nil
}
