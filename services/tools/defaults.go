package tools

import (
	"ragchat/services/vectorstore"

	"github.com/anthropics/anthropic-sdk-go"
)

// DefaultTools is the tool set served to the model. The token counter is
// left out when no Anthropic client is available.
func DefaultTools(store vectorstore.Store, loader DataLoader, client *anthropic.Client, tokenModel string) []Tool {
	set := []Tool{
		EchoTool{},
		NewContextRetrieverTool(store, loader),
		NewPeekTool(store),
		NewRenameCollectionTool(store),
		NewListCollectionsTool(store),
		NewDeleteCollectionTool(store),
		NewEnterDataTool(store, loader),
		NewCollectionCountTool(store),
		NewQueryHistoryTool(store),
	}
	if client != nil {
		set = append(set, NewCountTokensTool(client, tokenModel))
	}
	return set
}
