package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"ragchat/models"
)

type PromptMessage struct {
	Role models.Role
	Text string
}

type Prompt struct {
	Info   models.PromptInfo
	Render func(args map[string]string) []PromptMessage
}

func Prompts() []Prompt {
	return []Prompt{convertPrompt(), trackContextHistoryPrompt()}
}

func PromptInfos() []models.PromptInfo {
	prompts := Prompts()
	infos := make([]models.PromptInfo, len(prompts))
	for i, p := range prompts {
		infos[i] = p.Info
	}
	return infos
}

func convertPrompt() Prompt {
	return Prompt{
		Info: models.PromptInfo{
			Name:        "convert",
			Description: "Given the vector data which represents relevant contextual information, use it to formulate an appropriate response that will be sent back to the user, use appropriate easy to read markdown format.",
			Arguments: []models.PromptArgument{
				{Name: "vector_data", Description: "Retrieved vector data to turn into an answer"},
			},
		},
		Render: func(args map[string]string) []PromptMessage {
			vectorData := args["vector_data"]
			if vectorData == "" {
				vectorData = "placeholder data"
			}

			conversation := []map[string]string{
				{
					"role":    "system",
					"content": "You are a helpful assistant skilled at using vector data to formulate human readable responses to user queries. Also make sure to keep track of previous conversation history for follow up responses.",
				},
				{
					"role":    "user",
					"content": fmt.Sprintf("use the following data for additional context:\n %s, discard unneccesary metadata.", vectorData),
				},
			}
			encoded, _ := json.Marshal(conversation)

			return []PromptMessage{{Role: models.RoleUser, Text: string(encoded)}}
		},
	}
}

func trackContextHistoryPrompt() Prompt {
	return Prompt{
		Info: models.PromptInfo{
			Name:        "track_context_history",
			Description: "fetch previous query related history from the collection 'contextual_data'.",
			Arguments: []models.PromptArgument{
				{Name: "query", Description: "The follow-up query", Required: true},
			},
		},
		Render: func(args map[string]string) []PromptMessage {
			return []PromptMessage{
				{Role: models.RoleUser, Text: "Within the collection 'contextual_data', refer to the role of 'user' for previous user queries, and 'assistant' for previous LLM responses."},
				{Role: models.RoleUser, Text: args["query"]},
				{Role: models.RoleAssistant, Text: "I will use the current and previous conversation query to provide an appropriate response."},
			}
		},
	}
}

// LocalPrompts serves the built-in prompt list.
type LocalPrompts struct{}

func (LocalPrompts) Prompts(ctx context.Context) ([]models.PromptInfo, error) {
	return PromptInfos(), nil
}
