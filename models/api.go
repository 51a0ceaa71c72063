package models

import "time"

type ToolContract struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type PromptInfo struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

type QueryRequest struct {
	Query     string `json:"query"`
	Model     string `json:"model,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type QueryResponse struct {
	FinalResponse string      `json:"final_response"`
	Answer        string      `json:"answer"`
	Model         ModelChoice `json:"model"`
	Transcript    *Transcript `json:"transcript"`
}

type ToolsResponse struct {
	Tools []ToolContract `json:"tools"`
}

type PromptsResponse struct {
	Prompts []PromptInfo `json:"prompts"`
}

type ModelChoiceRequest struct {
	Model string `json:"model"`
}

type ModelChoiceResponse struct {
	Model     ModelChoice   `json:"model"`
	Supported []ModelChoice `json:"supported"`
	Message   string        `json:"message,omitempty"`
}

// TranscriptRecord is the relational audit row of a transcript.
type TranscriptRecord struct {
	ID           string      `json:"id" db:"id"`
	SessionID    string      `json:"session_id" db:"session_id"`
	Model        ModelChoice `json:"model" db:"model"`
	Messages     []Message   `json:"messages" db:"messages"`
	MessageCount int         `json:"message_count" db:"message_count"`
	StartedAt    time.Time   `json:"started_at" db:"started_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

func NewTranscriptRecord(t *Transcript) *TranscriptRecord {
	return &TranscriptRecord{
		ID:           t.ID,
		SessionID:    t.SessionID,
		Model:        t.Model,
		Messages:     t.Messages,
		MessageCount: len(t.Messages),
		StartedAt:    t.StartedAt,
	}
}
