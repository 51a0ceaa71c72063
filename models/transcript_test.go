package models

import (
	"errors"
	"testing"
)

func TestTranscriptValidate(t *testing.T) {
	useEcho := ToolUseBlock{ID: "t1", Name: "echo", Input: map[string]any{"message": "hi"}}
	useCount := ToolUseBlock{ID: "t2", Name: "get_collection_data_count"}

	tests := []struct {
		name     string
		messages []Message
		wantErr  bool
	}{
		{
			name: "text only",
			messages: []Message{
				NewTextMessage(RoleUser, "who was Abraham Lincoln?"),
				NewTextMessage(RoleAssistant, "the 16th president"),
			},
		},
		{
			name: "paired results",
			messages: []Message{
				NewTextMessage(RoleUser, "q"),
				NewBlockMessage(RoleAssistant, useEcho, useCount),
				NewToolResultMessage(ToolResultBlock{ToolUseID: "t1", Content: "Echo: hi"}),
				NewToolResultMessage(ToolResultBlock{ToolUseID: "t2", Content: "10"}),
				NewTextMessage(RoleAssistant, "done"),
			},
		},
		{
			name: "result without request",
			messages: []Message{
				NewTextMessage(RoleUser, "q"),
				NewToolResultMessage(ToolResultBlock{ToolUseID: "t1"}),
			},
			wantErr: true,
		},
		{
			name: "result answering an older assistant message",
			messages: []Message{
				NewTextMessage(RoleUser, "q"),
				NewBlockMessage(RoleAssistant, useEcho),
				NewToolResultMessage(ToolResultBlock{ToolUseID: "t1"}),
				NewBlockMessage(RoleAssistant, useCount),
				NewToolResultMessage(ToolResultBlock{ToolUseID: "t1"}),
			},
			wantErr: true,
		},
		{
			name: "duplicate result",
			messages: []Message{
				NewTextMessage(RoleUser, "q"),
				NewBlockMessage(RoleAssistant, useEcho),
				NewToolResultMessage(ToolResultBlock{ToolUseID: "t1"}),
				NewToolResultMessage(ToolResultBlock{ToolUseID: "t1"}),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Transcript{Messages: tt.messages}
			err := tr.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrDanglingToolResult) {
					t.Fatalf("expected ErrDanglingToolResult, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTranscriptFinalAnswer(t *testing.T) {
	tr := &Transcript{}
	if got := tr.FinalAnswer(); got != "" {
		t.Fatalf("expected empty answer for empty transcript, got %q", got)
	}

	tr.Append(NewTextMessage(RoleUser, "q"))
	tr.Append(NewBlockMessage(RoleAssistant, ToolUseBlock{ID: "t1", Name: "echo"}))
	if got := tr.FinalAnswer(); got != "" {
		t.Fatalf("expected empty answer while tools are pending, got %q", got)
	}

	tr.Append(NewToolResultMessage(ToolResultBlock{ToolUseID: "t1"}))
	tr.Append(NewTextMessage(RoleAssistant, "answer"))
	if got := tr.FinalAnswer(); got != "answer" {
		t.Fatalf("FinalAnswer = %q, want %q", got, "answer")
	}
}
