package models

import (
	"errors"
	"fmt"
	"time"
)

type ModelChoice string

const (
	ModelClaude ModelChoice = "claude"
	ModelGemini ModelChoice = "gemini"
)

var ErrDanglingToolResult = errors.New("tool result does not match a preceding tool use")

type Transcript struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Model     ModelChoice `json:"model"`
	StartedAt time.Time   `json:"started_at"`
	Messages  []Message   `json:"messages"`
}

func (t *Transcript) Append(msg Message) {
	t.Messages = append(t.Messages, msg)
}

func (t *Transcript) Len() int {
	return len(t.Messages)
}

func (t *Transcript) Last() (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

// FinalAnswer returns the text of the last assistant message, if it is plain text.
func (t *Transcript) FinalAnswer() string {
	last, ok := t.Last()
	if !ok || last.Role != RoleAssistant || !last.IsText() {
		return ""
	}
	return last.Text
}

// Validate checks that every tool result answers a tool use of the nearest
// preceding assistant message, and that no tool use is answered twice.
func (t *Transcript) Validate() error {
	var pending map[string]bool

	for i, msg := range t.Messages {
		if msg.Role == RoleAssistant {
			pending = map[string]bool{}
			for _, use := range msg.ToolUses() {
				pending[use.ID] = true
			}
			continue
		}

		for _, block := range msg.Blocks {
			result, ok := block.(ToolResultBlock)
			if !ok {
				continue
			}
			if !pending[result.ToolUseID] {
				return fmt.Errorf("%w: message %d references %q", ErrDanglingToolResult, i, result.ToolUseID)
			}
			delete(pending, result.ToolUseID)
		}
	}

	return nil
}
