package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	BlockTypeText       = "text"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

var ErrUnknownBlockType = errors.New("unknown content block type")

// ContentBlock is one of TextBlock, ToolUseBlock or ToolResultBlock.
type ContentBlock interface {
	BlockType() string
	isContentBlock()
}

type TextBlock struct {
	Text string `json:"text"`
}

type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

func (TextBlock) BlockType() string       { return BlockTypeText }
func (ToolUseBlock) BlockType() string    { return BlockTypeToolUse }
func (ToolResultBlock) BlockType() string { return BlockTypeToolResult }

func (TextBlock) isContentBlock()       {}
func (ToolUseBlock) isContentBlock()    {}
func (ToolResultBlock) isContentBlock() {}

// BlockVisitor dispatches on the concrete block kind. Every kind must be
// handled, so adding a new kind breaks callers at compile time.
type BlockVisitor struct {
	Text       func(TextBlock) error
	ToolUse    func(ToolUseBlock) error
	ToolResult func(ToolResultBlock) error
}

func (v BlockVisitor) Visit(block ContentBlock) error {
	switch b := block.(type) {
	case TextBlock:
		return v.Text(b)
	case ToolUseBlock:
		return v.ToolUse(b)
	case ToolResultBlock:
		return v.ToolResult(b)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownBlockType, block)
	}
}

// Message holds either plain text (Blocks == nil) or an ordered block list.
type Message struct {
	Role   Role
	Text   string
	Blocks []ContentBlock
}

func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Text: text}
}

func NewBlockMessage(role Role, blocks ...ContentBlock) Message {
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return Message{Role: role, Blocks: blocks}
}

func NewToolResultMessage(result ToolResultBlock) Message {
	return NewBlockMessage(RoleUser, result)
}

func (m Message) IsText() bool {
	return m.Blocks == nil
}

// IsToolResult reports whether m is a user message carrying tool output.
func (m Message) IsToolResult() bool {
	if m.Role != RoleUser || len(m.Blocks) == 0 {
		return false
	}
	for _, block := range m.Blocks {
		if _, ok := block.(ToolResultBlock); !ok {
			return false
		}
	}
	return true
}

func (m Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range m.Blocks {
		if use, ok := block.(ToolUseBlock); ok {
			uses = append(uses, use)
		}
	}
	return uses
}

// PlainText flattens the message into a single string. Tool blocks are
// rendered as JSON.
func (m Message) PlainText() string {
	if m.IsText() {
		return m.Text
	}

	var parts []string
	for _, block := range m.Blocks {
		if text, ok := block.(TextBlock); ok {
			parts = append(parts, text.Text)
			continue
		}
		encoded, err := json.Marshal(blockMap(block))
		if err != nil {
			parts = append(parts, fmt.Sprintf("%v", block))
			continue
		}
		parts = append(parts, string(encoded))
	}
	return strings.Join(parts, "\n")
}

func blockMap(block ContentBlock) map[string]any {
	out := map[string]any{"type": block.BlockType()}
	switch b := block.(type) {
	case TextBlock:
		out["text"] = b.Text
	case ToolUseBlock:
		input := b.Input
		if input == nil {
			input = map[string]any{}
		}
		out["id"] = b.ID
		out["name"] = b.Name
		out["input"] = input
	case ToolResultBlock:
		out["tool_use_id"] = b.ToolUseID
		out["content"] = b.Content
		if b.IsError {
			out["is_error"] = true
		}
	}
	return out
}

// MarshalJSON writes {"role": ..., "content": string | [block, ...]}.
func (m Message) MarshalJSON() ([]byte, error) {
	type wire struct {
		Role    Role `json:"role"`
		Content any  `json:"content"`
	}

	if m.IsText() {
		return json.Marshal(wire{Role: m.Role, Content: m.Text})
	}

	blocks := make([]map[string]any, 0, len(m.Blocks))
	for _, block := range m.Blocks {
		if block == nil {
			return nil, fmt.Errorf("%w: nil block", ErrUnknownBlockType)
		}
		blocks = append(blocks, blockMap(block))
	}
	return json.Marshal(wire{Role: m.Role, Content: blocks})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	m.Role = wire.Role
	m.Text = ""
	m.Blocks = nil

	trimmed := strings.TrimSpace(string(wire.Content))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	if trimmed[0] == '"' {
		return json.Unmarshal(wire.Content, &m.Text)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(wire.Content, &raw); err != nil {
		return fmt.Errorf("content must be a string or a list of blocks: %w", err)
	}

	m.Blocks = make([]ContentBlock, 0, len(raw))
	for i, item := range raw {
		block, err := decodeBlock(item)
		if err != nil {
			return fmt.Errorf("content block %d: %w", i, err)
		}
		m.Blocks = append(m.Blocks, block)
	}
	return nil
}

func decodeBlock(data json.RawMessage) (ContentBlock, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case BlockTypeText:
		var b TextBlock
		err := json.Unmarshal(data, &b)
		return b, err
	case BlockTypeToolUse:
		var b ToolUseBlock
		err := json.Unmarshal(data, &b)
		return b, err
	case BlockTypeToolResult:
		var b ToolResultBlock
		err := json.Unmarshal(data, &b)
		return b, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, head.Type)
	}
}
