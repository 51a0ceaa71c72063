package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestMessageJSONShape(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "plain text",
			msg:  NewTextMessage(RoleUser, "who was Abraham Lincoln?"),
			want: `{"role":"user","content":"who was Abraham Lincoln?"}`,
		},
		{
			name: "tool use with text",
			msg: NewBlockMessage(RoleAssistant,
				TextBlock{Text: "let me check"},
				ToolUseBlock{ID: "toolu_1", Name: "echo", Input: map[string]any{"message": "hi"}},
			),
			want: `{"role":"assistant","content":[{"text":"let me check","type":"text"},{"id":"toolu_1","input":{"message":"hi"},"name":"echo","type":"tool_use"}]}`,
		},
		{
			name: "tool result",
			msg:  NewToolResultMessage(ToolResultBlock{ToolUseID: "toolu_1", Content: "Echo: hi"}),
			want: `{"role":"user","content":[{"content":"Echo: hi","tool_use_id":"toolu_1","type":"tool_result"}]}`,
		},
		{
			name: "tool use without input",
			msg:  NewBlockMessage(RoleAssistant, ToolUseBlock{ID: "toolu_2", Name: "get_list_of_collections"}),
			want: `{"role":"assistant","content":[{"id":"toolu_2","input":{},"name":"get_list_of_collections","type":"tool_use"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal returned error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMessageUnmarshalRestoresBlocks(t *testing.T) {
	data := `[
		{"role":"user","content":"hello"},
		{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"echo","input":{"message":"hi"}}]},
		{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"Echo: hi"}]},
		{"role":"assistant","content":"done"}
	]`

	var msgs []Message
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if !msgs[0].IsText() || msgs[0].Text != "hello" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	use, ok := msgs[1].Blocks[0].(ToolUseBlock)
	if !ok {
		t.Fatalf("expected ToolUseBlock, got %T", msgs[1].Blocks[0])
	}
	if !reflect.DeepEqual(use.Input, map[string]any{"message": "hi"}) {
		t.Errorf("unexpected input: %v", use.Input)
	}
	if !msgs[2].IsToolResult() {
		t.Errorf("expected tool result message, got %+v", msgs[2])
	}
	if msgs[3].Text != "done" {
		t.Errorf("unexpected final message: %+v", msgs[3])
	}
}

func TestMessageUnmarshalUnknownBlock(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"role":"assistant","content":[{"type":"image"}]}`), &msg)
	if !errors.Is(err, ErrUnknownBlockType) {
		t.Fatalf("expected ErrUnknownBlockType, got %v", err)
	}
}

func TestBlockVisitor(t *testing.T) {
	var seen []string
	visitor := BlockVisitor{
		Text:       func(b TextBlock) error { seen = append(seen, "text:"+b.Text); return nil },
		ToolUse:    func(b ToolUseBlock) error { seen = append(seen, "use:"+b.Name); return nil },
		ToolResult: func(b ToolResultBlock) error { seen = append(seen, "result:"+b.ToolUseID); return nil },
	}

	blocks := []ContentBlock{
		TextBlock{Text: "a"},
		ToolUseBlock{ID: "1", Name: "echo"},
		ToolResultBlock{ToolUseID: "1"},
	}
	for _, block := range blocks {
		if err := visitor.Visit(block); err != nil {
			t.Fatalf("Visit returned error: %v", err)
		}
	}

	want := []string{"text:a", "use:echo", "result:1"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("visited %v, want %v", seen, want)
	}

	if err := visitor.Visit(nil); !errors.Is(err, ErrUnknownBlockType) {
		t.Errorf("expected ErrUnknownBlockType for nil block, got %v", err)
	}
}

func TestPlainText(t *testing.T) {
	msg := NewBlockMessage(RoleAssistant,
		TextBlock{Text: "checking"},
		ToolUseBlock{ID: "t1", Name: "echo", Input: map[string]any{"message": "hi"}},
	)

	want := "checking\n" + `{"id":"t1","input":{"message":"hi"},"name":"echo","type":"tool_use"}`
	if got := msg.PlainText(); got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}
