package nodes

import (
	"testing"

	"github.com/assistant-core/server/internal/agent/model"
	"github.com/cloudwego/eino/schema"
)

func TestFinalText(t *testing.T) {
	tests := []struct {
		name string
		msg  *schema.Message
		want string
	}{
		{
			name: "nil message",
			msg:  nil,
			want: NoContentFallback,
		},
		{
			name: "plain text trimmed",
			msg:  &schema.Message{Role: schema.Assistant, Content: "  done!  \n"},
			want: "done!",
		},
		{
			name: "empty content",
			msg:  &schema.Message{Role: schema.Assistant, Content: "   "},
			want: NoContentFallback,
		},
		{
			name: "tool call with noise content is not final",
			msg: &schema.Message{
				Role:      schema.Assistant,
				Content:   "  \n ",
				ToolCalls: []schema.ToolCall{{ID: "call_1"}},
			},
			want: NoContentFallback,
		},
		{
			name: "tool call alongside real text keeps the text",
			msg: &schema.Message{
				Role:      schema.Assistant,
				Content:   "sending it now",
				ToolCalls: []schema.ToolCall{{ID: "call_1"}},
			},
			want: "sending it now",
		},
		{
			name: "mixed parts fold only text",
			msg: &schema.Message{
				Role: schema.Assistant,
				MultiContent: []schema.ChatMessagePart{
					{Type: schema.ChatMessagePartTypeText, Text: "part one"},
					{Type: schema.ChatMessagePartTypeImageURL},
					{Type: schema.ChatMessagePartTypeText, Text: "part two"},
				},
			},
			want: "part one\npart two",
		},
		{
			name: "content wins over parts",
			msg: &schema.Message{
				Role:    schema.Assistant,
				Content: "primary",
				MultiContent: []schema.ChatMessagePart{
					{Type: schema.ChatMessagePartTypeText, Text: "secondary"},
				},
			},
			want: "primary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FinalText(tt.msg); got != tt.want {
				t.Errorf("FinalText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolLimitHelpers(t *testing.T) {
	state := &model.AppState{}

	// Under the limit nothing is marked.
	if checkAndMarkToolLimit(state, 2) {
		t.Error("limit marked with zero calls")
	}

	if incrementToolCallAndCheck(state, 2) {
		t.Error("first call should not exceed limit of 2")
	}
	if incrementToolCallAndCheck(state, 2) {
		t.Error("second call should not exceed limit of 2")
	}
	if !checkAndMarkToolLimit(state, 2) {
		t.Error("limit should be marked at exactly max calls")
	}
	if !state.ToolCallLimitReached {
		t.Error("state flag not set")
	}
	// Marking is one-shot.
	if checkAndMarkToolLimit(state, 2) {
		t.Error("limit marked twice")
	}
}

func TestNormalizeMaxToolCalls(t *testing.T) {
	if got := normalizeMaxToolCalls(0); got != DefaultMaxToolCalls {
		t.Errorf("normalizeMaxToolCalls(0) = %d, want %d", got, DefaultMaxToolCalls)
	}
	if got := normalizeMaxToolCalls(-3); got != DefaultMaxToolCalls {
		t.Errorf("normalizeMaxToolCalls(-3) = %d, want %d", got, DefaultMaxToolCalls)
	}
	if got := normalizeMaxToolCalls(7); got != 7 {
		t.Errorf("normalizeMaxToolCalls(7) = %d, want 7", got)
	}
}
