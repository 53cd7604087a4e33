package nodes

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/assistant-core/server/internal/agent/graph/conversations"
	"github.com/assistant-core/server/internal/agent/model"
	"github.com/assistant-core/server/internal/agent/repo"
)

func newPostHandlerFixture() (func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error), model.ConversationRepository) {
	store := repo.NewMemoryConversationRepository()
	var cfg model.ConversationConfig
	cfg.History.MaxTurns = 50
	mm := conversations.NewMessagesManager(store, cfg)
	return NewAssistantChatModelPostHandler(mm, "test-model"), store
}

func TestPostHandlerPersistsFinalAnswer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		msg         *schema.Message
		wantSaved   int
		wantContent string
	}{
		{
			name:        "plain content answer",
			msg:         &schema.Message{Role: schema.Assistant, Content: "all done"},
			wantSaved:   1,
			wantContent: "all done",
		},
		{
			name: "answer carried only in text parts",
			msg: &schema.Message{
				Role: schema.Assistant,
				MultiContent: []schema.ChatMessagePart{
					{Type: schema.ChatMessagePartTypeText, Text: "final answer via parts"},
				},
			},
			wantSaved:   1,
			wantContent: "final answer via parts",
		},
		{
			name: "tool-call-only message is not final",
			msg: &schema.Message{
				Role:      schema.Assistant,
				ToolCalls: []schema.ToolCall{{ID: "call_1"}},
			},
			wantSaved: 0,
		},
		{
			name:      "empty message is not saved",
			msg:       &schema.Message{Role: schema.Assistant, Content: "   "},
			wantSaved: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, store := newPostHandlerFixture()
			state := &model.AppState{SessionID: "s1"}

			if _, err := handler(ctx, tt.msg, state); err != nil {
				t.Fatalf("post handler: %v", err)
			}

			n, err := store.GetMessageCount(ctx, "s1")
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.wantSaved {
				t.Fatalf("saved messages = %d, want %d", n, tt.wantSaved)
			}
			if tt.wantSaved == 0 {
				return
			}

			history, err := store.LoadHistory(ctx, "s1")
			if err != nil {
				t.Fatal(err)
			}
			saved := history.Messages[0]
			if saved.Role != schema.Assistant || saved.Content != tt.wantContent {
				t.Errorf("saved turn = %+v, want assistant %q", saved, tt.wantContent)
			}
		})
	}
}

func TestPostHandlerSavesWrapUpAnswerAtLimit(t *testing.T) {
	ctx := context.Background()
	handler, store := newPostHandlerFixture()
	state := &model.AppState{SessionID: "s1", ToolCallLimitReached: true}

	// At the limit the wrap-up answer may still carry leftover tool calls.
	msg := &schema.Message{
		Role:      schema.Assistant,
		Content:   "here is what I found so far",
		ToolCalls: []schema.ToolCall{{ID: "call_9"}},
	}
	if _, err := handler(ctx, msg, state); err != nil {
		t.Fatalf("post handler: %v", err)
	}

	n, err := store.GetMessageCount(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("saved messages = %d, want 1", n)
	}
}
