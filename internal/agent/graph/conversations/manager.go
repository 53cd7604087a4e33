package conversations

import (
	"context"

	"github.com/assistant-core/server/internal/agent/model"

	"github.com/cloudwego/eino/schema"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	historyMaxTurns  int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		historyMaxTurns:  config.History.MaxTurns,
	}
}

// SaveUserMessage persists the user's turn exactly as typed. Document
// augmentation is applied later only to the outgoing model context, so
// repeated injections never accumulate in stored history.
func (cm *MessagesManager) SaveUserMessage(ctx context.Context, sessionID string, input string) error {
	return cm.conversationRepo.AddMessage(ctx, sessionID, schema.UserMessage(input))
}

// BuildModelContext assembles the message sequence for one model call:
// system prompt, a bounded window of stored history, and the augmented form
// of the current user message swapped in at the tail when effectiveInput
// differs from the stored turn.
func (cm *MessagesManager) BuildModelContext(ctx context.Context, sessionID string, systemPrompt string, effectiveInput string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	window := trimTail(history.Messages, cm.historyMaxTurns)

	messages := make([]*schema.Message, 0, len(window)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, window...)

	if effectiveInput != "" && len(messages) > 1 {
		last := messages[len(messages)-1]
		if last != nil && last.Role == schema.User && last.Content != effectiveInput {
			messages[len(messages)-1] = schema.UserMessage(effectiveInput)
		}
	}

	return messages, nil
}

// SaveResponse persists the assistant's final answer.
func (cm *MessagesManager) SaveResponse(ctx context.Context, sessionID string, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, sessionID, assistantMsg)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
