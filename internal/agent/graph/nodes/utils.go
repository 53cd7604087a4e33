package nodes

import (
	"strings"

	"github.com/assistant-core/server/internal/agent/model"
	"github.com/cloudwego/eino/schema"
)

// Node names inside the compiled graph.
const (
	NodeInputConverter     = "input_converter"
	NodeAssistantChatModel = "assistant_chat_model"
	NodeToolExecutor       = "tool_executor"
)

const DefaultMaxToolCalls = 5

// NoContentFallback is returned when the loop terminates without the model
// ever producing non-empty text. Callers must treat it as a valid, if
// degenerate, answer.
const NoContentFallback = "[no content from model]"

// ===== Small helpers to keep handlers simple/readable =====

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit evaluates whether another tool call would exceed the
// limit and, if so, marks the state accordingly. Returns true when marked now.
func checkAndMarkToolLimit(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// incrementToolCallAndCheck increments the count and marks the state if it
// exceeds the limit after incrementing. Returns true when exceeded.
func incrementToolCallAndCheck(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount++
	if state.ToolCallCount > max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// FinalText extracts the displayable answer from the model's last message.
// A message that only carries tool calls is never a final answer, even when
// Content holds non-empty noise. When Content is empty but the provider
// returned mixed parts, only the text parts are folded together. An answer
// that ends up empty becomes NoContentFallback.
func FinalText(msg *schema.Message) string {
	if msg == nil {
		return NoContentFallback
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		text = strings.TrimSpace(foldTextParts(msg.MultiContent))
	}

	if len(msg.ToolCalls) > 0 && text == "" {
		return NoContentFallback
	}
	if text == "" {
		return NoContentFallback
	}
	return text
}

func foldTextParts(parts []schema.ChatMessagePart) string {
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type != schema.ChatMessagePartTypeText {
			continue
		}
		if b.Len() > 0 && p.Text != "" {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
