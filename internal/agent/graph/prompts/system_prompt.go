package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/assistant-core/server/internal/agent/graph/tools"
	"github.com/assistant-core/server/internal/agent/model"
)

//go:embed template/system_prompt.txt
var assistantSystemPrompt string

// RenderAssistantSystem renders the assistant system prompt and triggers
// prompt callbacks. The current date is injected per call so the model can
// resolve relative dates ("tomorrow") into RFC3339 before issuing tool calls.
func RenderAssistantSystem(ctx context.Context, config model.PromptConfig, now time.Time) (string, error) {
	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(assistantSystemPrompt),
	)
	vars := map[string]any{
		"AssistantName": config.AssistantName,
		"CurrentDate":   now.Format("Monday, 2006-01-02 (15:04 -07:00)"),
		"Timezone":      config.DefaultTimezone,
		"AuthEndpoint":  config.AuthEndpoint,
		"GmailTool":     tools.ToolGmailSend,
		"CalendarTool":  tools.ToolCalendarCreateEvent,
		"DocumentTool":  tools.ToolDocumentQuery,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}
