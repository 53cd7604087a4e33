package tools

import (
	"context"
	"fmt"

	"github.com/assistant-core/server/internal/actions"
	"github.com/assistant-core/server/internal/document"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Tool names as the model sees them.
const (
	ToolGmailSend           = "gmail_send"
	ToolCalendarCreateEvent = "calendar_create_event"
	ToolDocumentQuery       = "document_query"
)

// Dependencies carries the collaborators tool closures need. The set of
// tools is fixed at graph build time; there is no runtime registration.
type Dependencies struct {
	Actions         *actions.Client
	Documents       *document.Store
	DefaultTimezone string
}

// AssistantTools returns the fixed tool catalogue bound into the graph.
func AssistantTools(deps Dependencies) []tool.BaseTool {
	return []tool.BaseTool{
		createGmailSendTool(deps),
		createCalendarCreateEventTool(deps),
		createDocumentQueryTool(deps),
	}
}

// GetToolInfos collects descriptors for binding to the chat model.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		if seen[info.Name] {
			return nil, fmt.Errorf("duplicate tool name: %s", info.Name)
		}
		seen[info.Name] = true
		infos = append(infos, info)
	}
	return infos, nil
}
