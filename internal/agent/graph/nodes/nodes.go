package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/assistant-core/server/internal/agent/graph/conversations"
	"github.com/assistant-core/server/internal/agent/graph/prompts"
	"github.com/assistant-core/server/internal/agent/model"
	"github.com/assistant-core/server/internal/document"
	logx "github.com/assistant-core/server/pkg/logger"
)

// NewInputConverterPreHandler creates the pre-handler for InputConverter node
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		if s.SessionID == "" {
			s.SessionID = in.SessionID
		}
		// Reset tool call counter and limit flag for each new query
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		return in, nil
	}
}

// NewInputConverterNode creates the node that turns a QueryInput into the
// full message sequence for the first model call: it persists the user turn
// as typed, renders the dated system prompt, and swaps in the
// document-augmented form of the current message when a document is loaded.
func NewInputConverterNode(
	mm *conversations.MessagesManager,
	docs *document.Store,
	promptCfg *model.PromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		if err := mm.SaveUserMessage(ctx, input.SessionID, input.Input); err != nil {
			return nil, fmt.Errorf("save user message: %w", err)
		}

		systemPrompt, err := prompts.RenderAssistantSystem(ctx, *promptCfg, time.Now())
		if err != nil {
			return nil, fmt.Errorf("render system prompt: %w", err)
		}

		effective := docs.Augment(input.Input)
		messages, err := mm.BuildModelContext(ctx, input.SessionID, systemPrompt, effective)
		if err != nil {
			return nil, fmt.Errorf("build model context: %w", err)
		}

		return messages, nil
	})
}

// NewAssistantChatModelPreHandler creates the pre-handler for the chat model
// node. It receives either the initial context from the input converter or
// tool observations from the tool executor, folds them into the in-flight
// history, and injects a wrap-up notice once the tool-call limit is hit.
func NewAssistantChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Heuristic fix for providers that omit tool_call_id on tool results:
		// reuse the most recent assistant tool-call id from history.
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Please answer the user with the information gathered so far and "+
						"acknowledge anything you could not complete.",
					maxToolCalls,
				),
			}
			state.History = append(state.History, wrapUp)
		}

		logx.Debug().Str("session_id", state.SessionID).Msg("AI thinking...")

		return state.History, nil
	}
}

// NewAssistantChatModelPostHandler creates the post-handler for the chat
// model node: it normalizes tool-call ids, tracks the in-flight history, and
// persists the final answer.
func NewAssistantChatModelPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		// Normalize tool calls: some providers omit tool_call IDs.
		if out != nil && len(out.ToolCalls) > 0 {
			for i := range out.ToolCalls {
				if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
					state.ToolCallIDSeq++
					out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
				}
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().
				Str("session_id", state.SessionID).
				Str("model", modelName).
				Int("tool_count", len(out.ToolCalls)).
				Msg("Calling tools")
		} else {
			logx.Debug().
				Str("session_id", state.SessionID).
				Str("model", modelName).
				Msg("AI response ready")
		}

		// Persist only a genuine final answer: an assistant message with no
		// further tool calls (or the wrap-up answer after the limit) that
		// actually carries text, whether in Content or in MultiContent text
		// parts. A tool-call-only message is never final.
		answer := strings.TrimSpace(out.Content)
		if answer == "" {
			answer = strings.TrimSpace(foldTextParts(out.MultiContent))
		}
		if out.Role == schema.Assistant && (len(out.ToolCalls) == 0 || state.ToolCallLimitReached) && answer != "" {
			if err := mm.SaveResponse(ctx, state.SessionID, answer); err != nil {
				logx.Error().
					Str("session_id", state.SessionID).
					Err(err).
					Msg("Error saving assistant response")
			} else {
				logx.Debug().
					Str("session_id", state.SessionID).
					Msg("Saved assistant response")
			}
		}

		return out, nil
	}
}

// NewToolExecutorCondition creates the condition function for tool execution routing
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		// Check if tool limit was reached
		var limitReached bool
		compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to end")
			return compose.END, nil
		}

		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}

		logx.Debug().Msg("No tool calls - continuing to end")
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler creates the pre-handler for ToolExecutor node
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("session_id", state.SessionID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("session_id", state.SessionID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}

		return in, nil
	}
}
