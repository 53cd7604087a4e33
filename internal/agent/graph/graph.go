package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	logx "github.com/assistant-core/server/pkg/logger"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/assistant-core/server/internal/actions"
	"github.com/assistant-core/server/internal/agent/graph/conversations"
	"github.com/assistant-core/server/internal/agent/graph/nodes"
	"github.com/assistant-core/server/internal/agent/graph/observers"
	"github.com/assistant-core/server/internal/agent/graph/tools"
	"github.com/assistant-core/server/internal/agent/model"
	"github.com/assistant-core/server/internal/document"
)

// Runner executes one assistant invocation end-to-end: history load, model
// call, bounded tool loop, final answer extraction.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
}

// Config holds everything needed to compose the full assistant graph
// end-to-end. Stores are explicit dependencies, never package globals.
type Config struct {
	APIKey           string
	BaseURL          string
	Assistant        model.AssistantModelConfig
	Prompt           model.PromptConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
	Documents        *document.Store
	Actions          *actions.Client
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	PromptConfig    *model.PromptConfig
	Documents       *document.Store
	Actions         *actions.Client
	ToolMaxCalls    int
}

// GraphBuilder handles the construction of the assistant graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	out, err := r.runnable.Invoke(ctx, model.QueryInput{
		SessionID: in.SessionID,
		Input:     in.Input,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return "", err
	}
	return nodes.FinalText(out), nil
}

// BuildAssistantGraph composes ChatModels, MessagesManager, builds the graph, and returns a Runner.
func BuildAssistantGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Documents == nil {
		return nil, fmt.Errorf("document store is nil")
	}
	if cfg.Actions == nil {
		return nil, fmt.Errorf("actions client is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Assistant: &cfg.Assistant,
	})
	if err != nil {
		return nil, err
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: mm,
		PromptConfig:    &cfg.Prompt,
		Documents:       cfg.Documents,
		Actions:         cfg.Actions,
		ToolMaxCalls:    cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Assistant graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled assistant graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Assistant == nil {
		return nil, fmt.Errorf("chat model is not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.PromptConfig == nil {
		return nil, fmt.Errorf("prompt config is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools configures the fixed tool catalogue and binds it to the assistant model
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	assistantTools := tools.AssistantTools(tools.Dependencies{
		Actions:         b.config.Actions,
		Documents:       b.config.Documents,
		DefaultTimezone: b.config.PromptConfig.DefaultTimezone,
	})
	toolInfos, err := tools.GetToolInfos(ctx, assistantTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToAssistantModel(ctx, toolInfos); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to assistant model")
		return fmt.Errorf("failed to bind tools to assistant model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               assistantTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Gracefully handle hallucinated or malformed tool calls (e.g., empty name)
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"only gmail_send, calendar_create_event and document_query exist\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			// Best-effort sanitize; never fail hard here
			var m map[string]any
			if err := json.Unmarshal([]byte(arguments), &m); err != nil {
				// keep original if not JSON
				return arguments, nil
			}

			switch name {
			case tools.ToolGmailSend:
				trimStringArg(m, "to")
				trimStringArg(m, "subject")
				trimStringArg(m, "from_email")
			case tools.ToolCalendarCreateEvent:
				trimStringArg(m, "summary")
				trimStringArg(m, "start_datetime")
				trimStringArg(m, "end_datetime")
				trimStringArg(m, "timezone")
				// attendees: accept a single address or a list
				if v, ok := m["attendees"]; ok {
					switch vv := v.(type) {
					case string:
						if s := strings.TrimSpace(vv); s != "" {
							m["attendees"] = []any{s}
						} else {
							delete(m, "attendees")
						}
					case []any:
						// keep as-is; element validation happens in the tool
					default:
						delete(m, "attendees")
					}
				}
			case tools.ToolDocumentQuery:
				trimStringArg(m, "question")
			}

			b, err := json.Marshal(m)
			if err != nil {
				// fallback to original
				return arguments, nil
			}
			return string(b), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)

	return nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(b.config.MessagesManager, b.config.Documents, b.config.PromptConfig),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
	)

	b.graph.AddChatModelNode(nodes.NodeAssistantChatModel,
		nodes.NewAssistantChatModelNode(b.config.ChatModels.Assistant),
		compose.WithStatePreHandler(nodes.NewAssistantChatModelPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewAssistantChatModelPostHandler(b.config.MessagesManager, b.config.ChatModels.AssistantModelName)),
	)
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeAssistantChatModel},
		{nodes.NodeToolExecutor, nodes.NodeAssistantChatModel},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAssistantChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// trimStringArg trims a string argument in place, coercing non-strings.
func trimStringArg(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case string:
		m[key] = strings.TrimSpace(vv)
	default:
		m[key] = strings.TrimSpace(fmt.Sprint(v))
	}
}
