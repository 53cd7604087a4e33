package nodes

import (
	"context"
	"fmt"

	logx "github.com/assistant-core/server/pkg/logger"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/assistant-core/server/internal/agent/model"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	Assistant *model.AssistantModelConfig
}

// ChatModels holds the assistant chat model
type ChatModels struct {
	Assistant          *gemini.ChatModel
	AssistantModelName string
}

// NewChatModels creates the assistant chat model with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Assistant.Model,
		Temperature: &config.Assistant.Temperature,
		MaxTokens:   &config.Assistant.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating assistant model")
		return nil, fmt.Errorf("error creating assistant model: %w", err)
	}

	return &ChatModels{
		Assistant:          chatModel,
		AssistantModelName: config.Assistant.Model,
	}, nil
}

// BindToolsToAssistantModel binds the fixed tool catalogue to the chat model
func (cm *ChatModels) BindToolsToAssistantModel(ctx context.Context, tools []*schema.ToolInfo) error {
	if err := cm.Assistant.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}

	logx.Debug().Int("tool_count", len(tools)).Msg("Successfully bound tools to assistant model")
	return nil
}

// NewAssistantChatModelNode creates a wrapper for the assistant chat model to be used as a node
func NewAssistantChatModelNode(chatModel *gemini.ChatModel) *gemini.ChatModel {
	return chatModel
}
