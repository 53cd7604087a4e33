package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/assistant-core/server/internal/actions"
	"github.com/assistant-core/server/internal/agent/graph"
	"github.com/assistant-core/server/internal/agent/model"
	"github.com/assistant-core/server/internal/agent/repo"
	"github.com/assistant-core/server/internal/core"
	"github.com/assistant-core/server/internal/document"
	"github.com/assistant-core/server/internal/server"
	logx "github.com/assistant-core/server/pkg/logger"
	pkgredis "github.com/assistant-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant backend,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis  pkgredis.Config
	Server server.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Assistant configs
	Assistant    model.AssistantModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Document     model.DocumentConfig
	Actions      actions.Config
}

func main() {
	ctx := context.Background()

	// Load .env file; absence is fine outside local runs
	if err := godotenv.Load(".env"); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	// Load structured config from env. A missing GEMINI_API_KEY fails here,
	// before the server ever accepts a chat request.
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	conversationRepo, err := buildConversationRepo(envCfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise conversation store")
	}

	documents := document.NewStore(envCfg.Document.CharBudget)
	actionsClient := actions.NewClient(envCfg.Actions)

	runner, err := graph.BuildAssistantGraph(ctx, graph.Config{
		APIKey:           envCfg.APIKey,
		BaseURL:          envCfg.BaseURL,
		Assistant:        envCfg.Assistant,
		Prompt:           envCfg.Prompt,
		Conversation:     envCfg.Conversation,
		ConversationRepo: conversationRepo,
		Documents:        documents,
		Actions:          actionsClient,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build assistant graph")
	}

	srv := server.New(envCfg.Server, server.Deps{
		Runner:    runner,
		Documents: documents,
	})
	if err := srv.ListenAndServe(); err != nil {
		logx.Fatal().Err(err).Msg("server stopped")
	}
}

// buildConversationRepo selects the history backend: volatile in-process by
// default, Redis when CONVERSATION_STORE=redis.
func buildConversationRepo(cfg AppConfig) (model.ConversationRepository, error) {
	switch cfg.Conversation.Store {
	case "", "memory":
		return repo.NewMemoryConversationRepository(), nil
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, fmt.Errorf("CONVERSATION_STORE=redis requires REDIS_URL")
		}
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, fmt.Errorf("initialise redis client: %w", err)
		}
		ttl, err := time.ParseDuration(cfg.Conversation.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", cfg.Conversation.TTL, err)
		}
		return repo.NewRedisConversationRepository(rdb, ttl), nil
	default:
		return nil, fmt.Errorf("unknown CONVERSATION_STORE %q (expected memory or redis)", cfg.Conversation.Store)
	}
}
