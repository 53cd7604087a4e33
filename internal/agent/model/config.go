package model

// ================ Config ================

// ConversationConfig controls history storage and the tool-call loop bound.
type ConversationConfig struct {
	// Store selects the history backend: "memory" (default) or "redis".
	Store string `envconfig:"CONVERSATION_STORE" default:"memory"`
	TTL   string `envconfig:"CONVERSATION_TTL" default:"15m"`

	History struct {
		// MaxTurns bounds how many stored turns are replayed into the model
		// context. The full history still lives in the repository.
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"50"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"5"`
	}
}

// AssistantModelConfig configures the tool-calling chat model.
type AssistantModelConfig struct {
	Model       string  `envconfig:"ASSISTANT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ASSISTANT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"ASSISTANT_TEMPERATURE" default:"0.7"`
}

// PromptConfig feeds the system prompt template.
type PromptConfig struct {
	AssistantName   string `envconfig:"PROMPT_ASSISTANT_NAME" default:"Aria"`
	DefaultTimezone string `envconfig:"PROMPT_DEFAULT_TIMEZONE" default:"America/Mazatlan"`
	AuthEndpoint    string `envconfig:"PROMPT_AUTH_ENDPOINT" default:"/auth/google"`
}

// DocumentConfig bounds how much extracted document text is injected into
// a single model call.
type DocumentConfig struct {
	CharBudget int `envconfig:"DOCUMENT_CHAR_BUDGET" default:"12000"`
}
