package repo

import (
	"context"
	"sync"

	"github.com/assistant-core/server/internal/agent/model"
	"github.com/cloudwego/eino/schema"
)

// MemoryConversationRepository keeps conversation history in process memory.
// Sessions are created lazily on first access and live for the process
// lifetime; nothing is evicted. Writers to the same session are serialized by
// a per-session mutex so concurrent calls cannot interleave a single append,
// though ordering between two whole requests remains caller-defined.
type MemoryConversationRepository struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu       sync.Mutex
	messages []*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		sessions: make(map[string]*memorySession),
	}
}

func (r *MemoryConversationRepository) session(sessionID string) *memorySession {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[sessionID]; ok {
		return s
	}
	s = &memorySession{}
	r.sessions[sessionID] = s
	return s
}

func (r *MemoryConversationRepository) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]*schema.Message, len(s.messages))
	copy(msgs, s.messages)
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
