package memory

import (
	"context"
	"sync"

	"github.com/sportifyhq/roster/internal/domain/message"
)

// MessageRepository keeps each game's chat history in insertion order.
type MessageRepository struct {
	mu     sync.RWMutex
	byGame map[string][]message.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		byGame: make(map[string][]message.Message),
	}
}

func (r *MessageRepository) Insert(_ context.Context, m message.Message) error {
	r.mu.Lock()
	r.byGame[m.GameID] = append(r.byGame[m.GameID], m)
	r.mu.Unlock()

	return nil
}

func (r *MessageRepository) ListByGame(_ context.Context, gameID string) ([]message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := r.byGame[gameID]
	out := make([]message.Message, len(history))
	copy(out, history)

	return out, nil
}

func (r *MessageRepository) DeleteByGame(_ context.Context, gameID string) error {
	r.mu.Lock()
	delete(r.byGame, gameID)
	r.mu.Unlock()

	return nil
}
