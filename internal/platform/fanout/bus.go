package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/sportifyhq/roster/internal/platform/logging"
)

var ErrClosed = errors.New("fanout bus is closed")

// Handler receives one published payload. Handlers run on the shared worker
// pool and must not block indefinitely; a slow handler delays its own
// deliveries but never its siblings.
type Handler func(ctx context.Context, topic string, payload any)

// validatable payloads are checked before fanout; malformed payloads are
// rejected at Publish.
type validatable interface {
	Validate() error
}

func GameTopic(gameID string) string { return "game:" + gameID }
func UserTopic(userID string) string { return "user:" + userID }

// Bus routes payloads published on game and user topics to attached user
// handlers. Room membership (which users hear a game topic) is managed
// separately from connections (which users currently have a handler), so a
// roster can subscribe users who are not connected right now.
//
// There is no store-and-forward: a payload published while a user has no
// handler attached is simply not delivered to them.
type Bus struct {
	mu    sync.RWMutex
	conns map[string]Handler            // userID -> attached handler
	rooms map[string]map[string]bool    // topic  -> member userIDs
	taps  map[string]Handler            // tapID  -> wildcard game-topic handler

	pool   *ants.Pool
	logger *logging.Logger
	closed bool
}

func New(workers int, logger *logging.Logger) (*Bus, error) {
	if workers < 1 {
		workers = 32
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	pool, err := ants.NewPool(workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create fanout pool: %w", err)
	}

	return &Bus{
		conns:  make(map[string]Handler),
		rooms:  make(map[string]map[string]bool),
		taps:   make(map[string]Handler),
		pool:   pool,
		logger: logger.Named("fanout"),
	}, nil
}

// Attach registers the user's delivery handler. Attaching an already
// attached user replaces the previous handler.
func (b *Bus) Attach(userID string, h Handler) {
	if userID == "" || h == nil {
		return
	}
	b.mu.Lock()
	if !b.closed {
		b.conns[userID] = h
	}
	b.mu.Unlock()
}

// Detach drops the user's handler. Detaching an unknown user is a no-op;
// room memberships are kept so a reconnect resumes deliveries.
func (b *Bus) Detach(userID string) {
	b.mu.Lock()
	delete(b.conns, userID)
	b.mu.Unlock()
}

// JoinRoom subscribes the user to a topic. Idempotent.
func (b *Bus) JoinRoom(topic, userID string) {
	if topic == "" || userID == "" {
		return
	}
	b.mu.Lock()
	if !b.closed {
		members, ok := b.rooms[topic]
		if !ok {
			members = make(map[string]bool)
			b.rooms[topic] = members
		}
		members[userID] = true
	}
	b.mu.Unlock()
}

// LeaveRoom unsubscribes the user from a topic. Idempotent.
func (b *Bus) LeaveRoom(topic, userID string) {
	b.mu.Lock()
	if members, ok := b.rooms[topic]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(b.rooms, topic)
		}
	}
	b.mu.Unlock()
}

// DropRoom removes a topic and all its memberships, used when a game is
// deleted.
func (b *Bus) DropRoom(topic string) {
	b.mu.Lock()
	delete(b.rooms, topic)
	b.mu.Unlock()
}

// Tap registers a wildcard handler that receives every game-topic publish
// regardless of room membership. Re-tapping an id replaces the handler.
func (b *Bus) Tap(id string, h Handler) {
	if id == "" || h == nil {
		return
	}
	b.mu.Lock()
	if !b.closed {
		b.taps[id] = h
	}
	b.mu.Unlock()
}

func (b *Bus) Untap(id string) {
	b.mu.Lock()
	delete(b.taps, id)
	b.mu.Unlock()
}

// Publish fans the payload out to every attached member of the topic's room
// plus, for game topics, every tap. Each delivery runs isolated on the
// worker pool; a panicking handler is logged and never takes down siblings.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	if topic == "" {
		return fmt.Errorf("fanout: topic is required")
	}
	if v, ok := payload.(validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("fanout: reject publish on %s: %w", topic, err)
		}
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, 8)
	for userID := range b.rooms[topic] {
		if h, ok := b.conns[userID]; ok {
			handlers = append(handlers, h)
		}
	}
	if isGameTopic(topic) {
		for _, h := range b.taps {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	// Deliveries outlive the publishing request.
	deliveryCtx := context.WithoutCancel(ctx)
	for _, h := range handlers {
		h := h
		err := b.pool.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("fanout handler panicked", "topic", topic, "panic", r)
				}
			}()
			h(deliveryCtx, topic, payload)
		})
		if err != nil {
			b.logger.ErrorContext(ctx, "fanout submit failed", "topic", topic, "error", err)
		}
	}

	return nil
}

// Close stops accepting publishes and releases the worker pool.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.conns = map[string]Handler{}
	b.rooms = map[string]map[string]bool{}
	b.taps = map[string]Handler{}
	b.mu.Unlock()

	b.pool.Release()
}

func isGameTopic(topic string) bool {
	return len(topic) > 5 && topic[:5] == "game:"
}
