package message

import (
	"context"
	"time"
)

// Message is one chat entry in a game's room, kept in insertion order.
type Message struct {
	ID        string
	GameID    string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, m Message) error
	// ListByGame returns the room history oldest-first.
	ListByGame(ctx context.Context, gameID string) ([]Message, error)
	// DeleteByGame clears the room when its game is removed.
	DeleteByGame(ctx context.Context, gameID string) error
}
