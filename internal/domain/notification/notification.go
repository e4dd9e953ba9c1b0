package notification

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("notification not found")
	ErrNotOwner = errors.New("notification belongs to another user")
)

// Kind mirrors the roster event kinds a user can be notified about.
type Kind string

const (
	KindGameUpdate    Kind = "game_update"
	KindPlayerJoined  Kind = "player_joined"
	KindPlayerLeft    Kind = "player_left"
	KindNewMessage    Kind = "new_message"
	KindReminder      Kind = "reminder"
	KindGameCancelled Kind = "game_cancelled"
)

// Record is a per-recipient notification, created unread.
type Record struct {
	ID          string
	RecipientID string
	Kind        Kind
	GameID      string
	Title       string
	Body        string
	Read        bool
	CreatedAt   time.Time
}

// Repository stores notification records with a per-recipient retention cap,
// pruning oldest-first when the cap is exceeded.
type Repository interface {
	Insert(ctx context.Context, r Record) error
	GetByID(ctx context.Context, id string) (Record, bool, error)
	// MarkRead flips the read flag; ErrNotFound if absent, ErrNotOwner if
	// the record belongs to someone other than userID.
	MarkRead(ctx context.Context, id, userID string) (Record, error)
	// ListByRecipient returns the recipient's records newest-first.
	ListByRecipient(ctx context.Context, userID string) ([]Record, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	ListAll(ctx context.Context) ([]Record, error)
	ReplaceAll(ctx context.Context, records []Record) error
}
