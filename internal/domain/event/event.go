package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/sportifyhq/roster/internal/domain/game"
)

var ErrMalformed = errors.New("malformed event")

// Kind is the closed set of roster event variants. Anything outside this
// set is rejected at publish time.
type Kind string

const (
	KindGameCreated   Kind = "game_created"
	KindPlayerJoined  Kind = "player_joined"
	KindPlayerLeft    Kind = "player_left"
	KindGameUpdated   Kind = "game_updated"
	KindGameCancelled Kind = "game_cancelled"
	KindNewMessage    Kind = "new_message"
	KindReminder      Kind = "reminder"
)

// Delta carries the kind-specific payload. Only the fields relevant to the
// event's kind are set.
type Delta struct {
	JoinedUserID  string
	LeftUserID    string
	ChangedFields []string
	MessageID     string
	MessageText   string
}

// Event is an immutable fact about a roster mutation, carrying a full game
// snapshot so consumers never read back through the store.
type Event struct {
	Kind         Kind
	GameID       string
	Game         game.Game
	ActingUserID string
	Delta        Delta
	OccurredAt   time.Time
}

// Validate enforces the closed variant set and the per-kind payload shape.
func (e Event) Validate() error {
	if e.GameID == "" {
		return fmt.Errorf("%w: missing game id", ErrMalformed)
	}
	if e.Game.ID != e.GameID {
		return fmt.Errorf("%w: snapshot id %q does not match event game id %q", ErrMalformed, e.Game.ID, e.GameID)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurrence time", ErrMalformed)
	}
	switch e.Kind {
	case KindGameCreated, KindGameCancelled, KindReminder:
		// snapshot-only variants
	case KindPlayerJoined:
		if e.Delta.JoinedUserID == "" {
			return fmt.Errorf("%w: player_joined without joined user", ErrMalformed)
		}
	case KindPlayerLeft:
		if e.Delta.LeftUserID == "" {
			return fmt.Errorf("%w: player_left without departed user", ErrMalformed)
		}
	case KindGameUpdated:
		if len(e.Delta.ChangedFields) == 0 {
			return fmt.Errorf("%w: game_updated without changed fields", ErrMalformed)
		}
	case KindNewMessage:
		if e.Delta.MessageID == "" || e.Delta.MessageText == "" {
			return fmt.Errorf("%w: new_message without message payload", ErrMalformed)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformed, e.Kind)
	}
	return nil
}
