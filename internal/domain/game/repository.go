package game

import "context"

// Filters narrows a Search call. Zero values mean "no constraint".
type Filters struct {
	Sport         string
	Date          string
	SkillLevel    SkillLevel
	Location      string
	AvailableOnly bool
	Center        *Coordinates
	RadiusKm      float64
}

// Repository is the authoritative game store. Implementations must keep the
// roster invariants intact after every mutation and must leave the store
// unchanged when an operation fails.
type Repository interface {
	// Insert stores a new game. An existing active game with the same
	// identity tuple yields ErrDuplicateGame.
	Insert(ctx context.Context, g Game) error

	// GetByID returns a snapshot of the game, reporting presence explicitly
	// so absence is not an error at this layer.
	GetByID(ctx context.Context, id string) (Game, bool, error)

	// Join appends userID to the roster. Fails with ErrNotFound,
	// ErrGameCancelled, ErrAlreadyJoined or ErrGameFull, checked in that
	// order.
	Join(ctx context.Context, gameID, userID string) (Game, error)

	// Leave removes userID from the roster. The organizer leaving cancels
	// the game instead; callers inspect Status on the returned snapshot.
	Leave(ctx context.Context, gameID, userID string) (Game, error)

	// Update applies an organizer-only patch and returns the new snapshot
	// plus the changed field names.
	Update(ctx context.Context, gameID string, p Patch, requesterID string) (Game, []string, error)

	// Cancel soft-cancels the game, retaining it for history.
	Cancel(ctx context.Context, gameID, requesterID string) (Game, error)

	// Delete removes the game entirely. Organizer-only.
	Delete(ctx context.Context, gameID, requesterID string) (Game, error)

	// Search returns matching active-or-cancelled games ordered by
	// schedule, ties by insertion order. Cancelled games are excluded
	// unless a filter explicitly asks otherwise.
	Search(ctx context.Context, f Filters) ([]Game, error)

	// ListByUser returns the games the user organizes or participates in.
	ListByUser(ctx context.Context, userID string) ([]Game, error)

	// ListAll returns every stored game, used for snapshots and seeding.
	ListAll(ctx context.Context) ([]Game, error)

	// ReplaceAll swaps the entire store contents, used on startup restore.
	ReplaceAll(ctx context.Context, games []Game) error
}
