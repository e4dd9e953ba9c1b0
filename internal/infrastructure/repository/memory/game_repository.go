package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sportifyhq/roster/internal/domain/game"
)

// GameRepository is the authoritative in-memory game store. Mutations run
// under a single write lock so the roster invariants hold atomically; reads
// return clones so callers can never alias internal state.
type GameRepository struct {
	mu     sync.RWMutex
	items  map[string]game.Game
	orders []string
}

func NewGameRepository(games []game.Game) *GameRepository {
	items := make(map[string]game.Game, len(games))
	orders := make([]string, 0, len(games))

	for _, g := range games {
		items[g.ID] = g.Clone()
		orders = append(orders, g.ID)
	}

	return &GameRepository{
		items:  items,
		orders: orders,
	}
}

func (r *GameRepository) Insert(_ context.Context, g game.Game) error {
	if err := g.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[g.ID]; ok {
		return fmt.Errorf("%w: id %s already stored", game.ErrDuplicateGame, g.ID)
	}

	key := g.IdentityKey()
	for _, existing := range r.items {
		if existing.Status == game.StatusActive && existing.IdentityKey() == key {
			return fmt.Errorf("%w: same title, sport, date, time and location as game %s", game.ErrDuplicateGame, existing.ID)
		}
	}

	r.items[g.ID] = g.Clone()
	r.orders = append(r.orders, g.ID)

	return nil
}

func (r *GameRepository) GetByID(_ context.Context, id string) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.items[id]
	if !ok {
		return game.Game{}, false, nil
	}

	return g.Clone(), true, nil
}

func (r *GameRepository) Join(_ context.Context, gameID, userID string) (game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[gameID]
	if !ok {
		return game.Game{}, game.ErrNotFound
	}
	if g.Status == game.StatusCancelled {
		return game.Game{}, game.ErrGameCancelled
	}
	if g.HasParticipant(userID) {
		return game.Game{}, game.ErrAlreadyJoined
	}
	if len(g.Participants) >= g.TotalPlayers {
		return game.Game{}, game.ErrGameFull
	}

	next := g.Clone()
	next.Participants = append(next.Participants, userID)
	next.PlayersNeeded = game.PlayersNeededFor(next.TotalPlayers, len(next.Participants))

	r.items[gameID] = next

	return next.Clone(), nil
}

// Leave removes the user from the roster. The organizer leaving soft-cancels
// the game instead of removing them; the caller sees the cancelled snapshot.
func (r *GameRepository) Leave(_ context.Context, gameID, userID string) (game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[gameID]
	if !ok {
		return game.Game{}, game.ErrNotFound
	}
	if g.Status == game.StatusCancelled {
		return game.Game{}, game.ErrGameCancelled
	}
	if !g.HasParticipant(userID) {
		return game.Game{}, game.ErrNotParticipant
	}

	next := g.Clone()
	if userID == g.Organizer {
		next.Status = game.StatusCancelled
		r.items[gameID] = next
		return next.Clone(), nil
	}

	participants := next.Participants[:0]
	for _, p := range next.Participants {
		if p != userID {
			participants = append(participants, p)
		}
	}
	next.Participants = participants
	next.PlayersNeeded = game.PlayersNeededFor(next.TotalPlayers, len(next.Participants))

	r.items[gameID] = next

	return next.Clone(), nil
}

func (r *GameRepository) Update(_ context.Context, gameID string, p game.Patch, requesterID string) (game.Game, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[gameID]
	if !ok {
		return game.Game{}, nil, game.ErrNotFound
	}
	if requesterID != g.Organizer {
		return game.Game{}, nil, game.ErrNotOrganizer
	}
	if g.Status == game.StatusCancelled {
		return game.Game{}, nil, game.ErrGameCancelled
	}

	next, changed, err := g.Apply(p)
	if err != nil {
		return game.Game{}, nil, err
	}

	r.items[gameID] = next

	return next.Clone(), changed, nil
}

func (r *GameRepository) Cancel(_ context.Context, gameID, requesterID string) (game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[gameID]
	if !ok {
		return game.Game{}, game.ErrNotFound
	}
	if requesterID != g.Organizer {
		return game.Game{}, game.ErrNotOrganizer
	}
	if g.Status == game.StatusCancelled {
		return game.Game{}, game.ErrGameCancelled
	}

	next := g.Clone()
	next.Status = game.StatusCancelled

	r.items[gameID] = next

	return next.Clone(), nil
}

func (r *GameRepository) Delete(_ context.Context, gameID, requesterID string) (game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[gameID]
	if !ok {
		return game.Game{}, game.ErrNotFound
	}
	if requesterID != g.Organizer {
		return game.Game{}, game.ErrNotOrganizer
	}

	delete(r.items, gameID)
	for i, id := range r.orders {
		if id == gameID {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			break
		}
	}

	return g.Clone(), nil
}

func (r *GameRepository) Search(_ context.Context, f game.Filters) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Game, 0, len(r.orders))
	for _, id := range r.orders {
		g := r.items[id]
		if !matches(g, f) {
			continue
		}
		out = append(out, g.Clone())
	}

	// Ascending schedule order; insertion order breaks ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortInstant().Before(out[j].SortInstant())
	})

	return out, nil
}

func matches(g game.Game, f game.Filters) bool {
	if g.Status != game.StatusActive {
		return false
	}
	if f.Sport != "" && !strings.EqualFold(g.Sport, f.Sport) {
		return false
	}
	if f.Date != "" && g.Date != f.Date {
		return false
	}
	if f.SkillLevel != "" && f.SkillLevel != game.SkillAny {
		if g.SkillLevel != f.SkillLevel && g.SkillLevel != game.SkillAny {
			return false
		}
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(g.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.AvailableOnly && g.PlayersNeeded == 0 {
		return false
	}
	if f.Center != nil && f.RadiusKm > 0 && !g.WithinRadiusKm(*f.Center, f.RadiusKm) {
		return false
	}
	return true
}

func (r *GameRepository) ListByUser(_ context.Context, userID string) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Game, 0)
	for _, id := range r.orders {
		g := r.items[id]
		if g.Organizer == userID || g.HasParticipant(userID) {
			out = append(out, g.Clone())
		}
	}

	return out, nil
}

func (r *GameRepository) ListAll(_ context.Context) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Game, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id].Clone())
	}

	return out, nil
}

func (r *GameRepository) ReplaceAll(_ context.Context, games []game.Game) error {
	items := make(map[string]game.Game, len(games))
	orders := make([]string, 0, len(games))
	for _, g := range games {
		if err := g.Validate(); err != nil {
			return err
		}
		if _, ok := items[g.ID]; ok {
			return fmt.Errorf("%w: id %s repeated in snapshot", game.ErrDuplicateGame, g.ID)
		}
		items[g.ID] = g.Clone()
		orders = append(orders, g.ID)
	}

	r.mu.Lock()
	r.items = items
	r.orders = orders
	r.mu.Unlock()

	return nil
}
