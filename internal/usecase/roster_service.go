package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sportifyhq/roster/internal/domain/event"
	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/domain/message"
	"github.com/sportifyhq/roster/internal/platform/cache"
	"github.com/sportifyhq/roster/internal/platform/fanout"
	idgen "github.com/sportifyhq/roster/internal/platform/id"
	"github.com/sportifyhq/roster/internal/platform/resilience"
)

const searchCachePrefix = "games:search:"

// EventBus is the slice of the fanout bus the coordinator drives: publishing
// roster events and keeping game-room memberships in sync with rosters.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
	JoinRoom(topic, userID string)
	LeaveRoom(topic, userID string)
	DropRoom(topic string)
}

// GameSnapshotWriter persists the full game collection after mutations.
// Best-effort: a failing writer never fails the mutation.
type GameSnapshotWriter interface {
	SaveGames(ctx context.Context, games []game.Game) error
}

// CreateGameInput is the organizer-supplied payload for a new game.
type CreateGameInput struct {
	Title        string
	Sport        string
	Date         string
	Time         string
	Location     string
	Latitude     *float64
	Longitude    *float64
	TotalPlayers int
	SkillLevel   string
	OrganizerID  string
}

// UpdateGameInput carries the organizer's patch; nil fields stay unchanged.
type UpdateGameInput struct {
	Title        *string
	Sport        *string
	Date         *string
	Time         *string
	Location     *string
	SkillLevel   *string
	TotalPlayers *int
	Latitude     *float64
	Longitude    *float64
	RequesterID  string
}

// RosterService coordinates every game mutation: per-game critical sections,
// exactly one validated event per successful mutation, room membership
// upkeep, search caching and best-effort snapshot persistence.
type RosterService struct {
	games     game.Repository
	messages  message.Repository
	bus       EventBus
	locks     *resilience.KeyedMutex
	cache     *cache.Store
	snapshots GameSnapshotWriter
	idGen     idgen.Generator
	logger    *slog.Logger
	now       func() time.Time
}

func NewRosterService(
	games game.Repository,
	messages message.Repository,
	bus EventBus,
	searchCache *cache.Store,
	snapshots GameSnapshotWriter,
	idGen idgen.Generator,
	logger *slog.Logger,
) *RosterService {
	if logger == nil {
		logger = slog.Default()
	}

	return &RosterService{
		games:     games,
		messages:  messages,
		bus:       bus,
		locks:     resilience.NewKeyedMutex(),
		cache:     searchCache,
		snapshots: snapshots,
		idGen:     idGen,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *RosterService) CreateGame(ctx context.Context, input CreateGameInput) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "RosterService.CreateGame")
	defer span.End()

	input.OrganizerID = strings.TrimSpace(input.OrganizerID)
	if input.OrganizerID == "" {
		return game.Game{}, fmt.Errorf("%w: organizer id is required", ErrInvalidInput)
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return game.Game{}, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidInput)
	}

	var coords *game.Coordinates
	if input.Latitude != nil {
		coords = &game.Coordinates{Latitude: *input.Latitude, Longitude: *input.Longitude}
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return game.Game{}, fmt.Errorf("generate game id: %w", err)
	}

	g, err := game.New(game.CreateSpec{
		Title:        input.Title,
		Sport:        input.Sport,
		Date:         input.Date,
		Time:         input.Time,
		Location:     input.Location,
		Coordinates:  coords,
		Organizer:    input.OrganizerID,
		TotalPlayers: input.TotalPlayers,
		SkillLevel:   input.SkillLevel,
	}, id, s.now())
	if err != nil {
		return game.Game{}, err
	}

	if err := s.games.Insert(ctx, g); err != nil {
		return game.Game{}, err
	}

	s.bus.JoinRoom(fanout.GameTopic(g.ID), g.Organizer)
	s.emit(ctx, event.KindGameCreated, g, g.Organizer, event.Delta{})
	s.afterMutation(ctx)

	s.logger.InfoContext(ctx, "game created", "gameID", g.ID, "sport", g.Sport, "organizer", g.Organizer)

	return g, nil
}

func (s *RosterService) GetGame(ctx context.Context, gameID string) (game.Game, error) {
	g, ok, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return game.Game{}, fmt.Errorf("get game: %w", err)
	}
	if !ok {
		return game.Game{}, game.ErrNotFound
	}
	return g, nil
}

func (s *RosterService) JoinGame(ctx context.Context, gameID, userID string) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "RosterService.JoinGame")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return game.Game{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	unlock := s.locks.Lock(gameID)
	defer unlock()

	g, err := s.games.Join(ctx, gameID, userID)
	if err != nil {
		return game.Game{}, err
	}

	s.bus.JoinRoom(fanout.GameTopic(gameID), userID)
	s.emit(ctx, event.KindPlayerJoined, g, userID, event.Delta{JoinedUserID: userID})
	s.afterMutation(ctx)

	return g, nil
}

// LeaveGame removes the user from the roster. The organizer leaving cancels
// the game; the emitted event reflects which of the two happened.
func (s *RosterService) LeaveGame(ctx context.Context, gameID, userID string) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "RosterService.LeaveGame")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return game.Game{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	unlock := s.locks.Lock(gameID)
	defer unlock()

	g, err := s.games.Leave(ctx, gameID, userID)
	if err != nil {
		return game.Game{}, err
	}

	if g.Status == game.StatusCancelled {
		s.emit(ctx, event.KindGameCancelled, g, userID, event.Delta{})
	} else {
		s.emit(ctx, event.KindPlayerLeft, g, userID, event.Delta{LeftUserID: userID})
		s.bus.LeaveRoom(fanout.GameTopic(gameID), userID)
	}
	s.afterMutation(ctx)

	return g, nil
}

func (s *RosterService) UpdateGame(ctx context.Context, gameID string, input UpdateGameInput) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "RosterService.UpdateGame")
	defer span.End()

	input.RequesterID = strings.TrimSpace(input.RequesterID)
	if input.RequesterID == "" {
		return game.Game{}, fmt.Errorf("%w: requester id is required", ErrInvalidInput)
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return game.Game{}, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidInput)
	}

	patch := game.Patch{
		Title:        input.Title,
		Sport:        input.Sport,
		Date:         input.Date,
		Time:         input.Time,
		Location:     input.Location,
		SkillLevel:   input.SkillLevel,
		TotalPlayers: input.TotalPlayers,
	}
	if input.Latitude != nil {
		patch.Coordinates = &game.Coordinates{Latitude: *input.Latitude, Longitude: *input.Longitude}
	}

	unlock := s.locks.Lock(gameID)
	defer unlock()

	g, changed, err := s.games.Update(ctx, gameID, patch, input.RequesterID)
	if err != nil {
		return game.Game{}, err
	}

	if len(changed) > 0 {
		s.emit(ctx, event.KindGameUpdated, g, input.RequesterID, event.Delta{ChangedFields: changed})
		s.afterMutation(ctx)
	}

	return g, nil
}

func (s *RosterService) CancelGame(ctx context.Context, gameID, requesterID string) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "RosterService.CancelGame")
	defer span.End()

	unlock := s.locks.Lock(gameID)
	defer unlock()

	g, err := s.games.Cancel(ctx, gameID, requesterID)
	if err != nil {
		return game.Game{}, err
	}

	s.emit(ctx, event.KindGameCancelled, g, requesterID, event.Delta{})
	s.afterMutation(ctx)

	s.logger.InfoContext(ctx, "game cancelled", "gameID", gameID, "organizer", requesterID)

	return g, nil
}

// DeleteGame hard-deletes a game. The cancellation event goes out before the
// room is dropped so current members hear about it.
func (s *RosterService) DeleteGame(ctx context.Context, gameID, requesterID string) error {
	ctx, span := startUsecaseSpan(ctx, "RosterService.DeleteGame")
	defer span.End()

	unlock := s.locks.Lock(gameID)
	defer unlock()

	g, err := s.games.Delete(ctx, gameID, requesterID)
	if err != nil {
		return err
	}

	g.Status = game.StatusCancelled
	s.emit(ctx, event.KindGameCancelled, g, requesterID, event.Delta{})
	s.bus.DropRoom(fanout.GameTopic(gameID))

	if err := s.messages.DeleteByGame(ctx, gameID); err != nil {
		s.logger.WarnContext(ctx, "delete game chat history", "gameID", gameID, "error", err)
	}
	s.afterMutation(ctx)

	s.logger.InfoContext(ctx, "game deleted", "gameID", gameID, "organizer", requesterID)

	return nil
}

func (s *RosterService) SearchGames(ctx context.Context, f game.Filters) ([]game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "RosterService.SearchGames")
	defer span.End()

	if s.cache == nil {
		return s.games.Search(ctx, f)
	}

	value, err := s.cache.GetOrLoad(ctx, searchCacheKey(f), func(ctx context.Context) (any, error) {
		return s.games.Search(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	games, ok := value.([]game.Game)
	if !ok {
		return s.games.Search(ctx, f)
	}
	return games, nil
}

// ListUserGames returns the user's upcoming active games, soonest first.
func (s *RosterService) ListUserGames(ctx context.Context, userID string) ([]game.Game, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	games, err := s.games.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list games by user: %w", err)
	}

	now := s.now()
	out := make([]game.Game, 0, len(games))
	for _, g := range games {
		if g.Status == game.StatusActive && g.StartsAfter(now) {
			out = append(out, g)
		}
	}

	return out, nil
}

// SeedRooms rebuilds game-room memberships from the stored rosters, used on
// startup after a snapshot restore.
func (s *RosterService) SeedRooms(ctx context.Context) error {
	games, err := s.games.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list games for room seed: %w", err)
	}

	for _, g := range games {
		if g.Status != game.StatusActive {
			continue
		}
		for _, p := range g.Participants {
			s.bus.JoinRoom(fanout.GameTopic(g.ID), p)
		}
	}

	return nil
}

func (s *RosterService) emit(ctx context.Context, kind event.Kind, g game.Game, actor string, delta event.Delta) {
	evt := event.Event{
		Kind:         kind,
		GameID:       g.ID,
		Game:         g,
		ActingUserID: actor,
		Delta:        delta,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.bus.Publish(ctx, fanout.GameTopic(g.ID), evt); err != nil {
		s.logger.ErrorContext(ctx, "publish roster event", "kind", string(kind), "gameID", g.ID, "error", err)
	}
}

func (s *RosterService) afterMutation(ctx context.Context) {
	if s.cache != nil {
		s.cache.DeletePrefix(ctx, searchCachePrefix)
	}
	if s.snapshots == nil {
		return
	}

	games, err := s.games.ListAll(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot list games", "error", err)
		return
	}
	if err := s.snapshots.SaveGames(ctx, games); err != nil {
		s.logger.WarnContext(ctx, "snapshot save games", "error", err)
	}
}

func searchCacheKey(f game.Filters) string {
	var b strings.Builder
	b.WriteString(searchCachePrefix)
	b.WriteString(strings.ToLower(f.Sport))
	b.WriteByte('|')
	b.WriteString(f.Date)
	b.WriteByte('|')
	b.WriteString(string(f.SkillLevel))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(f.Location))
	b.WriteByte('|')
	if f.AvailableOnly {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	if f.Center != nil && f.RadiusKm > 0 {
		fmt.Fprintf(&b, "|%.6f,%.6f,%.2f", f.Center.Latitude, f.Center.Longitude, f.RadiusKm)
	}
	return b.String()
}
