package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sportifyhq/roster/internal/domain/event"
	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/infrastructure/repository/memory"
)

type seqIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (g *seqIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%03d", g.prefix, g.next), nil
}

type published struct {
	topic   string
	payload any
}

// recordingBus captures publishes and room churn synchronously so tests can
// assert on exact event sequences.
type recordingBus struct {
	mu        sync.Mutex
	published []published
	rooms     map[string]map[string]bool
	dropped   []string
}

func newRecordingBus() *recordingBus {
	return &recordingBus{rooms: make(map[string]map[string]bool)}
}

func (b *recordingBus) Publish(_ context.Context, topic string, payload any) error {
	if evt, ok := payload.(event.Event); ok {
		if err := evt.Validate(); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{topic: topic, payload: payload})
	return nil
}

func (b *recordingBus) JoinRoom(topic, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rooms[topic] == nil {
		b.rooms[topic] = make(map[string]bool)
	}
	b.rooms[topic][userID] = true
}

func (b *recordingBus) LeaveRoom(topic, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rooms[topic] != nil {
		delete(b.rooms[topic], userID)
	}
}

func (b *recordingBus) DropRoom(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms, topic)
	b.dropped = append(b.dropped, topic)
}

func (b *recordingBus) events() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.Event, 0, len(b.published))
	for _, p := range b.published {
		if evt, ok := p.payload.(event.Event); ok {
			out = append(out, evt)
		}
	}
	return out
}

func (b *recordingBus) inRoom(topic, userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rooms[topic][userID]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRosterFixture(t *testing.T) (*RosterService, *recordingBus, *memory.GameRepository) {
	t.Helper()

	games := memory.NewGameRepository(nil)
	messages := memory.NewMessageRepository()
	bus := newRecordingBus()

	svc := NewRosterService(games, messages, bus, nil, nil, &seqIDGenerator{prefix: "game"}, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }

	return svc, bus, games
}

func createTestGame(t *testing.T, svc *RosterService, organizer string, total int) game.Game {
	t.Helper()

	g, err := svc.CreateGame(t.Context(), CreateGameInput{
		Title:        fmt.Sprintf("Pickup by %s", organizer),
		Sport:        "Football",
		Date:         "2026-09-06",
		Time:         "10:00",
		Location:     "Central Park",
		TotalPlayers: total,
		OrganizerID:  organizer,
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	return g
}

func TestRosterService_CreateGame_EmitsEventAndJoinsRoom(t *testing.T) {
	svc, bus, _ := newRosterFixture(t)

	g := createTestGame(t, svc, "user-1", 10)

	evts := bus.events()
	if len(evts) != 1 || evts[0].Kind != event.KindGameCreated {
		t.Fatalf("expected one game_created event, got %v", evts)
	}
	if evts[0].Game.PlayersNeeded != 9 {
		t.Fatalf("event snapshot should carry the derived roster, got %d", evts[0].Game.PlayersNeeded)
	}
	if !bus.inRoom("game:"+g.ID, "user-1") {
		t.Fatalf("organizer should be in the game room")
	}
}

func TestRosterService_CreateGame_RequiresPairedCoordinates(t *testing.T) {
	svc, _, _ := newRosterFixture(t)

	lat := 40.7
	_, err := svc.CreateGame(t.Context(), CreateGameInput{
		Title:        "Lonely Latitude",
		Sport:        "Football",
		Date:         "2026-09-06",
		Time:         "10:00",
		Location:     "Central Park",
		TotalPlayers: 10,
		OrganizerID:  "user-1",
		Latitude:     &lat,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unpaired coordinates, got %v", err)
	}
}

func TestRosterService_JoinLeave_EventFlow(t *testing.T) {
	svc, bus, _ := newRosterFixture(t)

	g := createTestGame(t, svc, "user-1", 10)

	if _, err := svc.JoinGame(t.Context(), g.ID, "user-2"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if !bus.inRoom("game:"+g.ID, "user-2") {
		t.Fatalf("joined player should be in the game room")
	}

	if _, err := svc.LeaveGame(t.Context(), g.ID, "user-2"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if bus.inRoom("game:"+g.ID, "user-2") {
		t.Fatalf("departed player should be out of the game room")
	}

	evts := bus.events()
	if len(evts) != 3 {
		t.Fatalf("expected created+joined+left, got %d events", len(evts))
	}
	if evts[1].Kind != event.KindPlayerJoined || evts[1].Delta.JoinedUserID != "user-2" {
		t.Fatalf("unexpected join event: %+v", evts[1])
	}
	if evts[2].Kind != event.KindPlayerLeft || evts[2].Delta.LeftUserID != "user-2" {
		t.Fatalf("unexpected leave event: %+v", evts[2])
	}
}

func TestRosterService_OrganizerLeaveEmitsCancellation(t *testing.T) {
	svc, bus, _ := newRosterFixture(t)

	g := createTestGame(t, svc, "user-1", 10)
	if _, err := svc.JoinGame(t.Context(), g.ID, "user-2"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	left, err := svc.LeaveGame(t.Context(), g.ID, "user-1")
	if err != nil {
		t.Fatalf("organizer leave failed: %v", err)
	}
	if left.Status != game.StatusCancelled {
		t.Fatalf("expected cancelled snapshot, got %s", left.Status)
	}

	evts := bus.events()
	last := evts[len(evts)-1]
	if last.Kind != event.KindGameCancelled {
		t.Fatalf("expected game_cancelled, got %s", last.Kind)
	}
	// Members keep their room until they leave themselves.
	if !bus.inRoom("game:"+g.ID, "user-2") {
		t.Fatalf("member should still be in the room after a soft cancel")
	}
}

func TestRosterService_UpdateGame_NoChangeEmitsNothing(t *testing.T) {
	svc, bus, _ := newRosterFixture(t)

	g := createTestGame(t, svc, "user-1", 10)
	before := len(bus.events())

	sameTitle := g.Title
	if _, err := svc.UpdateGame(t.Context(), g.ID, UpdateGameInput{Title: &sameTitle, RequesterID: "user-1"}); err != nil {
		t.Fatalf("no-op update failed: %v", err)
	}
	if got := len(bus.events()); got != before {
		t.Fatalf("no-op update should not emit, got %d new events", got-before)
	}

	newTitle := "Rescheduled Pickup"
	if _, err := svc.UpdateGame(t.Context(), g.ID, UpdateGameInput{Title: &newTitle, RequesterID: "user-1"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	evts := bus.events()
	last := evts[len(evts)-1]
	if last.Kind != event.KindGameUpdated || len(last.Delta.ChangedFields) != 1 || last.Delta.ChangedFields[0] != "title" {
		t.Fatalf("unexpected update event: %+v", last)
	}
}

func TestRosterService_DeleteGame_DropsRoomAndChat(t *testing.T) {
	svc, bus, _ := newRosterFixture(t)

	g := createTestGame(t, svc, "user-1", 10)

	if err := svc.DeleteGame(t.Context(), g.ID, "user-2"); !errors.Is(err, game.ErrNotOrganizer) {
		t.Fatalf("expected ErrNotOrganizer, got %v", err)
	}

	if err := svc.DeleteGame(t.Context(), g.ID, "user-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	evts := bus.events()
	last := evts[len(evts)-1]
	if last.Kind != event.KindGameCancelled {
		t.Fatalf("delete should emit game_cancelled, got %s", last.Kind)
	}
	if len(bus.dropped) != 1 || bus.dropped[0] != "game:"+g.ID {
		t.Fatalf("expected the game room dropped, got %v", bus.dropped)
	}

	if _, err := svc.GetGame(t.Context(), g.ID); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRosterService_ListUserGames_UpcomingActiveOnly(t *testing.T) {
	svc, _, _ := newRosterFixture(t)

	upcoming := createTestGame(t, svc, "user-1", 10)

	past, err := svc.CreateGame(t.Context(), CreateGameInput{
		Title:        "Last Week's Game",
		Sport:        "Football",
		Date:         "2026-08-20",
		Time:         "10:00",
		Location:     "Central Park",
		TotalPlayers: 10,
		OrganizerID:  "user-1",
	})
	if err != nil {
		t.Fatalf("create past game failed: %v", err)
	}

	cancelled := createTestGame(t, svc, "user-2", 10)
	if _, err := svc.JoinGame(t.Context(), cancelled.ID, "user-1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := svc.CancelGame(t.Context(), cancelled.ID, "user-2"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	mine, err := svc.ListUserGames(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != upcoming.ID {
		t.Fatalf("expected only the upcoming active game, got %v", gameIDs(mine))
	}
	_ = past
}

func TestRosterService_SeedRooms_RebuildsActiveMemberships(t *testing.T) {
	svc, _, games := newRosterFixture(t)

	g := createTestGame(t, svc, "user-1", 10)
	if _, err := svc.JoinGame(t.Context(), g.ID, "user-2"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// Simulate a restart: fresh bus, same store.
	fresh := newRecordingBus()
	restarted := NewRosterService(games, memory.NewMessageRepository(), fresh, nil, nil, &seqIDGenerator{prefix: "game"}, testLogger())
	if err := restarted.SeedRooms(t.Context()); err != nil {
		t.Fatalf("seed rooms failed: %v", err)
	}

	if !fresh.inRoom("game:"+g.ID, "user-1") || !fresh.inRoom("game:"+g.ID, "user-2") {
		t.Fatalf("expected both roster members back in the room")
	}
}

func gameIDs(games []game.Game) []string {
	out := make([]string, 0, len(games))
	for _, g := range games {
		out = append(out, g.ID)
	}
	return out
}
