package usecase

import (
	"testing"
	"time"

	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/domain/notification"
	"github.com/sportifyhq/roster/internal/infrastructure/repository/memory"
)

func TestReminderService_Sweep_WindowAndDedupe(t *testing.T) {
	games := memory.NewGameRepository(nil)
	records := memory.NewNotificationRepository(100)
	bus := newRecordingBus()

	now := time.Date(2026, 9, 6, 9, 30, 0, 0, time.UTC)

	notifSvc := NewNotificationService(records, bus, nil, &seqIDGenerator{prefix: "notif"}, testLogger())
	notifSvc.now = func() time.Time { return now }

	roster := NewRosterService(games, memory.NewMessageRepository(), bus, nil, nil, &seqIDGenerator{prefix: "game"}, testLogger())
	roster.now = func() time.Time { return now }

	// Starts in 30 minutes: inside the 1h lead window.
	soon := createTestGameAt(t, roster, "user-1", "2026-09-06", "10:00")
	if _, err := roster.JoinGame(t.Context(), soon.ID, "user-2"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	// Starts tomorrow: outside the window.
	createTestGameAt(t, roster, "user-3", "2026-09-07", "10:00")

	svc, err := NewReminderService(games, notifSvc, 2, time.Minute, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("new reminder service failed: %v", err)
	}
	svc.now = func() time.Time { return now }

	svc.Sweep(t.Context())
	waitForReminders(t, records, "user-1", 1)
	waitForReminders(t, records, "user-2", 1)

	if recs, _ := records.ListByRecipient(t.Context(), "user-3"); len(recs) != 0 {
		t.Fatalf("game outside the lead window must not produce reminders")
	}

	// A second sweep must not duplicate reminders.
	svc.Sweep(t.Context())
	time.Sleep(50 * time.Millisecond)
	if recs, _ := records.ListByRecipient(t.Context(), "user-1"); len(recs) != 1 {
		t.Fatalf("expected reminder deduped across sweeps, got %d", len(recs))
	}
}

func createTestGameAt(t *testing.T, svc *RosterService, organizer, date, clock string) game.Game {
	t.Helper()

	g, err := svc.CreateGame(t.Context(), CreateGameInput{
		Title:        "Reminder Game by " + organizer,
		Sport:        "Football",
		Date:         date,
		Time:         clock,
		Location:     "Central Park",
		TotalPlayers: 10,
		OrganizerID:  organizer,
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	return g
}

func waitForReminders(t *testing.T, records *memory.NotificationRepository, userID string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		recs, err := records.ListByRecipient(t.Context(), userID)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(recs) >= want {
			for _, rec := range recs {
				if rec.Kind != notification.KindReminder {
					t.Fatalf("expected reminder kind, got %s", rec.Kind)
				}
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d reminder(s) for %s, have %d", want, userID, len(recs))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
