package memory

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sportifyhq/roster/internal/domain/notification"
)

func TestNotificationRepository_RetentionCapPrunesOldest(t *testing.T) {
	repo := NewNotificationRepository(3)
	ctx := t.Context()

	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := notification.Record{
			ID:          fmt.Sprintf("n-%d", i),
			RecipientID: "user-1",
			Kind:        notification.KindGameUpdate,
			Title:       "Game Updated",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, err := repo.ListByRecipient(ctx, "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 retained records, got %d", len(records))
	}
	// Newest first, oldest two pruned.
	if records[0].ID != "n-4" || records[2].ID != "n-2" {
		t.Fatalf("unexpected retention window: %s .. %s", records[0].ID, records[2].ID)
	}

	if _, ok, _ := repo.GetByID(ctx, "n-0"); ok {
		t.Fatalf("pruned record n-0 still retrievable")
	}
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	repo := NewNotificationRepository(10)
	ctx := t.Context()

	rec := notification.Record{ID: "n-1", RecipientID: "user-1", Kind: notification.KindReminder}
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := repo.MarkRead(ctx, "missing", "user-1"); !errors.Is(err, notification.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.MarkRead(ctx, "n-1", "user-2"); !errors.Is(err, notification.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	updated, err := repo.MarkRead(ctx, "n-1", "user-1")
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if !updated.Read {
		t.Fatalf("record should be read")
	}

	count, err := repo.UnreadCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("unread count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}
}
