package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/sourcegraph/conc"

	"github.com/sportifyhq/roster/internal/domain/event"
	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/domain/notification"
	"github.com/sportifyhq/roster/internal/platform/fanout"
	idgen "github.com/sportifyhq/roster/internal/platform/id"
)

// PushSender forwards a created record to an external push channel so
// offline users can still be reached. Best-effort.
type PushSender interface {
	Send(ctx context.Context, rec notification.Record) error
}

// NotificationService projects roster events into per-recipient
// notification records. It is wired as a wildcard tap on the fanout bus and
// republishes each created record on the recipient's user topic.
type NotificationService struct {
	records notification.Repository
	bus     EventBus
	push    PushSender
	idGen   idgen.Generator
	logger  *slog.Logger
	now     func() time.Time
}

func NewNotificationService(
	records notification.Repository,
	bus EventBus,
	push PushSender,
	idGen idgen.Generator,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}

	return &NotificationService{
		records: records,
		bus:     bus,
		push:    push,
		idGen:   idGen,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleEvent is the bus tap. Payloads that are not roster events are
// ignored; a failing recipient never blocks the others.
func (s *NotificationService) HandleEvent(ctx context.Context, _ string, payload any) {
	evt, ok := payload.(event.Event)
	if !ok {
		return
	}

	recipients := recipientsFor(evt)
	if len(recipients) == 0 {
		return
	}

	var wg conc.WaitGroup
	for _, recipientID := range recipients {
		recipientID := recipientID
		wg.Go(func() {
			if err := s.createRecord(ctx, evt, recipientID); err != nil {
				s.logger.ErrorContext(ctx, "project notification",
					"kind", string(evt.Kind), "gameID", evt.GameID, "recipient", recipientID, "error", err)
			}
		})
	}
	wg.Wait()
}

// recipientsFor derives who gets notified for each event kind.
func recipientsFor(evt event.Event) []string {
	switch evt.Kind {
	case event.KindPlayerJoined, event.KindPlayerLeft:
		if evt.Game.Organizer == evt.ActingUserID {
			return nil
		}
		return []string{evt.Game.Organizer}
	case event.KindGameUpdated, event.KindNewMessage:
		out := make([]string, 0, len(evt.Game.Participants))
		for _, p := range evt.Game.Participants {
			if p != evt.ActingUserID {
				out = append(out, p)
			}
		}
		return out
	case event.KindGameCancelled:
		return append([]string(nil), evt.Game.Participants...)
	default:
		return nil
	}
}

func (s *NotificationService) createRecord(ctx context.Context, evt event.Event, recipientID string) error {
	id, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate notification id: %w", err)
	}

	title, body := describe(evt)
	rec := notification.Record{
		ID:          id,
		RecipientID: recipientID,
		Kind:        kindFor(evt.Kind),
		GameID:      evt.GameID,
		Title:       title,
		Body:        body,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.records.Insert(ctx, rec); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	s.deliver(ctx, rec)

	return nil
}

// CreateReminder stores and delivers a reminder record for an upcoming game.
func (s *NotificationService) CreateReminder(ctx context.Context, g game.Game, recipientID string) error {
	id, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate notification id: %w", err)
	}

	rec := notification.Record{
		ID:          id,
		RecipientID: recipientID,
		Kind:        notification.KindReminder,
		GameID:      g.ID,
		Title:       "Game Reminder",
		Body:        fmt.Sprintf("%q starts at %s on %s", g.Title, g.Time, g.Date),
		CreatedAt:   s.now().UTC(),
	}

	if err := s.records.Insert(ctx, rec); err != nil {
		return fmt.Errorf("store reminder: %w", err)
	}

	s.deliver(ctx, rec)

	return nil
}

// deliver pushes the record to the recipient's live channel and, when
// configured, to the external push webhook.
func (s *NotificationService) deliver(ctx context.Context, rec notification.Record) {
	if err := s.bus.Publish(ctx, fanout.UserTopic(rec.RecipientID), rec); err != nil {
		s.logger.WarnContext(ctx, "publish notification", "recipient", rec.RecipientID, "error", err)
	}

	if s.push == nil {
		return
	}
	if err := s.push.Send(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "push notification", "recipient", rec.RecipientID, "error", err)
	}
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) (notification.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "NotificationService.MarkRead")
	defer span.End()

	rec, err := s.records.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return notification.Record{}, err
	}

	return rec, nil
}

// ListFor returns the user's notifications newest-first.
func (s *NotificationService) ListFor(ctx context.Context, userID string) ([]notification.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "NotificationService.ListFor")
	defer span.End()

	records, err := s.records.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return records, nil
}

func (s *NotificationService) UnreadCountFor(ctx context.Context, userID string) (int, error) {
	count, err := s.records.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

func kindFor(k event.Kind) notification.Kind {
	switch k {
	case event.KindPlayerJoined:
		return notification.KindPlayerJoined
	case event.KindPlayerLeft:
		return notification.KindPlayerLeft
	case event.KindGameUpdated:
		return notification.KindGameUpdate
	case event.KindNewMessage:
		return notification.KindNewMessage
	case event.KindGameCancelled:
		return notification.KindGameCancelled
	default:
		return notification.KindGameUpdate
	}
}

func describe(evt event.Event) (title, body string) {
	switch evt.Kind {
	case event.KindPlayerJoined:
		return "New Player Joined", fmt.Sprintf("%s joined your game %q", evt.ActingUserID, evt.Game.Title)
	case event.KindPlayerLeft:
		return "Player Left", fmt.Sprintf("%s left your game %q", evt.ActingUserID, evt.Game.Title)
	case event.KindGameUpdated:
		return "Game Updated", fmt.Sprintf("%q has been updated", evt.Game.Title)
	case event.KindNewMessage:
		return "New Message", fmt.Sprintf("%s: %s", evt.ActingUserID, truncate(evt.Delta.MessageText, 50))
	case event.KindGameCancelled:
		return "Game Cancelled", fmt.Sprintf("%q has been cancelled", evt.Game.Title)
	default:
		return "Game Update", fmt.Sprintf("%q changed", evt.Game.Title)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
