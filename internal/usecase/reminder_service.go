package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/sportifyhq/roster/internal/domain/game"
)

// ReminderService periodically sweeps upcoming games and creates one
// reminder notification per participant per game, at most once.
type ReminderService struct {
	games         game.Repository
	notifications *NotificationService
	pool          *ants.Pool
	interval      time.Duration
	lead          time.Duration
	logger        *slog.Logger
	now           func() time.Time

	mu   sync.Mutex
	sent map[string]bool // gameID|userID
}

func NewReminderService(
	games game.Repository,
	notifications *NotificationService,
	workers int,
	interval, lead time.Duration,
	logger *slog.Logger,
) (*ReminderService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 8
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if lead <= 0 {
		lead = time.Hour
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create reminder pool: %w", err)
	}

	return &ReminderService{
		games:         games,
		notifications: notifications,
		pool:          pool,
		interval:      interval,
		lead:          lead,
		logger:        logger,
		now:           time.Now,
		sent:          make(map[string]bool),
	}, nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *ReminderService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.pool.Release()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep creates reminders for active games starting within the lead window.
func (s *ReminderService) Sweep(ctx context.Context) {
	games, err := s.games.ListAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "reminder sweep list games", "error", err)
		return
	}

	now := s.now().UTC()
	deadline := now.Add(s.lead)

	for _, g := range games {
		if g.Status != game.StatusActive {
			continue
		}
		start := g.SortInstant()
		if !start.After(now) || start.After(deadline) {
			continue
		}

		for _, participant := range g.Participants {
			key := g.ID + "|" + participant
			s.mu.Lock()
			already := s.sent[key]
			if !already {
				s.sent[key] = true
			}
			s.mu.Unlock()
			if already {
				continue
			}

			g, participant := g, participant
			if err := s.pool.Submit(func() {
				if err := s.notifications.CreateReminder(ctx, g, participant); err != nil {
					s.logger.ErrorContext(ctx, "create reminder",
						"gameID", g.ID, "recipient", participant, "error", err)
				}
			}); err != nil {
				s.logger.ErrorContext(ctx, "submit reminder", "gameID", g.ID, "error", err)
			}
		}
	}
}
