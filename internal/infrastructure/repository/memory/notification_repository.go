package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sportifyhq/roster/internal/domain/notification"
)

const DefaultNotificationCap = 100

// NotificationRepository stores notification records with a per-recipient
// retention cap, pruning oldest records first when a recipient exceeds it.
type NotificationRepository struct {
	mu          sync.RWMutex
	items       map[string]notification.Record
	byRecipient map[string][]string // recipient -> ids, oldest first
	cap         int
}

func NewNotificationRepository(retentionCap int) *NotificationRepository {
	if retentionCap < 1 {
		retentionCap = DefaultNotificationCap
	}
	return &NotificationRepository{
		items:       make(map[string]notification.Record),
		byRecipient: make(map[string][]string),
		cap:         retentionCap,
	}
}

func (r *NotificationRepository) Insert(_ context.Context, rec notification.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[rec.ID] = rec
	ids := append(r.byRecipient[rec.RecipientID], rec.ID)

	for len(ids) > r.cap {
		delete(r.items, ids[0])
		ids = ids[1:]
	}
	r.byRecipient[rec.RecipientID] = ids

	return nil
}

func (r *NotificationRepository) GetByID(_ context.Context, id string) (notification.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.items[id]
	if !ok {
		return notification.Record{}, false, nil
	}

	return rec, true, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id, userID string) (notification.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return notification.Record{}, notification.ErrNotFound
	}
	if rec.RecipientID != userID {
		return notification.Record{}, notification.ErrNotOwner
	}

	rec.Read = true
	r.items[id] = rec

	return rec, nil
}

func (r *NotificationRepository) ListByRecipient(_ context.Context, userID string) ([]notification.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byRecipient[userID]
	out := make([]notification.Record, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.items[ids[i]])
	}

	return out, nil
}

func (r *NotificationRepository) UnreadCount(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, id := range r.byRecipient[userID] {
		if !r.items[id].Read {
			count++
		}
	}

	return count, nil
}

func (r *NotificationRepository) ListAll(_ context.Context) ([]notification.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]notification.Record, 0, len(r.items))
	for _, rec := range r.items {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *NotificationRepository) ReplaceAll(_ context.Context, records []notification.Record) error {
	items := make(map[string]notification.Record, len(records))
	byRecipient := make(map[string][]string)
	for _, rec := range records {
		items[rec.ID] = rec
		byRecipient[rec.RecipientID] = append(byRecipient[rec.RecipientID], rec.ID)
	}

	r.mu.Lock()
	r.items = items
	r.byRecipient = byRecipient
	r.mu.Unlock()

	return nil
}
