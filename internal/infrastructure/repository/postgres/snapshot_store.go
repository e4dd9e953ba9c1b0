package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/domain/notification"
)

// SnapshotStore persists the full game and notification collections as
// pass-through snapshots. It is not a transactional store: each save
// replaces the previous snapshot wholesale.
type SnapshotStore struct {
	db *sqlx.DB
}

func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) SaveGames(ctx context.Context, games []game.Game) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin game snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_snapshots`); err != nil {
		return fmt.Errorf("clear game snapshot: %w", err)
	}

	const insert = `
		INSERT INTO game_snapshots (
			id, title, sport, game_date, game_time, location,
			latitude, longitude, organizer, total_players, players_needed,
			participants, skill_level, status, position, created_at
		) VALUES (
			:id, :title, :sport, :game_date, :game_time, :location,
			:latitude, :longitude, :organizer, :total_players, :players_needed,
			:participants, :skill_level, :status, :position, :created_at
		)`

	for i, g := range games {
		row, err := gameToRow(g, i)
		if err != nil {
			return fmt.Errorf("encode game %s: %w", g.ID, err)
		}
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("insert game snapshot %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game snapshot: %w", err)
	}

	return nil
}

func (s *SnapshotStore) LoadGames(ctx context.Context) ([]game.Game, error) {
	var rows []gameSnapshotRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM game_snapshots ORDER BY position`); err != nil {
		return nil, fmt.Errorf("select game snapshot: %w", err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		g, err := rowToGame(row)
		if err != nil {
			return nil, fmt.Errorf("decode game %s: %w", row.ID, err)
		}
		out = append(out, g)
	}

	return out, nil
}

func (s *SnapshotStore) SaveNotifications(ctx context.Context, records []notification.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notification_snapshots`); err != nil {
		return fmt.Errorf("clear notification snapshot: %w", err)
	}

	const insert = `
		INSERT INTO notification_snapshots (
			id, recipient_id, kind, game_id, title, body, read, created_at
		) VALUES (
			:id, :recipient_id, :kind, :game_id, :title, :body, :read, :created_at
		)`

	for _, rec := range records {
		if _, err := tx.NamedExecContext(ctx, insert, notificationToRow(rec)); err != nil {
			return fmt.Errorf("insert notification snapshot %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification snapshot: %w", err)
	}

	return nil
}

func (s *SnapshotStore) LoadNotifications(ctx context.Context) ([]notification.Record, error) {
	var rows []notificationSnapshotRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM notification_snapshots ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("select notification snapshot: %w", err)
	}

	out := make([]notification.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToNotification(row))
	}

	return out, nil
}
