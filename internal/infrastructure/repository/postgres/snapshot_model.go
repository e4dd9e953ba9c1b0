package postgres

import (
	"database/sql"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/sportifyhq/roster/internal/domain/game"
	"github.com/sportifyhq/roster/internal/domain/notification"
)

type gameSnapshotRow struct {
	ID            string          `db:"id"`
	Title         string          `db:"title"`
	Sport         string          `db:"sport"`
	GameDate      string          `db:"game_date"`
	GameTime      string          `db:"game_time"`
	Location      string          `db:"location"`
	Latitude      sql.NullFloat64 `db:"latitude"`
	Longitude     sql.NullFloat64 `db:"longitude"`
	Organizer     string          `db:"organizer"`
	TotalPlayers  int             `db:"total_players"`
	PlayersNeeded int             `db:"players_needed"`
	Participants  []byte          `db:"participants"`
	SkillLevel    string          `db:"skill_level"`
	Status        string          `db:"status"`
	Position      int             `db:"position"`
	CreatedAt     time.Time       `db:"created_at"`
}

func gameToRow(g game.Game, position int) (gameSnapshotRow, error) {
	participants, err := sonic.Marshal(g.Participants)
	if err != nil {
		return gameSnapshotRow{}, err
	}

	row := gameSnapshotRow{
		ID:            g.ID,
		Title:         g.Title,
		Sport:         g.Sport,
		GameDate:      g.Date,
		GameTime:      g.Time,
		Location:      g.Location,
		Organizer:     g.Organizer,
		TotalPlayers:  g.TotalPlayers,
		PlayersNeeded: g.PlayersNeeded,
		Participants:  participants,
		SkillLevel:    string(g.SkillLevel),
		Status:        string(g.Status),
		Position:      position,
		CreatedAt:     g.CreatedAt,
	}
	if g.Coordinates != nil {
		row.Latitude = sql.NullFloat64{Float64: g.Coordinates.Latitude, Valid: true}
		row.Longitude = sql.NullFloat64{Float64: g.Coordinates.Longitude, Valid: true}
	}

	return row, nil
}

func rowToGame(row gameSnapshotRow) (game.Game, error) {
	var participants []string
	if len(row.Participants) > 0 {
		if err := sonic.Unmarshal(row.Participants, &participants); err != nil {
			return game.Game{}, err
		}
	}

	g := game.Game{
		ID:            row.ID,
		Title:         row.Title,
		Sport:         row.Sport,
		Date:          row.GameDate,
		Time:          row.GameTime,
		Location:      row.Location,
		Organizer:     row.Organizer,
		TotalPlayers:  row.TotalPlayers,
		PlayersNeeded: row.PlayersNeeded,
		Participants:  participants,
		SkillLevel:    game.SkillLevel(row.SkillLevel),
		Status:        game.Status(row.Status),
		CreatedAt:     row.CreatedAt,
	}
	if row.Latitude.Valid && row.Longitude.Valid {
		g.Coordinates = &game.Coordinates{
			Latitude:  row.Latitude.Float64,
			Longitude: row.Longitude.Float64,
		}
	}

	return g, nil
}

type notificationSnapshotRow struct {
	ID          string    `db:"id"`
	RecipientID string    `db:"recipient_id"`
	Kind        string    `db:"kind"`
	GameID      string    `db:"game_id"`
	Title       string    `db:"title"`
	Body        string    `db:"body"`
	Read        bool      `db:"read"`
	CreatedAt   time.Time `db:"created_at"`
}

func notificationToRow(rec notification.Record) notificationSnapshotRow {
	return notificationSnapshotRow{
		ID:          rec.ID,
		RecipientID: rec.RecipientID,
		Kind:        string(rec.Kind),
		GameID:      rec.GameID,
		Title:       rec.Title,
		Body:        rec.Body,
		Read:        rec.Read,
		CreatedAt:   rec.CreatedAt,
	}
}

func rowToNotification(row notificationSnapshotRow) notification.Record {
	return notification.Record{
		ID:          row.ID,
		RecipientID: row.RecipientID,
		Kind:        notification.Kind(row.Kind),
		GameID:      row.GameID,
		Title:       row.Title,
		Body:        row.Body,
		Read:        row.Read,
		CreatedAt:   row.CreatedAt,
	}
}
