package memory

import (
	"time"

	"github.com/sportifyhq/roster/internal/domain/game"
)

// SeedGames returns demo games for dev mode, scheduled relative to now so
// the listings always show upcoming entries.
func SeedGames(now time.Time) []game.Game {
	day := func(offset int) string {
		return now.UTC().AddDate(0, 0, offset).Format("2006-01-02")
	}

	games := []game.Game{
		{
			ID:           "seed-football-sunday",
			Title:        "Sunday Morning Football",
			Sport:        "football",
			Date:         day(2),
			Time:         "10:00",
			Location:     "Central Park",
			Coordinates:  &game.Coordinates{Latitude: 40.785091, Longitude: -73.968285},
			Organizer:    "john",
			TotalPlayers: 20,
			Participants: []string{"john", "amy"},
			SkillLevel:   game.SkillIntermediate,
		},
		{
			ID:           "seed-basketball-evening",
			Title:        "Basketball Evening",
			Sport:        "basketball",
			Date:         day(5),
			Time:         "18:00",
			Location:     "Downtown Court",
			Coordinates:  &game.Coordinates{Latitude: 40.712776, Longitude: -74.005974},
			Organizer:    "jane",
			TotalPlayers: 10,
			Participants: []string{"jane"},
			SkillLevel:   game.SkillBeginner,
		},
		{
			ID:           "seed-tennis-doubles",
			Title:        "Tennis Doubles",
			Sport:        "tennis",
			Date:         day(3),
			Time:         "16:00",
			Location:     "City Tennis Club",
			Coordinates:  &game.Coordinates{Latitude: 40.73061, Longitude: -73.935242},
			Organizer:    "alice",
			TotalPlayers: 4,
			Participants: []string{"alice"},
			SkillLevel:   game.SkillAdvanced,
		},
		{
			ID:           "seed-volleyball-night",
			Title:        "Volleyball Night",
			Sport:        "volleyball",
			Date:         day(7),
			Time:         "20:00",
			Location:     "Beach Court",
			Coordinates:  &game.Coordinates{Latitude: 34.019454, Longitude: -118.491191},
			Organizer:    "bob",
			TotalPlayers: 12,
			Participants: []string{"bob"},
			SkillLevel:   game.SkillIntermediate,
		},
		{
			ID:           "seed-cricket-weekend",
			Title:        "Cricket Weekend Fun",
			Sport:        "cricket",
			Date:         day(4),
			Time:         "15:00",
			Location:     "City Stadium",
			Coordinates:  &game.Coordinates{Latitude: 28.6139, Longitude: 77.2090},
			Organizer:    "me",
			TotalPlayers: 11,
			Participants: []string{"me"},
			SkillLevel:   game.SkillAny,
		},
	}

	for i := range games {
		games[i].Status = game.StatusActive
		games[i].CreatedAt = now.UTC()
		games[i].PlayersNeeded = game.PlayersNeededFor(games[i].TotalPlayers, len(games[i].Participants))
	}

	return games
}
