package game

import (
	"fmt"
	"strings"
	"time"
)

// SkillLevel is the requested skill bracket for a game. SkillAny matches
// every requested level on both sides of a search.
type SkillLevel string

const (
	SkillAny          SkillLevel = "any"
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// ParseSkillLevel normalizes organizer input; empty means SkillAny.
func ParseSkillLevel(v string) (SkillLevel, error) {
	switch SkillLevel(strings.ToLower(strings.TrimSpace(v))) {
	case "":
		return SkillAny, nil
	case SkillAny:
		return SkillAny, nil
	case SkillBeginner:
		return SkillBeginner, nil
	case SkillIntermediate:
		return SkillIntermediate, nil
	case SkillAdvanced:
		return SkillAdvanced, nil
	default:
		return "", fmt.Errorf("%w: unknown skill level %q", ErrInvalidSpec, v)
	}
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Game is a scheduled sporting meetup with a fixed capacity.
// The participant list is insertion-ordered and always starts with the
// organizer.
type Game struct {
	ID            string
	Title         string
	Sport         string
	Date          string // YYYY-MM-DD
	Time          string // HH:mm, or legacy h:mm AM/PM
	Location      string
	Coordinates   *Coordinates
	Organizer     string
	TotalPlayers  int
	PlayersNeeded int
	Participants  []string
	SkillLevel    SkillLevel
	Status        Status
	CreatedAt     time.Time
}

// CreateSpec is the organizer-supplied input for a new game.
type CreateSpec struct {
	Title        string
	Sport        string
	Date         string
	Time         string
	Location     string
	Coordinates  *Coordinates
	Organizer    string
	TotalPlayers int
	SkillLevel   string
}

// New builds a validated Game from a spec. The organizer is the first
// participant and PlayersNeeded is derived, never taken from input.
func New(spec CreateSpec, id string, now time.Time) (Game, error) {
	spec.Title = strings.TrimSpace(spec.Title)
	spec.Sport = strings.TrimSpace(spec.Sport)
	spec.Date = strings.TrimSpace(spec.Date)
	spec.Time = strings.TrimSpace(spec.Time)
	spec.Location = strings.TrimSpace(spec.Location)
	spec.Organizer = strings.TrimSpace(spec.Organizer)

	if id == "" {
		return Game{}, fmt.Errorf("%w: id is required", ErrInvalidSpec)
	}
	if spec.Title == "" {
		return Game{}, fmt.Errorf("%w: title is required", ErrInvalidSpec)
	}
	if spec.Sport == "" {
		return Game{}, fmt.Errorf("%w: sport is required", ErrInvalidSpec)
	}
	if spec.Location == "" {
		return Game{}, fmt.Errorf("%w: location is required", ErrInvalidSpec)
	}
	if spec.Organizer == "" {
		return Game{}, fmt.Errorf("%w: organizer is required", ErrInvalidSpec)
	}
	if _, err := ParseDate(spec.Date); err != nil {
		return Game{}, err
	}
	if _, _, ok := ParseClock(spec.Time); !ok {
		return Game{}, fmt.Errorf("%w: time %q must be HH:mm or h:mm AM/PM", ErrInvalidSpec, spec.Time)
	}
	if spec.TotalPlayers < 1 {
		return Game{}, fmt.Errorf("%w: total players must be >= 1", ErrInvalidSpec)
	}
	skill, err := ParseSkillLevel(spec.SkillLevel)
	if err != nil {
		return Game{}, err
	}

	g := Game{
		ID:           id,
		Title:        spec.Title,
		Sport:        spec.Sport,
		Date:         spec.Date,
		Time:         spec.Time,
		Location:     spec.Location,
		Coordinates:  spec.Coordinates.clone(),
		Organizer:    spec.Organizer,
		TotalPlayers: spec.TotalPlayers,
		Participants: []string{spec.Organizer},
		SkillLevel:   skill,
		Status:       StatusActive,
		CreatedAt:    now.UTC(),
	}
	g.PlayersNeeded = PlayersNeededFor(g.TotalPlayers, len(g.Participants))

	return g, nil
}

// PlayersNeededFor is the single derivation of the open-slot count.
// Never negative, never above totalPlayers.
func PlayersNeededFor(totalPlayers, participantCount int) int {
	needed := totalPlayers - participantCount
	if needed < 0 {
		return 0
	}
	return needed
}

func (g Game) HasParticipant(userID string) bool {
	for _, p := range g.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IdentityKey is the duplicate-detection tuple. It is a policy heuristic,
// not a storage uniqueness constraint.
func (g Game) IdentityKey() string {
	parts := []string{g.Title, g.Sport, g.Date, g.Time, g.Location}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (g Game) Clone() Game {
	out := g
	out.Participants = append([]string(nil), g.Participants...)
	out.Coordinates = g.Coordinates.clone()
	return out
}

// Validate checks the roster invariants that must hold after every mutation.
func (g Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSpec)
	}
	if len(g.Participants) > g.TotalPlayers {
		return fmt.Errorf("%w: %d participants exceed capacity %d", ErrInvalidSpec, len(g.Participants), g.TotalPlayers)
	}
	if g.PlayersNeeded != PlayersNeededFor(g.TotalPlayers, len(g.Participants)) {
		return fmt.Errorf("%w: players needed %d is not derived from capacity", ErrInvalidSpec, g.PlayersNeeded)
	}
	seen := make(map[string]struct{}, len(g.Participants))
	for _, p := range g.Participants {
		if _, ok := seen[p]; ok {
			return fmt.Errorf("%w: duplicate participant %s", ErrInvalidSpec, p)
		}
		seen[p] = struct{}{}
	}
	if g.Status == StatusActive && !g.HasParticipant(g.Organizer) {
		return fmt.Errorf("%w: organizer %s is not a participant", ErrInvalidSpec, g.Organizer)
	}
	return nil
}

// Patch carries organizer-editable fields; nil means unchanged.
type Patch struct {
	Title        *string
	Sport        *string
	Date         *string
	Time         *string
	Location     *string
	SkillLevel   *string
	TotalPlayers *int
	Coordinates  *Coordinates
}

// Apply returns the patched game and the names of changed fields.
// PlayersNeeded is always re-derived so a stale capacity in the patch
// cannot break the derivation invariant.
func (g Game) Apply(p Patch) (Game, []string, error) {
	out := g.Clone()
	changed := make([]string, 0, 4)

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Game{}, nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidSpec)
		}
		if title != out.Title {
			out.Title = title
			changed = append(changed, "title")
		}
	}
	if p.Sport != nil {
		sport := strings.TrimSpace(*p.Sport)
		if sport == "" {
			return Game{}, nil, fmt.Errorf("%w: sport cannot be empty", ErrInvalidSpec)
		}
		if sport != out.Sport {
			out.Sport = sport
			changed = append(changed, "sport")
		}
	}
	if p.Date != nil {
		date := strings.TrimSpace(*p.Date)
		if _, err := ParseDate(date); err != nil {
			return Game{}, nil, err
		}
		if date != out.Date {
			out.Date = date
			changed = append(changed, "date")
		}
	}
	if p.Time != nil {
		clock := strings.TrimSpace(*p.Time)
		if _, _, ok := ParseClock(clock); !ok {
			return Game{}, nil, fmt.Errorf("%w: time %q must be HH:mm or h:mm AM/PM", ErrInvalidSpec, clock)
		}
		if clock != out.Time {
			out.Time = clock
			changed = append(changed, "time")
		}
	}
	if p.Location != nil {
		location := strings.TrimSpace(*p.Location)
		if location == "" {
			return Game{}, nil, fmt.Errorf("%w: location cannot be empty", ErrInvalidSpec)
		}
		if location != out.Location {
			out.Location = location
			changed = append(changed, "location")
		}
	}
	if p.SkillLevel != nil {
		skill, err := ParseSkillLevel(*p.SkillLevel)
		if err != nil {
			return Game{}, nil, err
		}
		if skill != out.SkillLevel {
			out.SkillLevel = skill
			changed = append(changed, "skillLevel")
		}
	}
	if p.TotalPlayers != nil {
		total := *p.TotalPlayers
		if total < 1 {
			return Game{}, nil, fmt.Errorf("%w: total players must be >= 1", ErrInvalidSpec)
		}
		if total < len(out.Participants) {
			return Game{}, nil, fmt.Errorf("%w: total players %d below current participant count %d", ErrInvalidSpec, total, len(out.Participants))
		}
		if total != out.TotalPlayers {
			out.TotalPlayers = total
			changed = append(changed, "totalPlayers")
		}
	}
	if p.Coordinates != nil {
		out.Coordinates = p.Coordinates.clone()
		changed = append(changed, "coordinates")
	}

	out.PlayersNeeded = PlayersNeededFor(out.TotalPlayers, len(out.Participants))

	return out, changed, nil
}
