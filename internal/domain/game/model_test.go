package game

import (
	"errors"
	"math"
	"testing"
	"time"
)

func validSpec() CreateSpec {
	return CreateSpec{
		Title:        "Sunday Football",
		Sport:        "Football",
		Date:         "2026-09-06",
		Time:         "10:00",
		Location:     "Central Park",
		Organizer:    "user-1",
		TotalPlayers: 10,
	}
}

func TestNew_DerivesRosterState(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	g, err := New(validSpec(), "game-1", now)
	if err != nil {
		t.Fatalf("new game failed: %v", err)
	}

	if len(g.Participants) != 1 || g.Participants[0] != "user-1" {
		t.Fatalf("expected organizer as sole participant, got %v", g.Participants)
	}
	if g.PlayersNeeded != 9 {
		t.Fatalf("expected 9 players needed, got %d", g.PlayersNeeded)
	}
	if g.SkillLevel != SkillAny {
		t.Fatalf("expected empty skill to default to any, got %s", g.SkillLevel)
	}
	if g.Status != StatusActive {
		t.Fatalf("expected active status, got %s", g.Status)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("fresh game failed validation: %v", err)
	}
}

func TestNew_RejectsBadInput(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mutate func(*CreateSpec)
	}{
		{"empty title", func(s *CreateSpec) { s.Title = "  " }},
		{"empty sport", func(s *CreateSpec) { s.Sport = "" }},
		{"bad date", func(s *CreateSpec) { s.Date = "06-09-2026" }},
		{"bad time", func(s *CreateSpec) { s.Time = "25:99" }},
		{"zero capacity", func(s *CreateSpec) { s.TotalPlayers = 0 }},
		{"unknown skill", func(s *CreateSpec) { s.SkillLevel = "pro" }},
		{"empty organizer", func(s *CreateSpec) { s.Organizer = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			tc.mutate(&spec)
			if _, err := New(spec, "game-1", now); !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("expected ErrInvalidSpec, got %v", err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"10:00", 10, 0, true},
		{"00:05", 0, 5, true},
		{"23:59", 23, 59, true},
		{"7:30 PM", 19, 30, true},
		{"12:00 AM", 0, 0, true},
		{"12:15 PM", 12, 15, true},
		{"1:05AM", 1, 5, true},
		{"7:30 pm", 19, 30, true},
		{"11:05 am", 11, 5, true},
		{"13:00 PM", 0, 0, false},
		{"24:00", 0, 0, false},
		{"7.30", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tc := range cases {
		hour, minute, ok := ParseClock(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseClock(%q) ok = %t, want %t", tc.in, ok, tc.ok)
		}
		if ok && (hour != tc.hour || minute != tc.minute) {
			t.Fatalf("ParseClock(%q) = %d:%d, want %d:%d", tc.in, hour, minute, tc.hour, tc.minute)
		}
	}
}

func TestSortInstant_MalformedTimeFallsBackToDate(t *testing.T) {
	g := Game{Date: "2026-09-06", Time: "whenever"}

	want := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)
	if got := g.SortInstant(); !got.Equal(want) {
		t.Fatalf("expected fallback to midnight %v, got %v", want, got)
	}

	g.Time = "7:30 PM"
	want = time.Date(2026, 9, 6, 19, 30, 0, 0, time.UTC)
	if got := g.SortInstant(); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestApply_RejectsCapacityBelowRoster(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	g, err := New(validSpec(), "game-1", now)
	if err != nil {
		t.Fatalf("new game failed: %v", err)
	}
	g.Participants = append(g.Participants, "user-2", "user-3")
	g.PlayersNeeded = PlayersNeededFor(g.TotalPlayers, len(g.Participants))

	two := 2
	if _, _, err := g.Apply(Patch{TotalPlayers: &two}); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec shrinking below roster, got %v", err)
	}
}

func TestApply_ReportsChangedFieldsAndRederives(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	g, err := New(validSpec(), "game-1", now)
	if err != nil {
		t.Fatalf("new game failed: %v", err)
	}

	title := "Sunday Football Rematch"
	sameSport := g.Sport
	total := 12
	next, changed, err := g.Apply(Patch{Title: &title, Sport: &sameSport, TotalPlayers: &total})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if len(changed) != 2 || changed[0] != "title" || changed[1] != "totalPlayers" {
		t.Fatalf("expected [title totalPlayers], got %v", changed)
	}
	if next.PlayersNeeded != 11 {
		t.Fatalf("expected players needed re-derived to 11, got %d", next.PlayersNeeded)
	}
	if g.Title != "Sunday Football" {
		t.Fatalf("apply mutated the receiver: %s", g.Title)
	}
}

func TestIdentityKey_CaseAndSpaceInsensitive(t *testing.T) {
	a := Game{Title: "Sunday Football", Sport: "Football", Date: "2026-09-06", Time: "10:00", Location: "Central Park"}
	b := Game{Title: "  sunday football", Sport: "FOOTBALL", Date: "2026-09-06", Time: "10:00", Location: "central park  "}

	if a.IdentityKey() != b.IdentityKey() {
		t.Fatalf("expected equal identity keys, got %q vs %q", a.IdentityKey(), b.IdentityKey())
	}
}

func TestHaversineKm(t *testing.T) {
	// New York to Philadelphia, roughly 130 km.
	ny := Coordinates{Latitude: 40.7128, Longitude: -74.0060}
	philly := Coordinates{Latitude: 39.9526, Longitude: -75.1652}

	d := HaversineKm(ny, philly)
	if math.Abs(d-130) > 10 {
		t.Fatalf("expected roughly 130km, got %.1f", d)
	}
	if HaversineKm(ny, ny) != 0 {
		t.Fatalf("expected zero distance to self")
	}
}

func TestWithinRadiusKm_NoCoordinatesAlwaysMatches(t *testing.T) {
	g := Game{}
	if !g.WithinRadiusKm(Coordinates{Latitude: 40, Longitude: -74}, 1) {
		t.Fatalf("game without coordinates should pass radius filters")
	}
}
