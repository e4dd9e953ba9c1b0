package game

import "math"

// Coordinates is an optional venue position in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (c *Coordinates) clone() *Coordinates {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points in kilometers.
func HaversineKm(a, b Coordinates) float64 {
	latA := a.Latitude * math.Pi / 180
	latB := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// WithinRadiusKm reports whether the game's venue lies inside the given
// radius of center. Games without coordinates always pass so that
// organizers who skip geocoding stay discoverable.
func (g Game) WithinRadiusKm(center Coordinates, radiusKm float64) bool {
	if g.Coordinates == nil {
		return true
	}
	return HaversineKm(center, *g.Coordinates) <= radiusKm
}
