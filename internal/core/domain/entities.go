package domain

import (
	"time"
)

// TransitSystem is one configured fare-collection network (e.g. a metro or a
// bus network). Systems are loaded from configuration and are immutable at
// runtime; reconfiguration replaces the whole value.
type TransitSystem struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Fares   FareScheme `json:"-"`
	MaxFare float64    `json:"max_fare"`
}

// StationStatus is the operational state of a station.
type StationStatus string

const (
	StationActive      StationStatus = "ACTIVE"
	StationDisabled    StationStatus = "DISABLED"
	StationMaintenance StationStatus = "MAINTENANCE"
)

// Accepting reports whether riders may tap at the station.
func (s StationStatus) Accepting() bool { return s == StationActive }

// Station is a named stop within a transit system.
type Station struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	SystemID  string        `json:"system_id"`
	Position  Position      `json:"position"`
	Zone      string        `json:"zone"`
	Status    StationStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// StationID derives the canonical station key from system and display name.
func StationID(systemID, name string) string {
	return systemID + "_" + normalize(name)
}

// RouteID derives the canonical route key from system and display name.
func RouteID(systemID, name string) string {
	return systemID + "_" + normalize(name)
}

// Route is an ordered sequence of stations. Order matters: it defines
// adjacency and is used to attribute a journey to "the route connecting
// these two stations" for statistics.
type Route struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SystemID  string    `json:"system_id"`
	Stations  []string  `json:"stations"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains reports whether the route serves the given station.
func (r *Route) Contains(stationID string) bool {
	for _, s := range r.Stations {
		if s == stationID {
			return true
		}
	}
	return false
}

// Gate is a physical entry point bound to exactly one station.
type Gate struct {
	ID        string   `json:"id"`
	Position  Position `json:"position"`
	SystemID  string   `json:"system_id"`
	StationID string   `json:"station_id"`
	Enabled   bool     `json:"enabled"`
}

// Journey is a rider's open interval between tap-in and tap-out.
// At most one journey may be open per rider.
type Journey struct {
	RiderID   string    `json:"rider_id"`
	SystemID  string    `json:"system_id"`
	StationID string    `json:"station_id"`
	Position  Position  `json:"position"`
	StartedAt time.Time `json:"started_at"`
}

// Age returns how long the journey has been open at the given instant.
func (j Journey) Age(now time.Time) time.Duration {
	return now.Sub(j.StartedAt)
}

func normalize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
