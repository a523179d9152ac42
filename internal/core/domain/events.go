package domain

import "time"

// JourneyEventKind classifies journey lifecycle events.
type JourneyEventKind string

const (
	JourneyOpened      JourneyEventKind = "OPENED"
	JourneyClosed      JourneyEventKind = "CLOSED"
	JourneyForceClosed JourneyEventKind = "FORCE_CLOSED"
)

// JourneyEvent is published whenever a journey opens or closes.
type JourneyEvent struct {
	Kind     JourneyEventKind `json:"kind"`
	RiderID  string           `json:"riderId"`
	SystemID string           `json:"systemId"`
	// StationID is where the event happened: the entry station for OPENED,
	// the exit station for CLOSED, the original entry for FORCE_CLOSED.
	StationID string    `json:"stationId"`
	Fare      float64   `json:"fare"`
	At        time.Time `json:"at"`
}
