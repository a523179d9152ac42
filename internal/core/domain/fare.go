package domain

// FareType selects the fare computation strategy for a system.
type FareType string

const (
	FareFlat     FareType = "FLAT"
	FareDistance FareType = "DISTANCE"
	FareZone     FareType = "ZONE"
)

// FareClass tags a rider for special rates (e.g. STUDENT, SENIOR).
// ClassStandard is the default and never carries a special rate.
const ClassStandard = "STANDARD"

// FareScheme is the strategy-specific fare configuration of a system.
// It is a closed union: FlatFare, DistanceFare, and the zone calculator in
// the fare package are the only implementations.
type FareScheme interface {
	FareType() FareType
}

// FlatFare charges a fixed amount on tap-in, independent of stations.
type FlatFare struct {
	Amount float64
}

func (FlatFare) FareType() FareType { return FareFlat }

// DistanceFare charges a base rate plus a per-unit rate over the
// straight-line distance between entry and exit positions.
type DistanceFare struct {
	BaseRate float64
	PerUnit  float64
}

func (DistanceFare) FareType() FareType { return FareDistance }
