package usecases

import (
	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/fare"
)

// FareService computes fares for completed journeys, dispatching on the
// system's fare scheme and clamping the result to the system maximum.
type FareService struct{}

// NewFareService creates a new FareService.
func NewFareService() *FareService {
	return &FareService{}
}

// Quote computes the fare for a journey from one station to another.
// hour and day carry the tap-out time; pass -1 for both when there is no
// time context. class tags the rider for special rates ("STANDARD" default).
// The result is clamped to the system's maximum fare regardless of scheme.
func (s *FareService) Quote(sys *domain.TransitSystem, from, to *domain.Station, hour, day int, class string) float64 {
	var computed float64

	switch scheme := sys.Fares.(type) {
	case domain.FlatFare:
		computed = scheme.Amount
	case domain.DistanceFare:
		dist, ok := from.Position.DistanceTo(to.Position)
		if !ok {
			// Distance is undefined across worlds; charge the cap.
			return sys.MaxFare
		}
		computed = scheme.BaseRate + scheme.PerUnit*dist
	case *fare.Calculator:
		computed = scheme.Fare(fare.Query{
			FromZone: from.Zone,
			ToZone:   to.Zone,
			Hour:     hour,
			Day:      day,
			Class:    class,
		})
	default:
		computed = sys.MaxFare
	}

	return clampFare(computed, sys.MaxFare)
}

// FlatAmount returns the single-tap charge for flat-fare systems. The second
// return is false for journey-based (distance/zone) systems.
func (s *FareService) FlatAmount(sys *domain.TransitSystem) (float64, bool) {
	scheme, ok := sys.Fares.(domain.FlatFare)
	if !ok {
		return 0, false
	}
	return clampFare(scheme.Amount, sys.MaxFare), true
}

func clampFare(computed, max float64) float64 {
	if computed > max {
		return max
	}
	return computed
}
