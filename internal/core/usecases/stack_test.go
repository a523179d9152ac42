package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/fare"
	"github.com/emberline/faregate/internal/core/usecases"
)

// stack wires the in-memory services together the way cmd/api does, with
// mocks in place of the adapters.
type stack struct {
	systems  *usecases.SystemRegistry
	stations *usecases.StationService
	routes   *usecases.RouteService
	gates    *usecases.GateService
	fares    *usecases.FareService
	ledger   *usecases.LedgerService
	stats    *usecases.StatsService
	journeys *usecases.JourneyService
	payroll  *usecases.PayrollService
	presence *usecases.PresenceService

	economy   *mockEconomy
	publisher *mockPublisher
	notifier  *mockNotifier
	cache     *mockCache
}

func newStack(t *testing.T, maxTapDuration time.Duration, systems ...*domain.TransitSystem) *stack {
	t.Helper()

	s := &stack{
		economy:   &mockEconomy{},
		publisher: &mockPublisher{},
		notifier:  &mockNotifier{},
		cache:     newMockCache(),
	}
	s.systems = usecases.NewSystemRegistry(systems)
	s.stations = usecases.NewStationService(s.systems, nil)
	s.routes = usecases.NewRouteService(s.systems, nil)
	s.gates = usecases.NewGateService(s.systems, s.stations, nil)
	s.fares = usecases.NewFareService()
	s.stats = usecases.NewStatsService(nil, s.routes)
	s.ledger = usecases.NewLedgerService(nil, s.economy, s.publisher, s.stats)
	s.journeys = usecases.NewJourneyService(
		s.systems, s.stations, s.gates, s.fares, s.economy, s.ledger,
		s.publisher, s.notifier, s.cache, maxTapDuration)
	s.presence = usecases.NewPresenceService(nil, s.journeys)
	s.payroll = usecases.NewPayrollService(s.systems, nil, s.economy, s.ledger, s.presence, s.notifier)
	return s
}

func (s *stack) station(t *testing.T, systemID, name, zone string, pos domain.Position) *domain.Station {
	t.Helper()
	st, err := s.stations.Create(context.Background(), systemID, name, pos, zone)
	if err != nil {
		t.Fatalf("create station %s: %v", name, err)
	}
	return st
}

func busSystem() *domain.TransitSystem {
	return &domain.TransitSystem{
		ID:      "bus",
		Name:    "Bus",
		Fares:   domain.FlatFare{Amount: 2.75},
		MaxFare: 10,
	}
}

func metroSystem(t *testing.T) *domain.TransitSystem {
	t.Helper()
	two := 2
	calc, err := fare.NewCalculator(fare.Config{
		Rings:       map[string]int{"1": 1, "3": 3},
		Rules:       []fare.RuleConfig{{RingDifference: &two, Fare: 6.00}},
		DefaultFare: 3.00,
	})
	if err != nil {
		t.Fatalf("metro calculator: %v", err)
	}
	return &domain.TransitSystem{
		ID:      "metro",
		Name:    "Metro",
		Fares:   calc,
		MaxFare: 10,
	}
}
