package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/usecases"
)

func TestStationService_CreateDerivesID(t *testing.T) {
	s := newStack(t, 2*time.Hour, metroSystem(t))

	st := s.station(t, "metro", "City Hall", "1", domain.Position{World: "overworld"})
	if st.ID != "metro_city-hall" {
		t.Errorf("expected id metro_city-hall, got %s", st.ID)
	}
	if st.Status != domain.StationActive {
		t.Errorf("new stations should be ACTIVE, got %s", st.Status)
	}

	if _, err := s.stations.Create(context.Background(), "metro", "City Hall", domain.Position{}, "1"); err == nil {
		t.Fatal("duplicate station must fail")
	}
}

func TestStationService_CreateUnknownSystem(t *testing.T) {
	s := newStack(t, 2*time.Hour, metroSystem(t))
	_, err := s.stations.Create(context.Background(), "ghost", "Somewhere", domain.Position{}, "1")
	if !errors.Is(err, usecases.ErrUnknownSystem) {
		t.Fatalf("expected ErrUnknownSystem, got %v", err)
	}
}

func TestStationService_NearestSameWorldOnly(t *testing.T) {
	s := newStack(t, 2*time.Hour, metroSystem(t))
	s.station(t, "metro", "Near", "1", domain.Position{World: "overworld", X: 10})
	s.station(t, "metro", "Far", "1", domain.Position{World: "overworld", X: 90})
	s.station(t, "metro", "Other World", "1", domain.Position{World: "nether", X: 1})

	st, ok := s.stations.Nearest(domain.Position{World: "overworld"}, 50)
	if !ok {
		t.Fatal("expected a station within radius")
	}
	if st.Name != "Near" {
		t.Errorf("expected Near, got %s", st.Name)
	}

	if _, ok := s.stations.Nearest(domain.Position{World: "overworld"}, 5); ok {
		t.Error("no station lies within radius 5")
	}
	if _, ok := s.stations.Nearest(domain.Position{World: "the_end"}, 1000); ok {
		t.Error("stations in other worlds must not match")
	}
}

func TestStationService_RemoveCascades(t *testing.T) {
	s := newStack(t, 2*time.Hour, metroSystem(t))
	a := s.station(t, "metro", "A", "1", domain.Position{World: "overworld"})
	b := s.station(t, "metro", "B", "2", domain.Position{World: "overworld", X: 10})

	ctx := context.Background()
	route, err := s.routes.Create(ctx, "metro", "Red Line")
	if err != nil {
		t.Fatalf("create route: %v", err)
	}
	_ = s.routes.AddStation(ctx, route.ID, a.ID)
	_ = s.routes.AddStation(ctx, route.ID, b.ID)
	if _, err := s.gates.Register(ctx, "gate-a", domain.Position{World: "overworld"}, a.ID); err != nil {
		t.Fatalf("register gate: %v", err)
	}

	removed, err := s.stations.Remove(ctx, a.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	s.routes.DropStationEverywhere(ctx, removed.ID)
	s.gates.RemoveByStation(ctx, removed.ID)

	got, err := s.routes.Get(route.ID)
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if got.Contains(a.ID) {
		t.Error("removed station should be dropped from routes")
	}
	if _, err := s.gates.Get("gate-a"); !errors.Is(err, usecases.ErrUnknownGate) {
		t.Error("gates at the removed station should be gone")
	}
}

func TestRouteService_ReorderPermutationOnly(t *testing.T) {
	s := newStack(t, 2*time.Hour, metroSystem(t))
	ctx := context.Background()

	route, err := s.routes.Create(ctx, "metro", "Red Line")
	if err != nil {
		t.Fatalf("create route: %v", err)
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		if err := s.routes.AddStation(ctx, route.ID, id); err != nil {
			t.Fatalf("add station: %v", err)
		}
	}

	if err := s.routes.Reorder(ctx, route.ID, []string{"s3", "s1", "s2"}); err != nil {
		t.Fatalf("valid permutation rejected: %v", err)
	}
	got, _ := s.routes.Get(route.ID)
	if got.Stations[0] != "s3" || got.Stations[2] != "s2" {
		t.Errorf("unexpected order: %v", got.Stations)
	}

	cases := [][]string{
		{"s1", "s2"},               // drops one
		{"s1", "s2", "s3", "s4"},   // adds one
		{"s1", "s2", "s4"},         // swaps one
		{"s1", "s1", "s2"},         // duplicates one
	}
	for _, order := range cases {
		if err := s.routes.Reorder(ctx, route.ID, order); !errors.Is(err, usecases.ErrNotPermutation) {
			t.Errorf("order %v should be rejected, got %v", order, err)
		}
	}
}

func TestRouteService_RouteConnecting(t *testing.T) {
	s := newStack(t, 2*time.Hour, metroSystem(t))
	ctx := context.Background()

	red, _ := s.routes.Create(ctx, "metro", "Red Line")
	_ = s.routes.AddStation(ctx, red.ID, "s1")
	_ = s.routes.AddStation(ctx, red.ID, "s2")

	blue, _ := s.routes.Create(ctx, "metro", "Blue Line")
	_ = s.routes.AddStation(ctx, blue.ID, "s2")
	_ = s.routes.AddStation(ctx, blue.ID, "s3")

	route, ok := s.routes.RouteConnecting("metro", "s1", "s2")
	if !ok || route.ID != red.ID {
		t.Errorf("expected Red Line, got %+v ok=%v", route, ok)
	}
	if _, ok := s.routes.RouteConnecting("metro", "s1", "s3"); ok {
		t.Error("no single route serves s1 and s3")
	}
	if _, ok := s.routes.RouteConnecting("bus", "s1", "s2"); ok {
		t.Error("route lookup must be system-scoped")
	}
}

func TestGateService_RegisterBindsStation(t *testing.T) {
	s := newStack(t, 2*time.Hour, metroSystem(t))
	st := s.station(t, "metro", "Central", "1", domain.Position{World: "overworld"})
	ctx := context.Background()

	gate, err := s.gates.Register(ctx, "gate-1", domain.Position{World: "overworld", X: 1}, st.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if gate.SystemID != "metro" || gate.StationID != st.ID || !gate.Enabled {
		t.Errorf("unexpected gate: %+v", gate)
	}

	found, ok := s.gates.GateAt(domain.Position{World: "overworld", X: 1})
	if !ok || found.ID != "gate-1" {
		t.Errorf("expected gate-1 at position, got %+v ok=%v", found, ok)
	}
	if _, err := s.gates.Register(ctx, "gate-2", domain.Position{}, "ghost"); !errors.Is(err, usecases.ErrUnknownStation) {
		t.Fatalf("expected ErrUnknownStation, got %v", err)
	}
}

func TestSystemRegistry_GetAndList(t *testing.T) {
	reg := usecases.NewSystemRegistry([]*domain.TransitSystem{busSystem()})
	if _, err := reg.Get("bus"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := reg.Get("ghost"); !errors.Is(err, usecases.ErrUnknownSystem) {
		t.Fatalf("expected ErrUnknownSystem, got %v", err)
	}
	if got := len(reg.List()); got != 1 {
		t.Errorf("expected 1 system, got %d", got)
	}
}
