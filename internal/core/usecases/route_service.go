package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/ports"
)

// RouteService is the route registry. Station order within a route defines
// adjacency and is what attributes a journey to a route for statistics.
type RouteService struct {
	systems *SystemRegistry
	repo    ports.RouteRepository

	mu     sync.RWMutex
	routes map[string]*domain.Route
}

// NewRouteService creates a new RouteService. repo may be nil.
func NewRouteService(systems *SystemRegistry, repo ports.RouteRepository) *RouteService {
	return &RouteService{
		systems: systems,
		repo:    repo,
		routes:  make(map[string]*domain.Route),
	}
}

// Load restores the registry from storage.
func (s *RouteService) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	routes, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range routes {
		r := routes[i]
		s.routes[r.ID] = &r
	}
	return nil
}

// Create registers an empty route in a known system.
func (s *RouteService) Create(ctx context.Context, systemID, name string) (*domain.Route, error) {
	if _, err := s.systems.Get(systemID); err != nil {
		return nil, err
	}

	route := &domain.Route{
		ID:        domain.RouteID(systemID, name),
		Name:      name,
		SystemID:  systemID,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	if _, exists := s.routes[route.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("route %s already exists", route.ID)
	}
	s.routes[route.ID] = route
	s.mu.Unlock()

	s.persist(route)
	return route, nil
}

// Get returns a route by id.
func (s *RouteService) Get(id string) (*domain.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, ErrUnknownRoute
	}
	cp := copyRoute(r)
	return &cp, nil
}

// ListBySystem returns the system's routes sorted by name.
func (s *RouteService) ListBySystem(systemID string) []domain.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Route
	for _, r := range s.routes {
		if r.SystemID == systemID {
			out = append(out, copyRoute(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddStation appends a station to the route.
func (s *RouteService) AddStation(ctx context.Context, routeID, stationID string) error {
	return s.update(routeID, func(r *domain.Route) error {
		if r.Contains(stationID) {
			return fmt.Errorf("route %s already serves %s", routeID, stationID)
		}
		r.Stations = append(r.Stations, stationID)
		return nil
	})
}

// RemoveStation drops a station from the route, preserving the order of
// the rest.
func (s *RouteService) RemoveStation(ctx context.Context, routeID, stationID string) error {
	return s.update(routeID, func(r *domain.Route) error {
		for i, id := range r.Stations {
			if id == stationID {
				r.Stations = append(r.Stations[:i], r.Stations[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("route %s does not serve %s", routeID, stationID)
	})
}

// Reorder replaces the route's station order. The new order must be a
// permutation of the current stations; adding or removing goes through
// AddStation/RemoveStation.
func (s *RouteService) Reorder(ctx context.Context, routeID string, order []string) error {
	return s.update(routeID, func(r *domain.Route) error {
		if !samePermutation(r.Stations, order) {
			return ErrNotPermutation
		}
		r.Stations = append([]string(nil), order...)
		return nil
	})
}

// Delete removes a route.
func (s *RouteService) Delete(ctx context.Context, routeID string) error {
	s.mu.Lock()
	r, ok := s.routes[routeID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownRoute
	}
	delete(s.routes, routeID)
	s.mu.Unlock()

	if s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.Delete(ctx, r.SystemID, r.ID); err != nil {
				slog.Error("delete route failed", "route_id", r.ID, "error", err)
			}
		}()
	}
	return nil
}

// DropStationEverywhere removes a deleted station from every route that
// served it. Used by the station removal cascade.
func (s *RouteService) DropStationEverywhere(ctx context.Context, stationID string) {
	s.mu.Lock()
	var touched []domain.Route
	for _, r := range s.routes {
		for i, id := range r.Stations {
			if id == stationID {
				r.Stations = append(r.Stations[:i], r.Stations[i+1:]...)
				touched = append(touched, copyRoute(r))
				break
			}
		}
	}
	s.mu.Unlock()

	for i := range touched {
		s.persist(&touched[i])
	}
}

// RouteConnecting returns a route in the system serving both stations.
// When several qualify the lexicographically first id wins, keeping
// statistics attribution stable.
func (s *RouteService) RouteConnecting(systemID, stationA, stationB string) (*domain.Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Route
	for _, r := range s.routes {
		if r.SystemID != systemID || !r.Contains(stationA) || !r.Contains(stationB) {
			continue
		}
		if best == nil || r.ID < best.ID {
			best = r
		}
	}
	if best == nil {
		return nil, false
	}
	cp := copyRoute(best)
	return &cp, true
}

func (s *RouteService) update(routeID string, mutate func(*domain.Route) error) error {
	s.mu.Lock()
	r, ok := s.routes[routeID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownRoute
	}
	if err := mutate(r); err != nil {
		s.mu.Unlock()
		return err
	}
	cp := copyRoute(r)
	s.mu.Unlock()

	s.persist(&cp)
	return nil
}

func copyRoute(r *domain.Route) domain.Route {
	cp := *r
	cp.Stations = append([]string(nil), r.Stations...)
	return cp
}

func (s *RouteService) persist(r *domain.Route) {
	if s.repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Upsert(ctx, r); err != nil {
			slog.Error("persist route failed", "route_id", r.ID, "error", err)
		}
	}()
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}
