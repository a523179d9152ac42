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

// StationService is the station registry. The in-memory map is
// authoritative; storage writes are asynchronous.
type StationService struct {
	systems *SystemRegistry
	repo    ports.StationRepository

	mu       sync.RWMutex
	stations map[string]*domain.Station
}

// NewStationService creates a new StationService. repo may be nil.
func NewStationService(systems *SystemRegistry, repo ports.StationRepository) *StationService {
	return &StationService{
		systems:  systems,
		repo:     repo,
		stations: make(map[string]*domain.Station),
	}
}

// Load restores the registry from storage.
func (s *StationService) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	stations, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range stations {
		st := stations[i]
		s.stations[st.ID] = &st
	}
	return nil
}

// Create registers a station in a known system. The id is derived from the
// system and the name; creating an existing id fails.
func (s *StationService) Create(ctx context.Context, systemID, name string, pos domain.Position, zone string) (*domain.Station, error) {
	if _, err := s.systems.Get(systemID); err != nil {
		return nil, err
	}

	station := &domain.Station{
		ID:        domain.StationID(systemID, name),
		Name:      name,
		SystemID:  systemID,
		Position:  pos,
		Zone:      zone,
		Status:    domain.StationActive,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	if _, exists := s.stations[station.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("station %s already exists", station.ID)
	}
	s.stations[station.ID] = station
	s.mu.Unlock()

	s.persist(station)
	return station, nil
}

// Get returns a station by id.
func (s *StationService) Get(id string) (*domain.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[id]
	if !ok {
		return nil, ErrUnknownStation
	}
	cp := *st
	return &cp, nil
}

// ListBySystem returns the system's stations sorted by name.
func (s *StationService) ListBySystem(systemID string) []domain.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Station
	for _, st := range s.stations {
		if st.SystemID == systemID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetStatus updates a station's operational status.
func (s *StationService) SetStatus(ctx context.Context, id string, status domain.StationStatus) error {
	return s.update(id, func(st *domain.Station) { st.Status = status })
}

// SetZone updates a station's zone label.
func (s *StationService) SetZone(ctx context.Context, id, zone string) error {
	return s.update(id, func(st *domain.Station) { st.Zone = zone })
}

// Relocate moves a station to a new position.
func (s *StationService) Relocate(ctx context.Context, id string, pos domain.Position) error {
	return s.update(id, func(st *domain.Station) { st.Position = pos })
}

// Remove deletes a station. Routes and gates referencing it are cleaned up
// by their own services via the returned station.
func (s *StationService) Remove(ctx context.Context, id string) (*domain.Station, error) {
	s.mu.Lock()
	st, ok := s.stations[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownStation
	}
	delete(s.stations, id)
	s.mu.Unlock()

	if s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.Delete(ctx, st.SystemID, st.ID); err != nil {
				slog.Error("delete station failed", "station_id", st.ID, "error", err)
			}
		}()
	}
	return st, nil
}

// Nearest returns the closest station to pos within radius, same world
// only. The second return is false when none qualifies.
func (s *StationService) Nearest(pos domain.Position, radius float64) (*domain.Station, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Station
	bestDist := radius
	for _, st := range s.stations {
		d, ok := pos.DistanceTo(st.Position)
		if !ok || d > bestDist {
			continue
		}
		bestDist = d
		best = st
	}
	if best == nil {
		return nil, false
	}
	cp := *best
	return &cp, true
}

func (s *StationService) update(id string, mutate func(*domain.Station)) error {
	s.mu.Lock()
	st, ok := s.stations[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownStation
	}
	mutate(st)
	cp := *st
	s.mu.Unlock()

	s.persist(&cp)
	return nil
}

func (s *StationService) persist(st *domain.Station) {
	if s.repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Upsert(ctx, st); err != nil {
			slog.Error("persist station failed", "station_id", st.ID, "error", err)
		}
	}()
}
