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

// GateService is the gate registry. A gate binds a physical position to
// exactly one station; taps arrive by gate id.
type GateService struct {
	systems  *SystemRegistry
	stations *StationService
	repo     ports.GateRepository

	mu    sync.RWMutex
	gates map[string]*domain.Gate
}

// NewGateService creates a new GateService. repo may be nil.
func NewGateService(systems *SystemRegistry, stations *StationService, repo ports.GateRepository) *GateService {
	return &GateService{
		systems:  systems,
		stations: stations,
		repo:     repo,
		gates:    make(map[string]*domain.Gate),
	}
}

// Load restores the registry from storage.
func (s *GateService) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	gates, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load gates: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range gates {
		g := gates[i]
		s.gates[g.ID] = &g
	}
	return nil
}

// Register creates an enabled gate bound to a known station.
func (s *GateService) Register(ctx context.Context, id string, pos domain.Position, stationID string) (*domain.Gate, error) {
	station, err := s.stations.Get(stationID)
	if err != nil {
		return nil, err
	}

	gate := &domain.Gate{
		ID:        id,
		Position:  pos,
		SystemID:  station.SystemID,
		StationID: station.ID,
		Enabled:   true,
	}

	s.mu.Lock()
	if _, exists := s.gates[id]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("gate %s already exists", id)
	}
	s.gates[id] = gate
	s.mu.Unlock()

	s.persist(gate)
	return gate, nil
}

// Get returns a gate by id.
func (s *GateService) Get(id string) (*domain.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gates[id]
	if !ok {
		return nil, ErrUnknownGate
	}
	cp := *g
	return &cp, nil
}

// GateAt returns the gate at exactly the given position, if any.
func (s *GateService) GateAt(pos domain.Position) (*domain.Gate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.gates {
		if g.Position == pos {
			cp := *g
			return &cp, true
		}
	}
	return nil, false
}

// ListByStation returns the station's gates sorted by id.
func (s *GateService) ListByStation(stationID string) []domain.Gate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Gate
	for _, g := range s.gates {
		if g.StationID == stationID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetEnabled flips a gate's enabled flag.
func (s *GateService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	g, ok := s.gates[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownGate
	}
	g.Enabled = enabled
	cp := *g
	s.mu.Unlock()

	s.persist(&cp)
	return nil
}

// Remove deletes a gate.
func (s *GateService) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.gates[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownGate
	}
	delete(s.gates, id)
	s.mu.Unlock()

	if s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.Delete(ctx, id); err != nil {
				slog.Error("delete gate failed", "gate_id", id, "error", err)
			}
		}()
	}
	return nil
}

// RemoveByStation deletes every gate bound to a station. Used by the
// station removal cascade.
func (s *GateService) RemoveByStation(ctx context.Context, stationID string) {
	s.mu.Lock()
	var removed []string
	for id, g := range s.gates {
		if g.StationID == stationID {
			delete(s.gates, id)
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()

	if s.repo == nil {
		return
	}
	for _, id := range removed {
		id := id
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.Delete(ctx, id); err != nil {
				slog.Error("delete gate failed", "gate_id", id, "error", err)
			}
		}()
	}
}

// Resolve validates a tap at the gate and returns the gate with its
// station. Disabled gates and stations not accepting riders are rejected.
func (s *GateService) Resolve(id string) (*domain.Gate, *domain.Station, error) {
	gate, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if !gate.Enabled {
		return nil, nil, fmt.Errorf("gate %s: %w", id, ErrStationClosed)
	}
	station, err := s.stations.Get(gate.StationID)
	if err != nil {
		return nil, nil, err
	}
	if !station.Status.Accepting() {
		return nil, nil, fmt.Errorf("station %s is %s: %w", station.ID, station.Status, ErrStationClosed)
	}
	return gate, station, nil
}

func (s *GateService) persist(g *domain.Gate) {
	if s.repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Upsert(ctx, g); err != nil {
			slog.Error("persist gate failed", "gate_id", g.ID, "error", err)
		}
	}()
}
