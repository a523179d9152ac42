package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/ports"
)

// RouteResolver finds the route serving both stations, used to attribute a
// journey's revenue to a route.
type RouteResolver interface {
	RouteConnecting(systemID, stationA, stationB string) (*domain.Route, bool)
}

// TransactionSource yields transactions recorded at or after an instant.
// The ledger implements it; windowed snapshots replay it instead of
// trusting the cumulative counters.
type TransactionSource interface {
	Since(t time.Time) []domain.Transaction
}

type statsKey struct {
	kind domain.StatsKind
	id   string
}

// StatsService maintains cumulative revenue and count roll-ups per system,
// station, and route. Counters are in-memory authoritative and autosaved to
// storage on a timer.
type StatsService struct {
	repo   ports.StatsRepository
	routes RouteResolver

	mu      sync.RWMutex
	entries map[statsKey]*domain.Stats
}

// NewStatsService creates a new StatsService. repo and routes may be nil.
func NewStatsService(repo ports.StatsRepository, routes RouteResolver) *StatsService {
	return &StatsService{
		repo:    repo,
		routes:  routes,
		entries: make(map[statsKey]*domain.Stats),
	}
}

// Load restores saved counters from storage.
func (s *StatsService) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	saved, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range saved {
		st := saved[i]
		s.entries[statsKey{st.Kind, st.ID}] = &st
	}
	return nil
}

// Apply folds a fare-collecting transaction into the counters for its
// system, its stations, and the route connecting them. Non-collecting types
// (staff payments, interchange markers) leave statistics untouched.
func (s *StatsService) Apply(tx domain.Transaction) {
	if !tx.Type.Collecting() {
		return
	}
	s.fold(tx, 1, tx.Timestamp)
}

// ApplyRefund mirrors the original charge's increments as decrements, using
// the original's hour bucket so charge plus refund nets to zero everywhere.
func (s *StatsService) ApplyRefund(refund, original domain.Transaction) {
	if !original.Type.Collecting() {
		return
	}
	s.fold(original, -1, original.Timestamp)
}

func (s *StatsService) fold(tx domain.Transaction, sign int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.keysFor(tx) {
		st := s.entries[key]
		if st == nil {
			st = &domain.Stats{Kind: key.kind, ID: key.id}
			s.entries[key] = st
		}
		st.Revenue += float64(sign) * tx.Amount
		st.Transactions += sign
		switch tx.Type {
		case domain.TxEntry:
			st.Entries += sign
		case domain.TxExit:
			st.Exits += sign
		case domain.TxFlatRate:
			st.FlatRates += sign
		}
		st.Hourly[at.Hour()] += sign
		st.UpdatedAt = time.Now()
	}
}

// keysFor resolves the roll-up keys a transaction contributes to. Sentinel
// from-stations (max-fare charges, staff payments) are not real stations
// and get no station entry.
func (s *StatsService) keysFor(tx domain.Transaction) []statsKey {
	keys := []statsKey{{domain.StatsSystem, tx.SystemID}}
	if !domain.SentinelStation(tx.FromStation) {
		keys = append(keys, statsKey{domain.StatsStation, tx.FromStation})
	}
	if tx.ToStation != "" && tx.ToStation != tx.FromStation {
		keys = append(keys, statsKey{domain.StatsStation, tx.ToStation})
	}
	if s.routes != nil && tx.ToStation != "" && !domain.SentinelStation(tx.FromStation) {
		if route, ok := s.routes.RouteConnecting(tx.SystemID, tx.FromStation, tx.ToStation); ok {
			keys = append(keys, statsKey{domain.StatsRoute, route.ID})
		}
	}
	return keys
}

// Snapshot returns the cumulative counters for one key. Unknown keys yield
// a zero-valued snapshot.
func (s *StatsService) Snapshot(kind domain.StatsKind, id string) domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.entries[statsKey{kind, id}]; ok {
		return *st
	}
	return domain.Stats{Kind: kind, ID: id}
}

// SnapshotAll returns a copy of every roll-up.
func (s *StatsService) SnapshotAll() []domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Stats, 0, len(s.entries))
	for _, st := range s.entries {
		out = append(out, *st)
	}
	return out
}

// Windowed derives the roll-up for one key over a trailing window by
// replaying the transaction log, not the cumulative counters. Refunds in
// the window subtract with their own copied stations.
func (s *StatsService) Windowed(kind domain.StatsKind, id string, window time.Duration, src TransactionSource) domain.Stats {
	out := domain.Stats{Kind: kind, ID: id}
	for _, tx := range src.Since(time.Now().Add(-window)) {
		var sign int64
		switch {
		case tx.Type.Collecting():
			sign = 1
		case tx.Type == domain.TxRefund:
			sign = -1
		default:
			continue
		}
		if !s.matches(kind, id, tx) {
			continue
		}
		out.Revenue += float64(sign) * tx.Amount
		out.Transactions += sign
		switch tx.Type {
		case domain.TxEntry:
			out.Entries += sign
		case domain.TxExit:
			out.Exits += sign
		case domain.TxFlatRate:
			out.FlatRates += sign
		}
		out.Hourly[tx.Timestamp.Hour()] += sign
		out.UpdatedAt = time.Now()
	}
	return out
}

func (s *StatsService) matches(kind domain.StatsKind, id string, tx domain.Transaction) bool {
	switch kind {
	case domain.StatsSystem:
		return tx.SystemID == id
	case domain.StatsStation:
		return tx.FromStation == id || tx.ToStation == id
	case domain.StatsRoute:
		if s.routes == nil || tx.ToStation == "" {
			return false
		}
		route, ok := s.routes.RouteConnecting(tx.SystemID, tx.FromStation, tx.ToStation)
		return ok && route.ID == id
	}
	return false
}

// Save writes all counters to storage synchronously.
func (s *StatsService) Save(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Upsert(ctx, s.SnapshotAll())
}

// RunAutosave persists the counters on the given interval until ctx is
// cancelled. Failures are logged; the in-memory counters stay authoritative
// and the next tick retries.
func (s *StatsService) RunAutosave(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Save(ctx); err != nil {
				slog.Error("statistics autosave failed", "error", err)
			}
		}
	}
}
