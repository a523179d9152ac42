package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/ports"
)

const journeySnapshotKey = "faregate:journeys:open"

// TapResult is what a gate tap produced: an opened journey, or a completed
// charge.
type TapResult struct {
	Opened  *domain.Journey     `json:"opened,omitempty"`
	Charged *domain.Transaction `json:"charged,omitempty"`
	Fare    float64             `json:"fare"`
}

// JourneyService tracks each rider's open journey between tap-in and
// tap-out. At most one journey is open per rider; a second tap-in is
// rejected. The open-journey map is authoritative and snapshotted to the
// cache on shutdown so journeys survive a restart.
type JourneyService struct {
	systems  *SystemRegistry
	stations *StationService
	gates    *GateService
	fares    *FareService
	economy  ports.EconomyService
	ledger   *LedgerService

	publisher ports.EventPublisher
	notifier  ports.Notifier
	cache     ports.CacheService

	maxTapDuration time.Duration

	mu   sync.RWMutex
	open map[string]*domain.Journey
}

// NewJourneyService creates a new JourneyService. publisher, notifier and
// cache may be nil.
func NewJourneyService(
	systems *SystemRegistry,
	stations *StationService,
	gates *GateService,
	fares *FareService,
	economy ports.EconomyService,
	ledger *LedgerService,
	publisher ports.EventPublisher,
	notifier ports.Notifier,
	cache ports.CacheService,
	maxTapDuration time.Duration,
) *JourneyService {
	return &JourneyService{
		systems:        systems,
		stations:       stations,
		gates:          gates,
		fares:          fares,
		economy:        economy,
		ledger:         ledger,
		publisher:      publisher,
		notifier:       notifier,
		cache:          cache,
		maxTapDuration: maxTapDuration,
		open:           make(map[string]*domain.Journey),
	}
}

// Open returns the rider's open journey, if any.
func (s *JourneyService) Open(riderID string) (domain.Journey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.open[riderID]
	if !ok {
		return domain.Journey{}, false
	}
	return *j, true
}

// OpenCount returns how many journeys are currently open.
func (s *JourneyService) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open)
}

// Tap handles a gate interaction, choosing entry or exit from the rider's
// current state: no open journey opens one, an open journey in the gate's
// system closes it.
func (s *JourneyService) Tap(ctx context.Context, riderID, gateID, class string) (*TapResult, error) {
	_, station, err := s.gates.Resolve(gateID)
	if err != nil {
		return nil, err
	}
	if _, open := s.Open(riderID); open {
		return s.TapOut(ctx, riderID, station.SystemID, station.ID, class)
	}
	return s.TapIn(ctx, riderID, station.SystemID, station.ID, class)
}

// TapIn opens a journey at a station, or for flat-fare systems charges the
// single-tap fare immediately without entering the open state. A tap-in
// while a journey is already open is rejected.
func (s *JourneyService) TapIn(ctx context.Context, riderID, systemID, stationID, class string) (*TapResult, error) {
	sys, err := s.systems.Get(systemID)
	if err != nil {
		return nil, err
	}
	station, err := s.stations.Get(stationID)
	if err != nil {
		return nil, err
	}
	if station.SystemID != systemID {
		return nil, fmt.Errorf("station %s belongs to %s: %w", stationID, station.SystemID, ErrUnknownStation)
	}
	if !station.Status.Accepting() {
		return nil, fmt.Errorf("station %s is %s: %w", station.ID, station.Status, ErrStationClosed)
	}

	s.mu.Lock()
	if _, exists := s.open[riderID]; exists {
		s.mu.Unlock()
		slog.Warn("tap-in rejected, journey already open", "rider_id", riderID, "system_id", systemID)
		return nil, ErrJourneyOpen
	}

	if amount, flat := s.fares.FlatAmount(sys); flat {
		// Flat systems charge on entry; no journey opens.
		s.mu.Unlock()
		tx, err := s.charge(ctx, riderID, sys, domain.Transaction{
			RiderID:     riderID,
			SystemID:    systemID,
			FromStation: station.ID,
			Amount:      amount,
			Type:        domain.TxFlatRate,
		})
		if err != nil {
			return nil, err
		}
		return &TapResult{Charged: tx, Fare: amount}, nil
	}

	journey := &domain.Journey{
		RiderID:   riderID,
		SystemID:  systemID,
		StationID: station.ID,
		Position:  station.Position,
		StartedAt: time.Now(),
	}
	s.open[riderID] = journey
	s.mu.Unlock()

	s.publishEvent(ctx, domain.JourneyOpened, journey, 0)
	return &TapResult{Opened: journey}, nil
}

// TapOut closes the rider's open journey at the exit station, computing and
// charging the fare. A declined charge leaves the journey open so the rider
// can top up and retry.
func (s *JourneyService) TapOut(ctx context.Context, riderID, systemID, stationID, class string) (*TapResult, error) {
	sys, err := s.systems.Get(systemID)
	if err != nil {
		return nil, err
	}
	exit, err := s.stations.Get(stationID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	journey, exists := s.open[riderID]
	s.mu.RUnlock()
	if !exists {
		return nil, ErrNoOpenJourney
	}
	if journey.SystemID != systemID {
		return nil, fmt.Errorf("journey is in %s: %w", journey.SystemID, ErrSystemMismatch)
	}

	entry, err := s.stations.Get(journey.StationID)
	if err != nil {
		return nil, fmt.Errorf("entry station %s: %w", journey.StationID, err)
	}

	now := time.Now()
	fareDue := s.fares.Quote(sys, entry, exit, now.Hour(), int(now.Weekday()), class)

	tx, err := s.charge(ctx, riderID, sys, domain.Transaction{
		RiderID:     riderID,
		SystemID:    systemID,
		FromStation: entry.ID,
		ToStation:   exit.ID,
		Amount:      fareDue,
		Type:        domain.TxExit,
	})
	if err != nil {
		// Declined or failed: the journey stays open.
		return nil, err
	}

	s.mu.Lock()
	delete(s.open, riderID)
	s.mu.Unlock()

	closed := *journey
	closed.StationID = exit.ID
	s.publishEvent(ctx, domain.JourneyClosed, &closed, fareDue)
	return &TapResult{Charged: tx, Fare: fareDue}, nil
}

// ForceClose closes the rider's open journey unconditionally, charging the
// system's maximum fare instead of a computed one. Used by the timeout
// sweep and by rider disconnect. A declined charge still closes the
// journey; it is logged and not retried.
func (s *JourneyService) ForceClose(ctx context.Context, riderID, reason string) (*domain.Transaction, error) {
	s.mu.Lock()
	journey, exists := s.open[riderID]
	if !exists {
		s.mu.Unlock()
		return nil, ErrNoOpenJourney
	}
	delete(s.open, riderID)
	s.mu.Unlock()

	sys, err := s.systems.Get(journey.SystemID)
	if err != nil {
		return nil, err
	}

	slog.Info("force-closing journey",
		"rider_id", riderID, "system_id", journey.SystemID,
		"entry_station", journey.StationID, "reason", reason)

	tx, err := s.charge(ctx, riderID, sys, domain.Transaction{
		RiderID:     riderID,
		SystemID:    journey.SystemID,
		FromStation: domain.StationMaxFareCharge,
		Amount:      sys.MaxFare,
		Type:        domain.TxFlatRate,
	})
	if err != nil {
		slog.Warn("max-fare charge failed on force-close, journey closed anyway",
			"rider_id", riderID, "system_id", journey.SystemID, "error", err)
	}
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, riderID,
			fmt.Sprintf("Your %s journey was closed with a maximum fare charge.", sys.Name))
	}
	s.publishEvent(ctx, domain.JourneyForceClosed, journey, sys.MaxFare)
	return tx, nil
}

// HandleDisconnect force-closes the rider's journey when they drop off.
// Riders with no open journey are a no-op.
func (s *JourneyService) HandleDisconnect(ctx context.Context, riderID string) {
	if _, open := s.Open(riderID); !open {
		return
	}
	if _, err := s.ForceClose(ctx, riderID, "disconnect"); err != nil {
		slog.Warn("force-close on disconnect failed", "rider_id", riderID, "error", err)
	}
}

// RunSweeper force-closes journeys older than the maximum tap duration,
// checking on the given interval until ctx is cancelled.
func (s *JourneyService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired(ctx, time.Now())
		}
	}
}

// SweepExpired force-closes every journey whose age exceeds the maximum tap
// duration at the given instant. Returns how many were closed.
func (s *JourneyService) SweepExpired(ctx context.Context, now time.Time) int {
	s.mu.RLock()
	var expired []string
	for riderID, j := range s.open {
		if j.Age(now) > s.maxTapDuration {
			expired = append(expired, riderID)
		}
	}
	s.mu.RUnlock()

	for _, riderID := range expired {
		if _, err := s.ForceClose(ctx, riderID, "timeout"); err != nil {
			slog.Warn("timeout force-close failed", "rider_id", riderID, "error", err)
		}
	}
	return len(expired)
}

// Snapshot saves all open journeys to the cache so they survive a restart.
// Called on shutdown; open journeys are persisted as-is, not force-closed.
func (s *JourneyService) Snapshot(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.mu.RLock()
	journeys := make([]domain.Journey, 0, len(s.open))
	for _, j := range s.open {
		journeys = append(journeys, *j)
	}
	s.mu.RUnlock()

	data, err := json.Marshal(journeys)
	if err != nil {
		return fmt.Errorf("marshal journey snapshot: %w", err)
	}
	return s.cache.Set(ctx, journeySnapshotKey, data, 0)
}

// Restore reloads open journeys from the last snapshot. A missing snapshot
// is not an error.
func (s *JourneyService) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, journeySnapshotKey)
	if err != nil || len(data) == 0 {
		return nil
	}
	var journeys []domain.Journey
	if err := json.Unmarshal(data, &journeys); err != nil {
		return fmt.Errorf("unmarshal journey snapshot: %w", err)
	}

	s.mu.Lock()
	for i := range journeys {
		j := journeys[i]
		s.open[j.RiderID] = &j
	}
	s.mu.Unlock()

	slog.Info("restored open journeys", "count", len(journeys))
	return nil
}

// charge withdraws the amount from the rider and records the ledger entry.
// A declined withdrawal returns ErrInsufficientFunds and records nothing.
func (s *JourneyService) charge(ctx context.Context, riderID string, sys *domain.TransitSystem, tx domain.Transaction) (*domain.Transaction, error) {
	ok, err := s.economy.Withdraw(ctx, riderID, tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("withdraw %.2f from %s: %w", tx.Amount, riderID, err)
	}
	if !ok {
		slog.Info("charge declined",
			"rider_id", riderID, "system_id", sys.ID, "amount", tx.Amount)
		return nil, ErrInsufficientFunds
	}

	recorded := s.ledger.Record(ctx, tx)
	return &recorded, nil
}

func (s *JourneyService) publishEvent(ctx context.Context, kind domain.JourneyEventKind, j *domain.Journey, fare float64) {
	if s.publisher == nil {
		return
	}
	event := &domain.JourneyEvent{
		Kind:      kind,
		RiderID:   j.RiderID,
		SystemID:  j.SystemID,
		StationID: j.StationID,
		Fare:      fare,
		At:        time.Now(),
	}
	if err := s.publisher.PublishJourneyEvent(ctx, event); err != nil {
		slog.Warn("publish journey event failed", "rider_id", j.RiderID, "error", err)
	}
}
