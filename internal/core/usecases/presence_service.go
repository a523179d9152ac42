package usecases

import (
	"context"
	"log/slog"
	"sync"
)

// PresenceService tracks which riders are currently reachable and runs the
// lifecycle hooks: connecting flushes queued staff payments, disconnecting
// force-closes any open journey.
type PresenceService struct {
	payroll  *PayrollService
	journeys *JourneyService

	mu     sync.RWMutex
	online map[string]bool
}

// NewPresenceService creates a new PresenceService. payroll and journeys
// may be nil.
func NewPresenceService(payroll *PayrollService, journeys *JourneyService) *PresenceService {
	return &PresenceService{
		payroll:  payroll,
		journeys: journeys,
		online:   make(map[string]bool),
	}
}

// Reachable reports whether the rider is connected.
func (s *PresenceService) Reachable(riderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online[riderID]
}

// OnlineCount returns how many riders are connected.
func (s *PresenceService) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.online)
}

// Connect marks the rider reachable and delivers any queued staff payments.
func (s *PresenceService) Connect(ctx context.Context, riderID string) {
	s.mu.Lock()
	s.online[riderID] = true
	s.mu.Unlock()

	if s.payroll != nil {
		if flushed := s.payroll.FlushPending(ctx, riderID); flushed > 0 {
			slog.Info("delivered queued payments on connect", "rider_id", riderID, "count", flushed)
		}
	}
}

// Disconnect marks the rider unreachable and force-closes their open
// journey, if any.
func (s *PresenceService) Disconnect(ctx context.Context, riderID string) {
	s.mu.Lock()
	delete(s.online, riderID)
	s.mu.Unlock()

	if s.journeys != nil {
		s.journeys.HandleDisconnect(ctx, riderID)
	}
}
