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

// PresenceChecker reports whether a rider is currently reachable for
// payment delivery.
type PresenceChecker interface {
	Reachable(riderID string) bool
}

type staffKey struct {
	systemID string
	riderID  string
}

// PayrollService pays staff from their system's collected revenue. A
// periodic tick disburses salaries that have come due; payments to
// unreachable riders are queued and flushed when the rider connects.
type PayrollService struct {
	systems  *SystemRegistry
	repo     ports.StaffRepository
	economy  ports.EconomyService
	ledger   *LedgerService
	presence PresenceChecker
	notifier ports.Notifier

	mu          sync.RWMutex
	members     map[staffKey]*domain.StaffMember
	pending     map[string][]domain.PendingPayment
	shifts      map[staffKey]*domain.Shift
	performance map[string]*domain.Performance
}

// NewPayrollService creates a new PayrollService. repo, presence and
// notifier may be nil; a nil presence treats every rider as unreachable.
func NewPayrollService(
	systems *SystemRegistry,
	repo ports.StaffRepository,
	economy ports.EconomyService,
	ledger *LedgerService,
	presence PresenceChecker,
	notifier ports.Notifier,
) *PayrollService {
	return &PayrollService{
		systems:     systems,
		repo:        repo,
		economy:     economy,
		ledger:      ledger,
		presence:    presence,
		notifier:    notifier,
		members:     make(map[staffKey]*domain.StaffMember),
		pending:     make(map[string][]domain.PendingPayment),
		shifts:      make(map[staffKey]*domain.Shift),
		performance: make(map[string]*domain.Performance),
	}
}

// SetPresence installs the reachability check after construction. Presence
// and payroll reference each other, so one side has to be wired late.
func (s *PayrollService) SetPresence(presence PresenceChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence = presence
}

// Load restores staff, queued payments and performance from storage.
func (s *PayrollService) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("load staff: %w", err)
	}
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("load pending payments: %w", err)
	}
	perfs, err := s.repo.ListPerformance(ctx)
	if err != nil {
		return fmt.Errorf("load performance: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range members {
		m := members[i]
		s.members[staffKey{m.SystemID, m.RiderID}] = &m
	}
	for _, p := range pending {
		s.pending[p.RiderID] = append(s.pending[p.RiderID], p)
	}
	for i := range perfs {
		p := perfs[i]
		s.performance[p.RiderID] = &p
	}
	return nil
}

// Hire employs a rider in a system. A rider may staff several systems, but
// only once each.
func (s *PayrollService) Hire(ctx context.Context, systemID, riderID string, role domain.StaffRole, salary float64, period domain.PaymentPeriod) (*domain.StaffMember, error) {
	if _, err := s.systems.Get(systemID); err != nil {
		return nil, err
	}

	now := time.Now()
	member := &domain.StaffMember{
		RiderID:  riderID,
		SystemID: systemID,
		Role:     role,
		Salary:   salary,
		Period:   period,
		LastPaid: now,
		HiredAt:  now,
	}

	key := staffKey{systemID, riderID}
	s.mu.Lock()
	if _, exists := s.members[key]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("rider %s already staffs %s", riderID, systemID)
	}
	s.members[key] = member
	s.mu.Unlock()

	s.persistMember(member)
	return member, nil
}

// Dismiss removes a rider from a system's staff.
func (s *PayrollService) Dismiss(ctx context.Context, systemID, riderID string) error {
	key := staffKey{systemID, riderID}
	s.mu.Lock()
	if _, ok := s.members[key]; !ok {
		s.mu.Unlock()
		return ErrUnknownStaff
	}
	delete(s.members, key)
	delete(s.shifts, key)
	s.mu.Unlock()

	if s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.DeleteMember(ctx, systemID, riderID); err != nil {
				slog.Error("delete staff failed", "system_id", systemID, "rider_id", riderID, "error", err)
			}
		}()
	}
	return nil
}

// Member returns a staff record.
func (s *PayrollService) Member(systemID, riderID string) (*domain.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[staffKey{systemID, riderID}]
	if !ok {
		return nil, ErrUnknownStaff
	}
	cp := *m
	return &cp, nil
}

// ListBySystem returns a system's staff sorted by rider id.
func (s *PayrollService) ListBySystem(systemID string) []domain.StaffMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StaffMember
	for key, m := range s.members {
		if key.systemID == systemID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RiderID < out[j].RiderID })
	return out
}

// HasPermission reports whether the rider's role in the system grants the
// permission. Non-staff have no permissions.
func (s *PayrollService) HasPermission(systemID, riderID string, perm domain.StaffPermission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[staffKey{systemID, riderID}]
	return ok && m.Role.Grants(perm)
}

// RunScheduler disburses due salaries on the given interval until ctx is
// cancelled.
func (s *PayrollService) RunScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PayDue(ctx, time.Now())
		}
	}
}

// PayDue walks the roster and disburses every salary that has come due at
// the given instant. An insufficient system balance logs a warning and
// leaves lastPaid untouched so the next tick retries; an unreachable rider
// gets a queued payment instead, with lastPaid advanced since the
// obligation is now captured in the queue.
func (s *PayrollService) PayDue(ctx context.Context, now time.Time) {
	s.mu.RLock()
	due := make([]domain.StaffMember, 0)
	for _, m := range s.members {
		if daysSince(m.LastPaid, now) >= m.Period.Days() {
			due = append(due, *m)
		}
	}
	s.mu.RUnlock()

	for _, m := range due {
		if s.ledger.BalanceOf(m.SystemID) < m.Salary {
			slog.Warn("system balance cannot cover salary, retrying next tick",
				"system_id", m.SystemID, "rider_id", m.RiderID, "salary", m.Salary)
			continue
		}

		if s.presence != nil && s.presence.Reachable(m.RiderID) {
			if err := s.disburse(ctx, m.SystemID, m.RiderID, m.Salary); err != nil {
				slog.Error("salary disbursement failed",
					"system_id", m.SystemID, "rider_id", m.RiderID, "error", err)
				continue
			}
		} else {
			s.enqueue(domain.PendingPayment{
				ID:       domain.NewID(),
				RiderID:  m.RiderID,
				SystemID: m.SystemID,
				Amount:   m.Salary,
				Kind:     domain.PaySalary,
				QueuedAt: now,
			})
		}
		s.advanceLastPaid(m.SystemID, m.RiderID, now)
	}
}

// FlushPending delivers every queued payment for a rider who just became
// reachable. Each flushed payment produces a STAFF_PAYMENT transaction.
func (s *PayrollService) FlushPending(ctx context.Context, riderID string) int {
	s.mu.Lock()
	queued := s.pending[riderID]
	delete(s.pending, riderID)
	s.mu.Unlock()

	flushed := 0
	for _, p := range queued {
		if err := s.disburse(ctx, p.SystemID, p.RiderID, p.Amount); err != nil {
			slog.Error("pending payment delivery failed, re-queued",
				"payment_id", p.ID, "rider_id", p.RiderID, "error", err)
			s.mu.Lock()
			s.pending[riderID] = append(s.pending[riderID], p)
			s.mu.Unlock()
			continue
		}
		flushed++
		if s.repo != nil {
			p := p
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.repo.DeletePending(ctx, p.ID); err != nil {
					slog.Error("delete pending payment failed", "payment_id", p.ID, "error", err)
				}
			}()
		}
	}
	return flushed
}

// PendingFor returns the rider's queued payments.
func (s *PayrollService) PendingFor(riderID string) []domain.PendingPayment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PendingPayment(nil), s.pending[riderID]...)
}

// StartShift opens a working shift for a staff member.
func (s *PayrollService) StartShift(ctx context.Context, systemID, riderID string) (*domain.Shift, error) {
	key := staffKey{systemID, riderID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[key]; !ok {
		return nil, ErrUnknownStaff
	}
	if _, open := s.shifts[key]; open {
		return nil, fmt.Errorf("rider %s already has an open shift in %s", riderID, systemID)
	}
	shift := &domain.Shift{
		RiderID:   riderID,
		SystemID:  systemID,
		StartedAt: time.Now(),
	}
	s.shifts[key] = shift
	cp := *shift
	return &cp, nil
}

// MarkShiftActivity accumulates transaction and incident counts on the
// rider's open shift.
func (s *PayrollService) MarkShiftActivity(systemID, riderID string, transactions, incidents int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shift, ok := s.shifts[staffKey{systemID, riderID}]; ok {
		shift.Transactions += transactions
		shift.Incidents += incidents
	}
}

// EndShift closes the shift and queues its pay rather than disbursing it
// immediately. Shift pay accrues salary/(periodDays*8) per hour plus the
// rider's performance bonus.
func (s *PayrollService) EndShift(ctx context.Context, systemID, riderID string) (*domain.PendingPayment, error) {
	key := staffKey{systemID, riderID}
	now := time.Now()

	s.mu.Lock()
	member, ok := s.members[key]
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownStaff
	}
	shift, open := s.shifts[key]
	if !open {
		s.mu.Unlock()
		return nil, fmt.Errorf("rider %s has no open shift in %s", riderID, systemID)
	}
	delete(s.shifts, key)
	shift.EndedAt = &now

	hourly := member.Salary / float64(member.Period.Days()*8)
	pay := hourly * now.Sub(shift.StartedAt).Hours()
	if perf, ok := s.performance[riderID]; ok {
		pay += perf.Bonus()
	}
	ended := *shift
	s.mu.Unlock()

	payment := domain.PendingPayment{
		ID:       domain.NewID(),
		RiderID:  riderID,
		SystemID: systemID,
		Amount:   pay,
		Kind:     domain.PayShift,
		QueuedAt: now,
	}
	s.enqueue(payment)

	if s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.UpsertShift(ctx, &ended); err != nil {
				slog.Error("persist shift failed", "system_id", systemID, "rider_id", riderID, "error", err)
			}
		}()
	}
	return &payment, nil
}

// UpdatePerformance replaces the rider's tracked performance metrics.
func (s *PayrollService) UpdatePerformance(ctx context.Context, perf domain.Performance) {
	perf.EvaluatedAt = time.Now()
	s.mu.Lock()
	s.performance[perf.RiderID] = &perf
	s.mu.Unlock()

	if s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.UpsertPerformance(ctx, &perf); err != nil {
				slog.Error("persist performance failed", "rider_id", perf.RiderID, "error", err)
			}
		}()
	}
}

// PerformanceOf returns the rider's tracked metrics, zero-valued when none
// were recorded.
func (s *PayrollService) PerformanceOf(riderID string) domain.Performance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.performance[riderID]; ok {
		return *p
	}
	return domain.Performance{RiderID: riderID}
}

// disburse deposits the amount to the rider and records the ledger entry.
func (s *PayrollService) disburse(ctx context.Context, systemID, riderID string, amount float64) error {
	if err := s.economy.Deposit(ctx, riderID, amount); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	s.ledger.Record(ctx, domain.Transaction{
		RiderID:     riderID,
		SystemID:    systemID,
		FromStation: domain.StationStaffPayment,
		Amount:      amount,
		Type:        domain.TxStaffPayment,
	})
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, riderID, fmt.Sprintf("You were paid %.2f by %s.", amount, systemID))
	}
	return nil
}

func (s *PayrollService) enqueue(p domain.PendingPayment) {
	s.mu.Lock()
	s.pending[p.RiderID] = append(s.pending[p.RiderID], p)
	s.mu.Unlock()

	if s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.InsertPending(ctx, &p); err != nil {
				slog.Error("persist pending payment failed", "payment_id", p.ID, "error", err)
			}
		}()
	}
}

func (s *PayrollService) advanceLastPaid(systemID, riderID string, now time.Time) {
	s.mu.Lock()
	m, ok := s.members[staffKey{systemID, riderID}]
	var cp domain.StaffMember
	if ok {
		m.LastPaid = now
		cp = *m
	}
	s.mu.Unlock()
	if ok {
		s.persistMember(&cp)
	}
}

func (s *PayrollService) persistMember(m *domain.StaffMember) {
	if s.repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.UpsertMember(ctx, m); err != nil {
			slog.Error("persist staff failed", "system_id", m.SystemID, "rider_id", m.RiderID, "error", err)
		}
	}()
}

func daysSince(t, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}
