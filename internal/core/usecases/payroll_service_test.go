package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/usecases"
)

// payrollStack wires payroll against a funded metro ledger.
func payrollStack(t *testing.T) *stack {
	t.Helper()
	s := newStack(t, 2*time.Hour, metroSystem(t))
	s.payroll = usecases.NewPayrollService(s.systems, nil, s.economy, s.ledger, s.presence, s.notifier)
	return s
}

func fund(s *stack, systemID string, amount float64) {
	s.ledger.Record(context.Background(), domain.Transaction{
		SystemID: systemID, FromStation: "a", Amount: amount, Type: domain.TxEntry,
	})
}

func TestPayrollService_PaysReachableStaff(t *testing.T) {
	s := payrollStack(t)
	fund(s, "metro", 1000)
	ctx := context.Background()

	member, err := s.payroll.Hire(ctx, "metro", "staff-1", domain.RoleOperator, 100, domain.PayDaily)
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	s.presence.Connect(ctx, "staff-1")

	s.payroll.PayDue(ctx, member.HiredAt.Add(25*time.Hour))

	if got := s.ledger.BalanceOf("metro"); got != 900 {
		t.Errorf("expected balance 900 after salary, got %v", got)
	}
	txs := s.ledger.ByRider("staff-1", 0)
	if len(txs) != 1 || txs[0].Type != domain.TxStaffPayment || txs[0].Amount != 100 {
		t.Fatalf("expected one STAFF_PAYMENT of 100, got %+v", txs)
	}
	if txs[0].FromStation != domain.StationStaffPayment {
		t.Errorf("staff payment should use the sentinel station, got %s", txs[0].FromStation)
	}

	updated, _ := s.payroll.Member("metro", "staff-1")
	if !updated.LastPaid.After(member.HiredAt) {
		t.Error("lastPaid should advance after payment")
	}
}

func TestPayrollService_NotDueYet(t *testing.T) {
	s := payrollStack(t)
	fund(s, "metro", 1000)
	ctx := context.Background()

	member, err := s.payroll.Hire(ctx, "metro", "staff-1", domain.RoleOperator, 100, domain.PayWeekly)
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	s.presence.Connect(ctx, "staff-1")

	// Three days into a weekly period.
	s.payroll.PayDue(ctx, member.HiredAt.Add(3*24*time.Hour))
	if got := len(s.ledger.ByRider("staff-1", 0)); got != 0 {
		t.Errorf("weekly salary must not pay at day 3, got %d transactions", got)
	}
}

func TestPayrollService_UnreachableStaffQueued(t *testing.T) {
	s := payrollStack(t)
	fund(s, "metro", 1000)
	ctx := context.Background()

	member, err := s.payroll.Hire(ctx, "metro", "staff-1", domain.RoleOperator, 100, domain.PayDaily)
	if err != nil {
		t.Fatalf("hire: %v", err)
	}

	s.payroll.PayDue(ctx, member.HiredAt.Add(25*time.Hour))

	if got := len(s.ledger.ByRider("staff-1", 0)); got != 0 {
		t.Errorf("no transaction should exist while the payment is queued, got %d", got)
	}
	queued := s.payroll.PendingFor("staff-1")
	if len(queued) != 1 || queued[0].Amount != 100 || queued[0].Kind != domain.PaySalary {
		t.Fatalf("expected one queued salary of 100, got %+v", queued)
	}
	// The obligation is captured, so lastPaid advances.
	updated, _ := s.payroll.Member("metro", "staff-1")
	if !updated.LastPaid.After(member.HiredAt) {
		t.Error("lastPaid should advance when the payment is queued")
	}
}

func TestPayrollService_InsufficientBalanceRetries(t *testing.T) {
	s := payrollStack(t)
	fund(s, "metro", 50) // cannot cover a 100 salary
	ctx := context.Background()

	member, err := s.payroll.Hire(ctx, "metro", "staff-1", domain.RoleOperator, 100, domain.PayDaily)
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	s.presence.Connect(ctx, "staff-1")

	due := member.HiredAt.Add(25 * time.Hour)
	s.payroll.PayDue(ctx, due)

	if got := len(s.ledger.ByRider("staff-1", 0)); got != 0 {
		t.Errorf("no payment should happen on insufficient balance, got %d", got)
	}
	if got := len(s.payroll.PendingFor("staff-1")); got != 0 {
		t.Errorf("insufficient balance must not queue, got %d", got)
	}
	updated, _ := s.payroll.Member("metro", "staff-1")
	if !updated.LastPaid.Equal(member.LastPaid) {
		t.Error("lastPaid must not advance on insufficient balance")
	}

	// Revenue arrives; the next tick pays.
	fund(s, "metro", 100)
	s.payroll.PayDue(ctx, due.Add(time.Hour))
	if got := len(s.ledger.ByRider("staff-1", 0)); got != 1 {
		t.Errorf("expected payment after balance recovered, got %d transactions", got)
	}
}

func TestPayrollService_ConnectFlushesPending(t *testing.T) {
	s := payrollStack(t)
	// Presence wired to payroll for the flush hook.
	s.presence = usecases.NewPresenceService(s.payroll, s.journeys)
	fund(s, "metro", 1000)
	ctx := context.Background()

	member, err := s.payroll.Hire(ctx, "metro", "staff-1", domain.RoleOperator, 100, domain.PayDaily)
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	s.payroll.PayDue(ctx, member.HiredAt.Add(25*time.Hour)) // queued, offline

	s.presence.Connect(ctx, "staff-1")

	if got := len(s.payroll.PendingFor("staff-1")); got != 0 {
		t.Errorf("queue should be empty after connect, got %d", got)
	}
	txs := s.ledger.ByRider("staff-1", 0)
	if len(txs) != 1 || txs[0].Type != domain.TxStaffPayment {
		t.Fatalf("flush should produce a STAFF_PAYMENT, got %+v", txs)
	}
}

func TestPayrollService_ShiftPayQueuedWithBonus(t *testing.T) {
	s := payrollStack(t)
	ctx := context.Background()

	// DAILY period: hourly rate = 192 / (1*8) = 24.
	if _, err := s.payroll.Hire(ctx, "metro", "staff-1", domain.RoleOperator, 192, domain.PayDaily); err != nil {
		t.Fatalf("hire: %v", err)
	}
	s.payroll.UpdatePerformance(ctx, domain.Performance{
		RiderID:      "staff-1",
		Transactions: 1500, // +100
		Interactions: 10,   // +5
	})

	if _, err := s.payroll.StartShift(ctx, "metro", "staff-1"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	payment, err := s.payroll.EndShift(ctx, "metro", "staff-1")
	if err != nil {
		t.Fatalf("end shift: %v", err)
	}

	// The shift lasted only for the test's runtime, so pay is bonus plus a
	// sliver of hourly accrual.
	if payment.Kind != domain.PayShift {
		t.Errorf("expected SHIFT_PAY, got %s", payment.Kind)
	}
	if payment.Amount < 105 || payment.Amount > 106 {
		t.Errorf("expected pay of ~105 (bonus dominated), got %v", payment.Amount)
	}
	if got := len(s.payroll.PendingFor("staff-1")); got != 1 {
		t.Errorf("shift pay should be queued, not disbursed, got %d queued", got)
	}
}

func TestPayrollService_DoubleShiftRejected(t *testing.T) {
	s := payrollStack(t)
	ctx := context.Background()
	if _, err := s.payroll.Hire(ctx, "metro", "staff-1", domain.RoleOperator, 100, domain.PayDaily); err != nil {
		t.Fatalf("hire: %v", err)
	}
	if _, err := s.payroll.StartShift(ctx, "metro", "staff-1"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := s.payroll.StartShift(ctx, "metro", "staff-1"); err == nil {
		t.Fatal("second shift start must fail")
	}
}

func TestPayrollService_Permissions(t *testing.T) {
	s := payrollStack(t)
	ctx := context.Background()

	if _, err := s.payroll.Hire(ctx, "metro", "boss", domain.RoleSupervisor, 500, domain.PayMonthly); err != nil {
		t.Fatalf("hire: %v", err)
	}
	if _, err := s.payroll.Hire(ctx, "metro", "newbie", domain.RoleTrainee, 50, domain.PayWeekly); err != nil {
		t.Fatalf("hire: %v", err)
	}

	if !s.payroll.HasPermission("metro", "boss", domain.PermRefund) {
		t.Error("supervisor should be able to refund")
	}
	if s.payroll.HasPermission("metro", "newbie", domain.PermRefund) {
		t.Error("trainee must not be able to refund")
	}
	if !s.payroll.HasPermission("metro", "newbie", domain.PermViewStatistics) {
		t.Error("trainee should view statistics")
	}
	if s.payroll.HasPermission("metro", "stranger", domain.PermViewStatistics) {
		t.Error("non-staff have no permissions")
	}
}

func TestPayrollService_HireUnknownSystem(t *testing.T) {
	s := payrollStack(t)
	if _, err := s.payroll.Hire(context.Background(), "ghost", "staff-1", domain.RoleOperator, 100, domain.PayDaily); err == nil {
		t.Fatal("hiring into an unknown system must fail")
	}
}
