package postgres

import (
	"context"

	"github.com/emberline/faregate/internal/core/domain"
)

// StaffRepo implements ports.StaffRepository: the roster, queued payments,
// shifts, and performance metrics.
type StaffRepo struct {
	db *DB
}

func NewStaffRepo(db *DB) *StaffRepo {
	return &StaffRepo{db: db}
}

func (r *StaffRepo) UpsertMember(ctx context.Context, m *domain.StaffMember) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO staff (rider_id, system_id, role, salary, period, last_paid, hired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (rider_id, system_id) DO UPDATE
		SET role = EXCLUDED.role, salary = EXCLUDED.salary,
		    period = EXCLUDED.period, last_paid = EXCLUDED.last_paid
	`, m.RiderID, m.SystemID, string(m.Role), m.Salary, string(m.Period), m.LastPaid, m.HiredAt)
	return err
}

func (r *StaffRepo) DeleteMember(ctx context.Context, systemID, riderID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM staff WHERE system_id = $1 AND rider_id = $2`, systemID, riderID)
	return err
}

func (r *StaffRepo) ListMembers(ctx context.Context) ([]domain.StaffMember, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT rider_id, system_id, role, salary, period, last_paid, hired_at
		FROM staff ORDER BY system_id, rider_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.StaffMember
	for rows.Next() {
		var m domain.StaffMember
		var role, period string
		if err := rows.Scan(&m.RiderID, &m.SystemID, &role, &m.Salary,
			&period, &m.LastPaid, &m.HiredAt); err != nil {
			return nil, err
		}
		m.Role = domain.StaffRole(role)
		m.Period = domain.PaymentPeriod(period)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *StaffRepo) InsertPending(ctx context.Context, p *domain.PendingPayment) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO pending_payments (id, rider_id, system_id, amount, kind, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.RiderID, p.SystemID, p.Amount, string(p.Kind), p.QueuedAt)
	return err
}

func (r *StaffRepo) DeletePending(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM pending_payments WHERE id = $1`, id)
	return err
}

func (r *StaffRepo) ListPending(ctx context.Context) ([]domain.PendingPayment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, rider_id, system_id, amount, kind, queued_at
		FROM pending_payments ORDER BY queued_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.PendingPayment
	for rows.Next() {
		var p domain.PendingPayment
		var kind string
		if err := rows.Scan(&p.ID, &p.RiderID, &p.SystemID, &p.Amount, &kind, &p.QueuedAt); err != nil {
			return nil, err
		}
		p.Kind = domain.PaymentKind(kind)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *StaffRepo) UpsertShift(ctx context.Context, s *domain.Shift) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO shifts (rider_id, system_id, started_at, ended_at, transactions, incidents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (rider_id, system_id, started_at) DO UPDATE
		SET ended_at = EXCLUDED.ended_at,
		    transactions = EXCLUDED.transactions, incidents = EXCLUDED.incidents
	`, s.RiderID, s.SystemID, s.StartedAt, s.EndedAt, s.Transactions, s.Incidents)
	return err
}

func (r *StaffRepo) ListShifts(ctx context.Context, systemID, riderID string, limit int) ([]domain.Shift, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT rider_id, system_id, started_at, ended_at, transactions, incidents
		FROM shifts WHERE system_id = $1 AND rider_id = $2
		ORDER BY started_at DESC LIMIT $3
	`, systemID, riderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []domain.Shift
	for rows.Next() {
		var s domain.Shift
		if err := rows.Scan(&s.RiderID, &s.SystemID, &s.StartedAt, &s.EndedAt,
			&s.Transactions, &s.Incidents); err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

func (r *StaffRepo) UpsertPerformance(ctx context.Context, p *domain.Performance) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO staff_performance (rider_id, transactions, interactions, incidents, avg_response_mins, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (rider_id) DO UPDATE
		SET transactions = EXCLUDED.transactions, interactions = EXCLUDED.interactions,
		    incidents = EXCLUDED.incidents, avg_response_mins = EXCLUDED.avg_response_mins,
		    evaluated_at = EXCLUDED.evaluated_at
	`, p.RiderID, p.Transactions, p.Interactions, p.Incidents, p.AvgResponseMins, p.EvaluatedAt)
	return err
}

func (r *StaffRepo) ListPerformance(ctx context.Context) ([]domain.Performance, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT rider_id, transactions, interactions, incidents, avg_response_mins, evaluated_at
		FROM staff_performance
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perfs []domain.Performance
	for rows.Next() {
		var p domain.Performance
		if err := rows.Scan(&p.RiderID, &p.Transactions, &p.Interactions,
			&p.Incidents, &p.AvgResponseMins, &p.EvaluatedAt); err != nil {
			return nil, err
		}
		perfs = append(perfs, p)
	}
	return perfs, rows.Err()
}
