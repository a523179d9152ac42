package postgres

import (
	"context"

	"github.com/emberline/faregate/internal/core/domain"
)

// StatsRepo implements ports.StatsRepository. The hour histogram is stored
// as a bigint array with 24 elements.
type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Upsert(ctx context.Context, stats []domain.Stats) error {
	for i := range stats {
		s := &stats[i]
		hourly := make([]int64, 24)
		copy(hourly, s.Hourly[:])
		_, err := r.db.Pool.Exec(ctx, `
			INSERT INTO fare_stats (kind, id, revenue, transactions, entries, exits, flat_rates, hourly, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (kind, id) DO UPDATE
			SET revenue = EXCLUDED.revenue, transactions = EXCLUDED.transactions,
			    entries = EXCLUDED.entries, exits = EXCLUDED.exits,
			    flat_rates = EXCLUDED.flat_rates, hourly = EXCLUDED.hourly,
			    updated_at = EXCLUDED.updated_at
		`, string(s.Kind), s.ID, s.Revenue, s.Transactions, s.Entries, s.Exits,
			s.FlatRates, hourly, s.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *StatsRepo) Load(ctx context.Context) ([]domain.Stats, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT kind, id, revenue, transactions, entries, exits, flat_rates, hourly, updated_at
		FROM fare_stats
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Stats
	for rows.Next() {
		var s domain.Stats
		var kind string
		var hourly []int64
		if err := rows.Scan(&kind, &s.ID, &s.Revenue, &s.Transactions,
			&s.Entries, &s.Exits, &s.FlatRates, &hourly, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Kind = domain.StatsKind(kind)
		copy(s.Hourly[:], hourly)
		out = append(out, s)
	}
	return out, rows.Err()
}
