package postgres

import (
	"context"
	"time"

	"github.com/emberline/faregate/internal/core/domain"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Insert(ctx context.Context, tx *domain.Transaction) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO transactions (id, rider_id, system_id, from_station, to_station, amount, type, ts)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, tx.ID, tx.RiderID, tx.SystemID, tx.FromStation, tx.ToStation, tx.Amount, string(tx.Type), tx.Timestamp)
	return err
}

func (r *TransactionRepo) InsertBatch(ctx context.Context, txs []domain.Transaction) error {
	for i := range txs {
		if err := r.Insert(ctx, &txs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *TransactionRepo) ListByRider(ctx context.Context, riderID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.query(ctx, `
		SELECT id, rider_id, system_id, from_station, COALESCE(to_station, ''), amount, type, ts
		FROM transactions WHERE rider_id = $1 ORDER BY ts DESC LIMIT $2
	`, riderID, limit)
}

func (r *TransactionRepo) ListBySystem(ctx context.Context, systemID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.query(ctx, `
		SELECT id, rider_id, system_id, from_station, COALESCE(to_station, ''), amount, type, ts
		FROM transactions WHERE system_id = $1 ORDER BY ts DESC LIMIT $2
	`, systemID, limit)
}

func (r *TransactionRepo) ListSince(ctx context.Context, since time.Time) ([]domain.Transaction, error) {
	return r.query(ctx, `
		SELECT id, rider_id, system_id, from_station, COALESCE(to_station, ''), amount, type, ts
		FROM transactions WHERE ts >= $1 ORDER BY ts
	`, since)
}

func (r *TransactionRepo) List(ctx context.Context) ([]domain.Transaction, error) {
	return r.query(ctx, `
		SELECT id, rider_id, system_id, from_station, COALESCE(to_station, ''), amount, type, ts
		FROM transactions ORDER BY ts
	`)
}

func (r *TransactionRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var txType string
		if err := rows.Scan(&tx.ID, &tx.RiderID, &tx.SystemID, &tx.FromStation,
			&tx.ToStation, &tx.Amount, &txType, &tx.Timestamp); err != nil {
			return nil, err
		}
		tx.Type = domain.TransactionType(txType)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
