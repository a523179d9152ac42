package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Accounts implements ports.EconomyService over rider balance rows.
// Withdrawals are a single conditional UPDATE so concurrent charges can
// never overdraw an account.
type Accounts struct {
	db *DB
}

func NewAccounts(db *DB) *Accounts {
	return &Accounts{db: db}
}

func (a *Accounts) Has(ctx context.Context, riderID string, amount float64) (bool, error) {
	var balance float64
	err := a.db.Pool.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE rider_id = $1`, riderID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

func (a *Accounts) Withdraw(ctx context.Context, riderID string, amount float64) (bool, error) {
	tag, err := a.db.Pool.Exec(ctx, `
		UPDATE accounts SET balance = balance - $2
		WHERE rider_id = $1 AND balance >= $2
	`, riderID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (a *Accounts) Deposit(ctx context.Context, riderID string, amount float64) error {
	_, err := a.db.Pool.Exec(ctx, `
		INSERT INTO accounts (rider_id, balance) VALUES ($1, $2)
		ON CONFLICT (rider_id) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance
	`, riderID, amount)
	return err
}
