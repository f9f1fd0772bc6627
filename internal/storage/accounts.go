package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moneymap/internal/core"
)

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, name, type, balance_cents, currency, icon, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.Type, a.Balance.Cents, a.Currency, a.Icon, a.Color, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	var a core.Account
	err := q.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, type, balance_cents, currency, icon, color, created_at
		FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.Balance.Cents, &a.Currency, &a.Icon, &a.Color, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// AdjustAccountBalance applies a signed delta in cents to the cached
// balance. Only the ledger engine calls this.
func (q *Queries) AdjustAccountBalance(ctx context.Context, id string, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`, deltaCents, id)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// DeleteAccount removes an account together with its transactions (as
// source or transfer target) and its recurrence rules.
func (q *Queries) DeleteAccount(ctx context.Context, id string) error {
	if _, err := q.GetAccount(ctx, id); err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE account_id = ? OR target_account_id = ?`, id, id); err != nil {
		return fmt.Errorf("delete account transactions: %w", err)
	}
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM recurrences WHERE account_id = ?`, id); err != nil {
		return fmt.Errorf("delete account recurrences: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
