package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moneymap/internal/core"
)

const transactionColumns = `id, account_id, target_account_id, category_id, recurrence_id,
	kind, amount_cents, description, date, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var target, category, recurrence sql.NullString
	var date string
	err := row.Scan(&t.ID, &t.AccountID, &target, &category, &recurrence,
		&t.Kind, &t.Amount.Cents, &t.Description, &date, &t.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.TargetAccountID = target.String
	t.CategoryID = category.String
	t.RecurrenceID = recurrence.String
	t.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	return t, nil
}

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, target_account_id, category_id, recurrence_id,
			kind, amount_cents, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, nullable(t.TargetAccountID), nullable(t.CategoryID), nullable(t.RecurrenceID),
		t.Kind, t.Amount.Cents, t.Description, t.Date.String(), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (q *Queries) ListTransactionsByAccount(ctx context.Context, accountID string) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = ? OR target_account_id = ?
		ORDER BY date DESC, created_at DESC`, accountID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (q *Queries) ListTransactionsByOwner(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.account_id, t.target_account_id, t.category_id, t.recurrence_id,
			t.kind, t.amount_cents, t.description, t.date, t.created_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.owner_id = ?
		ORDER BY t.date DESC, t.created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransactionRow removes the row only. Reversing the balance effect
// is the ledger engine's job and must happen in the same unit of work.
func (q *Queries) DeleteTransactionRow(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// SumExpensesInCategories totals expense transactions across the given
// category set inside the [start, end] date window, both ends inclusive.
func (q *Queries) SumExpensesInCategories(ctx context.Context, ownerID string, categoryIDs []string, start, end core.Date) (core.Money, error) {
	if len(categoryIDs) == 0 {
		return core.Money{}, nil
	}
	placeholders := strings.Repeat("?,", len(categoryIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(categoryIDs)+3)
	args = append(args, ownerID)
	for _, id := range categoryIDs {
		args = append(args, id)
	}
	args = append(args, start.String(), end.String())

	var cents int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.owner_id = ?
		  AND t.kind = 'expense'
		  AND t.category_id IN (`+placeholders+`)
		  AND t.date >= ? AND t.date <= ?`, args...).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.CentsOf(cents), nil
}
