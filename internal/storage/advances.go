package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moneymap/internal/core"
)

const advanceColumns = `id, owner_id, account_id, amount_cents, description, person,
	date, due_date, direction, status, amount_received_cents, transaction_id`

func scanAdvance(row interface{ Scan(...any) error }) (core.Advance, error) {
	var a core.Advance
	var dueDate, trxID sql.NullString
	var date string
	err := row.Scan(&a.ID, &a.OwnerID, &a.AccountID, &a.Amount.Cents, &a.Description, &a.Person,
		&date, &dueDate, &a.Direction, &a.Status, &a.AmountReceived.Cents, &trxID)
	if err != nil {
		return core.Advance{}, err
	}
	a.TransactionID = trxID.String
	if a.Date, err = core.ParseDate(date); err != nil {
		return core.Advance{}, fmt.Errorf("advance %s date: %w", a.ID, err)
	}
	if dueDate.Valid {
		if a.DueDate, err = core.ParseDate(dueDate.String); err != nil {
			return core.Advance{}, fmt.Errorf("advance %s due date: %w", a.ID, err)
		}
	}
	return a, nil
}

func (q *Queries) CreateAdvance(ctx context.Context, a core.Advance) error {
	var dueDate sql.NullString
	if !a.DueDate.IsZero() {
		dueDate = nullable(a.DueDate.String())
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO advances (id, owner_id, account_id, amount_cents, description, person,
			date, due_date, direction, status, amount_received_cents, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.AccountID, a.Amount.Cents, a.Description, a.Person,
		a.Date.String(), dueDate, a.Direction, a.Status, a.AmountReceived.Cents, nullable(a.TransactionID))
	if err != nil {
		return fmt.Errorf("insert advance: %w", err)
	}
	return nil
}

func (q *Queries) GetAdvance(ctx context.Context, id string) (core.Advance, error) {
	a, err := scanAdvance(q.db.QueryRowContext(ctx,
		`SELECT `+advanceColumns+` FROM advances WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Advance{}, fmt.Errorf("advance %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Advance{}, fmt.Errorf("get advance: %w", err)
	}
	return a, nil
}

func (q *Queries) ListAdvancesByOwner(ctx context.Context, ownerID string) ([]core.Advance, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+advanceColumns+`
		FROM advances WHERE owner_id = ? ORDER BY date DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	defer rows.Close()

	var out []core.Advance
	for rows.Next() {
		a, err := scanAdvance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan advance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AdvancePersonSummary totals an owner's open advances toward one person.
type AdvancePersonSummary struct {
	Person   string
	Count    int
	Total    core.Money
	Received core.Money
	Pending  core.Money
}

// AdvanceTotals aggregates all of an owner's advances, paid included.
type AdvanceTotals struct {
	Count        int
	Total        core.Money
	Received     core.Money
	Pending      core.Money
	CountPending int
	CountPartial int
	CountPaid    int
}

// SummarizeAdvancesByPerson groups the owner's unpaid advances by person,
// largest outstanding first. An empty direction covers both.
func (q *Queries) SummarizeAdvancesByPerson(ctx context.Context, ownerID string, direction core.AdvanceDirection) ([]AdvancePersonSummary, error) {
	query := `
		SELECT person,
			COUNT(*),
			SUM(amount_cents),
			SUM(amount_received_cents),
			SUM(amount_cents - amount_received_cents)
		FROM advances
		WHERE owner_id = ? AND status != 'paid'`
	args := []any{ownerID}
	if direction != "" {
		query += ` AND direction = ?`
		args = append(args, direction)
	}
	query += `
		GROUP BY person
		ORDER BY SUM(amount_cents - amount_received_cents) DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize advances by person: %w", err)
	}
	defer rows.Close()

	var out []AdvancePersonSummary
	for rows.Next() {
		var s AdvancePersonSummary
		err := rows.Scan(&s.Person, &s.Count, &s.Total.Cents, &s.Received.Cents, &s.Pending.Cents)
		if err != nil {
			return nil, fmt.Errorf("scan person summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SummarizeAdvanceTotals aggregates all of the owner's advances, counting
// each status separately. An empty direction covers both.
func (q *Queries) SummarizeAdvanceTotals(ctx context.Context, ownerID string, direction core.AdvanceDirection) (AdvanceTotals, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(amount_cents), 0),
			COALESCE(SUM(amount_received_cents), 0),
			COALESCE(SUM(amount_cents - amount_received_cents), 0),
			COUNT(CASE WHEN status = 'pending' THEN 1 END),
			COUNT(CASE WHEN status = 'partial' THEN 1 END),
			COUNT(CASE WHEN status = 'paid' THEN 1 END)
		FROM advances
		WHERE owner_id = ?`
	args := []any{ownerID}
	if direction != "" {
		query += ` AND direction = ?`
		args = append(args, direction)
	}

	var t AdvanceTotals
	err := q.db.QueryRowContext(ctx, query, args...).Scan(
		&t.Count, &t.Total.Cents, &t.Received.Cents, &t.Pending.Cents,
		&t.CountPending, &t.CountPartial, &t.CountPaid)
	if err != nil {
		return AdvanceTotals{}, fmt.Errorf("summarize advance totals: %w", err)
	}
	return t, nil
}

// UpdateAdvancePayment records the new cumulative received amount and the
// status derived from it.
func (q *Queries) UpdateAdvancePayment(ctx context.Context, id string, received core.Money, status core.AdvanceStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE advances SET amount_received_cents = ?, status = ? WHERE id = ?`,
		received.Cents, status, id)
	if err != nil {
		return fmt.Errorf("update advance payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update advance rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("advance %s: %w", id, core.ErrNotFound)
	}
	return nil
}
