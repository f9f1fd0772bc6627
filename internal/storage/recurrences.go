package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moneymap/internal/core"
)

const recurrenceColumns = `id, owner_id, account_id, category_id, kind, amount_cents, description,
	frequency, start_date, end_date, occurrences_limit, occurrences_count, next_occurrence, is_active`

func scanRecurrence(row interface{ Scan(...any) error }) (core.Recurrence, error) {
	var r core.Recurrence
	var category, endDate sql.NullString
	var limit sql.NullInt64
	var startDate, next string
	err := row.Scan(&r.ID, &r.OwnerID, &r.AccountID, &category, &r.Kind, &r.Amount.Cents, &r.Description,
		&r.Frequency, &startDate, &endDate, &limit, &r.OccurrencesCount, &next, &r.IsActive)
	if err != nil {
		return core.Recurrence{}, err
	}
	r.CategoryID = category.String
	r.OccurrencesLimit = int(limit.Int64)
	if r.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.Recurrence{}, fmt.Errorf("recurrence %s start date: %w", r.ID, err)
	}
	if endDate.Valid {
		if r.EndDate, err = core.ParseDate(endDate.String); err != nil {
			return core.Recurrence{}, fmt.Errorf("recurrence %s end date: %w", r.ID, err)
		}
	}
	if r.NextOccurrence, err = core.ParseDate(next); err != nil {
		return core.Recurrence{}, fmt.Errorf("recurrence %s cursor: %w", r.ID, err)
	}
	return r, nil
}

func (q *Queries) CreateRecurrence(ctx context.Context, r core.Recurrence) error {
	var endDate sql.NullString
	if !r.EndDate.IsZero() {
		endDate = nullable(r.EndDate.String())
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO recurrences (id, owner_id, account_id, category_id, kind, amount_cents, description,
			frequency, start_date, end_date, occurrences_limit, occurrences_count, next_occurrence, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.AccountID, nullable(r.CategoryID), r.Kind, r.Amount.Cents, r.Description,
		r.Frequency, r.StartDate.String(), endDate, nullableInt(r.OccurrencesLimit),
		r.OccurrencesCount, r.NextOccurrence.String(), r.IsActive)
	if err != nil {
		return fmt.Errorf("insert recurrence: %w", err)
	}
	return nil
}

func (q *Queries) GetRecurrence(ctx context.Context, id string) (core.Recurrence, error) {
	r, err := scanRecurrence(q.db.QueryRowContext(ctx,
		`SELECT `+recurrenceColumns+` FROM recurrences WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Recurrence{}, fmt.Errorf("recurrence %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Recurrence{}, fmt.Errorf("get recurrence: %w", err)
	}
	return r, nil
}

// ListDueRecurrences returns the owner's active rules whose cursor is on or
// before today, oldest cursor first.
func (q *Queries) ListDueRecurrences(ctx context.Context, ownerID string, today core.Date) ([]core.Recurrence, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+recurrenceColumns+`
		FROM recurrences
		WHERE owner_id = ? AND is_active = 1 AND next_occurrence <= ?
		ORDER BY next_occurrence`, ownerID, today.String())
	if err != nil {
		return nil, fmt.Errorf("list due recurrences: %w", err)
	}
	defer rows.Close()

	var out []core.Recurrence
	for rows.Next() {
		r, err := scanRecurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurrence: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) ListRecurrencesByOwner(ctx context.Context, ownerID string) ([]core.Recurrence, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+recurrenceColumns+`
		FROM recurrences WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list recurrences: %w", err)
	}
	defer rows.Close()

	var out []core.Recurrence
	for rows.Next() {
		r, err := scanRecurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurrence: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AdvanceRecurrenceCursor moves the cursor forward and records the new
// materialization count. Must run in the same unit of work as the inserted
// transaction and the balance delta.
func (q *Queries) AdvanceRecurrenceCursor(ctx context.Context, id string, next core.Date, count int) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurrences SET next_occurrence = ?, occurrences_count = ? WHERE id = ?`,
		next.String(), count, id)
	if err != nil {
		return fmt.Errorf("advance recurrence cursor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance cursor rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurrence %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// DeactivateRecurrence marks an exhausted or cancelled rule inactive.
// Deactivation is terminal: the scheduler only ever selects active rules.
func (q *Queries) DeactivateRecurrence(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurrences SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate recurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurrence %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// ResetRecurrenceStart rewrites the start date and rewinds the cursor to
// it. The next scheduler pass re-materializes from the new start; existing
// transactions are left alone.
func (q *Queries) ResetRecurrenceStart(ctx context.Context, id string, start core.Date) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurrences SET start_date = ?, next_occurrence = ?, is_active = 1 WHERE id = ?`,
		start.String(), start.String(), id)
	if err != nil {
		return fmt.Errorf("reset recurrence start: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset start rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurrence %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteRecurrence(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET recurrence_id = NULL WHERE recurrence_id = ?`, id); err != nil {
		return fmt.Errorf("unlink recurrence transactions: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM recurrences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recurrence rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurrence %s: %w", id, core.ErrNotFound)
	}
	return nil
}
