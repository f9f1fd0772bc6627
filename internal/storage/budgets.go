package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moneymap/internal/core"
)

const budgetColumns = `id, owner_id, category_id, parent_budget_id, target_cents, display_order`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	var parent sql.NullString
	var order sql.NullInt64
	err := row.Scan(&b.ID, &b.OwnerID, &b.CategoryID, &parent, &b.Target.Cents, &order)
	if err != nil {
		return core.Budget{}, err
	}
	b.ParentBudgetID = parent.String
	b.DisplayOrder = int(order.Int64)
	return b, nil
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO budgets (id, owner_id, category_id, parent_budget_id, target_cents, display_order)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.CategoryID, nullable(b.ParentBudgetID), b.Target.Cents, nullableInt(b.DisplayOrder))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// ListBudgetsByOwner returns roots before children, ordered children by
// display order then creation.
func (q *Queries) ListBudgetsByOwner(ctx context.Context, ownerID string) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE owner_id = ?
		ORDER BY parent_budget_id IS NOT NULL, display_order IS NULL, display_order, created_at`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FindRootBudgetByCategory looks up the owner's root budget bound to a
// category. At most one can exist.
func (q *Queries) FindRootBudgetByCategory(ctx context.Context, ownerID, categoryID string) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE owner_id = ? AND category_id = ? AND parent_budget_id IS NULL`,
		ownerID, categoryID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("root budget for category %s: %w", categoryID, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find root budget: %w", err)
	}
	return b, nil
}

// FindBudgetByCategory looks up any budget bound to the category, root or
// child. When both exist the root wins.
func (q *Queries) FindBudgetByCategory(ctx context.Context, ownerID, categoryID string) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE owner_id = ? AND category_id = ?
		ORDER BY parent_budget_id IS NOT NULL
		LIMIT 1`,
		ownerID, categoryID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget for category %s: %w", categoryID, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget by category: %w", err)
	}
	return b, nil
}

// FindChildBudgetByCategory looks up the owner's child budget bound to a
// category, under whichever parent. At most one can exist.
func (q *Queries) FindChildBudgetByCategory(ctx context.Context, ownerID, categoryID string) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE owner_id = ? AND category_id = ? AND parent_budget_id IS NOT NULL`,
		ownerID, categoryID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("child budget for category %s: %w", categoryID, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find child budget: %w", err)
	}
	return b, nil
}

func (q *Queries) BudgetHasChildren(ctx context.Context, id string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budgets WHERE parent_budget_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count budget children: %w", err)
	}
	return n > 0, nil
}

// DeleteBudget removes a budget; children go with it (FK cascade).
func (q *Queries) DeleteBudget(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}
