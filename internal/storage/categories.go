package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moneymap/internal/core"
)

const categoryColumns = `id, owner_id, parent_id, name, kind, icon, color, is_default`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var parent sql.NullString
	err := row.Scan(&c.ID, &c.OwnerID, &parent, &c.Name, &c.Kind, &c.Icon, &c.Color, &c.IsDefault)
	if err != nil {
		return core.Category{}, err
	}
	c.ParentID = parent.String
	return c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (id, owner_id, parent_id, name, kind, icon, color, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, nullable(c.ParentID), c.Name, c.Kind, c.Icon, c.Color, c.IsDefault)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (q *Queries) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (q *Queries) ListCategoriesByOwner(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? ORDER BY parent_id IS NOT NULL, name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindCategoryByName resolves an owner's category by exact name and kind.
// Absence is reported as core.ErrNotFound; callers that depend on
// bookkeeping categories translate it to core.ErrMissingDependency.
func (q *Queries) FindCategoryByName(ctx context.Context, ownerID, name string, kind core.CategoryKind) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? AND name = ? AND kind = ?`,
		ownerID, name, kind))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q (%s): %w", name, kind, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

// DeleteCategory orphans the children and nulls the category reference on
// transactions and recurrences before removing the row. Descendants are
// never cascade-deleted.
func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	if _, err := q.GetCategory(ctx, id); err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx,
		`UPDATE categories SET parent_id = NULL WHERE parent_id = ?`, id); err != nil {
		return fmt.Errorf("orphan child categories: %w", err)
	}
	if _, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("unlink transactions: %w", err)
	}
	if _, err := q.db.ExecContext(ctx,
		`UPDATE recurrences SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("unlink recurrences: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
