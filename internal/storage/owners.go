package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"moneymap/internal/core"
)

func (q *Queries) CreateOwner(ctx context.Context, o core.Owner) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO owners (id, email, first_name, last_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.Email, o.FirstName, o.LastName, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return nil
}

func (q *Queries) GetOwner(ctx context.Context, id string) (core.Owner, error) {
	var o core.Owner
	err := q.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, created_at
		FROM owners WHERE id = ?`, id).
		Scan(&o.ID, &o.Email, &o.FirstName, &o.LastName, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Owner{}, fmt.Errorf("owner %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Owner{}, fmt.Errorf("get owner: %w", err)
	}
	return o, nil
}

func (q *Queries) ListOwnerIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM owners ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProvisionOwner inserts a new owner together with the static default
// category tree: parents first, then children pointing at them.
func (q *Queries) ProvisionOwner(ctx context.Context, o core.Owner) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if err := q.CreateOwner(ctx, o); err != nil {
		return err
	}
	for _, root := range core.DefaultCategories {
		parentID := uuid.NewString()
		err := q.CreateCategory(ctx, core.Category{
			ID:        parentID,
			OwnerID:   o.ID,
			Name:      root.Name,
			Kind:      root.Kind,
			Icon:      root.Icon,
			Color:     root.Color,
			IsDefault: true,
		})
		if err != nil {
			return fmt.Errorf("provision category %q: %w", root.Name, err)
		}
		for _, child := range root.Children {
			err := q.CreateCategory(ctx, core.Category{
				ID:        uuid.NewString(),
				OwnerID:   o.ID,
				ParentID:  parentID,
				Name:      child.Name,
				Kind:      child.Kind,
				Icon:      child.Icon,
				Color:     child.Color,
				IsDefault: true,
			})
			if err != nil {
				return fmt.Errorf("provision category %q: %w", child.Name, err)
			}
		}
	}
	return nil
}
