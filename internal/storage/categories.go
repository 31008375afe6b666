package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ashita-ai/kiroku/internal/model"
)

// InsertCategory stores a new custom category. The name must be unique.
func (db *DB) InsertCategory(ctx context.Context, c model.CustomCategory) error {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("storage: insert category: %w", err)
	}
	return nil
}

// DeleteCategory removes a custom category row. Returns ErrNotFound for an
// unknown id.
func (db *DB) DeleteCategory(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete category: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCategory returns the custom category with the given id, or ErrNotFound.
func (db *DB) GetCategory(ctx context.Context, id string) (model.CustomCategory, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return model.CustomCategory{}, ErrNotFound
	}
	if err != nil {
		return model.CustomCategory{}, fmt.Errorf("storage: get category: %w", err)
	}
	return c, nil
}

// ListCategories returns all custom categories ordered by name.
func (db *DB) ListCategories(ctx context.Context) ([]model.CustomCategory, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("storage: list categories: %w", err)
	}
	defer rows.Close()

	var out []model.CustomCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: list categories: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CategoryNameExists reports whether a custom category with this name exists.
func (db *DB) CategoryNameExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("storage: category name exists: %w", err)
	}
	return n > 0, nil
}

// RenameCategoryRow updates a custom category row's name where one exists for
// the old name. Missing rows are fine: a category can be in use by decisions
// without having a row.
func (db *DB) RenameCategoryRow(ctx context.Context, from, to string) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE name = ?`, to, from); err != nil {
		return fmt.Errorf("storage: rename category row: %w", err)
	}
	return nil
}

func scanCategory(row rowScanner) (model.CustomCategory, error) {
	var (
		c         model.CustomCategory
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.Name, &createdAt); err != nil {
		return model.CustomCategory{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.CustomCategory{}, fmt.Errorf("decode created_at: %w", err)
	}
	c.CreatedAt = at
	return c, nil
}
