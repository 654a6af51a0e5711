package pantry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository is a database-backed store of user inventories.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Upsert inserts the item or overwrites the existing one with the same
// normalized name. The last write wins.
func (r *Repository) Upsert(ctx context.Context, item Item) error {
	key := item.Key()
	if key == "" {
		return ErrEmptyName
	}
	unit := strings.TrimSpace(item.Unit)
	if unit == "" {
		unit = DefaultUnit
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ingredients (user_id, name, name_key, quantity, unit, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, name_key) DO UPDATE SET
			name = excluded.name,
			quantity = excluded.quantity,
			unit = excluded.unit,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		item.UserID, strings.TrimSpace(item.Name), key, SanitizeQuantity(item.Quantity),
		unit, item.Notes, r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ingredient %q: %w", item.Name, err)
	}
	return nil
}

// List returns the user's inventory ordered by name.
func (r *Repository) List(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, name, quantity, unit, notes, updated_at
		FROM ingredients WHERE user_id = ? ORDER BY name_key`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients for user %s: %w", userID, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get returns the item with the given name, or nil when there is none.
func (r *Repository) Get(ctx context.Context, userID, name string) (*Item, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, name, quantity, unit, notes, updated_at
		FROM ingredients WHERE user_id = ? AND name_key = ?`, userID, NormalizeName(name),
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the named item. Deleting a missing item is not an error.
func (r *Repository) Delete(ctx context.Context, userID, name string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM ingredients WHERE user_id = ? AND name_key = ?", userID, NormalizeName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient %q: %w", name, err)
	}
	return nil
}

// Count returns the number of distinct items the user holds.
func (r *Repository) Count(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ingredients WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ingredients: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanItem reads the quantity as text so that malformed values become 0.
func scanItem(s scanner) (Item, error) {
	var (
		item      Item
		quantity  sql.NullString
		updatedAt string
	)
	if err := s.Scan(&item.UserID, &item.Name, &quantity, &item.Unit, &item.Notes, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("failed to scan ingredient: %w", err)
	}
	item.Quantity = ParseQuantity(quantity.String)
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		item.UpdatedAt = t
	}
	return item, nil
}
