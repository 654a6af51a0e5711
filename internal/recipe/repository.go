package recipe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mealmatch/internal/pantry"
)

// ErrNotFound is returned by Update when the recipe does not exist.
var ErrNotFound = errors.New("recipe not found")

// Repository is a database-backed repository for recipes and their
// ingredient requirements.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, now: time.Now}
}

// Create stores a new recipe with its requirements in one transaction and
// returns it with its generated ID.
func (r *Repository) Create(ctx context.Context, rec Recipe) (Recipe, error) {
	rec.ID = uuid.NewString()
	if err := rec.normalize(); err != nil {
		return Recipe{}, err
	}
	now := r.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (id, title, description, instructions, owner_id, source_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Title, rec.Description, rec.Instructions, rec.OwnerID, rec.SourceURL,
			formatTime(now), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("failed to insert recipe: %w", err)
		}
		return insertRequirements(ctx, tx, rec.ID, rec.Requirements)
	})
	if err != nil {
		return Recipe{}, err
	}
	return rec, nil
}

// Update rewrites the recipe's fields and replaces its whole requirement
// list. Readers see either the old or the new list, never a mix.
func (r *Repository) Update(ctx context.Context, rec Recipe) error {
	if err := rec.normalize(); err != nil {
		return err
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE recipes SET title = ?, description = ?, instructions = ?, source_url = ?, updated_at = ?
			WHERE id = ?`,
			rec.Title, rec.Description, rec.Instructions, rec.SourceURL, formatTime(r.now().UTC()), rec.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM recipe_ingredients WHERE recipe_id = ?", rec.ID); err != nil {
			return fmt.Errorf("failed to clear recipe ingredients: %w", err)
		}
		return insertRequirements(ctx, tx, rec.ID, rec.Requirements)
	})
}

// Get retrieves a recipe with its requirements. It returns nil, nil when the
// recipe does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*Recipe, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, instructions, owner_id, source_url, created_at, updated_at
		FROM recipes WHERE id = ?`, id,
	)
	rec, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Recipe not found
	}
	if err != nil {
		return nil, err
	}

	reqs, err := r.requirements(ctx, "WHERE recipe_id = ?", id)
	if err != nil {
		return nil, err
	}
	rec.Requirements = reqs[id]
	return &rec, nil
}

// List retrieves all recipes ordered by title, without requirements.
func (r *Repository) List(ctx context.Context) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, instructions, owner_id, source_url, created_at, updated_at
		FROM recipes ORDER BY title, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, rec)
	}
	return recipes, rows.Err()
}

// ListWithRequirements retrieves the whole catalog with every recipe's
// requirement list attached.
func (r *Repository) ListWithRequirements(ctx context.Context) ([]Recipe, error) {
	recipes, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	reqs, err := r.requirements(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].Requirements = reqs[recipes[i].ID]
	}
	return recipes, nil
}

// FindByTitle returns the first recipe with exactly this title, or nil.
func (r *Repository) FindByTitle(ctx context.Context, title string) (*Recipe, error) {
	var id string
	err := r.db.QueryRowContext(ctx, "SELECT id FROM recipes WHERE title = ? ORDER BY created_at LIMIT 1", title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe by title: %w", err)
	}
	return r.Get(ctx, id)
}

// Delete removes a recipe; its requirements go with it.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM recipes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}
	return nil
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recipes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}

func (r *Repository) requirements(ctx context.Context, where string, args ...any) (map[string][]Requirement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT recipe_id, ingredient_name, required_quantity, unit
		FROM recipe_ingredients `+where+` ORDER BY recipe_id, position`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe ingredients: %w", err)
	}
	defer rows.Close()

	byRecipe := make(map[string][]Requirement)
	for rows.Next() {
		var (
			req      Requirement
			quantity sql.NullString
		)
		if err := rows.Scan(&req.RecipeID, &req.IngredientName, &quantity, &req.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		// NULL or malformed quantities read as 0.
		req.Quantity = pantry.ParseQuantity(quantity.String)
		byRecipe[req.RecipeID] = append(byRecipe[req.RecipeID], req)
	}
	return byRecipe, rows.Err()
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertRequirements(ctx context.Context, tx *sql.Tx, recipeID string, reqs []Requirement) error {
	for i, req := range reqs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, position, ingredient_name, required_quantity, unit)
			VALUES (?, ?, ?, ?, ?)`,
			recipeID, i, req.IngredientName, req.Quantity, req.Unit,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ingredient %q: %w", req.IngredientName, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(s scanner) (Recipe, error) {
	var (
		rec                  Recipe
		createdAt, updatedAt string
	)
	err := s.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Instructions,
		&rec.OwnerID, &rec.SourceURL, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recipe{}, err
		}
		return Recipe{}, fmt.Errorf("failed to scan recipe: %w", err)
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
