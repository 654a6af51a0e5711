package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mealmatch/internal/logging"
)

// StoredPlan is a meal_plans row.
type StoredPlan struct {
	ID          int64
	UserID      string
	WeekStart   time.Time
	GeneratedAt time.Time
	Payload     []byte
}

// PlanRepository is a database-backed repository for weekly plans. It keeps
// at most one row per user and week.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Find returns the plan stored for the user's week, or nil, nil when there is
// none. The week start is reported in weekStart's location.
func (r *PlanRepository) Find(ctx context.Context, userID string, weekStart time.Time) (*StoredPlan, error) {
	var (
		p                 StoredPlan
		week, generatedAt string
		payload           sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, week_start, generated_at, payload
		FROM meal_plans WHERE user_id = ? AND week_start = ?`,
		userID, FormatWeek(weekStart),
	).Scan(&p.ID, &p.UserID, &week, &generatedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Plan not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find meal plan for user %s: %w", userID, err)
	}

	p.WeekStart, err = time.ParseInLocation(weekLayout, week, weekStart.Location())
	if err != nil {
		p.WeekStart = weekStart
	}
	p.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt)
	if err != nil {
		logging.Warn().Err(err).
			Int64("plan", p.ID).
			Str("user", userID).
			Str("generated_at", generatedAt).
			Msg("stored plan has an unreadable generation time")
	}
	p.Payload = []byte(payload.String)
	return &p, nil
}

// InsertIfAbsent stores a plan unless one already exists for the user's
// week. It reports whether this call inserted the row.
func (r *PlanRepository) InsertIfAbsent(ctx context.Context, userID string, weekStart, generatedAt time.Time, payload []byte) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (user_id, week_start, generated_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, week_start) DO NOTHING`,
		userID, FormatWeek(weekStart), generatedAt.UTC().Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert meal plan for user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check inserted meal plan: %w", err)
	}
	return n > 0, nil
}

// Delete removes the plan stored for the user's week, if any.
func (r *PlanRepository) Delete(ctx context.Context, userID string, weekStart time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM meal_plans WHERE user_id = ? AND week_start = ?",
		userID, FormatWeek(weekStart),
	)
	if err != nil {
		return fmt.Errorf("failed to delete meal plan for user %s: %w", userID, err)
	}
	return nil
}

// CountByUser returns how many weeks have a stored plan for the user.
func (r *PlanRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM meal_plans WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count meal plans: %w", err)
	}
	return count, nil
}
