package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DailyUsage is the planning activity of a single day.
type DailyUsage struct {
	Date  string
	Plans int
	Users int
}

// UsageStore reads planning activity from the plan table.
type UsageStore struct {
	db *sql.DB
}

// NewUsageStore initializes the UsageStore with an existing database connection.
func NewUsageStore(db *sql.DB) *UsageStore {
	return &UsageStore{db: db}
}

// GetDailyUsage returns plan generation counts for the last N days, oldest
// first. Days without activity are omitted.
func (s *UsageStore) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(generated_at, 1, 10) AS day, COUNT(*), COUNT(DISTINCT user_id)
		FROM meal_plans WHERE generated_at >= ?
		GROUP BY day ORDER BY day`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Plans, &u.Users); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes plans for weeks that started more than olderThanDays ago
// and returns how many were deleted.
func (s *UsageStore) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -olderThanDays).Format("2006-01-02")
	res, err := s.db.ExecContext(ctx, "DELETE FROM meal_plans WHERE week_start < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up meal plans: %w", err)
	}
	return res.RowsAffected()
}
