package planner

import "time"

// DaysPerWeek is the number of assignments in every plan.
const DaysPerWeek = 7

// WeeklyPlan is the meal schedule of one user for one calendar week.
type WeeklyPlan struct {
	UserID      string              `json:"user_id"`
	WeekStart   time.Time           `json:"week_start"`
	GeneratedAt time.Time           `json:"generated_at"`
	Days        []DayAssignment     `json:"days"`
	Candidates  []CandidateSnapshot `json:"candidates"`
}

// DayAssignment is the recipe chosen for one day. RecipeID is nil for the
// placeholder used when no recipe qualifies.
type DayAssignment struct {
	Day          int     `json:"day"`
	Title        string  `json:"title"`
	MatchPercent float64 `json:"match"`
	RecipeID     *string `json:"recipe_id,omitempty"`
}

// CandidateSnapshot is the slimmed form of a ranked candidate kept with a
// stored plan.
type CandidateSnapshot struct {
	RecipeID     string  `json:"recipe_id"`
	Title        string  `json:"title"`
	MatchPercent float64 `json:"match"`
	Available    int     `json:"available"`
	Total        int     `json:"total"`
}

// IsPlaceholder reports whether no recipe was assigned to the day.
func (d DayAssignment) IsPlaceholder() bool {
	return d.RecipeID == nil
}
