package planner

import (
	"fmt"
	"sort"
)

const (
	// MatchThreshold is the minimum coverage percentage a recipe needs to be
	// scheduled.
	MatchThreshold = 50.0

	// PlaceholderTitle fills days for which no recipe qualifies.
	PlaceholderTitle = "No suitable recipe"

	maxAssignmentIterations = 100
)

// Rank keeps the recipes eligible for scheduling, best coverage first and
// ties broken by title.
func Rank(scored []ScoredRecipe) []ScoredRecipe {
	candidates := make([]ScoredRecipe, 0, len(scored))
	for _, s := range scored {
		if s.Total > 0 && s.MatchPercent >= MatchThreshold {
			candidates = append(candidates, s)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].MatchPercent != candidates[j].MatchPercent {
			return candidates[i].MatchPercent > candidates[j].MatchPercent
		}
		return candidates[i].Title < candidates[j].Title
	})
	return candidates
}

// Build schedules seven days by cycling through the ranked candidates. When
// nothing qualifies every day gets the placeholder. It also returns the
// ranked candidate list.
func Build(scored []ScoredRecipe) ([]DayAssignment, []ScoredRecipe, error) {
	candidates := Rank(scored)
	days, err := assignDays(candidates, maxAssignmentIterations)
	if err != nil {
		return nil, nil, err
	}
	return days, candidates, nil
}

// assignDays fills DaysPerWeek days from candidates in order, wrapping
// around. maxIterations bounds the loop; each iteration fills one day, so
// any limit of at least DaysPerWeek is never hit.
func assignDays(candidates []ScoredRecipe, maxIterations int) ([]DayAssignment, error) {
	days := make([]DayAssignment, 0, DaysPerWeek)

	for i := 0; len(days) < DaysPerWeek; i++ {
		if i >= maxIterations {
			return nil, fmt.Errorf("%w: filled %d of %d days after %d iterations",
				ErrInvariantViolation, len(days), DaysPerWeek, i)
		}

		day := len(days) + 1
		if len(candidates) == 0 {
			days = append(days, DayAssignment{Day: day, Title: PlaceholderTitle})
			continue
		}

		c := candidates[i%len(candidates)]
		id := c.RecipeID
		days = append(days, DayAssignment{
			Day:          day,
			Title:        c.Title,
			MatchPercent: c.MatchPercent,
			RecipeID:     &id,
		})
	}
	return days, nil
}

// Snapshot slims ranked candidates for persistence.
func Snapshot(candidates []ScoredRecipe) []CandidateSnapshot {
	out := make([]CandidateSnapshot, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, CandidateSnapshot{
			RecipeID:     c.RecipeID,
			Title:        c.Title,
			MatchPercent: c.MatchPercent,
			Available:    c.Available,
			Total:        c.Total,
		})
	}
	return out
}
