package planner

import (
	"mealmatch/internal/pantry"
	"mealmatch/internal/recipe"
)

// InventoryIndex maps normalized ingredient names to on-hand quantities.
type InventoryIndex map[string]float64

// ScoredRecipe is a recipe annotated with how much of it the inventory
// covers.
type ScoredRecipe struct {
	RecipeID     string
	Title        string
	Description  string
	Available    int
	Total        int
	MatchPercent float64
}

// NewInventoryIndex builds the lookup used by Score. Later items with the
// same normalized name overwrite earlier ones.
func NewInventoryIndex(items []pantry.Item) InventoryIndex {
	idx := make(InventoryIndex, len(items))
	for _, item := range items {
		idx[item.Key()] = pantry.SanitizeQuantity(item.Quantity)
	}
	return idx
}

// Score computes the coverage of every recipe. A requirement is covered when
// the inventory holds at least the required quantity of the same name.
// Units are not compared. The result follows the input order.
func Score(inv InventoryIndex, recipes []recipe.Recipe) []ScoredRecipe {
	scored := make([]ScoredRecipe, 0, len(recipes))
	for _, rec := range recipes {
		s := ScoredRecipe{
			RecipeID:    rec.ID,
			Title:       rec.Title,
			Description: rec.Description,
			Total:       len(rec.Requirements),
		}
		for _, req := range rec.Requirements {
			have, ok := inv[pantry.NormalizeName(req.IngredientName)]
			if ok && have >= pantry.SanitizeQuantity(req.Quantity) {
				s.Available++
			}
		}
		if s.Total > 0 {
			s.MatchPercent = float64(s.Available) / float64(s.Total) * 100
		}
		scored = append(scored, s)
	}
	return scored
}
