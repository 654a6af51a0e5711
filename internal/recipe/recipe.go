package recipe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mealmatch/internal/pantry"
)

const (
	// DefaultQuantity is the required amount when a line gives none.
	DefaultQuantity = 1.0
	// DefaultUnit is the unit when a line gives none.
	DefaultUnit = "pcs"
)

// ErrEmptyTitle is returned when saving a recipe without a title.
var ErrEmptyTitle = errors.New("recipe title is required")

// Recipe is an entry of the shared catalog.
type Recipe struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Instructions string        `json:"instructions"`
	OwnerID      string        `json:"owner_id,omitempty"`
	SourceURL    string        `json:"source_url,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Requirements []Requirement `json:"ingredients"`
}

// Requirement is one ingredient a recipe needs.
type Requirement struct {
	RecipeID       string  `json:"-"`
	IngredientName string  `json:"name"`
	Quantity       float64 `json:"qty"`
	Unit           string  `json:"unit"`
}

// ParseRequirementLines parses one requirement per line in the form
// "name|qty|unit". Blank lines and lines without a name are skipped. A missing
// quantity defaults to 1, an unparseable one reads as 0, and a missing unit
// defaults to "pcs".
func ParseRequirementLines(text string) []Requirement {
	var reqs []Requirement
	for _, line := range strings.Split(text, "\n") {
		if req, ok := ParseRequirementLine(line); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// ParseRequirementLine parses a single "name|qty|unit" line.
func ParseRequirementLine(line string) (Requirement, bool) {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return Requirement{}, false
	}

	req := Requirement{IngredientName: parts[0], Quantity: DefaultQuantity, Unit: DefaultUnit}
	if len(parts) > 1 && parts[1] != "" {
		req.Quantity = pantry.ParseQuantity(parts[1])
	}
	if len(parts) > 2 && parts[2] != "" {
		req.Unit = parts[2]
	}
	return req, true
}

// FormatRequirementLines renders requirements in the format read by
// ParseRequirementLines.
func FormatRequirementLines(reqs []Requirement) string {
	lines := make([]string, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, fmt.Sprintf("%s|%s|%s", r.IngredientName, strconv.FormatFloat(r.Quantity, 'f', -1, 64), r.Unit))
	}
	return strings.Join(lines, "\n")
}

// normalize trims fields and fills requirement defaults before saving.
func (r *Recipe) normalize() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return ErrEmptyTitle
	}
	reqs := make([]Requirement, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		req.IngredientName = strings.TrimSpace(req.IngredientName)
		if req.IngredientName == "" {
			continue
		}
		req.Quantity = pantry.SanitizeQuantity(req.Quantity)
		if strings.TrimSpace(req.Unit) == "" {
			req.Unit = DefaultUnit
		}
		req.RecipeID = r.ID
		reqs = append(reqs, req)
	}
	r.Requirements = reqs
	return nil
}
