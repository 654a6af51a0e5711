// Package export renders weekly plans and recipes as downloadable JSON or
// CSV documents.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"mealmatch/internal/planner"
	"mealmatch/internal/recipe"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for formats other than json and csv.
var ErrUnsupportedFormat = errors.New("unsupported format, use json or csv")

// ParseFormat reads a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// PlanDocument is the exported form of a weekly plan.
type PlanDocument struct {
	WeekStart   string                  `json:"week_start"`
	GeneratedAt string                  `json:"generated_at"`
	Plan        []planner.DayAssignment `json:"plan"`
}

// PlanFilename names the download of a plan.
func PlanFilename(plan *planner.WeeklyPlan, f Format) string {
	return fmt.Sprintf("mealplan_%s.%s", planner.FormatWeek(plan.WeekStart), f)
}

// WritePlan writes plan in format f.
func WritePlan(w io.Writer, f Format, plan *planner.WeeklyPlan) error {
	if f == FormatCSV {
		return PlanCSV(w, plan)
	}
	return PlanJSON(w, plan)
}

// PlanJSON writes plan as an indented JSON document.
func PlanJSON(w io.Writer, plan *planner.WeeklyPlan) error {
	days := plan.Days
	if days == nil {
		days = []planner.DayAssignment{}
	}
	doc := PlanDocument{
		WeekStart:   planner.FormatWeek(plan.WeekStart),
		GeneratedAt: plan.GeneratedAt.Format(time.RFC3339Nano),
		Plan:        days,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// ParsePlanJSON reads a document written by PlanJSON. The week start is
// interpreted in the local time zone.
func ParsePlanJSON(r io.Reader) (*planner.WeeklyPlan, error) {
	var doc PlanDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	week, err := time.ParseInLocation("2006-01-02", doc.WeekStart, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid week_start %q: %w", doc.WeekStart, err)
	}
	generated, err := time.Parse(time.RFC3339Nano, doc.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid generated_at %q: %w", doc.GeneratedAt, err)
	}
	days := doc.Plan
	if days == nil {
		days = []planner.DayAssignment{}
	}
	return &planner.WeeklyPlan{WeekStart: week, GeneratedAt: generated, Days: days}, nil
}

// PlanCSV writes one row per day under a day,title,match,recipe_id header.
func PlanCSV(w io.Writer, plan *planner.WeeklyPlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"day", "title", "match", "recipe_id"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, d := range plan.Days {
		recipeID := ""
		if d.RecipeID != nil {
			recipeID = *d.RecipeID
		}
		row := []string{strconv.Itoa(d.Day), d.Title, formatNumber(d.MatchPercent), recipeID}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RecipeDocument is the exported form of a recipe.
type RecipeDocument struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Instructions string               `json:"instructions"`
	SourceURL    string               `json:"source_url,omitempty"`
	Ingredients  []recipe.Requirement `json:"ingredients"`
}

// RecipeFilename names the download of a recipe.
func RecipeFilename(rec recipe.Recipe, f Format) string {
	return fmt.Sprintf("recipe_%s.%s", rec.ID, f)
}

// WriteRecipe writes rec in format f.
func WriteRecipe(w io.Writer, f Format, rec recipe.Recipe) error {
	if f == FormatCSV {
		return RecipeCSV(w, rec)
	}
	return RecipeJSON(w, rec)
}

// RecipeJSON writes rec as an indented JSON document.
func RecipeJSON(w io.Writer, rec recipe.Recipe) error {
	ingredients := rec.Requirements
	if ingredients == nil {
		ingredients = []recipe.Requirement{}
	}
	b, err := json.MarshalIndent(RecipeDocument{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		Instructions: rec.Instructions,
		SourceURL:    rec.SourceURL,
		Ingredients:  ingredients,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("failed to write recipe: %w", err)
	}
	return nil
}

// RecipeCSV writes field,value rows for the recipe's metadata, a blank row,
// then an ingredient,qty,unit table.
func RecipeCSV(w io.Writer, rec recipe.Recipe) error {
	rows := [][]string{
		{"field", "value"},
		{"id", rec.ID},
		{"title", rec.Title},
		{"description", rec.Description},
		{"instructions", rec.Instructions},
		{"", ""},
		{"ingredient", "qty", "unit"},
	}
	for _, req := range rec.Requirements {
		rows = append(rows, []string{req.IngredientName, formatNumber(req.Quantity), req.Unit})
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write recipe CSV: %w", err)
	}
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
