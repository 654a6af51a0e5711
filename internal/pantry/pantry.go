package pantry

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultUnit is used when an item is stored without a unit.
const DefaultUnit = "pcs"

// ErrEmptyName is returned when an item has no name.
var ErrEmptyName = errors.New("ingredient name is required")

// Item is one on-hand ingredient of a user. Names are unique per user,
// compared case-insensitively.
type Item struct {
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the normalized lookup key of the item's name.
func (i Item) Key() string {
	return NormalizeName(i.Name)
}

// NormalizeName lower-cases and trims an ingredient name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseQuantity parses a stored or user-supplied quantity. It never fails:
// anything that is not a finite, non-negative number reads as 0.
func ParseQuantity(raw string) float64 {
	q, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return SanitizeQuantity(q)
}

// SanitizeQuantity clamps negative, NaN and infinite values to 0.
func SanitizeQuantity(q float64) float64 {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0
	}
	return q
}
