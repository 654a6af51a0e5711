package planner

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// PayloadVersion is the version written by EncodePayload.
const PayloadVersion = 1

// payload is the persisted form of a plan's days and candidates.
type payload struct {
	Version    int                 `json:"version"`
	Days       []DayAssignment     `json:"days"`
	Candidates []CandidateSnapshot `json:"candidates"`
}

// storedPayload accepts both the current layout and the earlier one, which
// kept days under "plan", used numeric recipe ids and named the candidate
// fields "id" and "percent".
type storedPayload struct {
	Version    int               `json:"version"`
	Days       []storedDay       `json:"days"`
	Plan       []storedDay       `json:"plan"`
	Candidates []storedCandidate `json:"candidates"`
}

type storedDay struct {
	Day      int      `json:"day"`
	Title    string   `json:"title"`
	Match    *float64 `json:"match"`
	RecipeID flexID   `json:"recipe_id"`
}

type storedCandidate struct {
	RecipeID  flexID   `json:"recipe_id"`
	ID        flexID   `json:"id"`
	Title     string   `json:"title"`
	Match     *float64 `json:"match"`
	Percent   *float64 `json:"percent"`
	Available int      `json:"available"`
	Total     int      `json:"total"`
}

// flexID decodes a JSON string or number.
type flexID struct {
	value string
	set   bool
}

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &f.value); err != nil {
			return err
		}
		f.set = true
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	f.value = strconv.FormatFloat(n, 'f', -1, 64)
	f.set = true
	return nil
}

// EncodePayload serializes the days and candidates of a plan.
func EncodePayload(days []DayAssignment, candidates []CandidateSnapshot) ([]byte, error) {
	if days == nil {
		days = []DayAssignment{}
	}
	if candidates == nil {
		candidates = []CandidateSnapshot{}
	}
	b, err := json.Marshal(payload{Version: PayloadVersion, Days: days, Candidates: candidates})
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan payload: %w", err)
	}
	return b, nil
}

// DecodePayload reads a stored payload. Missing sections decode to empty
// slices; unreadable input returns ErrMalformedPlan.
func DecodePayload(b []byte) ([]DayAssignment, []CandidateSnapshot, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil, fmt.Errorf("%w: empty payload", ErrMalformedPlan)
	}

	var sp storedPayload
	if err := json.Unmarshal(b, &sp); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	rawDays := sp.Days
	if rawDays == nil {
		rawDays = sp.Plan
	}

	days := make([]DayAssignment, 0, len(rawDays))
	for _, d := range rawDays {
		day := DayAssignment{Day: d.Day, Title: d.Title}
		if d.Match != nil {
			day.MatchPercent = *d.Match
		}
		if d.RecipeID.set {
			id := d.RecipeID.value
			day.RecipeID = &id
		}
		days = append(days, day)
	}

	candidates := make([]CandidateSnapshot, 0, len(sp.Candidates))
	for _, c := range sp.Candidates {
		cs := CandidateSnapshot{
			RecipeID:  c.RecipeID.value,
			Title:     c.Title,
			Available: c.Available,
			Total:     c.Total,
		}
		if !c.RecipeID.set {
			cs.RecipeID = c.ID.value
		}
		switch {
		case c.Match != nil:
			cs.MatchPercent = *c.Match
		case c.Percent != nil:
			cs.MatchPercent = *c.Percent
		}
		candidates = append(candidates, cs)
	}

	return days, candidates, nil
}
