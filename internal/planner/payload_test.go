package planner

import (
	"errors"
	"reflect"
	"testing"
)

func TestEncodeDecodePayload(t *testing.T) {
	id := "a"
	days := []DayAssignment{
		{Day: 1, Title: "A", MatchPercent: 100, RecipeID: &id},
		{Day: 2, Title: PlaceholderTitle},
	}
	candidates := []CandidateSnapshot{{RecipeID: "a", Title: "A", MatchPercent: 100, Available: 2, Total: 2}}

	b, err := EncodePayload(days, candidates)
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	gotDays, gotCandidates, err := DecodePayload(b)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if !reflect.DeepEqual(gotDays, days) {
		t.Errorf("days differ: %+v vs %+v", gotDays, days)
	}
	if !reflect.DeepEqual(gotCandidates, candidates) {
		t.Errorf("candidates differ: %+v vs %+v", gotCandidates, candidates)
	}
}

func TestDecodePayload_MissingSections(t *testing.T) {
	days, candidates, err := DecodePayload([]byte(`{"version":1}`))
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if days == nil || candidates == nil || len(days) != 0 || len(candidates) != 0 {
		t.Errorf("expected empty, non-nil slices, got %v %v", days, candidates)
	}
}

func TestDecodePayload_LegacyLayout(t *testing.T) {
	legacy := `{"plan":[{"day":1,"title":"Toast","match":100.0,"recipe_id":4},
		{"day":2,"title":"No suitable recipe","match":0}],
		"candidates":[{"id":4,"title":"Toast","percent":100.0,"available":1,"total":1}]}`

	days, candidates, err := DecodePayload([]byte(legacy))
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].RecipeID == nil || *days[0].RecipeID != "4" || days[0].MatchPercent != 100 {
		t.Errorf("unexpected first day: %+v", days[0])
	}
	if !days[1].IsPlaceholder() {
		t.Errorf("expected placeholder on day 2, got %+v", days[1])
	}
	if len(candidates) != 1 || candidates[0].RecipeID != "4" || candidates[0].MatchPercent != 100 {
		t.Errorf("unexpected candidates: %+v", candidates)
	}
}

func TestDecodePayload_FutureVersion(t *testing.T) {
	days, _, err := DecodePayload([]byte(`{"version":7,"days":[{"day":1,"title":"X","match":60,"recipe_id":"x","extra":true}],"notes":"ignored"}`))
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if len(days) != 1 || days[0].Title != "X" {
		t.Errorf("expected best-effort decode, got %+v", days)
	}
}

func TestDecodePayload_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "{not json", `"just a string"`, `{"days":"nope"}`} {
		if _, _, err := DecodePayload([]byte(in)); !errors.Is(err, ErrMalformedPlan) {
			t.Errorf("DecodePayload(%q): expected ErrMalformedPlan, got %v", in, err)
		}
	}
}
