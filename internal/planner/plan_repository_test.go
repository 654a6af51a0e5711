package planner_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"mealmatch/internal/logging"
	"mealmatch/internal/planner"
	"mealmatch/internal/testutil"
)

func TestPlanRepository(t *testing.T) {
	repo := planner.NewPlanRepository(testutil.NewTestDB(t))
	ctx := context.Background()
	loc := time.FixedZone("UTC-5", -5*3600)
	week := time.Date(2024, 5, 13, 0, 0, 0, 0, loc)
	generated := time.Date(2024, 5, 14, 9, 30, 0, 123, time.UTC)

	found, err := repo.Find(ctx, "u1", week)
	if err != nil || found != nil {
		t.Fatalf("expected nil, nil before insert, got %+v, %v", found, err)
	}

	inserted, err := repo.InsertIfAbsent(ctx, "u1", week, generated, []byte(`{"version":1}`))
	if err != nil || !inserted {
		t.Fatalf("expected first insert to succeed, got %v, %v", inserted, err)
	}

	inserted, err = repo.InsertIfAbsent(ctx, "u1", week, generated.Add(time.Hour), []byte(`{"version":1,"days":[]}`))
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if inserted {
		t.Error("expected second insert for the same week to be a no-op")
	}

	found, err = repo.Find(ctx, "u1", week)
	if err != nil || found == nil {
		t.Fatalf("expected stored plan, got %+v, %v", found, err)
	}
	if string(found.Payload) != `{"version":1}` {
		t.Errorf("expected the first payload to be kept, got %s", found.Payload)
	}
	if !found.GeneratedAt.Equal(generated) {
		t.Errorf("expected generated_at %v, got %v", generated, found.GeneratedAt)
	}
	if !found.WeekStart.Equal(week) || found.WeekStart.Location() != loc {
		t.Errorf("expected week start %v in caller location, got %v", week, found.WeekStart)
	}

	if err := repo.Delete(ctx, "u1", week); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	found, _ = repo.Find(ctx, "u1", week)
	if found != nil {
		t.Error("expected plan to be gone after Delete")
	}

	inserted, _ = repo.InsertIfAbsent(ctx, "u1", week, generated, []byte(`{}`))
	if !inserted {
		t.Error("expected insert to succeed again after Delete")
	}
}

func TestPlanRepository_UnreadableGeneratedAt(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Output: &buf})
	t.Cleanup(func() { logging.Init(logging.Config{}) })

	db := testutil.NewTestDB(t)
	repo := planner.NewPlanRepository(db)
	ctx := context.Background()
	week := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)

	if _, err := repo.InsertIfAbsent(ctx, "u1", week, time.Now(), []byte(`{"version":1}`)); err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if _, err := db.ExecContext(ctx, "UPDATE meal_plans SET generated_at = 'yesterday-ish'"); err != nil {
		t.Fatal(err)
	}

	found, err := repo.Find(ctx, "u1", week)
	if err != nil || found == nil {
		t.Fatalf("expected the plan to still load, got %+v, %v", found, err)
	}
	if !found.GeneratedAt.IsZero() {
		t.Errorf("expected zero generation time, got %v", found.GeneratedAt)
	}
	if out := buf.String(); !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "yesterday-ish") {
		t.Errorf("expected a warning naming the bad value, got %q", out)
	}
}
