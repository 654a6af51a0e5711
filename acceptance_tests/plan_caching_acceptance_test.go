package acceptance_tests

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mealmatch/internal/app"
	"mealmatch/internal/config"
	"mealmatch/internal/database"
	"mealmatch/internal/ghost"
	"mealmatch/internal/metrics"
	"mealmatch/internal/pantry"
	"mealmatch/internal/planner"
)

// --- Mock Ghost Client ---
type mockGhostClient struct {
	posts             []ghost.Post
	fetchRecipesCalls int
}

func (m *mockGhostClient) FetchRecipes(context.Context) ([]ghost.Post, error) {
	m.fetchRecipesCalls++
	return m.posts, nil
}

var clock = planner.WithClock(func() time.Time {
	return time.Date(2024, 5, 16, 18, 0, 0, 0, time.Local)
})

func openApp(t *testing.T, path string, client ghost.Client, reg prometheus.Registerer) *app.App {
	t.Helper()
	db, err := database.NewDB(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return app.NewApp(&config.Config{}, db, client, clock, planner.WithObserver(metrics.NewRecorder(reg)))
}

// --- Acceptance Test ---
func TestPlanSurvivesRestartUntilRegenerated(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mealmatch.db")

	client := &mockGhostClient{posts: []ghost.Post{
		{ID: "1", Title: "Frittata", HTML: `<ul class="ingredients"><li>6 eggs</li><li>1 onion</li></ul>`},
		{ID: "2", Title: "Soup", HTML: `<ul class="ingredients"><li>1 onion</li><li>2 carrots</li></ul>`},
	}}

	// --- Step 1: Ingestion and first plan ---
	reg := prometheus.NewRegistry()
	first := openApp(t, dbPath, client, reg)

	res, err := first.IngestRecipes(ctx)
	if err != nil {
		t.Fatalf("Ingestion failed: %v", err)
	}
	if res.Created != 2 || client.fetchRecipesCalls != 1 {
		t.Fatalf("Expected 2 recipes from 1 fetch, got %+v after %d calls", res, client.fetchRecipesCalls)
	}

	for _, item := range []pantry.Item{{Name: "eggs", Quantity: 6}, {Name: "onion", Quantity: 1}} {
		item.UserID = "alice"
		if err := first.Pantry.Upsert(ctx, item); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	plan, err := first.Planner.GetOrCreate(ctx, "alice")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if got := titles(plan); got != "Frittata,Soup,Frittata,Soup,Frittata,Soup,Frittata" {
		t.Fatalf("Unexpected first plan: %s", got)
	}

	err = testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP mealmatch_plans_generated_total Total number of weekly plans generated and stored
# TYPE mealmatch_plans_generated_total counter
mealmatch_plans_generated_total 1
`), "mealmatch_plans_generated_total")
	if err != nil {
		t.Error(err)
	}
	first.Close()

	// --- Step 2: Restart with a changed catalog ---
	client.posts = client.posts[:1]
	second := openApp(t, dbPath, client, prometheus.NewRegistry())
	defer second.Close()

	if res, err := second.IngestRecipes(ctx); err != nil || res.Removed != 1 {
		t.Fatalf("Expected Soup to be removed, got %+v, %v", res, err)
	}

	cached, err := second.Planner.GetOrCreate(ctx, "alice")
	if err != nil {
		t.Fatalf("GetOrCreate after restart failed: %v", err)
	}
	if !reflect.DeepEqual(cached.Days, plan.Days) || !cached.GeneratedAt.Equal(plan.GeneratedAt) {
		t.Errorf("Expected the stored plan after restart, got %s", titles(cached))
	}

	// --- Step 3: Regeneration picks up the new catalog ---
	fresh, err := second.Planner.Regenerate(ctx, "alice")
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if got := titles(fresh); got != "Frittata,Frittata,Frittata,Frittata,Frittata,Frittata,Frittata" {
		t.Errorf("Unexpected regenerated plan: %s", got)
	}
}

func titles(p *planner.WeeklyPlan) string {
	out := make([]string, len(p.Days))
	for i, d := range p.Days {
		out[i] = d.Title
	}
	return strings.Join(out, ",")
}
