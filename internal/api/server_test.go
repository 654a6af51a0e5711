package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmatch/internal/app"
	"mealmatch/internal/auth"
	"mealmatch/internal/config"
	"mealmatch/internal/database"
	"mealmatch/internal/metrics"
	"mealmatch/internal/pantry"
	"mealmatch/internal/planner"
	"mealmatch/internal/recipe"
	"mealmatch/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	*Server
	app   *app.App
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	clock := func() time.Time { return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) }
	a := app.NewApp(&config.Config{}, &database.DB{SQL: testutil.NewTestDB(t)}, nil,
		planner.WithClock(clock),
		planner.WithObserver(metrics.NewRecorder(reg)),
	)

	tokens := auth.NewTokenIssuer(testSecret, "mealmatch", time.Hour)
	token, err := tokens.Issue("u1")
	require.NoError(t, err)

	return &testServer{
		Server: NewServer(a, tokens, reg, config.HTTPConfig{}),
		app:    a,
		token:  token,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seedCatalog(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := ts.app.Recipes.Create(ctx, recipe.Recipe{Title: "Omelette", Requirements: recipe.ParseRequirementLines("egg|2\nbutter|1")})
	require.NoError(t, err)
	_, err = ts.app.Recipes.Create(ctx, recipe.Recipe{Title: "Porridge", Requirements: recipe.ParseRequirementLines("oats|1\nmilk|1")})
	require.NoError(t, err)
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mealplan", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMealPlanFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.seedCatalog(t)

	rec := ts.do(t, http.MethodGet, "/api/export/mealplan/json", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "export before generation")

	rec = ts.do(t, http.MethodPost, "/api/ingredients", map[string]any{"name": "Egg", "quantity": 6})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/api/ingredients", map[string]any{"name": "oats", "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/mealplan", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var plan mealPlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, "2024-05-13", plan.WeekStart)
	require.Len(t, plan.Days, planner.DaysPerWeek)
	assert.Equal(t, "Omelette", plan.Days[0].Title)
	assert.Equal(t, "Porridge", plan.Days[1].Title)
	assert.Len(t, plan.Candidates, 2)

	// Inventory changes do not touch the stored plan until it is regenerated.
	rec = ts.do(t, http.MethodDelete, "/api/ingredients/oats", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/mealplan", nil)
	var again mealPlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, plan, again)

	rec = ts.do(t, http.MethodPost, "/api/mealplan/regenerate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var regenerated mealPlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regenerated))
	assert.Len(t, regenerated.Candidates, 1)
	for _, d := range regenerated.Days {
		assert.Equal(t, "Omelette", d.Title)
	}

	rec = ts.do(t, http.MethodGet, "/api/export/mealplan/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment;filename=mealplan_2024-05-13.csv", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "day,title,match,recipe_id\n"))

	rec = ts.do(t, http.MethodGet, "/api/export/mealplan/xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngredients(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/ingredients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/ingredients", map[string]any{"name": "", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/ingredients", map[string]any{"name": "rice", "quantity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/ingredients", strings.NewReader("{oops"))
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rr := httptest.NewRecorder()
	ts.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	ts.do(t, http.MethodPost, "/api/ingredients", map[string]any{"name": "Rice", "quantity": 2, "unit": "kg"})
	ts.do(t, http.MethodPost, "/api/ingredients", map[string]any{"name": "rice", "quantity": 3, "unit": "kg"})

	rec = ts.do(t, http.MethodGet, "/api/ingredients", nil)
	var items []pantry.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, 3.0, items[0].Quantity)
}

func TestRecipes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/recipes", map[string]any{
		"title":            "Pancakes",
		"ingredients":      []map[string]any{{"name": "flour", "qty": 2, "unit": "cups"}},
		"ingredient_lines": "egg|3\nmilk",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created recipe.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "u1", created.OwnerID)
	require.Len(t, created.Requirements, 3)

	rec = ts.do(t, http.MethodPost, "/api/recipes", map[string]any{"title": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/recipes/"+created.ID, map[string]any{
		"title":            "Crepes",
		"ingredient_lines": "egg|2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated recipe.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Crepes", updated.Title)
	assert.Len(t, updated.Requirements, 1)

	rec = ts.do(t, http.MethodPut, "/api/recipes/missing", map[string]any{"title": "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/export/recipes/"+created.ID+"/json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment;filename=recipe_"+created.ID+".json", rec.Header().Get("Content-Disposition"))

	rec = ts.do(t, http.MethodGet, "/api/recipes", nil)
	var list []recipe.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = ts.do(t, http.MethodDelete, "/api/recipes/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/recipes/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportRecipe(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
			return
		}
		w.Write([]byte(`<html><body><h1>Shakshuka</h1>
<h2>Ingredients</h2><ul><li>4 eggs</li><li>1 can tomatoes</li></ul></body></html>`))
	}))
	defer page.Close()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/recipes/import", map[string]any{"url": page.URL + "/shakshuka"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var imported recipe.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &imported))
	assert.Equal(t, "Shakshuka", imported.Title)
	assert.Len(t, imported.Requirements, 2)

	rec = ts.do(t, http.MethodPost, "/api/recipes/import", map[string]any{"url": page.URL + "/empty"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/recipes/import", map[string]any{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
