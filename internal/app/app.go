package app

import (
	"context"
	"errors"
	"fmt"

	"mealmatch/internal/config"
	"mealmatch/internal/database"
	"mealmatch/internal/ghost"
	"mealmatch/internal/logging"
	"mealmatch/internal/metrics"
	"mealmatch/internal/pantry"
	"mealmatch/internal/planner"
	"mealmatch/internal/recipe"
)

// App holds the application's dependencies.
type App struct {
	Pantry  *pantry.Repository
	Recipes *recipe.Repository
	Plans   *planner.PlanRepository
	Planner *planner.Service
	Usage   *metrics.UsageStore

	ghostClient ghost.Client
	importer    *recipe.Importer
	cfg         *config.Config
	db          *database.DB
}

// NewApp wires the repositories and the planning service onto db. The ghost
// client may be nil when ingestion is not configured.
func NewApp(cfg *config.Config, db *database.DB, ghostClient ghost.Client, opts ...planner.Option) *App {
	a := &App{
		Pantry:      pantry.NewRepository(db.SQL),
		Recipes:     recipe.NewRepository(db.SQL),
		Plans:       planner.NewPlanRepository(db.SQL),
		Usage:       metrics.NewUsageStore(db.SQL),
		ghostClient: ghostClient,
		importer:    recipe.NewImporter(),
		cfg:         cfg,
		db:          db,
	}
	a.Planner = planner.NewService(a.Pantry, a.Recipes, a.Plans, opts...)
	return a
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}

// ImportRecipeURL fetches a recipe page and adds it to the catalog.
func (a *App) ImportRecipeURL(ctx context.Context, url, ownerID string) (recipe.Recipe, error) {
	rec, err := a.importer.FetchURL(ctx, url)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to import %s: %w", url, err)
	}
	rec.OwnerID = ownerID

	created, err := a.Recipes.Create(ctx, rec)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to save imported recipe: %w", err)
	}
	logging.Info().
		Str("recipe", created.ID).
		Str("title", created.Title).
		Int("ingredients", len(created.Requirements)).
		Msg("recipe imported")
	return created, nil
}

// IngestRecipes synchronizes the catalog with the Ghost blog.
func (a *App) IngestRecipes(ctx context.Context) (IngestResult, error) {
	if a.ghostClient == nil {
		return IngestResult{}, errors.New("ghost ingestion is not configured")
	}

	logging.Info().Msg("fetching recipes from ghost")
	posts, err := a.ghostClient.FetchRecipes(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}
	logging.Info().Int("posts", len(posts)).Msg("fetched recipe posts")

	res, err := SyncPosts(ctx, a.Recipes, posts)
	if err != nil {
		return res, err
	}
	logging.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Int("removed", res.Removed).
		Int("failed", res.Failed).
		Msg("ingestion complete")
	return res, nil
}
