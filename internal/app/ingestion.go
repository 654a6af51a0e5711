package app

import (
	"context"
	"fmt"
	"html"
	"strings"

	"mealmatch/internal/ghost"
	"mealmatch/internal/logging"
	"mealmatch/internal/recipe"
)

// GhostOwner is the owner id of recipes ingested from Ghost.
const GhostOwner = "ghost"

// IngestResult counts what a sync changed.
type IngestResult struct {
	Created int
	Updated int
	Skipped int
	Removed int
	Failed  int
}

// Outcome is what saving one post did to the catalog.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	// OutcomeSkipped means a user's own recipe already has the title.
	OutcomeSkipped
)

// RecipeFromPost parses a Ghost post into a catalog recipe. The post title
// wins over any heading in the body.
func RecipeFromPost(post ghost.Post) (recipe.Recipe, error) {
	doc := "<h1>" + html.EscapeString(post.Title) + "</h1>" + post.HTML
	rec, err := recipe.ParseHTML(strings.NewReader(doc), post.URL)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to parse post %s: %w", post.ID, err)
	}
	rec.Title = strings.TrimSpace(post.Title)
	rec.OwnerID = GhostOwner
	return rec, nil
}

// ProcessAndSaveRecipe parses a post and creates the recipe, or replaces a
// previously ingested recipe with the same title.
func ProcessAndSaveRecipe(ctx context.Context, repo *recipe.Repository, post ghost.Post) (Outcome, error) {
	rec, err := RecipeFromPost(post)
	if err != nil {
		return 0, err
	}

	existing, err := repo.FindByTitle(ctx, rec.Title)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		if _, err := repo.Create(ctx, rec); err != nil {
			return 0, fmt.Errorf("failed to save recipe: %w", err)
		}
		return OutcomeCreated, nil
	}
	if existing.OwnerID != GhostOwner {
		return OutcomeSkipped, nil
	}

	rec.ID = existing.ID
	if err := repo.Update(ctx, rec); err != nil {
		return 0, fmt.Errorf("failed to update recipe: %w", err)
	}
	return OutcomeUpdated, nil
}

// SyncPosts saves every post and removes ingested recipes whose post is gone.
// A post that fails to parse or save is logged and counted, not fatal.
func SyncPosts(ctx context.Context, repo *recipe.Repository, posts []ghost.Post) (IngestResult, error) {
	var res IngestResult
	seen := make(map[string]struct{}, len(posts))

	for _, post := range posts {
		seen[strings.TrimSpace(post.Title)] = struct{}{}

		outcome, err := ProcessAndSaveRecipe(ctx, repo, post)
		if err != nil {
			logging.Warn().Err(err).Str("post", post.ID).Str("title", post.Title).Msg("failed to ingest post")
			res.Failed++
			continue
		}
		switch outcome {
		case OutcomeCreated:
			res.Created++
		case OutcomeUpdated:
			res.Updated++
		case OutcomeSkipped:
			res.Skipped++
		}
	}

	existing, err := repo.List(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list recipes for cleanup: %w", err)
	}
	for _, rec := range existing {
		if rec.OwnerID != GhostOwner {
			continue
		}
		if _, ok := seen[rec.Title]; ok {
			continue
		}
		if err := repo.Delete(ctx, rec.ID); err != nil {
			return res, err
		}
		logging.Info().Str("title", rec.Title).Msg("removed recipe no longer published")
		res.Removed++
	}
	return res, nil
}
