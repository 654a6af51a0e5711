package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mealmatch/internal/export"
	"mealmatch/internal/recipe"
)

type requirementRequest struct {
	Name     string   `json:"name" validate:"required"`
	Quantity *float64 `json:"qty" validate:"omitempty,gte=0"`
	Unit     string   `json:"unit"`
}

// recipeRequest carries ingredients either as structured entries or as
// name|qty|unit lines.
type recipeRequest struct {
	Title           string               `json:"title" validate:"required,max=200"`
	Description     string               `json:"description"`
	Instructions    string               `json:"instructions"`
	SourceURL       string               `json:"source_url" validate:"omitempty,url"`
	Ingredients     []requirementRequest `json:"ingredients" validate:"dive"`
	IngredientLines string               `json:"ingredient_lines"`
}

func (req recipeRequest) recipe(ownerID string) recipe.Recipe {
	rec := recipe.Recipe{
		Title:        req.Title,
		Description:  req.Description,
		Instructions: req.Instructions,
		SourceURL:    req.SourceURL,
		OwnerID:      ownerID,
	}
	for _, ing := range req.Ingredients {
		qty := recipe.DefaultQuantity
		if ing.Quantity != nil {
			qty = *ing.Quantity
		}
		rec.Requirements = append(rec.Requirements, recipe.Requirement{IngredientName: ing.Name, Quantity: qty, Unit: ing.Unit})
	}
	rec.Requirements = append(rec.Requirements, recipe.ParseRequirementLines(req.IngredientLines)...)
	return rec
}

type importRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// ListRecipes returns the whole catalog.
func (s *Server) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.app.Recipes.ListWithRequirements(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

// GetRecipe returns one recipe.
func (s *Server) GetRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.findRecipe(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateRecipe adds a recipe owned by the caller.
func (s *Server) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if err := s.decode(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	rec, err := s.app.Recipes.Create(r.Context(), req.recipe(userID(r)))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateRecipe replaces a recipe's fields and its ingredient list.
func (s *Server) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if err := s.decode(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	rec := req.recipe(userID(r))
	rec.ID = chi.URLParam(r, "id")
	if err := s.app.Recipes.Update(r.Context(), rec); err != nil {
		writeErr(w, r, err)
		return
	}

	updated, err := s.findRecipe(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteRecipe removes a recipe.
func (s *Server) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Recipes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportRecipe fetches a recipe page and adds it to the catalog.
func (s *Server) ImportRecipe(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := s.decode(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	rec, err := s.app.ImportRecipeURL(r.Context(), req.URL, userID(r))
	if err != nil {
		if errors.Is(err, recipe.ErrNoRecipe) {
			writeError(w, http.StatusUnprocessableEntity, "no recipe found at that URL")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ExportRecipe downloads a recipe as JSON or CSV.
func (s *Server) ExportRecipe(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	rec, err := s.findRecipe(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment;filename="+export.RecipeFilename(*rec, format))
	if err := export.WriteRecipe(w, format, *rec); err != nil {
		writeErr(w, r, err)
	}
}

func (s *Server) findRecipe(r *http.Request) (*recipe.Recipe, error) {
	rec, err := s.app.Recipes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, recipe.ErrNotFound
	}
	return rec, nil
}
