package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mealmatch/internal/pantry"
)

type ingredientRequest struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Quantity *float64 `json:"quantity" validate:"omitempty,gte=0"`
	Unit     string   `json:"unit" validate:"max=20"`
	Notes    string   `json:"notes" validate:"max=500"`
}

// ListIngredients returns the caller's pantry.
func (s *Server) ListIngredients(w http.ResponseWriter, r *http.Request) {
	items, err := s.app.Pantry.List(r.Context(), userID(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if items == nil {
		items = []pantry.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// UpsertIngredient adds an ingredient or replaces the one with the same name.
func (s *Server) UpsertIngredient(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := s.decode(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	item := pantry.Item{UserID: userID(r), Name: req.Name, Unit: req.Unit, Notes: req.Notes}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if err := s.app.Pantry.Upsert(r.Context(), item); err != nil {
		writeErr(w, r, err)
		return
	}

	saved, err := s.app.Pantry.Get(r.Context(), item.UserID, item.Name)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteIngredient removes an ingredient by name.
func (s *Server) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Pantry.Delete(r.Context(), userID(r), chi.URLParam(r, "name")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
