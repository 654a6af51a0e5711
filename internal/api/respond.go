package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"mealmatch/internal/auth"
	"mealmatch/internal/export"
	"mealmatch/internal/logging"
	"mealmatch/internal/pantry"
	"mealmatch/internal/planner"
	"mealmatch/internal/recipe"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps domain errors to HTTP status codes.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		writeError(w, http.StatusBadRequest, validationErrs.Error())
	case errors.Is(err, errBadJSON),
		errors.Is(err, pantry.ErrEmptyName),
		errors.Is(err, recipe.ErrEmptyTitle),
		errors.Is(err, export.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, planner.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "no meal plan for this week yet, generate one first")
	case errors.Is(err, recipe.ErrNotFound):
		writeError(w, http.StatusNotFound, "recipe not found")
	default:
		logging.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON
	}
	return s.validate.Struct(v)
}

var errBadJSON = errors.New("invalid JSON body")

func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
