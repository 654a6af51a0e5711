package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mealmatch/internal/export"
	"mealmatch/internal/planner"
)

type mealPlanResponse struct {
	WeekStart   string                      `json:"week_start"`
	GeneratedAt string                      `json:"generated_at"`
	Days        []planner.DayAssignment     `json:"days"`
	Candidates  []planner.CandidateSnapshot `json:"candidates"`
}

func newMealPlanResponse(p *planner.WeeklyPlan) mealPlanResponse {
	return mealPlanResponse{
		WeekStart:   planner.FormatWeek(p.WeekStart),
		GeneratedAt: p.GeneratedAt.Format(time.RFC3339),
		Days:        p.Days,
		Candidates:  p.Candidates,
	}
}

// GetMealPlan returns this week's plan, generating it on first access.
func (s *Server) GetMealPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.app.Planner.GetOrCreate(r.Context(), userID(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMealPlanResponse(plan))
}

// RegenerateMealPlan discards this week's plan and builds a new one.
func (s *Server) RegenerateMealPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.app.Planner.Regenerate(r.Context(), userID(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMealPlanResponse(plan))
}

// ExportMealPlan downloads this week's plan as JSON or CSV.
func (s *Server) ExportMealPlan(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	plan, err := s.app.Planner.Current(r.Context(), userID(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment;filename="+export.PlanFilename(plan, format))
	if err := export.WritePlan(w, format, plan); err != nil {
		writeErr(w, r, err)
	}
}
