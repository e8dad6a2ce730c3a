// ABOUTME: Plans CRUD endpoints backed by the local store. All reads and
// ABOUTME: writes are scoped to the authenticated owner.

package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/auphere/auphere-gateway/internal/auth"
	"github.com/auphere/auphere-gateway/internal/store"
)

// PlanStop is one stop within a plan.
type PlanStop struct {
	Activity  string         `json:"activity" validate:"required"`
	Duration  *int           `json:"duration" validate:"required"`
	StartTime string         `json:"start_time" validate:"required"`
	Place     map[string]any `json:"place" validate:"required"`
}

// PlanRequest is the body for creating or replacing a plan. Duration and
// distance are pointers so an explicit zero is accepted while a missing
// field is rejected.
type PlanRequest struct {
	Name          string         `json:"name" validate:"required"`
	Description   *string        `json:"description"`
	Vibe          *string        `json:"vibe"`
	TotalDuration *int           `json:"total_duration" validate:"required"`
	TotalDistance *float64       `json:"total_distance" validate:"required"`
	Stops         []PlanStop     `json:"stops" validate:"required,dive"`
	Metadata      map[string]any `json:"metadata"`
}

func (a *API) handlePlanList(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityOrAnonymous(r.Context())
	plans, err := a.store.ListPlans(r.Context(), identity.ID)
	if err != nil {
		a.logger.Error("listing plans", "err", err)
		a.writeDetail(w, http.StatusInternalServerError, "Failed to list plans")
		return
	}

	out := make([]map[string]any, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse(p))
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodePlan(w, r)
	if !ok {
		return
	}

	identity := auth.IdentityOrAnonymous(r.Context())
	now := time.Now().UTC()
	plan := req.toPlan()
	plan.ID = uuid.NewString()
	plan.UserID = identity.ID
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if err := a.store.CreatePlan(r.Context(), plan); err != nil {
		a.logger.Error("creating plan", "err", err)
		a.writeDetail(w, http.StatusInternalServerError, "Failed to create plan")
		return
	}
	a.writeJSON(w, http.StatusCreated, planResponse(plan))
}

func (a *API) handlePlanGet(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityOrAnonymous(r.Context())
	plan, err := a.store.GetPlan(r.Context(), identity.ID, chi.URLParam(r, "plan_id"))
	if err != nil {
		a.planError(w, err, "Failed to get plan")
		return
	}
	a.writeJSON(w, http.StatusOK, planResponse(plan))
}

func (a *API) handlePlanUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodePlan(w, r)
	if !ok {
		return
	}

	identity := auth.IdentityOrAnonymous(r.Context())
	planID := chi.URLParam(r, "plan_id")

	existing, err := a.store.GetPlan(r.Context(), identity.ID, planID)
	if err != nil {
		a.planError(w, err, "Failed to update plan")
		return
	}

	plan := req.toPlan()
	plan.ID = planID
	plan.UserID = identity.ID
	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = time.Now().UTC()

	if err := a.store.UpdatePlan(r.Context(), plan); err != nil {
		a.planError(w, err, "Failed to update plan")
		return
	}
	a.writeJSON(w, http.StatusOK, planResponse(plan))
}

func (a *API) handlePlanDelete(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityOrAnonymous(r.Context())
	if err := a.store.DeletePlan(r.Context(), identity.ID, chi.URLParam(r, "plan_id")); err != nil {
		a.planError(w, err, "Failed to delete plan")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "Plan deleted successfully"})
}

// decodePlan reads and validates a plan body, writing the error response
// itself so handlers can bail with a bare return.
func (a *API) decodePlan(w http.ResponseWriter, r *http.Request) (*PlanRequest, bool) {
	var req PlanRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if err := a.validate.Struct(&req); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "invalid plan request: "+err.Error())
		return nil, false
	}
	return &req, true
}

func (a *API) planError(w http.ResponseWriter, err error, detail string) {
	if errors.Is(err, store.ErrNotFound) {
		a.writeDetail(w, http.StatusNotFound, "Plan not found")
		return
	}
	a.logger.Error("plan store error", "err", err)
	a.writeDetail(w, http.StatusInternalServerError, detail)
}

func (r *PlanRequest) toPlan() *store.Plan {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	stops := make([]map[string]any, 0, len(r.Stops))
	for _, s := range r.Stops {
		stops = append(stops, map[string]any{
			"activity":   s.Activity,
			"duration":   *s.Duration,
			"start_time": s.StartTime,
			"place":      s.Place,
		})
	}

	return &store.Plan{
		Name:          r.Name,
		Description:   r.Description,
		Vibe:          r.Vibe,
		TotalDuration: *r.TotalDuration,
		TotalDistance: *r.TotalDistance,
		Stops:         stops,
		Metadata:      metadata,
	}
}

// planResponse shapes a stored plan for the wire. Metadata always
// serializes as an object and stops as a list, never null.
func planResponse(p *store.Plan) map[string]any {
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	stops := p.Stops
	if stops == nil {
		stops = []map[string]any{}
	}
	return map[string]any{
		"id":             p.ID,
		"user_id":        p.UserID,
		"name":           p.Name,
		"description":    p.Description,
		"vibe":           p.Vibe,
		"total_duration": p.TotalDuration,
		"total_distance": p.TotalDistance,
		"stops":          stops,
		"metadata":       metadata,
		"created_at":     p.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":     p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
