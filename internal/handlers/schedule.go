package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chen0112/Caregiver-backend/internal/metrics"
	"github.com/chen0112/Caregiver-backend/internal/models"
)

// CreateScheduleRequest represents the care plan body. Kind comes from
// the owning profile, not the request; the plan fields are all optional.
type CreateScheduleRequest struct {
	ProfileID         int64   `json:"profile_id"`
	ScheduleType      *string `json:"scheduletype"`
	TotalHours        *int    `json:"totalhours"`
	Frequency         *string `json:"frequency"`
	StartDate         *string `json:"startdate"`
	SelectedTimeslots *string `json:"selectedtimeslots"`
	DurationDays      *int    `json:"durationdays"`
}

// ScheduleListResponse represents a list of care plans.
type ScheduleListResponse struct {
	Schedules []models.Schedule `json:"schedules"`
}

// CreateSchedule handles attaching a care plan to a profile.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProfileID <= 0 {
		h.Error(w, http.StatusBadRequest, "profile_id is required")
		return
	}
	if req.TotalHours != nil && *req.TotalHours <= 0 {
		h.Error(w, http.StatusBadRequest, "totalhours must be positive")
		return
	}
	if req.DurationDays != nil && *req.DurationDays <= 0 {
		h.Error(w, http.StatusBadRequest, "durationdays must be positive")
		return
	}

	profile, err := h.db.GetProfile(r.Context(), req.ProfileID)
	if err != nil {
		h.storageError(w, r, err, "failed to load profile")
		return
	}
	if profile == nil {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}

	sc, err := h.db.CreateSchedule(r.Context(), &models.Schedule{
		ProfileID:         profile.ID,
		Kind:              profile.Kind,
		ScheduleType:      req.ScheduleType,
		TotalHours:        req.TotalHours,
		Frequency:         req.Frequency,
		StartDate:         req.StartDate,
		SelectedTimeslots: req.SelectedTimeslots,
		DurationDays:      req.DurationDays,
	})
	if err != nil {
		h.storageError(w, r, err, "failed to create schedule")
		return
	}

	metrics.SchedulesCreated.WithLabelValues(sc.Kind).Inc()

	h.JSON(w, http.StatusCreated, sc)
}

// ListSchedules handles listing care plans, optionally filtered by kind.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !models.ValidKind(kind) {
		h.Error(w, http.StatusBadRequest, "unknown kind")
		return
	}

	schedules, err := h.db.ListSchedules(r.Context(), kind)
	if err != nil {
		h.storageError(w, r, err, "failed to list schedules")
		return
	}
	if schedules == nil {
		schedules = []models.Schedule{}
	}

	h.JSON(w, http.StatusOK, ScheduleListResponse{Schedules: schedules})
}

// ProfileSchedules handles listing the care plans attached to one profile.
func (h *Handler) ProfileSchedules(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.Error(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	profile, err := h.db.GetProfile(r.Context(), id)
	if err != nil {
		h.storageError(w, r, err, "failed to load profile")
		return
	}
	if profile == nil {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}

	schedules, err := h.db.ListSchedulesByProfile(r.Context(), id)
	if err != nil {
		h.storageError(w, r, err, "failed to list schedules")
		return
	}
	if schedules == nil {
		schedules = []models.Schedule{}
	}

	h.JSON(w, http.StatusOK, ScheduleListResponse{Schedules: schedules})
}
