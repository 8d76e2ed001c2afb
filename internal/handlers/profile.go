package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chen0112/Caregiver-backend/internal/metrics"
	"github.com/chen0112/Caregiver-backend/internal/models"
)

// CreateProfileRequest represents the profile creation body. One endpoint
// covers all four verticals via the kind field.
type CreateProfileRequest struct {
	Kind            string   `json:"kind"`
	Phone           string   `json:"phone"`
	Name            string   `json:"name"`
	Location        string   `json:"location"`
	Description     *string  `json:"description"`
	Age             *int     `json:"age"`
	Gender          *string  `json:"gender"`
	Education       *string  `json:"education"`
	ExperienceYears *int     `json:"years_of_experience"`
	HourlyRate      *float64 `json:"hourlyrate"`
	ImageURL        *string  `json:"imageurl"`
}

// ProfileListResponse represents a list of profiles.
type ProfileListResponse struct {
	Profiles []models.Profile `json:"profiles"`
}

// CreateProfile handles creation of a provider or seeker record.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !models.ValidKind(req.Kind) {
		h.Error(w, http.StatusBadRequest, "unknown kind")
		return
	}
	if req.Name == "" || req.Location == "" {
		h.Error(w, http.StatusBadRequest, "name and location are required")
		return
	}
	if !isValidPhone(req.Phone) {
		h.Error(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	p, err := h.db.CreateProfile(r.Context(), &models.Profile{
		Kind:            req.Kind,
		Phone:           req.Phone,
		Name:            sanitizeName(req.Name),
		Location:        req.Location,
		Description:     req.Description,
		Age:             req.Age,
		Gender:          req.Gender,
		Education:       req.Education,
		ExperienceYears: req.ExperienceYears,
		HourlyRate:      req.HourlyRate,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		h.storageError(w, r, err, "failed to create profile")
		return
	}

	metrics.ProfilesCreated.WithLabelValues(p.Kind).Inc()

	h.JSON(w, http.StatusCreated, p)
}

// ListProfiles handles listing profiles, optionally filtered by kind.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !models.ValidKind(kind) {
		h.Error(w, http.StatusBadRequest, "unknown kind")
		return
	}

	profiles, err := h.db.ListProfiles(r.Context(), kind)
	if err != nil {
		h.storageError(w, r, err, "failed to list profiles")
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}

	h.JSON(w, http.StatusOK, ProfileListResponse{Profiles: profiles})
}

// GetProfile handles fetching one profile by id.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.Error(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	p, err := h.db.GetProfile(r.Context(), id)
	if err != nil {
		h.storageError(w, r, err, "failed to load profile")
		return
	}
	if p == nil {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}

	h.JSON(w, http.StatusOK, p)
}

// MyProfiles handles listing every profile registered under a phone.
func (h *Handler) MyProfiles(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if phone == "" {
		h.Error(w, http.StatusBadRequest, "phone is required")
		return
	}

	profiles, err := h.db.ListProfilesByPhone(r.Context(), phone)
	if err != nil {
		h.storageError(w, r, err, "failed to list profiles")
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}

	h.JSON(w, http.StatusOK, ProfileListResponse{Profiles: profiles})
}

// UpdateProfile handles a partial update of a profile's editable fields.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.Error(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	var upd models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if upd.Name != nil && *upd.Name == "" {
		h.Error(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if upd.Location != nil && *upd.Location == "" {
		h.Error(w, http.StatusBadRequest, "location cannot be empty")
		return
	}

	p, err := h.db.UpdateProfile(r.Context(), id, upd)
	if err != nil {
		h.storageError(w, r, err, "failed to update profile")
		return
	}
	if p == nil {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}

	h.JSON(w, http.StatusOK, p)
}
