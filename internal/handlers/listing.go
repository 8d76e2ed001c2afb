package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chen0112/Caregiver-backend/internal/metrics"
	"github.com/chen0112/Caregiver-backend/internal/models"
)

// CreateListingRequest represents the ad posting body. Kind comes from the
// owning profile, not the request.
type CreateListingRequest struct {
	ProfileID   int64  `json:"profile_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateListingRequest carries the editable listing fields.
type UpdateListingRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// ListingListResponse represents a list of ads.
type ListingListResponse struct {
	Listings []models.Listing `json:"listings"`
}

// CreateListing handles posting a classified ad from a profile.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProfileID <= 0 {
		h.Error(w, http.StatusBadRequest, "profile_id is required")
		return
	}
	if req.Title == "" || req.Description == "" {
		h.Error(w, http.StatusBadRequest, "title and description are required")
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

	l, err := h.db.CreateListing(r.Context(), &models.Listing{
		ProfileID:   profile.ID,
		Kind:        profile.Kind,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.storageError(w, r, err, "failed to create listing")
		return
	}

	metrics.ListingsPosted.WithLabelValues(l.Kind).Inc()

	h.JSON(w, http.StatusCreated, l)
}

// ListListings handles listing ads, optionally filtered by kind.
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !models.ValidKind(kind) {
		h.Error(w, http.StatusBadRequest, "unknown kind")
		return
	}

	listings, err := h.db.ListListings(r.Context(), kind)
	if err != nil {
		h.storageError(w, r, err, "failed to list listings")
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}

	h.JSON(w, http.StatusOK, ListingListResponse{Listings: listings})
}

// GetListing handles fetching one ad by id.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.Error(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	l, err := h.db.GetListing(r.Context(), id)
	if err != nil {
		h.storageError(w, r, err, "failed to load listing")
		return
	}
	if l == nil {
		h.Error(w, http.StatusNotFound, "listing not found")
		return
	}

	h.JSON(w, http.StatusOK, l)
}

// UpdateListing handles a partial update of an ad's title/description.
func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.Error(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	var req UpdateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title != nil && *req.Title == "" {
		h.Error(w, http.StatusBadRequest, "title cannot be empty")
		return
	}
	if req.Description != nil && *req.Description == "" {
		h.Error(w, http.StatusBadRequest, "description cannot be empty")
		return
	}

	l, err := h.db.UpdateListing(r.Context(), id, req.Title, req.Description)
	if err != nil {
		h.storageError(w, r, err, "failed to update listing")
		return
	}
	if l == nil {
		h.Error(w, http.StatusNotFound, "listing not found")
		return
	}

	h.JSON(w, http.StatusOK, l)
}
