package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chen0112/Caregiver-backend/internal/metrics"
	"github.com/chen0112/Caregiver-backend/internal/models"
)

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Content     string `json:"content"`
	ListingID   int64  `json:"listing_id"`
	ListingKind string `json:"listing_kind"`
}

// MessageListResponse represents a message history response.
type MessageListResponse struct {
	Messages []models.Message `json:"messages"`
}

// SendMessage handles posting a message. The conversation for the pair is
// resolved or created as part of the append.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Sender == "" {
		h.Error(w, http.StatusBadRequest, "sender is required")
		return
	}
	if req.Recipient == "" {
		h.Error(w, http.StatusBadRequest, "recipient is required")
		return
	}
	if req.Content == "" {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.ListingID <= 0 {
		h.Error(w, http.StatusBadRequest, "listing_id is required")
		return
	}
	if req.ListingKind != "" && !models.ValidKind(req.ListingKind) {
		h.Error(w, http.StatusBadRequest, "unknown listing_kind")
		return
	}

	msg, err := h.db.AppendMessage(r.Context(), req.Sender, req.Recipient, req.Content, req.ListingID, req.ListingKind)
	if err != nil {
		h.storageError(w, r, err, "failed to append message")
		return
	}

	kind := msg.ListingKind
	if kind == "" {
		kind = "unspecified"
	}
	metrics.MessagesSent.WithLabelValues(kind).Inc()

	h.JSON(w, http.StatusCreated, msg)
}

// GetMessages handles fetching history by participant pair and listing.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	sender := r.URL.Query().Get("sender")
	recipient := r.URL.Query().Get("recipient")
	if sender == "" || recipient == "" {
		h.Error(w, http.StatusBadRequest, "sender and recipient are required")
		return
	}

	listingID, err := strconv.ParseInt(r.URL.Query().Get("listing_id"), 10, 64)
	if err != nil || listingID <= 0 {
		h.Error(w, http.StatusBadRequest, "listing_id is required")
		return
	}
	listingKind := r.URL.Query().Get("listing_kind")

	msgs, err := h.db.MessagesBetween(r.Context(), sender, recipient, listingID, listingKind)
	if err != nil {
		h.storageError(w, r, err, "failed to fetch messages")
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	h.JSON(w, http.StatusOK, MessageListResponse{Messages: msgs})
}

// GetConversationMessages handles fetching history by conversation id,
// used once the conversation is already known.
func (h *Handler) GetConversationMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || conversationID <= 0 {
		h.Error(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	listingID, err := strconv.ParseInt(r.URL.Query().Get("listing_id"), 10, 64)
	if err != nil || listingID <= 0 {
		h.Error(w, http.StatusBadRequest, "listing_id is required")
		return
	}

	msgs, err := h.db.MessagesByConversation(r.Context(), conversationID, listingID)
	if err != nil {
		h.storageError(w, r, err, "failed to fetch conversation messages")
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	h.JSON(w, http.StatusOK, MessageListResponse{Messages: msgs})
}
