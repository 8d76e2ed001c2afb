package handlers

import (
	"net/http"

	"github.com/chen0112/Caregiver-backend/internal/models"
)

// InboxResponse represents the conversation list for a user. Each entry is
// the latest message for one (conversation, listing) thread.
type InboxResponse struct {
	Conversations []models.ConversationSummary `json:"conversations"`
}

// ListConversations handles the inbox view for a user. A user with no
// conversations gets an empty list, not an error.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		h.Error(w, http.StatusBadRequest, "user is required")
		return
	}

	summaries, err := h.db.ConversationSummaries(r.Context(), user)
	if err != nil {
		h.storageError(w, r, err, "failed to list conversations")
		return
	}
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}

	h.JSON(w, http.StatusOK, InboxResponse{Conversations: summaries})
}
