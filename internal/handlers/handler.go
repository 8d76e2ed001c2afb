package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/chen0112/Caregiver-backend/internal/store"
)

// phoneRegex accepts E.164-ish phone identities: optional +, 4-15 digits.
// The short end admits test identities and local short numbers.
var phoneRegex = regexp.MustCompile(`^\+?[0-9]{4,15}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db     store.DataStore
	redis  *store.RedisStore
	logger zerolog.Logger
}

// NewHandler creates a new Handler with the given stores. redis may be
// nil when Redis is not configured.
func NewHandler(db store.DataStore, redis *store.RedisStore, logger zerolog.Logger) *Handler {
	return &Handler{db: db, redis: redis, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// storageError logs the cause and replies with a generic 500. Storage
// details never reach the client.
func (h *Handler) storageError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	h.Error(w, http.StatusInternalServerError, "database error")
}

// sanitizeName trims and limits name to 100 characters, removing control
// characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}

// isValidPhone validates a phone identity string.
func isValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}
