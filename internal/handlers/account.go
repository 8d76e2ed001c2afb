package handlers

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chen0112/Caregiver-backend/internal/metrics"
)

// RegisterRequest represents the account registration body.
type RegisterRequest struct {
	Phone    string `json:"phone"`
	Passcode string `json:"passcode"`
	Name     string `json:"name"`
	ImageURL string `json:"imageurl"`
}

// SignInRequest represents the sign-in body.
type SignInRequest struct {
	Phone    string `json:"phone"`
	Passcode string `json:"passcode"`
}

// VerificationRequest asks for a sign-in code for a phone.
type VerificationRequest struct {
	Phone string `json:"phone"`
}

// VerificationCheckRequest submits a received code.
type VerificationCheckRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// VerificationResponse acknowledges an issued code.
type VerificationResponse struct {
	VerificationID string `json:"verification_id"`
	ExpiresIn      int    `json:"expires_in"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	Phone    string     `json:"phone"`
	Name     string     `json:"name,omitempty"`
	ImageURL string     `json:"imageurl,omitempty"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
	Online   bool       `json:"online"`
}

// Register handles account creation.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !isValidPhone(req.Phone) {
		h.Error(w, http.StatusBadRequest, "invalid phone number")
		return
	}
	if len(req.Passcode) < 4 {
		h.Error(w, http.StatusBadRequest, "passcode must be at least 4 characters")
		return
	}

	existing, err := h.db.GetAccountByPhone(r.Context(), req.Phone)
	if err != nil {
		h.storageError(w, r, err, "failed to check existing account")
		return
	}
	if existing != nil {
		h.Error(w, http.StatusConflict, "phone already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Passcode), bcrypt.DefaultCost)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to hash passcode")
		return
	}

	acct, err := h.db.CreateAccount(r.Context(), req.Phone, string(hash), sanitizeName(req.Name), req.ImageURL)
	if err != nil {
		h.storageError(w, r, err, "failed to create account")
		return
	}

	metrics.AccountsRegistered.Inc()

	h.JSON(w, http.StatusCreated, acct)
}

// SignIn handles passcode sign-in and refreshes last_seen on success.
// Unknown phone and wrong passcode are indistinguishable to the caller.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Phone == "" || req.Passcode == "" {
		h.Error(w, http.StatusBadRequest, "phone and passcode are required")
		return
	}

	acct, err := h.db.GetAccountByPhone(r.Context(), req.Phone)
	if err != nil {
		h.storageError(w, r, err, "failed to load account")
		return
	}
	if acct == nil || bcrypt.CompareHashAndPassword([]byte(acct.PasscodeHash), []byte(req.Passcode)) != nil {
		h.Error(w, http.StatusUnauthorized, "invalid phone or passcode")
		return
	}

	now := time.Now().UTC()
	if err := h.db.TouchLastSeen(r.Context(), req.Phone, now); err != nil {
		h.logger.Warn().Err(err).Str("phone", req.Phone).Msg("failed to update last_seen")
	}
	if h.redis != nil {
		if err := h.redis.SetPresence(r.Context(), req.Phone); err != nil {
			h.logger.Warn().Err(err).Msg("failed to set presence")
		}
	}
	acct.LastSeen = &now

	h.JSON(w, http.StatusOK, acct)
}

// RequestVerification issues a sign-in code for a phone. The code itself
// is logged rather than delivered; SMS transport lives outside this
// service.
func (h *Handler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	if h.redis == nil {
		h.Error(w, http.StatusServiceUnavailable, "verification not configured")
		return
	}

	var req VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !isValidPhone(req.Phone) {
		h.Error(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	code, err := generateCode()
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to generate code")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to hash code")
		return
	}
	if err := h.redis.StoreVerificationCode(r.Context(), req.Phone, string(hash)); err != nil {
		h.storageError(w, r, err, "failed to store verification code")
		return
	}

	verificationID := uuid.NewString()
	h.logger.Info().
		Str("phone", req.Phone).
		Str("verification_id", verificationID).
		Str("code", code).
		Msg("verification code issued")

	metrics.VerificationCodesIssued.Inc()

	h.JSON(w, http.StatusOK, VerificationResponse{
		VerificationID: verificationID,
		ExpiresIn:      300,
	})
}

// CheckVerification validates a submitted code and consumes it on success.
func (h *Handler) CheckVerification(w http.ResponseWriter, r *http.Request) {
	if h.redis == nil {
		h.Error(w, http.StatusServiceUnavailable, "verification not configured")
		return
	}

	var req VerificationCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Phone == "" || req.Code == "" {
		h.Error(w, http.StatusBadRequest, "phone and code are required")
		return
	}

	hash, err := h.redis.GetVerificationCode(r.Context(), req.Phone)
	if err != nil {
		h.storageError(w, r, err, "failed to load verification code")
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Code)) != nil {
		h.Error(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}

	if err := h.redis.ConsumeVerificationCode(r.Context(), req.Phone); err != nil {
		h.logger.Warn().Err(err).Msg("failed to consume verification code")
	}

	h.JSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// GetAccount returns the public profile for a phone.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	acct, err := h.db.GetAccountByPhone(r.Context(), phone)
	if err != nil {
		h.storageError(w, r, err, "failed to load account")
		return
	}
	if acct == nil {
		h.Error(w, http.StatusNotFound, "account not found")
		return
	}

	online := false
	if h.redis != nil {
		online, _ = h.redis.IsOnline(r.Context(), phone)
	}

	h.JSON(w, http.StatusOK, AccountResponse{
		Phone:    acct.Phone,
		Name:     acct.Name,
		ImageURL: acct.ImageURL,
		LastSeen: acct.LastSeen,
		Online:   online,
	})
}

// TouchSeen refreshes a user's last_seen timestamp and presence marker.
func (h *Handler) TouchSeen(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if phone == "" {
		h.Error(w, http.StatusBadRequest, "phone is required")
		return
	}

	if err := h.db.TouchLastSeen(r.Context(), phone, time.Now().UTC()); err != nil {
		h.storageError(w, r, err, "failed to update last_seen")
		return
	}
	if h.redis != nil {
		if err := h.redis.SetPresence(r.Context(), phone); err != nil {
			h.logger.Warn().Err(err).Msg("failed to set presence")
		}
	}

	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// generateCode produces a 6-digit numeric sign-in code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
