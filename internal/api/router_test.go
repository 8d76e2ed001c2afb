package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"

	"github.com/chen0112/Caregiver-backend/internal/config"
	"github.com/chen0112/Caregiver-backend/internal/models"
	"github.com/chen0112/Caregiver-backend/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return NewRouter(zerolog.Nop(), &config.Config{}, s, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestSendAndFetchMessages(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/messages", map[string]any{
		"sender": "+1000", "recipient": "+2000", "content": "hi", "listing_id": 7,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send: status %d, body %s", rec.Code, rec.Body.String())
	}
	first := decode[models.Message](t, rec)
	if first.ID != 1 || first.ConversationID != 1 {
		t.Fatalf("expected first ids 1/1, got %d/%d", first.ID, first.ConversationID)
	}

	rec = doJSON(t, router, "POST", "/api/messages", map[string]any{
		"sender": "+2000", "recipient": "+1000", "content": "hey", "listing_id": 7,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("reply: status %d", rec.Code)
	}
	second := decode[models.Message](t, rec)
	if second.ID != 2 || second.ConversationID != 1 {
		t.Fatalf("reply should reuse conversation 1, got %d/%d", second.ID, second.ConversationID)
	}

	rec = doJSON(t, router, "GET", "/api/messages?sender=%2B1000&recipient=%2B2000&listing_id=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status %d", rec.Code)
	}
	history := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, rec)
	if len(history.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history.Messages))
	}
	if history.Messages[0].Content != "hi" || history.Messages[1].Content != "hey" {
		t.Fatalf("wrong order: %+v", history.Messages)
	}

	rec = doJSON(t, router, "GET", "/api/conversations/1/messages?listing_id=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by conversation: status %d", rec.Code)
	}
	byConv := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, rec)
	if len(byConv.Messages) != 2 {
		t.Fatalf("expected 2 messages by conversation, got %d", len(byConv.Messages))
	}
}

func TestSendMessageValidation(t *testing.T) {
	router := newTestRouter(t)

	cases := []map[string]any{
		{"recipient": "+2000", "content": "hi", "listing_id": 7},
		{"sender": "+1000", "content": "hi", "listing_id": 7},
		{"sender": "+1000", "recipient": "+2000", "listing_id": 7},
		{"sender": "+1000", "recipient": "+2000", "content": "hi"},
		{"sender": "+1000", "recipient": "+2000", "content": "hi", "listing_id": 7, "listing_kind": "spaceship"},
	}
	for i, body := range cases {
		rec := doJSON(t, router, "POST", "/api/messages", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("case %d: status %d, want 400", i, rec.Code)
		}
	}

	// Nothing was persisted
	rec := doJSON(t, router, "GET", "/api/conversations?user=%2B1000", nil)
	inbox := decode[struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}](t, rec)
	if len(inbox.Conversations) != 0 {
		t.Fatalf("validation failures leaked rows: %+v", inbox.Conversations)
	}
}

func TestInboxGroupsByListing(t *testing.T) {
	router := newTestRouter(t)

	for _, body := range []map[string]any{
		{"sender": "+1000", "recipient": "+2000", "content": "about 7", "listing_id": 7},
		{"sender": "+2000", "recipient": "+1000", "content": "re: about 7", "listing_id": 7},
		{"sender": "+1000", "recipient": "+2000", "content": "about 8", "listing_id": 8},
	} {
		if rec := doJSON(t, router, "POST", "/api/messages", body); rec.Code != http.StatusCreated {
			t.Fatalf("send failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, router, "GET", "/api/conversations?user=%2B1000", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("inbox: status %d", rec.Code)
	}
	inbox := decode[struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}](t, rec)
	if len(inbox.Conversations) != 2 {
		t.Fatalf("expected 2 inbox rows, got %d", len(inbox.Conversations))
	}
	if inbox.Conversations[0].LastContent != "about 8" {
		t.Fatalf("latest listing thread should come first: %+v", inbox.Conversations[0])
	}
	if inbox.Conversations[1].LastContent != "re: about 7" {
		t.Fatalf("listing 7 row should carry its latest message: %+v", inbox.Conversations[1])
	}
}

func TestInboxEmptyForNewUser(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/conversations?user=%2B9999", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	inbox := decode[struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}](t, rec)
	if inbox.Conversations == nil || len(inbox.Conversations) != 0 {
		t.Fatalf("expected empty array, got %+v", inbox.Conversations)
	}
}

func TestRegisterAndSignIn(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/accounts/register", map[string]any{
		"phone": "+15551234", "passcode": "s3cret", "name": "Jane",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Duplicate phone
	rec = doJSON(t, router, "POST", "/api/accounts/register", map[string]any{
		"phone": "+15551234", "passcode": "other",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/accounts/signin", map[string]any{
		"phone": "+15551234", "passcode": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin: status %d", rec.Code)
	}
	acct := decode[models.Account](t, rec)
	if acct.LastSeen == nil {
		t.Fatal("signin should refresh last_seen")
	}

	rec = doJSON(t, router, "POST", "/api/accounts/signin", map[string]any{
		"phone": "+15551234", "passcode": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad passcode: status %d, want 401", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/accounts/%2B15551234", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get account: status %d", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/accounts/%2B19990000", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown account: status %d, want 404", rec.Code)
	}
}

func TestVerificationUnavailableWithoutRedis(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/accounts/verification", map[string]any{"phone": "+15551234"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
}

func TestProfileAndListingFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/profiles", map[string]any{
		"kind": "caregiver", "phone": "+15551234", "name": "John", "location": "Oakland",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create profile: status %d, body %s", rec.Code, rec.Body.String())
	}
	profile := decode[models.Profile](t, rec)

	rec = doJSON(t, router, "POST", "/api/profiles", map[string]any{
		"kind": "wizard", "phone": "+15551234", "name": "John", "location": "Oakland",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/listings", map[string]any{
		"profile_id": profile.ID, "title": "Elderly care", "description": "Weekdays",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create listing: status %d, body %s", rec.Code, rec.Body.String())
	}
	listing := decode[models.Listing](t, rec)
	if listing.Kind != "caregiver" {
		t.Fatalf("listing should inherit profile kind, got %q", listing.Kind)
	}

	rec = doJSON(t, router, "POST", "/api/listings", map[string]any{
		"profile_id": 9999, "title": "Ghost ad", "description": "x",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("listing for unknown profile: status %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/listings?kind=caregiver", nil)
	listings := decode[struct {
		Listings []models.Listing `json:"listings"`
	}](t, rec)
	if len(listings.Listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings.Listings))
	}

	rec = doJSON(t, router, "GET", "/api/profiles/mine/%2B15551234", nil)
	mine := decode[struct {
		Profiles []models.Profile `json:"profiles"`
	}](t, rec)
	if len(mine.Profiles) != 1 {
		t.Fatalf("expected 1 profile for phone, got %d", len(mine.Profiles))
	}
}

func TestScheduleFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/profiles", map[string]any{
		"kind": "careneeder", "phone": "+15559876", "name": "Mary", "location": "Berkeley",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create profile: status %d, body %s", rec.Code, rec.Body.String())
	}
	profile := decode[models.Profile](t, rec)

	rec = doJSON(t, router, "POST", "/api/schedules", map[string]any{
		"profile_id": profile.ID, "scheduletype": "recurring", "totalhours": 40, "frequency": "weekly",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create schedule: status %d, body %s", rec.Code, rec.Body.String())
	}
	schedule := decode[models.Schedule](t, rec)
	if schedule.Kind != "careneeder" {
		t.Fatalf("schedule should inherit profile kind, got %q", schedule.Kind)
	}

	rec = doJSON(t, router, "POST", "/api/schedules", map[string]any{
		"profile_id": 9999, "scheduletype": "recurring",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("schedule for unknown profile: status %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/schedules", map[string]any{
		"profile_id": profile.ID, "totalhours": -5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative totalhours: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/schedules?kind=careneeder", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list schedules: status %d", rec.Code)
	}
	listed := decode[struct {
		Schedules []models.Schedule `json:"schedules"`
	}](t, rec)
	if len(listed.Schedules) != 1 {
		t.Fatalf("expected 1 schedule, got %d", len(listed.Schedules))
	}
	if listed.Schedules[0].TotalHours == nil || *listed.Schedules[0].TotalHours != 40 {
		t.Fatalf("totalhours lost: %+v", listed.Schedules[0])
	}

	rec = doJSON(t, router, "GET", "/api/profiles/"+strconv.FormatInt(profile.ID, 10)+"/schedules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile schedules: status %d", rec.Code)
	}
	mine := decode[struct {
		Schedules []models.Schedule `json:"schedules"`
	}](t, rec)
	if len(mine.Schedules) != 1 {
		t.Fatalf("expected 1 schedule for profile, got %d", len(mine.Schedules))
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d, body %s", rec.Code, rec.Body.String())
	}
}
