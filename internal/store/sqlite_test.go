package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chen0112/Caregiver-backend/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestResolveOrCreateConversationSymmetry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.ResolveOrCreateConversation(ctx, "+1000", "+2000")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.ResolveOrCreateConversation(ctx, "+2000", "+1000")
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != second.ID {
		t.Fatalf("reversed lookup returned conversation %d, want %d", second.ID, first.ID)
	}
	if first.ParticipantA != "+1000" || first.ParticipantB != "+2000" {
		t.Fatalf("orientation of first contact not preserved: %q/%q", first.ParticipantA, first.ParticipantB)
	}
}

func TestResolveOrCreateConversationConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 8
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "+1000", "+2000"
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := s.ResolveOrCreateConversation(ctx, a, b)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("goroutine %d got conversation %d, want %d", i, ids[i], ids[0])
		}
	}
}

func TestAppendMessageReusesConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.AppendMessage(ctx, "+1000", "+2000", "hi", 7, "")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == 0 || first.ConversationID == 0 {
		t.Fatalf("missing assigned ids: %+v", first)
	}

	second, err := s.AppendMessage(ctx, "+2000", "+1000", "hey", 7, "")
	if err != nil {
		t.Fatal(err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("reply created conversation %d, want %d", second.ConversationID, first.ConversationID)
	}
	if second.ID == first.ID {
		t.Fatal("messages share an id")
	}
}

func TestMessagesBetweenOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	contents := []string{"one", "two", "three", "four"}
	for _, c := range contents {
		if _, err := s.AppendMessage(ctx, "+1000", "+2000", c, 7, ""); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.MessagesBetween(ctx, "+2000", "+1000", 7, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(msgs))
	}
	for i, c := range contents {
		if msgs[i].Content != c {
			t.Fatalf("position %d: got %q, want %q", i, msgs[i].Content, c)
		}
	}
}

func TestMessagesBetweenListingScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AppendMessage(ctx, "+1000", "+2000", "about seven", 7, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, "+1000", "+2000", "about eight", 8, ""); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.MessagesBetween(ctx, "+1000", "+2000", 7, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "about seven" {
		t.Fatalf("listing 7 history polluted: %+v", msgs)
	}
}

func TestMessagesBetweenKindFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AppendMessage(ctx, "+1000", "+2000", "human ad", 7, models.KindCaregiver); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, "+1000", "+2000", "animal ad", 7, models.KindAnimalCaregiver); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.MessagesBetween(ctx, "+1000", "+2000", 7, models.KindCaregiver)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "human ad" {
		t.Fatalf("kind filter failed: %+v", msgs)
	}

	// Empty kind matches any
	all, err := s.MessagesBetween(ctx, "+1000", "+2000", 7, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("wildcard kind returned %d messages, want 2", len(all))
	}
}

func TestMessagesByConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sent, err := s.AppendMessage(ctx, "+1000", "+2000", "hello", 7, "")
	if err != nil {
		t.Fatal(err)
	}

	msgs, err := s.MessagesByConversation(ctx, sent.ConversationID, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != sent.ID {
		t.Fatalf("unexpected history: %+v", msgs)
	}

	none, err := s.MessagesByConversation(ctx, sent.ConversationID, 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty history for unknown listing, got %d", len(none))
	}
}

func TestConversationSummariesGroupByListing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AppendMessage(ctx, "+1000", "+2000", "first about 7", 7, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, "+2000", "+1000", "latest about 7", 7, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, "+1000", "+2000", "about 8", 8, ""); err != nil {
		t.Fatal(err)
	}

	summaries, err := s.ConversationSummaries(ctx, "+1000")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected one summary row per listing, got %d", len(summaries))
	}

	// Most recently active listing first
	if summaries[0].ListingID != 8 || summaries[0].LastContent != "about 8" {
		t.Fatalf("unexpected first row: %+v", summaries[0])
	}
	if summaries[1].ListingID != 7 || summaries[1].LastContent != "latest about 7" {
		t.Fatalf("unexpected second row: %+v", summaries[1])
	}
	for _, cs := range summaries {
		if cs.OtherPhone != "+2000" {
			t.Fatalf("other participant should be +2000, got %q", cs.OtherPhone)
		}
	}
}

func TestConversationSummariesAccountEnrichment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateAccount(ctx, "+2000", "hash", "Jane Doe", "https://img.example/jane.jpg"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, "+1000", "+2000", "hi", 7, ""); err != nil {
		t.Fatal(err)
	}

	summaries, err := s.ConversationSummaries(ctx, "+1000")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].OtherName != "Jane Doe" {
		t.Fatalf("display name not joined: %+v", summaries[0])
	}
	if summaries[0].OtherImageURL != "https://img.example/jane.jpg" {
		t.Fatalf("display photo not joined: %+v", summaries[0])
	}
}

func TestEmptyStates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	summaries, err := s.ConversationSummaries(ctx, "+9999")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Fatalf("new user should have no conversations, got %d", len(summaries))
	}

	msgs, err := s.MessagesBetween(ctx, "+9999", "+8888", 7, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty history, got %d", len(msgs))
	}
}

func TestProfileCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	desc := "experienced with elderly care"
	rate := 25.0
	created, err := s.CreateProfile(ctx, &models.Profile{
		Kind:        models.KindCaregiver,
		Phone:       "+15551234",
		Name:        "John",
		Location:    "Oakland",
		Description: &desc,
		HourlyRate:  &rate,
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 {
		t.Fatal("no id assigned")
	}

	got, err := s.GetProfile(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "John" || got.Description == nil || *got.Description != desc {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Age != nil || got.Gender != nil {
		t.Fatalf("absent optional fields should stay nil: %+v", got)
	}

	newRate := 30.0
	updated, err := s.UpdateProfile(ctx, created.ID, models.ProfileUpdate{HourlyRate: &newRate})
	if err != nil {
		t.Fatal(err)
	}
	if updated.HourlyRate == nil || *updated.HourlyRate != newRate {
		t.Fatalf("rate not updated: %+v", updated)
	}
	if updated.Name != "John" {
		t.Fatalf("untouched field changed: %+v", updated)
	}

	byKind, err := s.ListProfiles(ctx, models.KindCaregiver)
	if err != nil {
		t.Fatal(err)
	}
	if len(byKind) != 1 {
		t.Fatalf("expected 1 caregiver profile, got %d", len(byKind))
	}
	other, err := s.ListProfiles(ctx, models.KindCareneeder)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Fatalf("kind filter leaked %d rows", len(other))
	}

	missing, err := s.GetProfile(ctx, 9999)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown profile, got %+v", missing)
	}
}

func TestListingCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, &models.Profile{
		Kind:     models.KindAnimalCaregiver,
		Phone:    "+15551234",
		Name:     "John",
		Location: "Oakland",
	})
	if err != nil {
		t.Fatal(err)
	}

	listing, err := s.CreateListing(ctx, &models.Listing{
		ProfileID:   profile.ID,
		Kind:        profile.Kind,
		Title:       "Dog walking",
		Description: "Weekday afternoons",
	})
	if err != nil {
		t.Fatal(err)
	}
	if listing.ID == 0 || listing.Kind != models.KindAnimalCaregiver {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	title := "Dog walking and sitting"
	updated, err := s.UpdateListing(ctx, listing.ID, &title, nil)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != title || updated.Description != "Weekday afternoons" {
		t.Fatalf("partial update wrong: %+v", updated)
	}

	byKind, err := s.ListListings(ctx, models.KindAnimalCaregiver)
	if err != nil {
		t.Fatal(err)
	}
	if len(byKind) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(byKind))
	}
}

func TestScheduleCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, &models.Profile{
		Kind:     models.KindCareneeder,
		Phone:    "+15551234",
		Name:     "Mary",
		Location: "Berkeley",
	})
	if err != nil {
		t.Fatal(err)
	}

	schedType := "recurring"
	hours := 40
	freq := "weekly"
	first, err := s.CreateSchedule(ctx, &models.Schedule{
		ProfileID:    profile.ID,
		Kind:         profile.Kind,
		ScheduleType: &schedType,
		TotalHours:   &hours,
		Frequency:    &freq,
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == 0 || first.Kind != models.KindCareneeder {
		t.Fatalf("unexpected schedule: %+v", first)
	}
	if first.StartDate != nil || first.DurationDays != nil {
		t.Fatalf("absent optional fields should stay nil: %+v", first)
	}

	second, err := s.CreateSchedule(ctx, &models.Schedule{
		ProfileID: profile.ID,
		Kind:      profile.Kind,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Newest first
	byKind, err := s.ListSchedules(ctx, models.KindCareneeder)
	if err != nil {
		t.Fatal(err)
	}
	if len(byKind) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(byKind))
	}
	if byKind[0].ID != second.ID || byKind[1].ID != first.ID {
		t.Fatalf("wrong order: %+v", byKind)
	}
	if byKind[1].TotalHours == nil || *byKind[1].TotalHours != hours {
		t.Fatalf("totalhours lost: %+v", byKind[1])
	}

	other, err := s.ListSchedules(ctx, models.KindCaregiver)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Fatalf("kind filter leaked %d rows", len(other))
	}

	mine, err := s.ListSchedulesByProfile(ctx, profile.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 schedules for profile, got %d", len(mine))
	}

	none, err := s.ListSchedulesByProfile(ctx, 9999)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("unknown profile should have no schedules, got %d", len(none))
	}
}

func TestAccountLastSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct, err := s.CreateAccount(ctx, "+15551234", "hash", "John", "")
	if err != nil {
		t.Fatal(err)
	}
	if acct.LastSeen != nil {
		t.Fatalf("fresh account should have no last_seen: %+v", acct)
	}

	if err := s.TouchLastSeen(ctx, "+15551234", acct.CreatedAt.Add(1)); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetAccountByPhone(ctx, "+15551234")
	if err != nil {
		t.Fatal(err)
	}
	if got.LastSeen == nil {
		t.Fatal("last_seen not recorded")
	}
}
