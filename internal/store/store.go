package store

import (
	"context"
	"time"

	"github.com/chen0112/Caregiver-backend/internal/models"
)

// DataStore defines the interface for persistent storage of accounts,
// profiles, listings and the messaging core. Both PostgresStore and
// SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Account operations
	CreateAccount(ctx context.Context, phone, passcodeHash, name, imageURL string) (*models.Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error)
	TouchLastSeen(ctx context.Context, phone string, at time.Time) error

	// Profile operations
	CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, id int64) (*models.Profile, error)
	ListProfiles(ctx context.Context, kind string) ([]models.Profile, error)
	ListProfilesByPhone(ctx context.Context, phone string) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.Profile, error)

	// Listing operations
	CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error)
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	ListListings(ctx context.Context, kind string) ([]models.Listing, error)
	UpdateListing(ctx context.Context, id int64, title, description *string) (*models.Listing, error)

	// Schedule operations
	CreateSchedule(ctx context.Context, sc *models.Schedule) (*models.Schedule, error)
	ListSchedules(ctx context.Context, kind string) ([]models.Schedule, error)
	ListSchedulesByProfile(ctx context.Context, profileID int64) ([]models.Schedule, error)

	// Messaging core
	ResolveOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, sender, recipient, content string, listingID int64, listingKind string) (*models.Message, error)
	MessagesBetween(ctx context.Context, userA, userB string, listingID int64, listingKind string) ([]models.Message, error)
	MessagesByConversation(ctx context.Context, conversationID, listingID int64) ([]models.Message, error)
	ConversationSummaries(ctx context.Context, user string) ([]models.ConversationSummary, error)
}
