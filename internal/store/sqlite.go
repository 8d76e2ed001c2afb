package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chen0112/Caregiver-backend/internal/models"
)

// SQLiteStore handles SQLite database operations. It backs development
// setups and the test suite; production runs on PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/caregiver.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/caregiver.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY churn under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phone TEXT UNIQUE NOT NULL,
		passcode_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		imageurl TEXT NOT NULL DEFAULT '',
		last_seen DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		phone TEXT NOT NULL,
		name TEXT NOT NULL,
		location TEXT NOT NULL,
		description TEXT,
		age INTEGER,
		gender TEXT,
		education TEXT,
		experience_years INTEGER,
		hourly_rate REAL,
		imageurl TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id INTEGER NOT NULL REFERENCES profiles(id),
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id INTEGER NOT NULL REFERENCES profiles(id),
		kind TEXT NOT NULL,
		scheduletype TEXT,
		totalhours INTEGER,
		frequency TEXT,
		startdate TEXT,
		selectedtimeslots TEXT,
		durationdays INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant_a TEXT NOT NULL,
		participant_b TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL REFERENCES conversations(id),
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		content TEXT NOT NULL,
		listing_id INTEGER NOT NULL,
		listing_kind TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_kind ON profiles(kind);
	CREATE INDEX IF NOT EXISTS idx_profiles_phone ON profiles(phone);
	CREATE INDEX IF NOT EXISTS idx_listings_kind ON listings(kind);
	CREATE INDEX IF NOT EXISTS idx_schedules_kind ON schedules(kind);
	CREATE INDEX IF NOT EXISTS idx_schedules_profile ON schedules(profile_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair
		ON conversations (min(participant_a, participant_b), max(participant_a, participant_b));
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_participants ON messages(sender, recipient);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateAccount creates a new account record.
func (s *SQLiteStore) CreateAccount(ctx context.Context, phone, passcodeHash, name, imageURL string) (*models.Account, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (phone, passcode_hash, name, imageurl, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, phone, passcodeHash, name, imageURL, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Account{
		ID:           id,
		Phone:        phone,
		PasscodeHash: passcodeHash,
		Name:         name,
		ImageURL:     imageURL,
		CreatedAt:    now,
	}, nil
}

// GetAccountByPhone retrieves an account by phone number.
func (s *SQLiteStore) GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error) {
	acct := &models.Account{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, phone, passcode_hash, name, imageurl, last_seen, created_at
		FROM accounts WHERE phone = ?
	`, phone).Scan(
		&acct.ID,
		&acct.Phone,
		&acct.PasscodeHash,
		&acct.Name,
		&acct.ImageURL,
		&acct.LastSeen,
		&acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return acct, nil
}

// TouchLastSeen updates the last_seen timestamp for an account.
func (s *SQLiteStore) TouchLastSeen(ctx context.Context, phone string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET last_seen = ? WHERE phone = ?
	`, at.UTC(), phone)
	return err
}

func scanProfileRow(row *sql.Row) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(
		&p.ID,
		&p.Kind,
		&p.Phone,
		&p.Name,
		&p.Location,
		&p.Description,
		&p.Age,
		&p.Gender,
		&p.Education,
		&p.ExperienceYears,
		&p.HourlyRate,
		&p.ImageURL,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProfile creates a profile record in one of the verticals.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (kind, phone, name, location, description, age, gender, education, experience_years, hourly_rate, imageurl, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Kind, p.Phone, p.Name, p.Location, p.Description, p.Age, p.Gender, p.Education, p.ExperienceYears, p.HourlyRate, p.ImageURL, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *p
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// GetProfile retrieves a profile by id.
func (s *SQLiteStore) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	p, err := scanProfileRow(s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListProfiles retrieves profiles, filtered by kind when non-empty.
func (s *SQLiteStore) ListProfiles(ctx context.Context, kind string) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE (? = '' OR kind = ?)
		ORDER BY id
	`, kind, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfileRows(rows)
}

// ListProfilesByPhone retrieves all profiles registered under a phone number.
func (s *SQLiteStore) ListProfilesByPhone(ctx context.Context, phone string) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE phone = ? ORDER BY id
	`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfileRows(rows)
}

func collectProfileRows(rows *sql.Rows) ([]models.Profile, error) {
	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		err := rows.Scan(
			&p.ID,
			&p.Kind,
			&p.Phone,
			&p.Name,
			&p.Location,
			&p.Description,
			&p.Age,
			&p.Gender,
			&p.Education,
			&p.ExperienceYears,
			&p.HourlyRate,
			&p.ImageURL,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// UpdateProfile applies a partial update; nil fields keep their value.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.Profile, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET
			name = COALESCE(?, name),
			location = COALESCE(?, location),
			description = COALESCE(?, description),
			hourly_rate = COALESCE(?, hourly_rate)
		WHERE id = ?
	`, upd.Name, upd.Location, upd.Description, upd.HourlyRate, id)
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, id)
}

// CreateListing creates a classified ad attached to a profile.
func (s *SQLiteStore) CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO listings (profile_id, kind, title, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.ProfileID, l.Kind, l.Title, l.Description, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *l
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// GetListing retrieves a listing by id.
func (s *SQLiteStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	l := &models.Listing{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, kind, title, description, created_at
		FROM listings WHERE id = ?
	`, id).Scan(&l.ID, &l.ProfileID, &l.Kind, &l.Title, &l.Description, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// ListListings retrieves listings, filtered by kind when non-empty.
func (s *SQLiteStore) ListListings(ctx context.Context, kind string) ([]models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, kind, title, description, created_at
		FROM listings
		WHERE (? = '' OR kind = ?)
		ORDER BY id
	`, kind, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ID, &l.ProfileID, &l.Kind, &l.Title, &l.Description, &l.CreatedAt); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// UpdateListing applies a partial update to title/description.
func (s *SQLiteStore) UpdateListing(ctx context.Context, id int64, title, description *string) (*models.Listing, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE listings SET
			title = COALESCE(?, title),
			description = COALESCE(?, description)
		WHERE id = ?
	`, title, description, id)
	if err != nil {
		return nil, err
	}
	return s.GetListing(ctx, id)
}

// CreateSchedule creates a care plan attached to a profile.
func (s *SQLiteStore) CreateSchedule(ctx context.Context, sc *models.Schedule) (*models.Schedule, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (profile_id, kind, scheduletype, totalhours, frequency, startdate, selectedtimeslots, durationdays, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sc.ProfileID, sc.Kind, sc.ScheduleType, sc.TotalHours, sc.Frequency, sc.StartDate, sc.SelectedTimeslots, sc.DurationDays, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *sc
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// ListSchedules retrieves schedules newest first, filtered by kind when
// non-empty.
func (s *SQLiteStore) ListSchedules(ctx context.Context, kind string) ([]models.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE (? = '' OR kind = ?)
		ORDER BY id DESC
	`, kind, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduleRows(rows)
}

// ListSchedulesByProfile retrieves the schedules attached to one profile,
// newest first.
func (s *SQLiteStore) ListSchedulesByProfile(ctx context.Context, profileID int64) ([]models.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE profile_id = ? ORDER BY id DESC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduleRows(rows)
}

func collectScheduleRows(rows *sql.Rows) ([]models.Schedule, error) {
	var schedules []models.Schedule
	for rows.Next() {
		var sc models.Schedule
		err := rows.Scan(
			&sc.ID,
			&sc.ProfileID,
			&sc.Kind,
			&sc.ScheduleType,
			&sc.TotalHours,
			&sc.Frequency,
			&sc.StartDate,
			&sc.SelectedTimeslots,
			&sc.DurationDays,
			&sc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// lookupConversationSQL finds a conversation matching the pair in either
// orientation.
func lookupConversationSQL(ctx context.Context, q sqlQuerier, userA, userB string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := q.QueryRowContext(ctx, `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE (participant_a = ? AND participant_b = ?)
		   OR (participant_a = ? AND participant_b = ?)
	`, userA, userB, userB, userA).Scan(
		&conv.ID,
		&conv.ParticipantA,
		&conv.ParticipantB,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// resolveOrCreateConversationSQL mirrors the Postgres logic: the unique
// index over the canonical pair keeps concurrent first contacts to one
// row, and INSERT OR IGNORE plus re-lookup absorbs the losing side.
func resolveOrCreateConversationSQL(ctx context.Context, q sqlQuerier, userA, userB string) (*models.Conversation, error) {
	conv, err := lookupConversationSQL(ctx, q, userA, userB)
	if err != nil || conv != nil {
		return conv, err
	}

	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO conversations (participant_a, participant_b, created_at)
		VALUES (?, ?, ?)
	`, userA, userB, now)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return &models.Conversation{
			ID:           id,
			ParticipantA: userA,
			ParticipantB: userB,
			CreatedAt:    now,
		}, nil
	}

	// Lost the race; the row exists now.
	conv, err = lookupConversationSQL(ctx, q, userA, userB)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation for %s/%s not found after conflict", userA, userB)
	}
	return conv, nil
}

// ResolveOrCreateConversation maps an unordered participant pair to its
// single conversation, creating it on first contact.
func (s *SQLiteStore) ResolveOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	return resolveOrCreateConversationSQL(ctx, s.db, userA, userB)
}

// AppendMessage resolves the conversation for sender/recipient and inserts
// the message in one transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sender, recipient, content string, listingID int64, listingKind string) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	conv, err := resolveOrCreateConversationSQL(ctx, tx, sender, recipient)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender, recipient, content, listing_id, listing_kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, conv.ID, sender, recipient, content, listingID, listingKind, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.Message{
		ID:             id,
		ConversationID: conv.ID,
		Sender:         sender,
		Recipient:      recipient,
		Content:        content,
		ListingID:      listingID,
		ListingKind:    listingKind,
		CreatedAt:      now,
	}, nil
}

// MessagesBetween returns the message history for a participant pair and
// listing, oldest first. An empty listingKind matches any kind.
func (s *SQLiteStore) MessagesBetween(ctx context.Context, userA, userB string, listingID int64, listingKind string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, recipient, content, listing_id, listing_kind, created_at
		FROM messages
		WHERE ((sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?))
		  AND listing_id = ?
		  AND (? = '' OR listing_kind = ?)
		ORDER BY created_at, id
	`, userA, userB, userB, userA, listingID, listingKind, listingKind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessageRows(rows)
}

// MessagesByConversation returns the history for a known conversation id
// and listing, oldest first.
func (s *SQLiteStore) MessagesByConversation(ctx context.Context, conversationID, listingID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, recipient, content, listing_id, listing_kind, created_at
		FROM messages
		WHERE conversation_id = ? AND listing_id = ?
		ORDER BY created_at, id
	`, conversationID, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessageRows(rows)
}

func collectMessageRows(rows *sql.Rows) ([]models.Message, error) {
	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.Sender,
			&m.Recipient,
			&m.Content,
			&m.ListingID,
			&m.ListingKind,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ConversationSummaries derives the inbox for a user: the latest message
// per (conversation, listing) group they participate in, most recent
// first, enriched with the other participant's account display fields.
func (s *SQLiteStore) ConversationSummaries(ctx context.Context, user string) ([]models.ConversationSummary, error) {
	// Columns are selected directly from messages so the driver keeps
	// their declared types for time.Time conversion.
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.conversation_id,
		       CASE WHEN c.participant_a = ? THEN c.participant_b ELSE c.participant_a END AS other_phone,
		       COALESCE(a.name, ''), COALESCE(a.imageurl, ''),
		       m.content, m.created_at, m.listing_id, m.listing_kind
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		LEFT JOIN accounts a
		       ON a.phone = CASE WHEN c.participant_a = ? THEN c.participant_b ELSE c.participant_a END
		WHERE (m.sender = ? OR m.recipient = ?)
		  AND NOT EXISTS (
			SELECT 1 FROM messages m2
			WHERE m2.conversation_id = m.conversation_id
			  AND m2.listing_id = m.listing_id
			  AND m2.listing_kind = m.listing_kind
			  AND (m2.created_at > m.created_at
			       OR (m2.created_at = m.created_at AND m2.id > m.id))
		  )
		ORDER BY m.created_at DESC, m.id DESC
	`, user, user, user, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.ConversationSummary
	for rows.Next() {
		var cs models.ConversationSummary
		err := rows.Scan(
			&cs.ConversationID,
			&cs.OtherPhone,
			&cs.OtherName,
			&cs.OtherImageURL,
			&cs.LastContent,
			&cs.LastAt,
			&cs.ListingID,
			&cs.ListingKind,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}
