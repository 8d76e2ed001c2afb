package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chen0112/Caregiver-backend/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
// bounded by minConns/maxConns and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string, minConns, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MinConns = minConns
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		phone TEXT UNIQUE NOT NULL,
		passcode_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		imageurl TEXT NOT NULL DEFAULT '',
		last_seen TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		phone TEXT NOT NULL,
		name TEXT NOT NULL,
		location TEXT NOT NULL,
		description TEXT,
		age INT,
		gender TEXT,
		education TEXT,
		experience_years INT,
		hourly_rate DOUBLE PRECISION,
		imageurl TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS listings (
		id BIGSERIAL PRIMARY KEY,
		profile_id BIGINT NOT NULL REFERENCES profiles(id),
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id BIGSERIAL PRIMARY KEY,
		profile_id BIGINT NOT NULL REFERENCES profiles(id),
		kind TEXT NOT NULL,
		scheduletype TEXT,
		totalhours INT,
		frequency TEXT,
		startdate TEXT,
		selectedtimeslots TEXT,
		durationdays INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id BIGSERIAL PRIMARY KEY,
		participant_a TEXT NOT NULL,
		participant_b TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		conversation_id BIGINT NOT NULL REFERENCES conversations(id),
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		content TEXT NOT NULL,
		listing_id BIGINT NOT NULL,
		listing_kind TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_kind ON profiles(kind);
	CREATE INDEX IF NOT EXISTS idx_profiles_phone ON profiles(phone);
	CREATE INDEX IF NOT EXISTS idx_listings_kind ON listings(kind);
	CREATE INDEX IF NOT EXISTS idx_schedules_kind ON schedules(kind);
	CREATE INDEX IF NOT EXISTS idx_schedules_profile ON schedules(profile_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair
		ON conversations (LEAST(participant_a, participant_b), GREATEST(participant_a, participant_b));
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_participants ON messages(sender, recipient);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, so the
// conversation lookup can run standalone or inside the append transaction.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateAccount creates a new account record.
func (s *PostgresStore) CreateAccount(ctx context.Context, phone, passcodeHash, name, imageURL string) (*models.Account, error) {
	acct := &models.Account{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (phone, passcode_hash, name, imageurl)
		VALUES ($1, $2, $3, $4)
		RETURNING id, phone, passcode_hash, name, imageurl, last_seen, created_at
	`, phone, passcodeHash, name, imageURL).Scan(
		&acct.ID,
		&acct.Phone,
		&acct.PasscodeHash,
		&acct.Name,
		&acct.ImageURL,
		&acct.LastSeen,
		&acct.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// GetAccountByPhone retrieves an account by phone number.
func (s *PostgresStore) GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error) {
	acct := &models.Account{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, phone, passcode_hash, name, imageurl, last_seen, created_at
		FROM accounts WHERE phone = $1
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return acct, nil
}

// TouchLastSeen updates the last_seen timestamp for an account.
func (s *PostgresStore) TouchLastSeen(ctx context.Context, phone string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts SET last_seen = $2 WHERE phone = $1
	`, phone, at)
	return err
}

const profileColumns = `id, kind, phone, name, location, description, age, gender, education, experience_years, hourly_rate, imageurl, created_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
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
func (s *PostgresStore) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (kind, phone, name, location, description, age, gender, education, experience_years, hourly_rate, imageurl)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+profileColumns+`
	`, p.Kind, p.Phone, p.Name, p.Location, p.Description, p.Age, p.Gender, p.Education, p.ExperienceYears, p.HourlyRate, p.ImageURL)
	return scanProfile(row)
}

// GetProfile retrieves a profile by id.
func (s *PostgresStore) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListProfiles retrieves profiles, filtered by kind when non-empty.
func (s *PostgresStore) ListProfiles(ctx context.Context, kind string) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE ($1 = '' OR kind = $1)
		ORDER BY id
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListProfilesByPhone retrieves all profiles registered under a phone number.
func (s *PostgresStore) ListProfilesByPhone(ctx context.Context, phone string) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE phone = $1 ORDER BY id
	`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

func collectProfiles(rows pgx.Rows) ([]models.Profile, error) {
	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// UpdateProfile applies a partial update; nil fields keep their value.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `
		UPDATE profiles SET
			name = COALESCE($2, name),
			location = COALESCE($3, location),
			description = COALESCE($4, description),
			hourly_rate = COALESCE($5, hourly_rate)
		WHERE id = $1
		RETURNING `+profileColumns+`
	`, id, upd.Name, upd.Location, upd.Description, upd.HourlyRate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// CreateListing creates a classified ad attached to a profile.
func (s *PostgresStore) CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	out := &models.Listing{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO listings (profile_id, kind, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, profile_id, kind, title, description, created_at
	`, l.ProfileID, l.Kind, l.Title, l.Description).Scan(
		&out.ID,
		&out.ProfileID,
		&out.Kind,
		&out.Title,
		&out.Description,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetListing retrieves a listing by id.
func (s *PostgresStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	l := &models.Listing{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, profile_id, kind, title, description, created_at
		FROM listings WHERE id = $1
	`, id).Scan(&l.ID, &l.ProfileID, &l.Kind, &l.Title, &l.Description, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// ListListings retrieves listings, filtered by kind when non-empty.
func (s *PostgresStore) ListListings(ctx context.Context, kind string) ([]models.Listing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, profile_id, kind, title, description, created_at
		FROM listings
		WHERE ($1 = '' OR kind = $1)
		ORDER BY id
	`, kind)
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
func (s *PostgresStore) UpdateListing(ctx context.Context, id int64, title, description *string) (*models.Listing, error) {
	l := &models.Listing{}
	err := s.pool.QueryRow(ctx, `
		UPDATE listings SET
			title = COALESCE($2, title),
			description = COALESCE($3, description)
		WHERE id = $1
		RETURNING id, profile_id, kind, title, description, created_at
	`, id, title, description).Scan(&l.ID, &l.ProfileID, &l.Kind, &l.Title, &l.Description, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

const scheduleColumns = `id, profile_id, kind, scheduletype, totalhours, frequency, startdate, selectedtimeslots, durationdays, created_at`

func scanSchedule(row pgx.Row) (*models.Schedule, error) {
	sc := &models.Schedule{}
	err := row.Scan(
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
	return sc, nil
}

// CreateSchedule creates a care plan attached to a profile.
func (s *PostgresStore) CreateSchedule(ctx context.Context, sc *models.Schedule) (*models.Schedule, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO schedules (profile_id, kind, scheduletype, totalhours, frequency, startdate, selectedtimeslots, durationdays)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+scheduleColumns+`
	`, sc.ProfileID, sc.Kind, sc.ScheduleType, sc.TotalHours, sc.Frequency, sc.StartDate, sc.SelectedTimeslots, sc.DurationDays)
	return scanSchedule(row)
}

// ListSchedules retrieves schedules newest first, filtered by kind when
// non-empty.
func (s *PostgresStore) ListSchedules(ctx context.Context, kind string) ([]models.Schedule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE ($1 = '' OR kind = $1)
		ORDER BY id DESC
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// ListSchedulesByProfile retrieves the schedules attached to one profile,
// newest first.
func (s *PostgresStore) ListSchedulesByProfile(ctx context.Context, profileID int64) ([]models.Schedule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE profile_id = $1 ORDER BY id DESC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func collectSchedules(rows pgx.Rows) ([]models.Schedule, error) {
	var schedules []models.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sc)
	}
	return schedules, rows.Err()
}

// lookupConversation finds a conversation matching the pair in either
// orientation.
func lookupConversation(ctx context.Context, q pgxQuerier, userA, userB string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := q.QueryRow(ctx, `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE (participant_a = $1 AND participant_b = $2)
		   OR (participant_a = $2 AND participant_b = $1)
	`, userA, userB).Scan(
		&conv.ID,
		&conv.ParticipantA,
		&conv.ParticipantB,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// resolveOrCreateConversation returns the conversation for the pair,
// creating it on first contact. The unique index over the canonical pair
// makes concurrent first contacts converge on one row: the loser's insert
// hits ON CONFLICT DO NOTHING and the follow-up lookup finds the winner.
func resolveOrCreateConversation(ctx context.Context, q pgxQuerier, userA, userB string) (*models.Conversation, error) {
	conv, err := lookupConversation(ctx, q, userA, userB)
	if err != nil || conv != nil {
		return conv, err
	}

	conv = &models.Conversation{}
	err = q.QueryRow(ctx, `
		INSERT INTO conversations (participant_a, participant_b)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		RETURNING id, participant_a, participant_b, created_at
	`, userA, userB).Scan(
		&conv.ID,
		&conv.ParticipantA,
		&conv.ParticipantB,
		&conv.CreatedAt,
	)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Lost the race; the row exists now.
	conv, err = lookupConversation(ctx, q, userA, userB)
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
func (s *PostgresStore) ResolveOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	return resolveOrCreateConversation(ctx, s.pool, userA, userB)
}

// AppendMessage resolves the conversation for sender/recipient and inserts
// the message, both in one transaction so a failure leaves no orphaned
// conversation behind.
func (s *PostgresStore) AppendMessage(ctx context.Context, sender, recipient, content string, listingID int64, listingKind string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	conv, err := resolveOrCreateConversation(ctx, tx, sender, recipient)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Sender:         sender,
		Recipient:      recipient,
		Content:        content,
		ListingID:      listingID,
		ListingKind:    listingKind,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender, recipient, content, listing_id, listing_kind)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, conv.ID, sender, recipient, content, listingID, listingKind).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return msg, nil
}

// MessagesBetween returns the message history for a participant pair and
// listing, oldest first. An empty listingKind matches any kind.
func (s *PostgresStore) MessagesBetween(ctx context.Context, userA, userB string, listingID int64, listingKind string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender, recipient, content, listing_id, listing_kind, created_at
		FROM messages
		WHERE ((sender = $1 AND recipient = $2) OR (sender = $2 AND recipient = $1))
		  AND listing_id = $3
		  AND ($4 = '' OR listing_kind = $4)
		ORDER BY created_at, id
	`, userA, userB, listingID, listingKind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// MessagesByConversation returns the history for a known conversation id
// and listing, oldest first.
func (s *PostgresStore) MessagesByConversation(ctx context.Context, conversationID, listingID int64) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender, recipient, content, listing_id, listing_kind, created_at
		FROM messages
		WHERE conversation_id = $1 AND listing_id = $2
		ORDER BY created_at, id
	`, conversationID, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]models.Message, error) {
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
func (s *PostgresStore) ConversationSummaries(ctx context.Context, user string) ([]models.ConversationSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.conversation_id, s.other_phone,
		       COALESCE(a.name, ''), COALESCE(a.imageurl, ''),
		       s.content, s.created_at, s.listing_id, s.listing_kind
		FROM (
			SELECT DISTINCT ON (m.conversation_id, m.listing_id, m.listing_kind)
			       m.conversation_id,
			       CASE WHEN c.participant_a = $1 THEN c.participant_b ELSE c.participant_a END AS other_phone,
			       m.content, m.created_at, m.listing_id, m.listing_kind
			FROM messages m
			JOIN conversations c ON c.id = m.conversation_id
			WHERE m.sender = $1 OR m.recipient = $1
			ORDER BY m.conversation_id, m.listing_id, m.listing_kind, m.created_at DESC, m.id DESC
		) s
		LEFT JOIN accounts a ON a.phone = s.other_phone
		ORDER BY s.created_at DESC
	`, user)
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
