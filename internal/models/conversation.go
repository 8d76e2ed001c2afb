package models

import "time"

// Conversation pairs two participant phone identities. At most one
// conversation exists per unordered pair; participants are stored in the
// orientation of first contact.
type Conversation struct {
	ID           int64     `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConversationSummary is one inbox row for a viewing user: the latest
// message exchanged with the other participant about one listing. A
// conversation spanning several listings yields several rows.
type ConversationSummary struct {
	ConversationID int64     `json:"conversation_id"`
	OtherPhone     string    `json:"other_phone"`
	OtherName      string    `json:"other_name"`
	OtherImageURL  string    `json:"other_imageurl"`
	LastContent    string    `json:"last_content"`
	LastAt         time.Time `json:"last_at"`
	ListingID      int64     `json:"listing_id"`
	ListingKind    string    `json:"listing_kind"`
}
