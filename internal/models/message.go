package models

import "time"

// Message is one entry in a conversation's append-only log. ListingID ties
// the message to the ad it concerns; ListingKind distinguishes which
// listing vertical the id refers to and may be empty.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Recipient      string    `json:"recipient"`
	Content        string    `json:"content"`
	ListingID      int64     `json:"listing_id"`
	ListingKind    string    `json:"listing_kind,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
