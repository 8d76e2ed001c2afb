package models

import "time"

// Listing is a classified ad posted from a profile. Kind is denormalized
// from the owning profile so messages can carry it as listing_kind without
// a join.
type Listing struct {
	ID          int64     `json:"id"`
	ProfileID   int64     `json:"profile_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
