package models

import "time"

// Account is a registered user, keyed by phone number.
type Account struct {
	ID           int64      `json:"id"`
	Phone        string     `json:"phone"`
	PasscodeHash string     `json:"-"`
	Name         string     `json:"name,omitempty"`
	ImageURL     string     `json:"imageurl,omitempty"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
