package models

import "time"

// Schedule is a care plan attached to a profile: how often, how long and
// when the care happens. Kind is denormalized from the owning profile,
// like Listing. Every plan field is optional; callers fill in what the
// arrangement needs.
type Schedule struct {
	ID                int64     `json:"id"`
	ProfileID         int64     `json:"profile_id"`
	Kind              string    `json:"kind"`
	ScheduleType      *string   `json:"scheduletype,omitempty"`
	TotalHours        *int      `json:"totalhours,omitempty"`
	Frequency         *string   `json:"frequency,omitempty"`
	StartDate         *string   `json:"startdate,omitempty"`
	SelectedTimeslots *string   `json:"selectedtimeslots,omitempty"`
	DurationDays      *int      `json:"durationdays,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
