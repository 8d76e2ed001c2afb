package models

import "time"

// Profile kinds. One kind-tagged table backs all four marketplace verticals.
const (
	KindCaregiver        = "caregiver"
	KindCareneeder       = "careneeder"
	KindAnimalCaregiver  = "animalcaregiver"
	KindAnimalCareneeder = "animalcareneeder"
)

// ValidKind reports whether kind names a known profile vertical.
func ValidKind(kind string) bool {
	switch kind {
	case KindCaregiver, KindCareneeder, KindAnimalCaregiver, KindAnimalCareneeder:
		return true
	}
	return false
}

// Profile is a provider or seeker record in one of the four verticals.
// Optional columns are pointers so absent values round-trip as NULL.
type Profile struct {
	ID              int64     `json:"id"`
	Kind            string    `json:"kind"`
	Phone           string    `json:"phone"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	Description     *string   `json:"description,omitempty"`
	Age             *int      `json:"age,omitempty"`
	Gender          *string   `json:"gender,omitempty"`
	Education       *string   `json:"education,omitempty"`
	ExperienceYears *int      `json:"years_of_experience,omitempty"`
	HourlyRate      *float64  `json:"hourlyrate,omitempty"`
	ImageURL        *string   `json:"imageurl,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ProfileUpdate carries the fields a PATCH may change; nil means unchanged.
type ProfileUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Description *string  `json:"description,omitempty"`
	HourlyRate  *float64 `json:"hourlyrate,omitempty"`
}
