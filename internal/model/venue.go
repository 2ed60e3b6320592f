package model

import "time"

// Venue is a canonical physical store location.
type Venue struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FullAddress string    `json:"full_address,omitempty"`
	City        string    `json:"city,omitempty"`
	Province    string    `json:"province,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	PlaceID     string    `json:"place_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// IsNew signals that this resolve call created the record.
	// Never persisted.
	IsNew bool `json:"is_new,omitempty"`
}

// SubmittedVenue is a loosely-specified store descriptor from a user
// submission. Any subset of the identifying fields may be present.
type SubmittedVenue struct {
	Name        string   `json:"name"`
	FullAddress string   `json:"full_address,omitempty"`
	City        string   `json:"city,omitempty"`
	Province    string   `json:"province,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	PlaceID     string   `json:"place_id,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (s SubmittedVenue) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}
