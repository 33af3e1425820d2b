package models

import (
	"time"
)

// Location is the geographic resolution of a network address.
type Location struct {
	Country   string  `json:"country" bson:"country"`
	City      string  `json:"city" bson:"city"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// UnknownLocation is the sentinel used when geolocation fails. It is returned
// to callers for context but is never persisted to the login history.
func UnknownLocation() Location {
	return Location{Country: "Unknown", City: "Unknown"}
}

// LoginRecord represents one stored login observation for a user.
// Timestamp keeps the event time exactly as it arrived on the wire;
// CreatedAt is the insertion time and is never used for decisions.
type LoginRecord struct {
	User      string    `json:"user" bson:"user"`
	IP        string    `json:"ip" bson:"ip"`
	Country   string    `json:"country" bson:"country"`
	City      string    `json:"city" bson:"city"`
	Latitude  float64   `json:"latitude" bson:"latitude"`
	Longitude float64   `json:"longitude" bson:"longitude"`
	Timestamp string    `json:"timestamp" bson:"timestamp"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Location returns the record's stored location.
func (r *LoginRecord) Location() Location {
	return Location{
		Country:   r.Country,
		City:      r.City,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}
