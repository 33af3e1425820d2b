package models

// TravelVerdict is the outcome of analyzing one login event.
//
// DistanceKm and TimeDifferenceMinutes are only set when a genuine two-point
// comparison was made; on the first-login, same-location and failure paths
// they are omitted from the JSON payload.
type TravelVerdict struct {
	User                     string       `json:"user"`
	CurrentIP                string       `json:"current_ip"`
	CurrentLocation          Location     `json:"current_location"`
	CurrentTimestamp         string       `json:"current_timestamp"`
	ImpossibleTravelDetected bool         `json:"impossible_travel_detected"`
	PreviousLogin            *LoginRecord `json:"previous_login,omitempty"`
	DistanceKm               *float64     `json:"distance_km,omitempty"`
	TimeDifferenceMinutes    *float64     `json:"time_difference_minutes,omitempty"`
	Message                  string       `json:"message"`
}

// PurgeResponse is returned by the purge endpoint.
type PurgeResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RecordsDeleted int64  `json:"records_deleted"`
}

// StatsResponse reports aggregate counts over the login history.
type StatsResponse struct {
	TotalRecords int64 `json:"total_records"`
	UniqueUsers  int64 `json:"unique_users"`
}
