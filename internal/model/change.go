package model

// Change is a row change delivered by the real-time change feed.
type Change struct {
	Table    string `json:"table"`
	Op       string `json:"op"`
	ID       string `json:"id"`
	ClinicID string `json:"clinic_id"`
}

// ChangeHandler receives change feed notifications.
type ChangeHandler func(change Change)
