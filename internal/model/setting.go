package model

import "time"

// Setting is a key/value row of `system_settings`. Type is a hint for the
// dashboard (string, integer, float, boolean); values are stored as text.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Users   int64 `json:"users"`
	Domains int64 `json:"domains"`
	Aliases int64 `json:"aliases"`
	Storage int64 `json:"storage"`
}
