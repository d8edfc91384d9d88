package model

import "time"

// QuarantinedMessage is a message held by the spam filter for a user.
type QuarantinedMessage struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Sender         string     `json:"sender"`
	Subject        string     `json:"subject"`
	Score          float64    `json:"score"`
	QuarantineDate time.Time  `json:"quarantine_date"`
	Released       bool       `json:"released"`
	ReleasedAt     *time.Time `json:"released_at"`
}
