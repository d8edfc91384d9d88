package model

import "time"

// Domain is a mail domain hosted by the server (`domains` table).
type Domain struct {
	ID          int64     `json:"id"`
	Domain      string    `json:"domain"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	UserCount   int64     `json:"user_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Alias forwards mail for Source to Destination (`aliases` table).
type Alias struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	DomainID    int64     `json:"domain_id"`
	DomainName  string    `json:"domain_name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
