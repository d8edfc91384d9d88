package model

import (
	"math"
	"time"
)

// User represents a mailbox account as stored in the `users` table. The
// password hash never leaves the repository layer, so it is not a field
// here. Handlers render users through their own response types.
//
// Fields:
//
//	ID        – primary key identifier of the user.
//	Email     – unique mailbox address, stored lower-cased.
//	Name      – display name.
//	DomainID  – owning domain; derived from the email at creation.
//	Domain    – domain name, filled by joins.
//	Quota     – mailbox size limit in bytes.
//	Active    – disabled accounts cannot log in.
//	Admin     – grants the admin role at next login.
//	LastLogin – last successful login, nil if never.
//	Usage     – joined from `quota_usage`; zero when no row exists.
type User struct {
	ID        int64      // users.id
	Email     string     // users.email
	Name      string     // users.name
	DomainID  int64      // users.domain_id
	Domain    string     // domains.domain
	Quota     int64      // users.quota
	Active    bool       // users.active
	Admin     bool       // users.admin
	CreatedAt time.Time  // users.created_at
	UpdatedAt time.Time  // users.updated_at
	LastLogin *time.Time // users.last_login (nullable)
	Usage     QuotaUsage // quota_usage row
}

// QuotaUsage mirrors the counters of a `quota_usage` row.
type QuotaUsage struct {
	BytesUsed    int64
	MessageCount int64
}

// QuotaSummary is the quota block of a profile response.
type QuotaSummary struct {
	Limit        int64   `json:"limit"`
	Used         int64   `json:"used"`
	MessageCount int64   `json:"messageCount"`
	Percentage   float64 `json:"percentage"`
}

// QuotaSummary computes usage against the user's limit. Percentage is a
// whole number and zero when the limit is not positive.
func (u User) QuotaSummary() QuotaSummary {
	s := QuotaSummary{Limit: u.Quota, Used: u.Usage.BytesUsed, MessageCount: u.Usage.MessageCount}
	if u.Quota > 0 {
		s.Percentage = math.Round(float64(s.Used) / float64(u.Quota) * 100)
	}
	return s
}

// NewUser carries the fields accepted when an admin provisions a mailbox.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
	Quota        int64
	Admin        bool
}

// UserUpdate lists the columns that may be changed after creation. Nil
// fields are left untouched.
type UserUpdate struct {
	Name   *string `json:"name"`
	Quota  *int64  `json:"quota"`
	Admin  *bool   `json:"admin"`
	Active *bool   `json:"active"`
}

// Empty reports whether no field is set.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Quota == nil && u.Admin == nil && u.Active == nil
}

// Page is a slice of a listing plus the numbers needed to page through it.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPage fills Pages from total and limit.
func NewPage(page, limit, total int) Page {
	p := Page{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.Pages = (total + limit - 1) / limit
	}
	return p
}
