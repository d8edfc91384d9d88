// Package queue defines the audit messages exchanged over RabbitMQ and the
// consumer that persists them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// AuditQueue is the durable queue audit events are published to.
const AuditQueue = "koemail.audit"

// Audit actions.
const (
	ActionLoginSucceeded  = "auth.login"
	ActionLoginFailed     = "auth.login_failed"
	ActionLogout          = "auth.logout"
	ActionPasswordChanged = "auth.password_changed"
	ActionUserCreated     = "user.created"
	ActionUserUpdated     = "user.updated"
	ActionUserDeleted     = "user.deleted"
	ActionDomainCreated   = "domain.created"
	ActionSettingUpdated  = "setting.updated"
	ActionMessageReleased = "spam.released"
)

// AuditEvent records who did what to which record. It never carries
// passwords, hashes or tokens.
type AuditEvent struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	ActorID    int64             `json:"actor_id,omitempty"`
	ActorEmail string            `json:"actor_email,omitempty"`
	Target     string            `json:"target,omitempty"`
	RemoteIP   string            `json:"remote_ip,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewAuditEvent stamps a fresh id and time on an event for action.
func NewAuditEvent(action string, at time.Time) AuditEvent {
	return AuditEvent{ID: uuid.NewString(), Action: action, OccurredAt: at.UTC()}
}
