package service

import (
	"context"
	"time"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/logging"
	"github.com/iliyamo/koemail-admin/internal/queue"
)

// Auditor records security-relevant actions. Recording is best-effort: a
// broker outage is logged and never fails the request that triggered it.
// A nil *Auditor is valid and records nothing.
type Auditor struct {
	pub     Publisher
	log     logging.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewAuditor(pub Publisher, log logging.Logger) *Auditor {
	return &Auditor{pub: pub, log: log, now: time.Now, timeout: 2 * time.Second}
}

// Entry describes one audited action. Actor is taken from the request
// context when a principal is attached.
type Entry struct {
	Action   string
	Target   string
	RemoteIP string
	Email    string // actor email when no principal exists yet (login)
	Details  map[string]string
}

func (a *Auditor) Record(ctx context.Context, e Entry) {
	if a == nil || a.pub == nil {
		return
	}
	ev := queue.NewAuditEvent(e.Action, a.now())
	ev.Target, ev.RemoteIP, ev.Details, ev.ActorEmail = e.Target, e.RemoteIP, e.Details, e.Email
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		ev.ActorID, ev.ActorEmail = p.UserID, p.Email
	}

	// Detach from the request so a client disconnect does not drop the event.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if err := a.pub.Publish(pctx, ev); err != nil {
		a.log.Warn(ctx, "audit publish failed", "action", e.Action, "err", err)
	}
}
