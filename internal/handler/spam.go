package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/queue"
	"github.com/iliyamo/koemail-admin/internal/repository"
	"github.com/iliyamo/koemail-admin/internal/service"
)

// QuarantineStore is satisfied by *repository.QuarantineRepo.
type QuarantineStore interface {
	ListForUser(ctx context.Context, userID int64) ([]model.QuarantinedMessage, error)
	Release(ctx context.Context, id, userID int64, at time.Time) error
}

// SpamHandler serves /api/spam. Every call is scoped to the caller's own
// mailbox, admins included.
type SpamHandler struct {
	Quarantine QuarantineStore
	Audit      Auditor
	Now        func() time.Time
}

func NewSpamHandler(q QuarantineStore, audit Auditor) *SpamHandler {
	return &SpamHandler{Quarantine: q, Audit: audit, Now: time.Now}
}

func (h *SpamHandler) List(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return writeAuthError(c, auth.ErrMissingToken)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	msgs, err := h.Quarantine.ListForUser(ctx, p.UserID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(http.StatusOK, msgs)
}

// Release returns a quarantined message to the caller's inbox. Messages
// owned by others read as not found.
func (h *SpamHandler) Release(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return writeAuthError(c, auth.ErrMissingToken)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Quarantine.Release(ctx, id, p.UserID, h.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "Message not found")
		}
		return internalError(c)
	}
	record(c, h.Audit, service.Entry{Action: queue.ActionMessageReleased, Target: "message:" + strconv.FormatInt(id, 10)})
	return messageJSON(c, "Message released from quarantine")
}
