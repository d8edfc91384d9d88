package handler

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/logging"
	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/queue"
	"github.com/iliyamo/koemail-admin/internal/repository"
	"github.com/iliyamo/koemail-admin/internal/service"
)

// Authenticator is the part of *auth.Verifier the auth endpoints use.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*auth.Login, error)
	ChangePassword(ctx context.Context, p auth.Principal, current, next string) error
}

// ProfileStore loads the caller's own record.
type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
}

// loginPasswordMin only screens out obviously malformed input; the real
// check is the hash comparison.
const loginPasswordMin = 6

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Auth  Authenticator
	Users ProfileStore
	Audit Auditor
	Log   logging.Logger
}

func NewAuthHandler(a Authenticator, users ProfileStore, audit Auditor, log logging.Logger) *AuthHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &AuthHandler{Auth: a, Users: users, Audit: audit, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginUser struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  auth.Role `json:"role"`
}

type loginResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      loginUser `json:"user"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Login exchanges an email and password for an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	email := auth.NormalizeEmail(req.Email)
	if !validEmail(email) {
		return errorJSON(c, http.StatusBadRequest, "A valid email is required")
	}
	if utf8.RuneCountInString(req.Password) < loginPasswordMin {
		return errorJSON(c, http.StatusBadRequest, "Password must be at least 6 characters")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	login, err := h.Auth.Authenticate(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			record(c, h.Audit, service.Entry{Action: queue.ActionLoginFailed, Email: email})
		} else {
			h.Log.Error(ctx, "login failed", "err", err)
		}
		return writeAuthError(c, err)
	}

	record(c, h.Audit, service.Entry{
		Action: queue.ActionLoginSucceeded,
		Email:  login.User.Email,
		Target: userTarget(login.User.UserID),
	})
	return c.JSON(http.StatusOK, loginResp{
		Token:     login.Token.Value,
		ExpiresAt: login.Token.ExpiresAt,
		User: loginUser{
			ID:    login.User.UserID,
			Email: login.User.Email,
			Name:  login.User.Name,
			Role:  login.User.Role,
		},
	})
}

// Profile returns the caller's record with quota usage.
func (h *AuthHandler) Profile(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return writeAuthError(c, auth.ErrMissingToken)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return internalError(c)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return writeAuthError(c, auth.ErrMissingToken)
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.CurrentPassword == "" {
		return errorJSON(c, http.StatusBadRequest, "Current password is required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, p, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInternal) {
			h.Log.Error(ctx, "change password failed", "user_id", p.UserID, "err", err)
		}
		return writeAuthError(c, err)
	}
	record(c, h.Audit, service.Entry{Action: queue.ActionPasswordChanged, Target: userTarget(p.UserID)})
	return messageJSON(c, "Password changed successfully")
}

// Logout is a no-op for stateless tokens beyond the audit record; the
// client discards its token.
func (h *AuthHandler) Logout(c echo.Context) error {
	if p, ok := principal(c); ok {
		record(c, h.Audit, service.Entry{Action: queue.ActionLogout, Target: userTarget(p.UserID)})
	}
	return messageJSON(c, "Logged out successfully")
}
