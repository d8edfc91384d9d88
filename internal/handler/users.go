package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/queue"
	"github.com/iliyamo/koemail-admin/internal/repository"
	"github.com/iliyamo/koemail-admin/internal/service"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
	maxPage         = 100000
	maxNameLength   = 255
)

// UserStore is the user persistence used by UserHandler.
// *repository.UserRepo satisfies it.
type UserStore interface {
	List(ctx context.Context, page, limit int) ([]model.User, int, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	Create(ctx context.Context, nu model.NewUser) (int64, error)
	Update(ctx context.Context, id int64, upd model.UserUpdate) error
	Delete(ctx context.Context, id int64) error
}

// UserHandler serves /api/users. Role and ownership checks are done by
// the middleware on each route; the handler only narrows what a standard
// user may change about themselves.
type UserHandler struct {
	Users  UserStore
	Hasher PasswordHasher
	Audit  Auditor
}

func NewUserHandler(users UserStore, hasher PasswordHasher, audit Auditor) *UserHandler {
	return &UserHandler{Users: users, Hasher: hasher, Audit: audit}
}

// ----- DTOs -----

type userResp struct {
	ID        int64              `json:"id"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	Domain    string             `json:"domain"`
	Role      auth.Role          `json:"role"`
	Admin     bool               `json:"admin"`
	Active    bool               `json:"active"`
	Quota     model.QuotaSummary `json:"quota"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	LastLogin *time.Time         `json:"lastLogin"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Domain:    u.Domain,
		Role:      auth.RoleFromFlag(u.Admin),
		Admin:     u.Admin,
		Active:    u.Active,
		Quota:     u.QuotaSummary(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		LastLogin: u.LastLogin,
	}
}

type userListResp struct {
	Users      []userResp `json:"users"`
	Pagination model.Page `json:"pagination"`
}

type createUserReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Quota    *int64 `json:"quota"`
	Admin    bool   `json:"admin"`
}

func userTarget(id int64) string { return "user:" + strconv.FormatInt(id, 10) }

// queryInt reads a positive integer query parameter, falling back to def
// when it is missing or malformed.
func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// List returns one page of users. Admin only.
func (h *UserHandler) List(c echo.Context) error {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page > maxPage {
		page = maxPage
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	users, total, err := h.Users.List(ctx, page, limit)
	if err != nil {
		return internalError(c)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, userListResp{Users: out, Pagination: model.NewPage(page, limit, total)})
}

// Get returns one user. The route is gated by ownership before this runs.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return internalError(c)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Create provisions a mailbox under an existing domain. Admin only.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	email := auth.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	switch {
	case !validEmail(email):
		return errorJSON(c, http.StatusBadRequest, "A valid email is required")
	case utf8.RuneCountInString(req.Password) < auth.MinPasswordLength:
		return errorJSON(c, http.StatusBadRequest, "Password must be at least 8 characters")
	case len(req.Password) > auth.MaxPasswordBytes:
		return errorJSON(c, http.StatusBadRequest, "Password must be at most 72 bytes")
	case name == "" || utf8.RuneCountInString(name) > maxNameLength:
		return errorJSON(c, http.StatusBadRequest, "Name is required and must be at most 255 characters")
	case req.Quota != nil && *req.Quota < 0:
		return errorJSON(c, http.StatusBadRequest, "Quota must not be negative")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	hash, err := h.Hasher.Hash(ctx, req.Password)
	if err != nil {
		return internalError(c)
	}
	nu := model.NewUser{Email: email, Name: name, PasswordHash: hash, Admin: req.Admin}
	if req.Quota != nil {
		nu.Quota = *req.Quota
	}

	id, err := h.Users.Create(ctx, nu)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return errorJSON(c, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, repository.ErrDomainNotFound):
		return errorJSON(c, http.StatusBadRequest, "Domain not found")
	case err != nil:
		return internalError(c)
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return internalError(c)
	}
	record(c, h.Audit, service.Entry{
		Action:  queue.ActionUserCreated,
		Target:  userTarget(id),
		Details: map[string]string{"email": email, "admin": strconv.FormatBool(req.Admin)},
	})
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Update applies a partial update. Admins may change every allow-listed
// field; a user editing their own record may change only the name.
func (h *UserHandler) Update(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return writeAuthError(c, auth.ErrMissingToken)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}
	var upd model.UserUpdate
	if err := c.Bind(&upd); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if upd.Empty() {
		return errorJSON(c, http.StatusBadRequest, "No fields to update")
	}
	if !p.IsAdmin() && (upd.Quota != nil || upd.Admin != nil || upd.Active != nil) {
		return writeAuthError(c, auth.ErrInsufficientPermissions)
	}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" || utf8.RuneCountInString(n) > maxNameLength {
			return errorJSON(c, http.StatusBadRequest, "Name is required and must be at most 255 characters")
		}
		upd.Name = &n
	}
	if upd.Quota != nil && *upd.Quota < 0 {
		return errorJSON(c, http.StatusBadRequest, "Quota must not be negative")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Users.Update(ctx, id, upd); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return internalError(c)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return internalError(c)
	}
	record(c, h.Audit, service.Entry{
		Action:  queue.ActionUserUpdated,
		Target:  userTarget(id),
		Details: map[string]string{"fields": strings.Join(changedFields(upd), ",")},
	})
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Delete removes a user. Admin only, and never the caller's own account.
func (h *UserHandler) Delete(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return writeAuthError(c, auth.ErrMissingToken)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}
	if id == p.UserID {
		return errorJSON(c, http.StatusBadRequest, "Cannot delete your own account")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err == nil {
		err = h.Users.Delete(ctx, id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return internalError(c)
	}
	record(c, h.Audit, service.Entry{
		Action:  queue.ActionUserDeleted,
		Target:  userTarget(id),
		Details: map[string]string{"email": u.Email},
	})
	return messageJSON(c, fmt.Sprintf("User %s deleted successfully", u.Email))
}

func changedFields(u model.UserUpdate) []string {
	var out []string
	if u.Name != nil {
		out = append(out, "name")
	}
	if u.Quota != nil {
		out = append(out, "quota")
	}
	if u.Admin != nil {
		out = append(out, "admin")
	}
	if u.Active != nil {
		out = append(out, "active")
	}
	sort.Strings(out)
	return out
}
