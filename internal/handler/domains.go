package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/queue"
	"github.com/iliyamo/koemail-admin/internal/repository"
	"github.com/iliyamo/koemail-admin/internal/service"
)

// DomainStore is satisfied by *repository.DomainRepo.
type DomainStore interface {
	List(ctx context.Context) ([]model.Domain, error)
	Create(ctx context.Context, name, description string) (int64, error)
}

// AliasStore is satisfied by *repository.AliasRepo.
type AliasStore interface {
	List(ctx context.Context) ([]model.Alias, error)
}

// hostnameRE matches a dotted DNS name with at least two labels.
var hostnameRE = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]([a-z0-9-]{0,61}[a-z0-9])?$`)

// DomainHandler serves /api/domains and /api/aliases. Admin only.
type DomainHandler struct {
	Domains DomainStore
	Aliases AliasStore
	Audit   Auditor
}

func NewDomainHandler(domains DomainStore, aliases AliasStore, audit Auditor) *DomainHandler {
	return &DomainHandler{Domains: domains, Aliases: aliases, Audit: audit}
}

type createDomainReq struct {
	Domain      string `json:"domain"`
	Description string `json:"description"`
}

// ListDomains returns every domain with its user count.
func (h *DomainHandler) ListDomains(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Domains.List(ctx)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(http.StatusOK, list)
}

// CreateDomain registers a new mail domain.
func (h *DomainHandler) CreateDomain(c echo.Context) error {
	var req createDomainReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	name := strings.ToLower(strings.TrimSpace(req.Domain))
	if len(name) > 253 || !hostnameRE.MatchString(name) {
		return errorJSON(c, http.StatusBadRequest, "A valid domain name is required")
	}
	if utf8.RuneCountInString(req.Description) > maxNameLength {
		return errorJSON(c, http.StatusBadRequest, "Description must be at most 255 characters")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := h.Domains.Create(ctx, name, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrDomainExists) {
			return errorJSON(c, http.StatusBadRequest, "Domain already exists")
		}
		return internalError(c)
	}
	record(c, h.Audit, service.Entry{
		Action:  queue.ActionDomainCreated,
		Target:  "domain:" + strconv.FormatInt(id, 10),
		Details: map[string]string{"domain": name},
	})
	return c.JSON(http.StatusCreated, model.Domain{ID: id, Domain: name, Description: req.Description, Active: true})
}

// ListAliases returns every alias with its domain name.
func (h *DomainHandler) ListAliases(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Aliases.List(ctx)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(http.StatusOK, list)
}
