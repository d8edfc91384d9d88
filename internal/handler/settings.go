package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/queue"
	"github.com/iliyamo/koemail-admin/internal/repository"
	"github.com/iliyamo/koemail-admin/internal/service"
)

// SettingStore is satisfied by *repository.SettingRepo.
type SettingStore interface {
	List(ctx context.Context) ([]model.Setting, error)
	Get(ctx context.Context, key string) (model.Setting, error)
	UpdateValue(ctx context.Context, key, value string) error
}

// StatsStore is satisfied by *repository.StatsRepo.
type StatsStore interface {
	Summary(ctx context.Context) (model.Stats, error)
}

// SettingHandler serves /api/settings and /api/stats. Admin only.
type SettingHandler struct {
	Settings SettingStore
	Stats    StatsStore
	Audit    Auditor
}

func NewSettingHandler(settings SettingStore, stats StatsStore, audit Auditor) *SettingHandler {
	return &SettingHandler{Settings: settings, Stats: stats, Audit: audit}
}

type updateSettingReq struct {
	Value *string `json:"value"`
}

func (h *SettingHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Settings.List(ctx)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SettingHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.Settings.Get(ctx, c.Param("key"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "Setting not found")
		}
		return internalError(c)
	}
	return c.JSON(http.StatusOK, s)
}

// Update changes the value of an existing setting and returns the row.
func (h *SettingHandler) Update(c echo.Context) error {
	var req updateSettingReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Value == nil {
		return errorJSON(c, http.StatusBadRequest, "Value is required")
	}
	key := c.Param("key")

	ctx, cancel := withTimeout(c)
	defer cancel()

	err := h.Settings.UpdateValue(ctx, key, *req.Value)
	var s model.Setting
	if err == nil {
		s, err = h.Settings.Get(ctx, key)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "Setting not found")
		}
		return internalError(c)
	}
	// Values may be credentials; only the key is audited.
	record(c, h.Audit, service.Entry{Action: queue.ActionSettingUpdated, Target: "setting:" + key})
	return c.JSON(http.StatusOK, s)
}

// Summary returns the dashboard counters.
func (h *SettingHandler) Summary(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	st, err := h.Stats.Summary(ctx)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(http.StatusOK, st)
}
