package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports whether the service can reach its backing stores.
// Load balancers take the instance out of rotation on 503.
type HealthHandler struct {
	DB    Pinger
	Redis *redis.Client // nil when caching and rate limiting are disabled
	Now   func() time.Time
}

func NewHealthHandler(db Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: db, Redis: rdb, Now: time.Now}
}

type healthResp struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Redis     string    `json:"redis"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := healthResp{Status: "ok", Database: "up", Redis: "disabled", Timestamp: h.Now().UTC()}
	if err := h.DB.PingContext(ctx); err != nil {
		resp.Status, resp.Database = "unavailable", "down"
	}
	if h.Redis != nil {
		resp.Redis = "up"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			resp.Status, resp.Redis = "unavailable", "down"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}
