package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/blibbers/vibekit/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger checks a backing dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	BaseHandler
	name      string
	db        Pinger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. db may be nil.
func NewHealthHandler(name string, db Pinger) *HealthHandler {
	return &HealthHandler{name: name, db: db, startTime: time.Now()}
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Name      string `json:"name"`
	Database  string `json:"database,omitempty" example:"ok"`
	GoVersion string `json:"goVersion"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// Health godoc
//
//	@ID			health
//	@Summary	Health check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=HealthResponse}
//	@Failure	503	{object}	dto.Response{data=HealthResponse}
//	@Router		/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		resp.Database = "ok"
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
