package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-reminder-service/internal/service"
	"github.com/vhvplatform/go-reminder-service/internal/shared/errors"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// CycleHandler triggers dispatch cycles on demand, mainly for operators
// and integration tests. The scheduler runs the same code path on a cron
// cadence.
type CycleHandler struct {
	cycles *service.CycleService
	log    *logger.Logger
}

// NewCycleHandler creates a new cycle handler
func NewCycleHandler(cycles *service.CycleService, log *logger.Logger) *CycleHandler {
	return &CycleHandler{
		cycles: cycles,
		log:    log,
	}
}

// RunCycle runs one generate+dispatch cycle synchronously
func (h *CycleHandler) RunCycle(c *gin.Context) {
	stats, err := h.cycles.RunCycle(c.Request.Context())
	if err != nil {
		h.log.Error("On-demand dispatch cycle failed", "error", err)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Dispatch cycle failed", err))
		return
	}

	c.JSON(http.StatusOK, stats)
}
