package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/skywatch/internal/faulttolerance"
	"github.com/navid-fn/skywatch/internal/ingester"
	"github.com/navid-fn/skywatch/server/internal/service"
)

type CollectHandler struct {
	collectService *service.CollectService
	airport        string
}

func NewCollectHandler(service *service.CollectService, airport string) *CollectHandler {
	return &CollectHandler{
		collectService: service,
		airport:        airport,
	}
}

func (h *CollectHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "skywatch", "airport": h.airport, "status": "running"})
}

func (h *CollectHandler) Collect(c *gin.Context) {
	res, err := h.collectService.Collect(c.Request.Context())
	switch {
	case errors.Is(err, ingester.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"status": "busy", "msg": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "msg": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{
			"status":   "success",
			"run_id":   res.RunID,
			"accepted": res.Accepted,
			"rejected": res.Rejected,
		})
	}
}

func (h *CollectHandler) Health(c *gin.Context) {
	status, checks := h.collectService.Health(c.Request.Context())
	code := http.StatusOK
	if status == faulttolerance.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
