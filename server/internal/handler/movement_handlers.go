package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/skywatch/server/internal/service"
)

type MovementHandler struct {
	movementService *service.MovementsService
}

func NewMovementHandler(service *service.MovementsService) *MovementHandler {
	return &MovementHandler{
		movementService: service,
	}
}

func (h *MovementHandler) GetLatest(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "msg": "limit must be an integer"})
			return
		}
		limit = n
	}

	movements, err := h.movementService.GetLatestMovements(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (h *MovementHandler) GetCount(c *gin.Context) {
	var message any
	movementType := c.Query("type")
	if movementType == "all" {
		counts, err := h.movementService.GetCountPerType(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "msg": err.Error()})
			return
		}
		message = counts
	} else {
		count, err := h.movementService.GetCount(c.Request.Context(), movementType)
		if errors.Is(err, service.ErrInvalidMovementType) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "msg": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "msg": err.Error()})
			return
		}
		if movementType != "" {
			message = gin.H{movementType: count}
		} else {
			message = gin.H{"count": count}
		}
	}
	c.JSON(http.StatusOK, message)
}
