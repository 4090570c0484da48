package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/skywatch/server/internal/handler"
)

func registerCollectRoutes(router *gin.Engine, collectHandler *handler.CollectHandler) {
	router.GET("/", collectHandler.Index)
	router.GET("/collect", collectHandler.Collect)
	router.POST("/collect", collectHandler.Collect)
	router.GET("/health", collectHandler.Health)
}

func registerMovementRoutes(router *gin.RouterGroup, movementHandler *handler.MovementHandler) {
	movements := router.Group("/movements")
	{
		movements.GET("/latest", movementHandler.GetLatest)
		movements.GET("/count", movementHandler.GetCount)
	}
}
