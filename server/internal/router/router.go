package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/navid-fn/skywatch/server/internal/handler"
)

type Config struct {
	CollectHandler *handler.CollectHandler

	// MovementHandler is nil unless the store is ClickHouse.
	MovementHandler *handler.MovementHandler

	Registry *prometheus.Registry
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	registerCollectRoutes(router, cfg.CollectHandler)
	if cfg.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	if cfg.MovementHandler != nil {
		api := router.Group("/v1/")
		registerMovementRoutes(api, cfg.MovementHandler)
	}

	return router
}
