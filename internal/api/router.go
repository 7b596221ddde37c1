// Package api wires the HTTP routes of the simulation service.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"worldcup_sim/internal/api/handlers"
	"worldcup_sim/internal/api/middleware"
)

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(h *handlers.Handler, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(h.Logger))
	router.Use(middleware.CORS(corsOrigins))
	if h.Metrics != nil {
		router.Use(middleware.Metrics(h.Metrics))
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	router.GET("/", h.GetRoot)
	router.GET("/health", h.GetHealth)

	api := router.Group("/api")
	{
		api.GET("/teams", h.GetTeams)
		api.POST("/predict", h.PredictMatch)
		api.POST("/simulate", h.Simulate)
		api.GET("/presets", h.ListPresets)
		api.GET("/presets/:name", h.GetPreset)
		api.GET("/model-info", h.GetModelInfo)
	}

	return router
}
