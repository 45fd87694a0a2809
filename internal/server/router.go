package server

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	PromptHandler    *PromptHandler
	HealthHandler    *HealthHandler
	CORSAllowOrigins []string
	Logger           *slog.Logger
}

// NewRouter builds the gin engine with all routes mounted under /genetl
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(cfg.Logger))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.Healthcheck)

	api := router.Group("/genetl/api")
	{
		api.POST("/prompt", cfg.PromptHandler.SavePrompt)
		api.GET("/prompt/:name", cfg.PromptHandler.GetPrompt)
		api.GET("/prompts", cfg.PromptHandler.ListPrompts)
		api.POST("/prompts/snapshot", cfg.PromptHandler.SnapshotPrompts)
	}

	return router
}
