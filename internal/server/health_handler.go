package server

import (
	"net/http"

	"github.com/astrocub/prompt-service/internal/infrastructure/cache"
	"github.com/astrocub/prompt-service/internal/infrastructure/database"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness plus collaborator health
type HealthHandler struct {
	db    *database.PostgresDB
	cache *cache.RedisCache
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.PostgresDB, redisCache *cache.RedisCache) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: redisCache,
	}
}

// Healthcheck handles GET /healthcheck
func (h *HealthHandler) Healthcheck(c *gin.Context) {
	response := gin.H{"status": "ok"}

	if h.db != nil {
		response["database"] = h.db.Health(c.Request.Context())
	}
	if h.cache != nil {
		health := h.cache.Health(c.Request.Context())
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			health["status"] = "down"
			health["error"] = err.Error()
		}
		response["redis"] = health
	}

	c.JSON(http.StatusOK, response)
}
