package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// setupRouter configures routes and middleware
func setupRouter(logger zerolog.Logger, r *gin.Engine, cteHandler *CTeHandler, version string) {
	r.HandleMethodNotAllowed = true

	r.Use(Recovery(logger))
	r.Use(CORS())
	r.Use(CorrelationID())
	r.Use(Logger(logger))

	r.NoMethod(func(c *gin.Context) {
		RespondWithError(c, http.StatusMethodNotAllowed, "Método não permitido", "")
	})
	r.NoRoute(func(c *gin.Context) {
		RespondWithError(c, http.StatusNotFound, "Rota não encontrada", c.Request.URL.Path)
	})

	api := r.Group("/api/cte")
	{
		api.POST("/consultar", cteHandler.Lookup)
		api.POST("/audit", cteHandler.Audit)
		api.GET("/:chave/audit", cteHandler.AuditByKey)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version, "timestamp": time.Now().UTC()})
	})
}
