// Package api wires the HTTP surface: routing, middleware and the two
// flow endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// NewRouter assembles the gin engine with the global middleware stack and
// all routes.
func NewRouter(logger zerolog.Logger, rues ruesSearcher, dian tokenRequester) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(RequestID())
	router.Use(RequestLogger(logger))
	router.Use(CORS())

	health := NewHealthHandler(Version)
	router.GET("/health", health.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/rues/consultar", NewRuesHandler(rues).Consultar)
		v1.POST("/dian/solicitar-token", NewDianHandler(dian).SolicitarToken)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return router
}
