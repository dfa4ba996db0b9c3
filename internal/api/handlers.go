package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coverifica/consultas-co-api/internal/models"
)

// ruesSearcher runs the registry-search flow.
type ruesSearcher interface {
	Search(ctx context.Context, req *models.RuesRequest) *models.RuesResponse
}

// tokenRequester runs the certificate-login token-email flow.
type tokenRequester interface {
	RequestToken(ctx context.Context, req *models.DianTokenRequest) *models.DianTokenResponse
}

// RuesHandler exposes the registry-search endpoint.
type RuesHandler struct {
	service ruesSearcher
}

// NewRuesHandler builds the registry-search handler.
func NewRuesHandler(service ruesSearcher) *RuesHandler {
	return &RuesHandler{service: service}
}

// Consultar handles POST /api/v1/rues/consultar.
func (h *RuesHandler) Consultar(c *gin.Context) {
	var req models.RuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.RuesResponse{
			Success:   false,
			Error:     "invalid request body: " + err.Error(),
			ErrorCode: models.ErrorCodeValidation,
		})
		return
	}

	resp := h.service.Search(c.Request.Context(), &req)
	if resp.Success {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(models.StatusForCode(resp.ErrorCode), resp)
}

// DianHandler exposes the certificate-login endpoint.
type DianHandler struct {
	service tokenRequester
}

// NewDianHandler builds the certificate-login handler.
func NewDianHandler(service tokenRequester) *DianHandler {
	return &DianHandler{service: service}
}

// SolicitarToken handles POST /api/v1/dian/solicitar-token.
func (h *DianHandler) SolicitarToken(c *gin.Context) {
	var req models.DianTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.DianTokenResponse{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	resp := h.service.RequestToken(c.Request.Context(), &req)
	if resp.Success {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusBadRequest, resp)
}

// HealthHandler answers liveness probes.
type HealthHandler struct {
	startTime time.Time
	version   string
}

// NewHealthHandler builds the health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), version: version}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	})
}
