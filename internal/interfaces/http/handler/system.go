package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemInfo is the static description served at the root endpoint
type SystemInfo struct {
	Name        string
	Version     string
	Description string
}

// DefaultSystemInfo returns the description of this service
func DefaultSystemInfo() SystemInfo {
	return SystemInfo{
		Name:        "Sincronizacion de Tiendanube",
		Version:     "1.0.0",
		Description: "API para recibir webhooks de Shopify y sincronizar con Tiendanube",
	}
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	info      SystemInfo
	startTime time.Time
	now       func() time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(info SystemInfo) *SystemHandler {
	return &SystemHandler{
		info:      info,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// RootResponse represents the root endpoint response
type RootResponse struct {
	APIName     string `json:"api_name" example:"Sincronizacion de Tiendanube"`
	Version     string `json:"version" example:"1.0.0"`
	Description string `json:"description"`
	Status      string `json:"status" example:"online"`
	Timestamp   string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Root godoc
// @Summary      Service description
// @Tags         system
// @Produce      json
// @Success      200 {object} RootResponse
// @Router       / [get]
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, RootResponse{
		APIName:     h.info.Name,
		Version:     h.info.Version,
		Description: h.info.Description,
		Status:      "online",
		Timestamp:   h.now().Format(time.RFC3339),
	})
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// Health godoc
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
