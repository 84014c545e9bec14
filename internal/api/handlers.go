// Package api contains the HTTP handlers for the workflow service
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"flowdeck/backend/internal/services"
)

// Server holds the dependencies for the API server.
type Server struct {
	Workflows *services.WorkflowService
}

// NewServer creates a new Server.
func NewServer(workflows *services.WorkflowService) *Server {
	return &Server{Workflows: workflows}
}

// RegisterRoutes mounts the REST handlers on an echo group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/workflows", s.ListWorkflows)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.GET("/workflows/:id/plan", s.GetExecutionPlan)
	g.GET("/workflows/:id/stages/:stageId/item-order", s.GetStageItemOrder)
	g.PUT("/workflows/:id/stages/:stageId/item-order", s.PutStageItemOrder)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK)
func HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "flowdeck",
		Version:   "1.0.0",
	})
}
