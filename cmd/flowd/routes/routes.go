// Package routes binds flowd's HTTP handlers to Echo routes, grounded on
// cmd/orchestrator/routes' one-function-per-resource registration shape.
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/diagflow/cmd/flowd/container"
	"github.com/lyzr/diagflow/cmd/flowd/handlers"
	flowdmw "github.com/lyzr/diagflow/cmd/flowd/middleware"
	"github.com/lyzr/diagflow/engine/model"
)

// Register wires every flowd endpoint onto e using services from c.
func Register(e *echo.Echo, c *container.Container) {
	workflowHandler := handlers.NewWorkflowHandler(c.Registry, c.Components.Logger)
	runHandler := handlers.NewRunHandler(c.Engine, c.Components.Logger)

	apiKey := c.Components.Config.Service.APIKey

	workflows := e.Group("/v1/workflows")
	workflows.Use(flowdmw.RequireAPIKey(apiKey))
	{
		workflows.POST("", workflowHandler.Register)
		workflows.GET("/stats", workflowHandler.Statistics)
		workflows.GET("/:id", workflowHandler.Get)
		workflows.PATCH("/:id", workflowHandler.Patch)
		workflows.POST("/:id/status", workflowHandler.SetStatus)
	}

	runs := e.Group("/v1/workflows/:id/runs")
	runs.Use(flowdmw.RequireAPIKey(apiKey))
	runs.Use(flowdmw.TieredRateLimit(c.RateLimiter, func(ec echo.Context) (*model.Workflow, bool) {
		entry, ok := c.Registry.Get(ec.Param("id"))
		if !ok {
			return nil, false
		}
		return entry.Workflow, true
	}))
	{
		runs.POST("", runHandler.Execute)
		runs.POST("/async", runHandler.ExecuteAsync)
	}

	executions := e.Group("/v1/runs")
	executions.Use(flowdmw.RequireAPIKey(apiKey))
	{
		executions.POST("/:id/cancel", runHandler.Cancel)
	}
}
