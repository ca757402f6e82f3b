// Package handlers implements flowd's HTTP endpoints, grounded on
// cmd/orchestrator/handlers' one-struct-per-resource shape.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/diagflow/common/logger"
	"github.com/lyzr/diagflow/engine/compile"
	"github.com/lyzr/diagflow/engine/model"
	"github.com/lyzr/diagflow/engine/registry"
)

// WorkflowHandler serves workflow registry CRUD and patch endpoints.
type WorkflowHandler struct {
	registry *registry.Registry
	logger   *logger.Logger
}

// NewWorkflowHandler constructs a WorkflowHandler.
func NewWorkflowHandler(reg *registry.Registry, log *logger.Logger) *WorkflowHandler {
	return &WorkflowHandler{registry: reg, logger: log}
}

// registerRequest is the body of POST /v1/workflows.
type registerRequest struct {
	Workflow    compile.WorkflowSchema `json:"workflow"`
	Status      string                 `json:"status"`
	Description string                 `json:"description"`
}

// Register compiles and registers a new workflow definition.
func (h *WorkflowHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	wf, err := compile.FromSchema(&req.Workflow)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	status := model.StatusDraft
	if req.Status != "" {
		status = model.RegistryStatus(req.Status)
	}

	if err := h.registry.Register(c.Request().Context(), wf, status, req.Description); err != nil {
		h.logger.Warn("workflow registration rejected", "workflow_id", wf.ID, "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	h.logger.Info("workflow registered", "workflow_id", wf.ID, "status", status)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"workflow_id": wf.ID,
		"status":      status,
	})
}

// Get returns a registered workflow's current definition and lifecycle state.
func (h *WorkflowHandler) Get(c echo.Context) error {
	id := c.Param("id")
	entry, ok := h.registry.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflow":    entry.Workflow,
		"status":      entry.Status,
		"version":     entry.Version,
		"description": entry.Description,
		"depends_on":  keys(entry.DependsOn),
	})
}

// SetStatus transitions a workflow's lifecycle status.
func (h *WorkflowHandler) SetStatus(c echo.Context) error {
	id := c.Param("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.registry.SetStatus(c.Request().Context(), id, model.RegistryStatus(req.Status)); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"workflow_id": id, "status": req.Status})
}

// Patch applies an RFC 6902 JSON Patch document to a registered workflow.
func (h *WorkflowHandler) Patch(c echo.Context) error {
	id := c.Param("id")

	body, err := readBody(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	if err := h.registry.ApplyPatch(c.Request().Context(), id, string(body)); err != nil {
		h.logger.Warn("patch rejected", "workflow_id", id, "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	entry, _ := h.registry.Get(id)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflow_id": id,
		"version":     entry.Version,
	})
}

// Statistics returns aggregate registry counts.
func (h *WorkflowHandler) Statistics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.Statistics())
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
