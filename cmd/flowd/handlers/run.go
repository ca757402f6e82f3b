package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/diagflow/common/logger"
	"github.com/lyzr/diagflow/engine"
	"github.com/lyzr/diagflow/engine/model"
)

// RunHandler executes registered workflows and reports their results.
type RunHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewRunHandler constructs a RunHandler.
func NewRunHandler(eng *engine.Engine, log *logger.Logger) *RunHandler {
	return &RunHandler{engine: eng, logger: log}
}

type executeRequest struct {
	Input map[string]interface{} `json:"input"`
}

// Execute runs a registered workflow synchronously and returns its result.
func (h *RunHandler) Execute(c echo.Context) error {
	workflowID := c.Param("id")

	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.engine.Execute(c.Request().Context(), workflowID, req.Input)
	if err != nil {
		return respondEngineError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ExecuteAsync starts a workflow run in the background and returns its
// execution id immediately; the run's outcome is only logged when it
// finishes, and no route reports it back to the caller.
func (h *RunHandler) ExecuteAsync(c echo.Context) error {
	workflowID := c.Param("id")

	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	executionID := h.engine.ExecuteAsync(c.Request().Context(), workflowID, req.Input, func(result *model.WorkflowExecutionResult, err error) {
		if err != nil {
			h.logger.Error("async execution failed", "workflow_id", workflowID, "error", err)
			return
		}
		h.logger.Info("async execution completed", "workflow_id", workflowID, "execution_id", result.ExecutionID, "success", result.Success)
	})

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"execution_id": executionID,
		"workflow_id":  workflowID,
	})
}

// Cancel cancels a running execution by id.
func (h *RunHandler) Cancel(c echo.Context) error {
	executionID := c.Param("id")

	if !h.engine.Cancel(executionID) {
		return echo.NewHTTPError(http.StatusNotFound, "execution not found or already finished")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"execution_id": executionID, "cancelled": true})
}

func respondEngineError(c echo.Context, err error) error {
	var ee *model.EngineError
	if engineErr, ok := asEngineError(err); ok {
		ee = engineErr
		switch ee.Kind {
		case model.ErrConfigError, model.ErrMissingInput:
			return c.JSON(http.StatusBadRequest, errorBody(ee))
		case model.ErrTimeout:
			return c.JSON(http.StatusGatewayTimeout, errorBody(ee))
		case model.ErrCancelled:
			return c.JSON(http.StatusConflict, errorBody(ee))
		default:
			return c.JSON(http.StatusInternalServerError, errorBody(ee))
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func asEngineError(err error) (*model.EngineError, bool) {
	ee, ok := err.(*model.EngineError)
	return ee, ok
}

func errorBody(ee *model.EngineError) map[string]interface{} {
	return map[string]interface{}{
		"error":   string(ee.Kind),
		"message": ee.Message,
	}
}
