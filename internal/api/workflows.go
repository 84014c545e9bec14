package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"flowdeck/backend/internal/sequencing"
	"flowdeck/backend/pkg/models"
)

// ListWorkflows returns workflow summaries.
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	ctx := c.Request().Context()

	var limit, offset *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", c.QueryParams(), &limit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid limit parameter: "+err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", c.QueryParams(), &offset); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid offset parameter: "+err.Error())
	}

	workflows, err := s.Workflows.ListWorkflows(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, paginate(workflows, limit, offset))
}

// GetWorkflow returns one workflow with every stage's item order resolved
// against the stage's live content.
// (GET /api/v1/workflows/:id)
func (s *Server) GetWorkflow(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	wf, err := s.Workflows.GetWorkflow(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if wf == nil {
		return echo.NewHTTPError(http.StatusNotFound, id+" not found")
	}

	// Present the reconciled order, not the raw persisted one.
	for i := range wf.Stages {
		ids, _ := sequencing.ResolveItemOrder(wf.Stages[i], wf.Stages[i].IncludeMultiAgentChat)
		wf.Stages[i].ItemOrder = ids
	}

	return c.JSON(http.StatusOK, wf)
}

// GetExecutionPlan returns the materialized execution plan for a workflow.
// (GET /api/v1/workflows/:id/plan)
func (s *Server) GetExecutionPlan(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	plan, err := s.Workflows.BuildPlan(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if plan == nil {
		return echo.NewHTTPError(http.StatusNotFound, id+" not found")
	}

	return c.JSON(http.StatusOK, plan)
}

// StageItemOrder is the wire form of a stage's resolved item order.
type StageItemOrder struct {
	StageID string                     `json:"stage_id"`
	ItemIDs []string                   `json:"item_ids"`
	Items   map[string]sequencing.Item `json:"items"`
}

// GetStageItemOrder resolves a stage's item order. The optional
// multi_agent_chat query parameter previews an unsaved flag toggle.
// (GET /api/v1/workflows/:id/stages/:stageId/item-order)
func (s *Server) GetStageItemOrder(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	stageID := c.Param("stageId")

	var multiAgentChat *bool
	if err := runtime.BindQueryParameter("form", true, false, "multi_agent_chat", c.QueryParams(), &multiAgentChat); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid multi_agent_chat parameter: "+err.Error())
	}

	ids, items, err := s.Workflows.ResolveStageOrder(ctx, id, stageID, multiAgentChat)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if ids == nil {
		return echo.NewHTTPError(http.StatusNotFound, "stage not found")
	}

	return c.JSON(http.StatusOK, StageItemOrder{StageID: stageID, ItemIDs: ids, Items: items})
}

// PutItemOrderRequest is the body for persisting a custom stage order.
type PutItemOrderRequest struct {
	ItemOrder []string `json:"item_order"`
}

// PutStageItemOrder persists a stage's custom item order after reconciling it
// against the stage's live content. Responds with the order actually stored.
// (PUT /api/v1/workflows/:id/stages/:stageId/item-order)
func (s *Server) PutStageItemOrder(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	stageID := c.Param("stageId")

	var req PutItemOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.ItemOrder == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "item_order is required")
	}

	stored, err := s.Workflows.SaveStageOrder(ctx, id, stageID, req.ItemOrder)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save item order: "+err.Error())
	}
	if stored == nil {
		return echo.NewHTTPError(http.StatusNotFound, "stage not found")
	}

	return c.JSON(http.StatusOK, StageItemOrder{StageID: stageID, ItemIDs: stored})
}

func paginate(workflows []*models.Workflow, limit, offset *int) []*models.Workflow {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}
	if start > len(workflows) {
		start = len(workflows)
	}
	end := len(workflows)
	// Bounds check written so a huge limit cannot overflow start+*limit.
	if limit != nil && *limit >= 0 && *limit < end-start {
		end = start + *limit
	}
	return workflows[start:end]
}
