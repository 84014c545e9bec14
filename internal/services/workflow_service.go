// Package services contains the application services between the transport
// layers (REST, MCP) and the repository.
package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"flowdeck/backend/internal/repository"
	"flowdeck/backend/internal/sequencing"
	"flowdeck/backend/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// WorkflowService exposes workflow sequencing operations on top of the store.
type WorkflowService struct {
	store      repository.Store
	builder    *sequencing.PlanBuilder
	logger     Logger
	plansBuilt metric.Int64Counter
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(store repository.Store, logger Logger) *WorkflowService {
	meter := otel.Meter("flowdeck/backend/services")
	plansBuilt, err := meter.Int64Counter("workflow_plans_built_total",
		metric.WithDescription("Number of execution plans built"))
	if err != nil {
		logger.Warn("failed to create plans-built counter", "error", err)
	}

	return &WorkflowService{
		store:      store,
		builder:    sequencing.NewPlanBuilder(store, store),
		logger:     logger,
		plansBuilt: plansBuilt,
	}
}

// GetWorkflow returns the workflow with stages, or (nil, nil) when absent.
func (s *WorkflowService) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return s.store.GetWorkflow(ctx, id)
}

// ListWorkflows returns workflow summaries.
func (s *WorkflowService) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	return s.store.ListWorkflows(ctx)
}

// BuildPlan materializes the execution plan for a workflow. Skipped
// auto-prompt slots are logged, never fatal. A nil plan with nil error means
// the workflow does not exist.
func (s *WorkflowService) BuildPlan(ctx context.Context, workflowID string) (*models.ExecutionPlan, error) {
	plan, skips, err := s.builder.Build(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}

	for _, skip := range skips {
		s.logger.Warn("auto-prompt skipped: workflow=%s stage=%s kind=%s reason=%s",
			workflowID, skip.StageID, skip.Kind, skip.Reason)
	}

	if s.plansBuilt != nil {
		s.plansBuilt.Add(ctx, 1, metric.WithAttributes(
			attribute.String("workflow_id", workflowID),
		))
	}
	return plan, nil
}

// GetStep builds the plan and locates a single step by flat index. A nil plan
// means the workflow does not exist; a nil item with a non-nil plan means the
// index is out of range.
func (s *WorkflowService) GetStep(ctx context.Context, workflowID string, index int) (*models.ExecutionPlanItem, *models.ExecutionPlan, error) {
	plan, err := s.BuildPlan(ctx, workflowID)
	if err != nil || plan == nil {
		return nil, nil, err
	}
	return plan.Step(index), plan, nil
}

// ResolveStageOrder computes the definitive item order for one stage.
// multiAgentChat overrides the stage's persisted flag when non-nil, so an
// editor can preview an unsaved toggle. Nil ids means workflow or stage not
// found.
func (s *WorkflowService) ResolveStageOrder(ctx context.Context, workflowID, stageID string, multiAgentChat *bool) ([]string, map[string]sequencing.Item, error) {
	stage, err := s.findStage(ctx, workflowID, stageID)
	if err != nil || stage == nil {
		return nil, nil, err
	}

	effective := stage.IncludeMultiAgentChat
	if multiAgentChat != nil {
		effective = *multiAgentChat
	}
	ids, items := sequencing.ResolveItemOrder(*stage, effective)
	return ids, items, nil
}

// SaveStageOrder reconciles a submitted item order against the stage's live
// content and persists the result. Stale or foreign ids are dropped before
// the write, so the stored order always satisfies the item-order invariants.
func (s *WorkflowService) SaveStageOrder(ctx context.Context, workflowID, stageID string, itemOrder []string) ([]string, error) {
	stage, err := s.findStage(ctx, workflowID, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, nil
	}

	stage.ItemOrder = itemOrder
	ids, _ := sequencing.ResolveItemOrder(*stage, stage.IncludeMultiAgentChat)
	if err := s.store.SaveStageItemOrder(ctx, stageID, ids); err != nil {
		return nil, fmt.Errorf("save item order for stage %s: %w", stageID, err)
	}
	return ids, nil
}

func (s *WorkflowService) findStage(ctx context.Context, workflowID, stageID string) (*models.Stage, error) {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil || wf == nil {
		return nil, err
	}
	for i := range wf.Stages {
		if wf.Stages[i].ID == stageID {
			return &wf.Stages[i], nil
		}
	}
	return nil, nil
}
