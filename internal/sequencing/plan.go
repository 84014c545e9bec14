package sequencing

import (
	"context"
	"fmt"
	"sort"

	"flowdeck/backend/pkg/models"
)

// WorkflowSource is the slice of the repository the plan builder reads.
// Implementations return (nil, nil) when the workflow does not exist.
type WorkflowSource interface {
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
}

// SystemPromptSource resolves the two well-known system templates by name.
// Implementations return (nil, nil) when no template carries the name.
type SystemPromptSource interface {
	FindSystemPromptByName(ctx context.Context, name string) (*models.MiniPrompt, error)
}

// SkippedAutoPrompt records an auto-prompt slot that was omitted from a plan
// because its system template could not be resolved. Plan construction never
// fails on a missing template; callers decide whether skips deserve a log
// line or an alert.
type SkippedAutoPrompt struct {
	StageID    string
	StageName  string
	StageIndex int
	Kind       models.AutoPromptKind
	Reason     string
}

// PlanBuilder expands whole workflows into flat execution plans.
//
// The builder always emits each stage's canonical assignment order plus
// flag-driven auto-prompts; it does not consult any persisted per-stage item
// order, which governs the editable preview only.
type PlanBuilder struct {
	workflows WorkflowSource
	prompts   SystemPromptSource
}

// NewPlanBuilder creates a PlanBuilder over the given sources.
func NewPlanBuilder(workflows WorkflowSource, prompts SystemPromptSource) *PlanBuilder {
	return &PlanBuilder{workflows: workflows, prompts: prompts}
}

// Build materializes the execution plan for a workflow. A nil plan with a nil
// error means the workflow does not exist.
func (b *PlanBuilder) Build(ctx context.Context, workflowID string) (*models.ExecutionPlan, []SkippedAutoPrompt, error) {
	wf, err := b.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch workflow %s: %w", workflowID, err)
	}
	if wf == nil {
		return nil, nil, nil
	}

	stages := make([]models.Stage, len(wf.Stages))
	copy(stages, wf.Stages)
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Order < stages[j].Order
	})

	templates := newTemplateCache(b.prompts)
	plan := &models.ExecutionPlan{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Items:        []models.ExecutionPlanItem{},
	}
	var skips []SkippedAutoPrompt

	for stageIndex, stage := range stages {
		if stage.IncludeMultiAgentChat {
			plan.IncludeMultiAgentChat = true
		}

		for _, a := range sortedAssignments(stage) {
			plan.Items = append(plan.Items, models.ExecutionPlanItem{
				Index:       len(plan.Items),
				Type:        models.ItemTypeMiniPrompt,
				StageIndex:  stageIndex,
				StageName:   stage.Name,
				Name:        a.Prompt.Name,
				Description: a.Prompt.Description,
				Content:     a.Prompt.Content,
			})
		}

		if stage.IncludeMultiAgentChat {
			b.emitAutoPrompt(ctx, plan, &skips, templates, stage, stageIndex, models.AutoPromptMultiAgentChat)
		}
		if stage.WithReview {
			b.emitAutoPrompt(ctx, plan, &skips, templates, stage, stageIndex, models.AutoPromptMemoryBoard)
		}
	}

	plan.TotalSteps = len(plan.Items)
	return plan, skips, nil
}

// GetStep builds the workflow's plan and returns the item at the given flat
// index. Returns nil for an unknown workflow or an out-of-range index.
func (b *PlanBuilder) GetStep(ctx context.Context, workflowID string, index int) (*models.ExecutionPlanItem, error) {
	plan, _, err := b.Build(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return plan.Step(index), nil
}

func (b *PlanBuilder) emitAutoPrompt(ctx context.Context, plan *models.ExecutionPlan, skips *[]SkippedAutoPrompt, templates *templateCache, stage models.Stage, stageIndex int, kind models.AutoPromptKind) {
	tmpl, err := templates.get(ctx, kind)
	if err != nil || tmpl == nil {
		reason := "system template not found"
		if err != nil {
			reason = err.Error()
		}
		*skips = append(*skips, SkippedAutoPrompt{
			StageID:    stage.ID,
			StageName:  stage.Name,
			StageIndex: stageIndex,
			Kind:       kind,
			Reason:     reason,
		})
		return
	}
	plan.Items = append(plan.Items, models.ExecutionPlanItem{
		Index:          len(plan.Items),
		Type:           models.ItemTypeAutoPrompt,
		StageIndex:     stageIndex,
		StageName:      stage.Name,
		Name:           tmpl.Name,
		Description:    tmpl.Description,
		Content:        tmpl.Content,
		IsAutoAttached: true,
		AutoPromptType: kind,
	})
}

// templateCache memoizes the two system template lookups for the duration of
// one Build call. Absence is memoized too; a template missing at the first
// stage is not re-fetched for later stages.
type templateCache struct {
	source  SystemPromptSource
	entries map[models.AutoPromptKind]*models.MiniPrompt
	errs    map[models.AutoPromptKind]error
}

func newTemplateCache(source SystemPromptSource) *templateCache {
	return &templateCache{
		source:  source,
		entries: make(map[models.AutoPromptKind]*models.MiniPrompt, 2),
		errs:    make(map[models.AutoPromptKind]error, 2),
	}
}

func (c *templateCache) get(ctx context.Context, kind models.AutoPromptKind) (*models.MiniPrompt, error) {
	if tmpl, ok := c.entries[kind]; ok {
		return tmpl, c.errs[kind]
	}
	tmpl, err := c.source.FindSystemPromptByName(ctx, SystemPromptName(kind))
	c.entries[kind] = tmpl
	c.errs[kind] = err
	return tmpl, err
}
