package repository

import (
	"context"

	"flowdeck/backend/pkg/models"
)

// Store is the persistence surface consumed by the service and auth layers.
// Lookups return (nil, nil) when the record does not exist; absence is a
// normal outcome, not an error.
type Store interface {
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// GetWorkflow returns a workflow with its stages (ascending stage order)
	// and each stage's prompt assignments (ascending assignment order). The
	// legacy workflow-level multi-agent chat flag is folded into each stage's
	// flag here, at the repository boundary.
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	// ListWorkflows returns workflow summaries without stages.
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	// CreateWorkflow inserts a workflow together with its stages and
	// assignments.
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) error
	// SaveStageItemOrder persists a stage's custom item order.
	SaveStageItemOrder(ctx context.Context, stageID string, itemOrder []string) error

	// FindSystemPromptByName resolves a system template by its well-known name.
	FindSystemPromptByName(ctx context.Context, name string) (*models.MiniPrompt, error)
	// CreateMiniPrompt inserts a mini-prompt template.
	CreateMiniPrompt(ctx context.Context, prompt *models.MiniPrompt) error

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}
