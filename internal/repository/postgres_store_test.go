package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"flowdeck/backend/pkg/models"
)

const testSchema = `
CREATE TABLE users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE mini_prompts (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	is_system BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE workflows (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	include_multi_agent_chat BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE stages (
	id UUID PRIMARY KEY,
	workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	stage_order INT NOT NULL,
	with_review BOOLEAN NOT NULL DEFAULT FALSE,
	include_multi_agent_chat BOOLEAN NOT NULL DEFAULT FALSE,
	item_order TEXT[],
	UNIQUE (workflow_id, stage_order)
);

CREATE TABLE prompt_assignments (
	stage_id UUID NOT NULL REFERENCES stages(id) ON DELETE CASCADE,
	mini_prompt_id UUID NOT NULL REFERENCES mini_prompts(id),
	assignment_order INT NOT NULL,
	PRIMARY KEY (stage_id, mini_prompt_id),
	UNIQUE (stage_id, assignment_order)
);
`

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, testSchema); err != nil {
		t.Fatal(err)
	}

	store := NewPostgresStore(pool)

	owner := &models.User{Email: "owner@example.com", Name: "Owner"}
	require.NoError(t, store.CreateUser(ctx, owner))

	prompt := &models.MiniPrompt{Name: "Draft", Description: "Write a draft", Content: "Draft it."}
	require.NoError(t, store.CreateMiniPrompt(ctx, prompt))

	t.Run("Create and Get workflow", func(t *testing.T) {
		wf := &models.Workflow{
			OwnerID:  owner.ID,
			Name:     "Release Notes",
			IsPublic: true,
			Stages: []models.Stage{
				{
					Name: "Write", Order: 1, WithReview: true,
					ItemOrder: []string{"custom-a", "custom-b"},
					PromptAssignments: []models.PromptAssignment{
						{MiniPromptID: prompt.ID, Order: 1},
					},
				},
				{Name: "Publish", Order: 2},
			},
		}
		require.NoError(t, store.CreateWorkflow(ctx, wf))
		require.NotEmpty(t, wf.ID)

		got, err := store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, wf.Name, got.Name)
		assert.Equal(t, owner.ID, got.OwnerID)
		assert.True(t, got.IsPublic)

		require.Len(t, got.Stages, 2)
		assert.Equal(t, "Write", got.Stages[0].Name)
		assert.True(t, got.Stages[0].WithReview)
		assert.Equal(t, []string{"custom-a", "custom-b"}, got.Stages[0].ItemOrder)
		assert.Nil(t, got.Stages[1].ItemOrder)

		require.Len(t, got.Stages[0].PromptAssignments, 1)
		a := got.Stages[0].PromptAssignments[0]
		assert.Equal(t, prompt.ID, a.MiniPromptID)
		assert.Equal(t, "Draft", a.Prompt.Name)
		assert.Equal(t, "Draft it.", a.Prompt.Content)
	})

	t.Run("Get missing workflow", func(t *testing.T) {
		got, err := store.GetWorkflow(ctx, uuid.New().String())
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Legacy workflow flag folds into stages", func(t *testing.T) {
		wf := &models.Workflow{
			OwnerID:               owner.ID,
			Name:                  "Legacy",
			IncludeMultiAgentChat: true,
			Stages:                []models.Stage{{Name: "Only", Order: 1}},
		}
		require.NoError(t, store.CreateWorkflow(ctx, wf))

		got, err := store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		require.Len(t, got.Stages, 1)
		assert.True(t, got.Stages[0].IncludeMultiAgentChat)
	})

	t.Run("SaveStageItemOrder", func(t *testing.T) {
		wf := &models.Workflow{
			OwnerID: owner.ID,
			Name:    "Reorder",
			Stages:  []models.Stage{{Name: "Only", Order: 1}},
		}
		require.NoError(t, store.CreateWorkflow(ctx, wf))
		stageID := wf.Stages[0].ID

		order := []string{prompt.ID, "memory-board-" + stageID}
		require.NoError(t, store.SaveStageItemOrder(ctx, stageID, order))

		got, err := store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, order, got.Stages[0].ItemOrder)
	})

	t.Run("FindSystemPromptByName", func(t *testing.T) {
		sys := &models.MiniPrompt{
			Name:     "Handoff Memory Board",
			Content:  "Summarize the stage outcome.",
			IsSystem: true,
		}
		require.NoError(t, store.CreateMiniPrompt(ctx, sys))

		got, err := store.FindSystemPromptByName(ctx, "Handoff Memory Board")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, sys.ID, got.ID)
		assert.True(t, got.IsSystem)

		// Same name without the system flag must not match.
		missing, err := store.FindSystemPromptByName(ctx, "Draft")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Users", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "owner@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, owner.ID, got.ID)
		assert.Equal(t, "Owner", got.Name)

		missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("ListWorkflows", func(t *testing.T) {
		list, err := store.ListWorkflows(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(list), 3)
		for _, wf := range list {
			assert.Empty(t, wf.Stages, "summaries carry no stages")
		}
	})
}
