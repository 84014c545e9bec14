package main

import (
	"context"
	"fmt"
	"log"

	"flowdeck/backend/internal/config"
	"flowdeck/backend/internal/logging"
	"flowdeck/backend/internal/repository"
	"flowdeck/backend/internal/sequencing"
	"flowdeck/backend/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently before seeding so a fresh database works out
// of the box.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mini_prompts (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	is_system BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workflows (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	include_multi_agent_chat BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stages (
	id UUID PRIMARY KEY,
	workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	stage_order INT NOT NULL,
	with_review BOOLEAN NOT NULL DEFAULT FALSE,
	include_multi_agent_chat BOOLEAN NOT NULL DEFAULT FALSE,
	item_order TEXT[],
	UNIQUE (workflow_id, stage_order)
);

CREATE TABLE IF NOT EXISTS prompt_assignments (
	stage_id UUID NOT NULL REFERENCES stages(id) ON DELETE CASCADE,
	mini_prompt_id UUID NOT NULL REFERENCES mini_prompts(id),
	assignment_order INT NOT NULL,
	PRIMARY KEY (stage_id, mini_prompt_id),
	UNIQUE (stage_id, assignment_order)
);
`

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to DB
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("Schema applied")

	store := repository.NewPostgresStore(pool)

	// 1. Ensure a dev user exists
	user, err := store.GetUserByEmail(ctx, "dev@localhost")
	if err != nil {
		log.Fatalf("Failed to look up dev user: %v", err)
	}
	if user == nil {
		user = &models.User{Email: "dev@localhost", Name: "Dev User"}
		if err := store.CreateUser(ctx, user); err != nil {
			log.Fatalf("Failed to create dev user: %v", err)
		}
		logger.Info("Created dev user", "id", user.ID)
	}

	// 2. Ensure the two system auto-prompt templates exist
	systemPrompts := []models.MiniPrompt{
		{
			Name:        sequencing.MemoryBoardPromptName,
			Description: "Summarize the stage outcome onto the shared handoff board.",
			Content:     "Before moving on, write a concise handoff note covering decisions made, open questions, and artifacts produced in this stage.",
			IsSystem:    true,
		},
		{
			Name:        sequencing.MultiAgentChatPromptName,
			Description: "Coordinate with the other agents assigned to this stage.",
			Content:     "Open an internal discussion with the other agents: share your current result, request critique, and converge on a joint answer before continuing.",
			IsSystem:    true,
		},
	}
	for i := range systemPrompts {
		sp := &systemPrompts[i]
		existing, err := store.FindSystemPromptByName(ctx, sp.Name)
		if err != nil {
			log.Fatalf("Failed to look up system prompt %q: %v", sp.Name, err)
		}
		if existing != nil {
			logger.Info("Skipping existing system prompt", "name", sp.Name)
			sp.ID = existing.ID
			continue
		}
		if err := store.CreateMiniPrompt(ctx, sp); err != nil {
			log.Fatalf("Failed to create system prompt %q: %v", sp.Name, err)
		}
		logger.Info("Seeded system prompt", "name", sp.Name, "id", sp.ID)
	}

	// 3. Check for existing workflows to prevent duplicates
	existingWorkflows, err := store.ListWorkflows(ctx)
	if err != nil {
		log.Fatalf("Failed to list existing workflows: %v", err)
	}
	for _, w := range existingWorkflows {
		if w.Name == "Feature Spike" {
			logger.Info("Skipping existing demo workflow", "id", w.ID)
			return
		}
	}

	// 4. Create a demo workflow: research stage, implementation stage with
	// review board and multi-agent chat enabled.
	research := models.MiniPrompt{
		Name:        "Explore the problem",
		Description: "Survey prior art and constraints.",
		Content:     "List the relevant existing approaches, their trade-offs, and the constraints that apply here.",
	}
	implement := models.MiniPrompt{
		Name:        "Implement the solution",
		Description: "Produce the change set.",
		Content:     "Implement the agreed approach. Keep the diff minimal and explain each non-obvious choice.",
	}
	for _, mp := range []*models.MiniPrompt{&research, &implement} {
		if err := store.CreateMiniPrompt(ctx, mp); err != nil {
			log.Fatalf("Failed to create mini prompt %q: %v", mp.Name, err)
		}
	}

	wf := &models.Workflow{
		OwnerID:     user.ID,
		Name:        "Feature Spike",
		Description: "Two-stage research and implementation flow with handoff review.",
		IsPublic:    true,
		Stages: []models.Stage{
			{
				Name:  "Research",
				Order: 1,
				PromptAssignments: []models.PromptAssignment{
					{MiniPromptID: research.ID, Order: 1},
				},
			},
			{
				Name:                  "Implementation",
				Order:                 2,
				WithReview:            true,
				IncludeMultiAgentChat: true,
				PromptAssignments: []models.PromptAssignment{
					{MiniPromptID: implement.ID, Order: 1},
				},
			},
		},
	}
	if err := store.CreateWorkflow(ctx, wf); err != nil {
		log.Fatalf("Failed to create demo workflow: %v", err)
	}
	logger.Info("Seeded demo workflow", "name", wf.Name, "id", wf.ID)
	logger.Info("Seeding complete!")
}
