package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flowdeck/backend/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping verifies the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetWorkflow loads a workflow with stages and prompt assignments. Returns
// (nil, nil) when the workflow does not exist.
func (s *PostgresStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var wf models.Workflow
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, name, description, is_public, include_multi_agent_chat, created_at, updated_at
		 FROM workflows WHERE id = $1`, id).
		Scan(&wf.ID, &wf.OwnerID, &wf.Name, &wf.Description, &wf.IsPublic, &wf.IncludeMultiAgentChat, &wf.CreatedAt, &wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, workflow_id, name, stage_order, with_review, include_multi_agent_chat, item_order
		 FROM stages WHERE workflow_id = $1 ORDER BY stage_order ASC`, wf.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st models.Stage
		if err := rows.Scan(&st.ID, &st.WorkflowID, &st.Name, &st.Order, &st.WithReview, &st.IncludeMultiAgentChat, &st.ItemOrder); err != nil {
			return nil, err
		}
		// Migration shim for the deprecated workflow-level flag: the engine
		// only ever sees the per-stage flag.
		if wf.IncludeMultiAgentChat {
			st.IncludeMultiAgentChat = true
		}
		wf.Stages = append(wf.Stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range wf.Stages {
		assignments, err := s.stageAssignments(ctx, wf.Stages[i].ID)
		if err != nil {
			return nil, err
		}
		wf.Stages[i].PromptAssignments = assignments
	}

	return &wf, nil
}

func (s *PostgresStore) stageAssignments(ctx context.Context, stageID string) ([]models.PromptAssignment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT pa.mini_prompt_id, pa.assignment_order, mp.id, mp.name, mp.description, mp.content, mp.is_system, mp.created_at, mp.updated_at
		 FROM prompt_assignments pa
		 JOIN mini_prompts mp ON mp.id = pa.mini_prompt_id
		 WHERE pa.stage_id = $1
		 ORDER BY pa.assignment_order ASC`, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []models.PromptAssignment
	for rows.Next() {
		var a models.PromptAssignment
		if err := rows.Scan(&a.MiniPromptID, &a.Order,
			&a.Prompt.ID, &a.Prompt.Name, &a.Prompt.Description, &a.Prompt.Content,
			&a.Prompt.IsSystem, &a.Prompt.CreatedAt, &a.Prompt.UpdatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListWorkflows returns workflow summaries (no stages).
func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, name, description, is_public, include_multi_agent_chat, created_at, updated_at
		 FROM workflows ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		var wf models.Workflow
		if err := rows.Scan(&wf.ID, &wf.OwnerID, &wf.Name, &wf.Description, &wf.IsPublic, &wf.IncludeMultiAgentChat, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
			return nil, err
		}
		workflows = append(workflows, &wf)
	}
	return workflows, rows.Err()
}

// CreateWorkflow inserts a workflow with its stages and assignments in one
// transaction. Missing ids are generated.
func (s *PostgresStore) CreateWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workflows (id, owner_id, name, description, is_public, include_multi_agent_chat, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
		workflow.ID, workflow.OwnerID, workflow.Name, workflow.Description, workflow.IsPublic, workflow.IncludeMultiAgentChat)
	if err != nil {
		return err
	}

	for i := range workflow.Stages {
		st := &workflow.Stages[i]
		if st.ID == "" {
			st.ID = uuid.New().String()
		}
		st.WorkflowID = workflow.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO stages (id, workflow_id, name, stage_order, with_review, include_multi_agent_chat, item_order)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			st.ID, st.WorkflowID, st.Name, st.Order, st.WithReview, st.IncludeMultiAgentChat, st.ItemOrder)
		if err != nil {
			return err
		}
		for _, a := range st.PromptAssignments {
			_, err = tx.Exec(ctx,
				`INSERT INTO prompt_assignments (stage_id, mini_prompt_id, assignment_order)
				 VALUES ($1, $2, $3)`,
				st.ID, a.MiniPromptID, a.Order)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// SaveStageItemOrder persists a stage's custom item order.
func (s *PostgresStore) SaveStageItemOrder(ctx context.Context, stageID string, itemOrder []string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE stages SET item_order = $1 WHERE id = $2`, itemOrder, stageID)
	return err
}

// FindSystemPromptByName resolves a system template by its well-known name.
// Returns (nil, nil) when no system prompt carries the name.
func (s *PostgresStore) FindSystemPromptByName(ctx context.Context, name string) (*models.MiniPrompt, error) {
	var mp models.MiniPrompt
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, content, is_system, created_at, updated_at
		 FROM mini_prompts WHERE name = $1 AND is_system`, name).
		Scan(&mp.ID, &mp.Name, &mp.Description, &mp.Content, &mp.IsSystem, &mp.CreatedAt, &mp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

// CreateMiniPrompt inserts a mini-prompt template.
func (s *PostgresStore) CreateMiniPrompt(ctx context.Context, prompt *models.MiniPrompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO mini_prompts (id, name, description, content, is_system, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())`,
		prompt.ID, prompt.Name, prompt.Description, prompt.Content, prompt.IsSystem)
	return err
}

// GetUserByEmail returns (nil, nil) when no user has the email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user, generating an id when absent.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, now())`,
		user.ID, user.Email, user.Name)
	return err
}
