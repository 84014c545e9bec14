package sequencing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdeck/backend/pkg/models"
)

type fakeWorkflowSource struct {
	workflows map[string]*models.Workflow
	err       error
}

func (f *fakeWorkflowSource) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.workflows[id], nil
}

type fakePromptSource struct {
	prompts map[string]*models.MiniPrompt
	err     error
	calls   map[string]int
}

func (f *fakePromptSource) FindSystemPromptByName(ctx context.Context, name string) (*models.MiniPrompt, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if f.err != nil {
		return nil, f.err
	}
	return f.prompts[name], nil
}

func systemPrompts() map[string]*models.MiniPrompt {
	return map[string]*models.MiniPrompt{
		MemoryBoardPromptName: {
			ID:          "sys-mb",
			Name:        MemoryBoardPromptName,
			Description: "Handoff summary",
			Content:     "Write the handoff note.",
			IsSystem:    true,
		},
		MultiAgentChatPromptName: {
			ID:          "sys-mac",
			Name:        MultiAgentChatPromptName,
			Description: "Agent coordination",
			Content:     "Discuss with the other agents.",
			IsSystem:    true,
		},
	}
}

func oneStageWorkflow(withReview, multiAgentChat bool) *models.Workflow {
	return &models.Workflow{
		ID:   "wf-1",
		Name: "Demo",
		Stages: []models.Stage{
			{
				ID:                    "S",
				Name:                  "Stage One",
				Order:                 1,
				WithReview:            withReview,
				IncludeMultiAgentChat: multiAgentChat,
				PromptAssignments: []models.PromptAssignment{
					assignment("mp-1", "First", 1),
				},
			},
		},
	}
}

func newTestBuilder(wf *models.Workflow) *PlanBuilder {
	workflows := &fakeWorkflowSource{workflows: map[string]*models.Workflow{}}
	if wf != nil {
		workflows.workflows[wf.ID] = wf
	}
	return NewPlanBuilder(workflows, &fakePromptSource{prompts: systemPrompts()})
}

func TestBuild_SinglePrompt(t *testing.T) {
	plan, skips, err := newTestBuilder(oneStageWorkflow(false, false)).Build(context.Background(), "wf-1")
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Empty(t, skips)

	assert.Equal(t, 1, plan.TotalSteps)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, models.ItemTypeMiniPrompt, plan.Items[0].Type)
	assert.Equal(t, "First", plan.Items[0].Name)
	assert.False(t, plan.Items[0].IsAutoAttached)
	assert.False(t, plan.IncludeMultiAgentChat)
}

func TestBuild_WithReview(t *testing.T) {
	plan, _, err := newTestBuilder(oneStageWorkflow(true, false)).Build(context.Background(), "wf-1")
	require.NoError(t, err)

	require.Equal(t, 2, plan.TotalSteps)
	item := plan.Items[1]
	assert.Equal(t, models.ItemTypeAutoPrompt, item.Type)
	assert.Equal(t, models.AutoPromptMemoryBoard, item.AutoPromptType)
	assert.Equal(t, MemoryBoardPromptName, item.Name)
	assert.True(t, item.IsAutoAttached)
}

func TestBuild_WithMultiAgentChat(t *testing.T) {
	plan, _, err := newTestBuilder(oneStageWorkflow(false, true)).Build(context.Background(), "wf-1")
	require.NoError(t, err)

	require.Equal(t, 2, plan.TotalSteps)
	item := plan.Items[1]
	assert.Equal(t, models.ItemTypeAutoPrompt, item.Type)
	assert.Equal(t, models.AutoPromptMultiAgentChat, item.AutoPromptType)
	assert.Equal(t, MultiAgentChatPromptName, item.Name)
	assert.True(t, plan.IncludeMultiAgentChat)
}

func TestBuild_BothAutoPrompts(t *testing.T) {
	plan, _, err := newTestBuilder(oneStageWorkflow(true, true)).Build(context.Background(), "wf-1")
	require.NoError(t, err)

	require.Equal(t, 3, plan.TotalSteps)
	assert.Equal(t, models.ItemTypeMiniPrompt, plan.Items[0].Type)
	assert.Equal(t, models.AutoPromptMultiAgentChat, plan.Items[1].AutoPromptType)
	assert.Equal(t, models.AutoPromptMemoryBoard, plan.Items[2].AutoPromptType)
}

func TestBuild_TwoStages(t *testing.T) {
	wf := &models.Workflow{
		ID:   "wf-2",
		Name: "Two Stages",
		Stages: []models.Stage{
			// stored out of order on purpose
			{
				ID: "S2", Name: "Later", Order: 2, WithReview: true,
				PromptAssignments: []models.PromptAssignment{assignment("mp-2", "Second", 1)},
			},
			{
				ID: "S1", Name: "Earlier", Order: 1, WithReview: true,
				PromptAssignments: []models.PromptAssignment{assignment("mp-1", "First", 1)},
			},
		},
	}
	plan, _, err := newTestBuilder(wf).Build(context.Background(), "wf-2")
	require.NoError(t, err)

	require.Equal(t, 4, plan.TotalSteps)
	stageIndices := []int{}
	for i, item := range plan.Items {
		assert.Equal(t, i, item.Index, "indices must be contiguous")
		stageIndices = append(stageIndices, item.StageIndex)
	}
	assert.Equal(t, []int{0, 0, 1, 1}, stageIndices)
	assert.Equal(t, "Earlier", plan.Items[0].StageName)
	assert.Equal(t, "Later", plan.Items[2].StageName)
}

func TestBuild_IgnoresPersistedItemOrder(t *testing.T) {
	wf := oneStageWorkflow(true, false)
	wf.Stages[0].ItemOrder = []string{"memory-board-S", "mp-1"}

	plan, _, err := newTestBuilder(wf).Build(context.Background(), "wf-1")
	require.NoError(t, err)

	// execution always uses canonical assignment order plus flag-driven
	// auto-prompts
	require.Equal(t, 2, plan.TotalSteps)
	assert.Equal(t, models.ItemTypeMiniPrompt, plan.Items[0].Type)
	assert.Equal(t, models.ItemTypeAutoPrompt, plan.Items[1].Type)
}

func TestBuild_Deterministic(t *testing.T) {
	b := newTestBuilder(oneStageWorkflow(true, true))
	first, _, err := b.Build(context.Background(), "wf-1")
	require.NoError(t, err)
	second, _, err := b.Build(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_WorkflowNotFound(t *testing.T) {
	plan, skips, err := newTestBuilder(nil).Build(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, plan)
	assert.Nil(t, skips)
}

func TestBuild_RepositoryErrorPropagates(t *testing.T) {
	b := NewPlanBuilder(
		&fakeWorkflowSource{err: errors.New("connection refused")},
		&fakePromptSource{},
	)
	_, _, err := b.Build(context.Background(), "wf-1")
	assert.Error(t, err)
}

func TestBuild_MissingTemplateSkipsStep(t *testing.T) {
	wf := oneStageWorkflow(true, true)
	workflows := &fakeWorkflowSource{workflows: map[string]*models.Workflow{"wf-1": wf}}
	prompts := &fakePromptSource{prompts: map[string]*models.MiniPrompt{
		// only the chat template exists
		MultiAgentChatPromptName: systemPrompts()[MultiAgentChatPromptName],
	}}
	b := NewPlanBuilder(workflows, prompts)

	plan, skips, err := b.Build(context.Background(), "wf-1")
	require.NoError(t, err)

	require.Equal(t, 2, plan.TotalSteps)
	assert.Equal(t, models.AutoPromptMultiAgentChat, plan.Items[1].AutoPromptType)

	require.Len(t, skips, 1)
	assert.Equal(t, models.AutoPromptMemoryBoard, skips[0].Kind)
	assert.Equal(t, "S", skips[0].StageID)
}

func TestBuild_TemplateLookupMemoizedPerBuild(t *testing.T) {
	wf := &models.Workflow{
		ID:   "wf-3",
		Name: "Many Stages",
		Stages: []models.Stage{
			{ID: "S1", Name: "A", Order: 1, WithReview: true},
			{ID: "S2", Name: "B", Order: 2, WithReview: true},
			{ID: "S3", Name: "C", Order: 3, WithReview: true},
		},
	}
	workflows := &fakeWorkflowSource{workflows: map[string]*models.Workflow{"wf-3": wf}}
	prompts := &fakePromptSource{prompts: systemPrompts()}
	b := NewPlanBuilder(workflows, prompts)

	_, _, err := b.Build(context.Background(), "wf-3")
	require.NoError(t, err)
	assert.Equal(t, 1, prompts.calls[MemoryBoardPromptName])
}

func TestBuild_StagesWithoutItems(t *testing.T) {
	wf := &models.Workflow{
		ID:     "wf-4",
		Name:   "Empty",
		Stages: []models.Stage{{ID: "S1", Name: "A", Order: 1}},
	}
	plan, _, err := newTestBuilder(wf).Build(context.Background(), "wf-4")
	require.NoError(t, err)
	assert.Equal(t, 0, plan.TotalSteps)
	assert.NotNil(t, plan.Items)
}

func TestGetStep(t *testing.T) {
	b := newTestBuilder(oneStageWorkflow(true, false))

	t.Run("in range", func(t *testing.T) {
		item, err := b.GetStep(context.Background(), "wf-1", 1)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, 1, item.Index)
	})

	t.Run("negative index", func(t *testing.T) {
		item, err := b.GetStep(context.Background(), "wf-1", -1)
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("index == totalSteps", func(t *testing.T) {
		item, err := b.GetStep(context.Background(), "wf-1", 2)
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		item, err := b.GetStep(context.Background(), "missing", 0)
		require.NoError(t, err)
		assert.Nil(t, item)
	})
}
