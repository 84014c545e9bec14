package models

// AutoPromptKind identifies one of the two system auto-prompt slots.
type AutoPromptKind string

const (
	AutoPromptMemoryBoard    AutoPromptKind = "memory-board"
	AutoPromptMultiAgentChat AutoPromptKind = "multi-agent-chat"
)

// ExecutionPlanItemType discriminates plan steps.
type ExecutionPlanItemType string

const (
	ItemTypeMiniPrompt ExecutionPlanItemType = "mini-prompt"
	ItemTypeAutoPrompt ExecutionPlanItemType = "auto-prompt"
)

// ExecutionPlanItem is one fully materialized step of an execution plan.
type ExecutionPlanItem struct {
	Index          int                   `json:"index"`
	Type           ExecutionPlanItemType `json:"type"`
	StageIndex     int                   `json:"stage_index"`
	StageName      string                `json:"stage_name"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Content        string                `json:"content"`
	IsAutoAttached bool                  `json:"is_auto_attached"`
	AutoPromptType AutoPromptKind        `json:"auto_prompt_type,omitempty"`
}

// ExecutionPlan is the flat, ordered, fully materialized step sequence for a
// whole workflow. Items are grouped by ascending StageIndex and indices are
// contiguous from 0.
type ExecutionPlan struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
	// IncludeMultiAgentChat reports whether any stage in the plan has the
	// multi-agent chat slot enabled. Display summary only.
	IncludeMultiAgentChat bool                `json:"include_multi_agent_chat"`
	TotalSteps            int                 `json:"total_steps"`
	Items                 []ExecutionPlanItem `json:"items"`
}

// Step returns the item at the given flat 0-based index, or nil when the
// index is outside the plan.
func (p *ExecutionPlan) Step(index int) *ExecutionPlanItem {
	if p == nil || index < 0 || index >= len(p.Items) {
		return nil
	}
	return &p.Items[index]
}
