// Package models defines the domain models for the workflow service
package models

import (
	"time"
)

// Workflow represents a named, ordered sequence of stages authored by a user.
type Workflow struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`

	// IncludeMultiAgentChat is the legacy workflow-level flag.
	//
	// Deprecated: superseded by the per-stage flag. The repository folds it
	// into each stage's IncludeMultiAgentChat on load; nothing downstream of
	// the repository should read it.
	IncludeMultiAgentChat bool `json:"include_multi_agent_chat"`

	Stages []Stage `json:"stages"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stage is a phase of a workflow holding an ordered list of prompt
// assignments plus flags controlling the two system auto-prompt slots.
type Stage struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Name       string `json:"name"`
	Order      int    `json:"order"`

	// WithReview enables the Handoff Memory Board auto-prompt for this stage.
	WithReview bool `json:"with_review"`
	// IncludeMultiAgentChat enables the Internal Agents Chat auto-prompt.
	IncludeMultiAgentChat bool `json:"include_multi_agent_chat"`

	// ItemOrder is the user's persisted custom ordering of item identifiers
	// (prompt ids and synthetic auto-prompt ids). Nil when the stage has
	// never been manually reordered.
	ItemOrder []string `json:"item_order,omitempty"`

	PromptAssignments []PromptAssignment `json:"prompt_assignments"`
}

// PromptAssignment binds a mini-prompt template to a position within a stage.
type PromptAssignment struct {
	MiniPromptID string     `json:"mini_prompt_id"`
	Order        int        `json:"order"`
	Prompt       MiniPrompt `json:"prompt"`
}

// MiniPrompt is a reusable instruction template. System templates (the two
// auto-prompt bodies) carry IsSystem=true and are looked up by name.
type MiniPrompt struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
