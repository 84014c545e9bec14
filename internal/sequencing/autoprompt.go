// Package sequencing turns stored workflow definitions into stable per-stage
// item orders and flat, indexable execution plans.
package sequencing

import (
	"flowdeck/backend/pkg/models"
)

// Well-known names of the two system auto-prompt templates.
const (
	MemoryBoardPromptName    = "Handoff Memory Board"
	MultiAgentChatPromptName = "Internal Agents Chat"
)

const (
	memoryBoardPrefix    = "memory-board-"
	multiAgentChatPrefix = "multi-agent-chat-"
)

// MemoryBoardID derives the synthetic item id for a stage's memory board slot.
func MemoryBoardID(stageID string) string {
	return memoryBoardPrefix + stageID
}

// MultiAgentChatID derives the synthetic item id for a stage's multi-agent
// chat slot.
func MultiAgentChatID(stageID string) string {
	return multiAgentChatPrefix + stageID
}

// SystemPromptName returns the well-known template name for an auto-prompt
// kind.
func SystemPromptName(kind models.AutoPromptKind) string {
	if kind == models.AutoPromptMultiAgentChat {
		return MultiAgentChatPromptName
	}
	return MemoryBoardPromptName
}

// ItemRef is the parsed form of a stage item identifier: either a reference
// to an assigned mini-prompt or one of this stage's two auto-prompt slots.
type ItemRef struct {
	// PromptID is set for mini-prompt references.
	PromptID string
	// AutoKind is set when the id names one of this stage's own synthetic
	// auto-prompt slots.
	AutoKind models.AutoPromptKind
}

// IsAuto reports whether the ref names an auto-prompt slot.
func (r ItemRef) IsAuto() bool {
	return r.AutoKind != ""
}

// ParseItemRef classifies an item id against a stage's own synthetic
// namespace. Ids that are not this stage's synthetic ids are treated as
// mini-prompt references; whether such a reference is still current is up to
// the caller, which holds the stage's live assignments.
func ParseItemRef(stageID, id string) ItemRef {
	switch id {
	case MultiAgentChatID(stageID):
		return ItemRef{AutoKind: models.AutoPromptMultiAgentChat}
	case MemoryBoardID(stageID):
		return ItemRef{AutoKind: models.AutoPromptMemoryBoard}
	default:
		return ItemRef{PromptID: id}
	}
}
