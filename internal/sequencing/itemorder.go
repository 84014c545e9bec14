package sequencing

import (
	"sort"

	"flowdeck/backend/pkg/models"
)

// Item is the materialized descriptor behind one entry of a stage's resolved
// item order. For auto-prompt entries only the name and kind are known at
// this level; the template body is resolved by the plan builder.
type Item struct {
	ID             string                       `json:"id"`
	Type           models.ExecutionPlanItemType `json:"type"`
	Name           string                       `json:"name"`
	Description    string                       `json:"description"`
	Content        string                       `json:"content"`
	AutoPromptType models.AutoPromptKind        `json:"auto_prompt_type,omitempty"`
}

// ResolveItemOrder produces the definitive ordered list of item ids for a
// stage, reconciling the stage's live prompt assignments and flags against an
// optional previously persisted custom order, plus a map from id to item
// descriptor.
//
// multiAgentChat is the effective multi-agent chat flag; callers pass the
// stage's own flag, or an unsaved toggle when previewing an edit. The result
// is a pure function of the inputs: resolving twice with unchanged data
// returns the same order.
func ResolveItemOrder(stage models.Stage, multiAgentChat bool) ([]string, map[string]Item) {
	assignments := sortedAssignments(stage)

	var itemIDs []string
	if stage.ItemOrder == nil {
		itemIDs = defaultOrder(stage, assignments, multiAgentChat)
	} else {
		itemIDs = reconcileOrder(stage, assignments, multiAgentChat)
	}

	return itemIDs, buildItemsMap(stage, itemIDs, assignments)
}

// defaultOrder is the order used when the stage has never been manually
// reordered: assignments ascending, then multi-agent chat, then memory board.
func defaultOrder(stage models.Stage, assignments []models.PromptAssignment, multiAgentChat bool) []string {
	ids := make([]string, 0, len(assignments)+2)
	for _, a := range assignments {
		ids = append(ids, a.MiniPromptID)
	}
	if multiAgentChat {
		ids = append(ids, MultiAgentChatID(stage.ID))
	}
	if stage.WithReview {
		ids = append(ids, MemoryBoardID(stage.ID))
	}
	return ids
}

// reconcileOrder filters a persisted order down to ids that are still
// meaningful for this stage, then appends anything new. A synthetic id in
// this stage's own namespace is kept regardless of the current flag state:
// persisted intent wins until an explicit edit removes it.
func reconcileOrder(stage models.Stage, assignments []models.PromptAssignment, multiAgentChat bool) []string {
	current := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		current[a.MiniPromptID] = true
	}

	kept := make([]string, 0, len(stage.ItemOrder)+2)
	seen := make(map[string]bool, len(stage.ItemOrder))
	for _, id := range stage.ItemOrder {
		if seen[id] {
			continue
		}
		ref := ParseItemRef(stage.ID, id)
		if ref.IsAuto() || current[id] {
			kept = append(kept, id)
			seen[id] = true
		}
	}

	// Prompts assigned since the order was saved.
	for _, a := range assignments {
		if !seen[a.MiniPromptID] {
			kept = append(kept, a.MiniPromptID)
			seen[a.MiniPromptID] = true
		}
	}

	// Newly enabled auto-prompts, multi-agent chat before memory board to
	// match the default-order rule.
	if multiAgentChat && !seen[MultiAgentChatID(stage.ID)] {
		kept = append(kept, MultiAgentChatID(stage.ID))
	}
	if stage.WithReview && !seen[MemoryBoardID(stage.ID)] {
		kept = append(kept, MemoryBoardID(stage.ID))
	}
	return kept
}

func buildItemsMap(stage models.Stage, itemIDs []string, assignments []models.PromptAssignment) map[string]Item {
	byPromptID := make(map[string]models.PromptAssignment, len(assignments))
	for _, a := range assignments {
		byPromptID[a.MiniPromptID] = a
	}

	items := make(map[string]Item, len(itemIDs))
	for _, id := range itemIDs {
		ref := ParseItemRef(stage.ID, id)
		if ref.IsAuto() {
			items[id] = Item{
				ID:             id,
				Type:           models.ItemTypeAutoPrompt,
				Name:           SystemPromptName(ref.AutoKind),
				AutoPromptType: ref.AutoKind,
			}
			continue
		}
		a := byPromptID[id]
		items[id] = Item{
			ID:          id,
			Type:        models.ItemTypeMiniPrompt,
			Name:        a.Prompt.Name,
			Description: a.Prompt.Description,
			Content:     a.Prompt.Content,
		}
	}
	return items
}

func sortedAssignments(stage models.Stage) []models.PromptAssignment {
	assignments := make([]models.PromptAssignment, len(stage.PromptAssignments))
	copy(assignments, stage.PromptAssignments)
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].Order < assignments[j].Order
	})
	return assignments
}
