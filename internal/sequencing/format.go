package sequencing

import (
	"fmt"
	"strings"

	"flowdeck/backend/pkg/models"
)

const autoAttachedMarker = "🤖 [AUTO]"

// FormatExecutionPlan renders a built plan as structured text for an external
// agent: a workflow header followed by one section per stage, items numbered
// by their flat step position.
func FormatExecutionPlan(plan *models.ExecutionPlan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Workflow: %s\n", plan.WorkflowName)
	fmt.Fprintf(&sb, "Total steps: %d\n", plan.TotalSteps)
	chat := "disabled"
	if plan.IncludeMultiAgentChat {
		chat = "enabled"
	}
	fmt.Fprintf(&sb, "Multi-agent chat: %s\n", chat)

	lastStage := -1
	for _, item := range plan.Items {
		if item.StageIndex != lastStage {
			fmt.Fprintf(&sb, "\n## Stage: %s\n", item.StageName)
			lastStage = item.StageIndex
		}
		fmt.Fprintf(&sb, "%d. %s", item.Index+1, item.Name)
		if item.IsAutoAttached {
			sb.WriteString(" " + autoAttachedMarker)
		}
		sb.WriteString("\n")
		if item.Type == models.ItemTypeAutoPrompt && item.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", item.Description)
		}
	}

	return sb.String()
}

// FormatStep renders a single plan item for the step-by-step interface.
// availableContext entries are echoed back verbatim, comma separated.
func FormatStep(plan *models.ExecutionPlan, item *models.ExecutionPlanItem, availableContext []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Step %d/%d\n", item.Index+1, plan.TotalSteps)
	fmt.Fprintf(&sb, "Stage: %s\n", item.StageName)
	fmt.Fprintf(&sb, "Type: %s\n", StepTypeLabel(item))
	sb.WriteString("\n")
	sb.WriteString(item.Content)
	sb.WriteString("\n")
	if len(availableContext) > 0 {
		fmt.Fprintf(&sb, "\nAvailable Context: %s\n", strings.Join(availableContext, ", "))
	}

	return sb.String()
}

// StepTypeLabel is the human-readable type label of a plan item.
func StepTypeLabel(item *models.ExecutionPlanItem) string {
	if item.Type != models.ItemTypeAutoPrompt {
		return "Mini-prompt"
	}
	if item.AutoPromptType == models.AutoPromptMultiAgentChat {
		return "Multi-agent chat [AUTO]"
	}
	return "Memory board [AUTO]"
}
