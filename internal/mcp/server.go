// Package mcp exposes the workflow sequencing engine as MCP tools for
// external agents.
package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"flowdeck/backend/internal/sequencing"
	"flowdeck/backend/internal/services"
	"flowdeck/backend/pkg/models"
)

// TokenVerifier validates a caller-supplied bearer token and resolves the
// authenticated user behind it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, raw string) (*models.User, error)
}

// Server wires the workflow service into an MCP tool server.
type Server struct {
	mcpServer *server.MCPServer
	workflows *services.WorkflowService
	verifier  TokenVerifier
}

// NewServer creates the MCP server and registers the workflow tools.
func NewServer(workflows *services.WorkflowService, verifier TokenVerifier) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Flowdeck Workflows",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		workflows: workflows,
		verifier:  verifier,
	}

	s.registerTools()
	return s
}

// GetMCPServer returns the underlying MCP server for transport mounting.
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"select_workflow",
			mcp.WithDescription("Select a workflow and receive its full execution plan"),
			mcp.WithString("workflow_id", mcp.Required(), mcp.Description("The ID of the workflow to select")),
			mcp.WithString("user_token", mcp.Description("Bearer token; required for private workflows")),
		),
		s.handleSelectWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_next_step",
			mcp.WithDescription("Fetch one step of a workflow's execution plan by flat 0-based index"),
			mcp.WithString("workflow_id", mcp.Required(), mcp.Description("The ID of the workflow")),
			mcp.WithNumber("current_step", mcp.Required(), mcp.Description("0-based index of the step to fetch")),
			mcp.WithArray("available_context",
				mcp.Description("Context hints echoed back verbatim with the step"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithString("user_token", mcp.Description("Bearer token; required for private workflows")),
		),
		s.handleGetNextStep,
	)
}

func (s *Server) handleSelectWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflowID, ok := args["workflow_id"].(string)
	if !ok || workflowID == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}
	token, _ := args["user_token"].(string)

	wf, err := s.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load workflow: %v", err)), nil
	}
	if wf == nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s not found", workflowID)), nil
	}
	if !s.authorized(ctx, wf, token) {
		return mcp.NewToolResultError("Authentication failed"), nil
	}

	plan, err := s.workflows.BuildPlan(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build execution plan: %v", err)), nil
	}
	if plan == nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s not found", workflowID)), nil
	}

	return mcp.NewToolResultText(sequencing.FormatExecutionPlan(plan)), nil
}

func (s *Server) handleGetNextStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflowID, ok := args["workflow_id"].(string)
	if !ok || workflowID == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}
	currentStep, ok := args["current_step"].(float64)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: current_step"), nil
	}
	token, _ := args["user_token"].(string)
	availableContext := stringSlice(args["available_context"])

	wf, err := s.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load workflow: %v", err)), nil
	}
	if wf == nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s not found", workflowID)), nil
	}
	if !s.authorized(ctx, wf, token) {
		return mcp.NewToolResultError("Authentication failed"), nil
	}

	item, plan, err := s.workflows.GetStep(ctx, workflowID, int(currentStep))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build execution plan: %v", err)), nil
	}
	if plan == nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s not found", workflowID)), nil
	}
	if item == nil {
		return mcp.NewToolResultError(fmt.Sprintf("Step %d not found", int(currentStep))), nil
	}

	return mcp.NewToolResultText(sequencing.FormatStep(plan, item, availableContext)), nil
}

// authorized implements the visibility rule: public workflows are open to
// everyone, private ones only to their owner with a valid token.
func (s *Server) authorized(ctx context.Context, wf *models.Workflow, token string) bool {
	if wf.IsPublic {
		return true
	}
	if token == "" || s.verifier == nil {
		return false
	}
	user, err := s.verifier.VerifyToken(ctx, token)
	if err != nil || user == nil {
		return false
	}
	return user.ID == wf.OwnerID
}

func stringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// MountHTTPHandlers mounts the MCP SSE transport on the given mux.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
