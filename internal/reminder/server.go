package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "reminder"
	serverVersion = "1.0.0"
)

// Server is the MCP server for medication reminders.
type Server struct {
	mcpServer *server.MCPServer
	scheduler *Scheduler
}

// NewServer creates a new Reminder MCP server backed by the given scheduler.
func NewServer(scheduler *Scheduler) *Server {
	s := &Server{
		scheduler: scheduler,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Add a daily medication reminder"),
			mcp.WithString("medicine", mcp.Required(), mcp.Description("Medicine name")),
			mcp.WithString("time", mcp.Required(), mcp.Description("Time of day, HH:MM 24-hour (e.g. 08:00)")),
		),
		s.handleAddReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List all medication reminders"),
		),
		s.handleListReminders,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("mark_taken",
			mcp.WithDescription("Mark a reminder as taken today; it will not fire again today"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleMarkTaken,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder permanently"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDeleteReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("check_reminders",
			mcp.WithDescription("Fire every reminder due this minute that has not fired today"),
		),
		s.handleCheckReminders,
	)
}

func (s *Server) handleAddReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	medicine := req.GetString("medicine", "")
	clock := req.GetString("time", "")

	added, err := s.scheduler.Add(ctx, medicine, clock)
	if errors.Is(err, ErrMissingFields) || errors.Is(err, ErrInvalidTime) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add reminder: %v", err)), nil
	}

	output, _ := json.MarshalIndent(added, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleListReminders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reminders := s.scheduler.List()
	if len(reminders) == 0 {
		return mcp.NewToolResultText("No reminders yet."), nil
	}

	output, _ := json.MarshalIndent(reminders, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleMarkTaken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, res := requireID(req)
	if res != nil {
		return res, nil
	}

	found, err := s.scheduler.MarkTaken(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to mark reminder taken: %v", err)), nil
	}
	if !found {
		return mcp.NewToolResultText(fmt.Sprintf("Reminder %d not found; nothing changed.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %d marked as taken.", id)), nil
}

func (s *Server) handleDeleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, res := requireID(req)
	if res != nil {
		return res, nil
	}

	found, err := s.scheduler.Delete(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete reminder: %v", err)), nil
	}
	if !found {
		return mcp.NewToolResultText(fmt.Sprintf("Reminder %d not found; nothing changed.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %d deleted.", id)), nil
}

func (s *Server) handleCheckReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fired := s.scheduler.Check(ctx)
	if len(fired) == 0 {
		return mcp.NewToolResultText("No reminders due."), nil
	}

	output, _ := json.MarshalIndent(fired, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func requireID(req mcp.CallToolRequest) (int64, *mcp.CallToolResult) {
	idFloat := req.GetFloat("id", -1)
	if idFloat < 0 {
		return 0, mcp.NewToolResultError("id is required and must be a positive number")
	}
	return int64(idFloat), nil
}
