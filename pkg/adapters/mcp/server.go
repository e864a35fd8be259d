// Package mcp exposes a Dispatcher as a Model Context Protocol server, so
// that assistants can inspect handlers, submit commands and report
// completions.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/gmp"
	"github.com/aretw0/gmp/pkg/config"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CommandResult is the structured result of the submit_command tool.
type CommandResult struct {
	ActionID int64               `json:"action_id,omitempty" jsonschema_description:"Id of the action, to report completions"`
	Response domain.ResponseKind `json:"response" jsonschema_description:"ACCEPTED, STARTED, COMPLETED, ERROR or NOANSWER"`
	Message  string              `json:"message,omitempty" jsonschema_description:"Error message, if any"`
}

// Dispatcher defines the interface required by the MCP server.
type Dispatcher interface {
	SubmitWithTimeout(ctx context.Context, cmd domain.Command, listener domain.CompletionListener, timeout time.Duration) (*domain.Action, domain.HandlerResponse, error)
	SubmitAndWait(ctx context.Context, cmd domain.Command, timeout time.Duration) (domain.HandlerResponse, error)
	UpdateOcs(ctx context.Context, actionID int64, response domain.HandlerResponse) error
	Pending() []int64
	Handlers() ports.CommandHandlers
}

// Server wraps a Dispatcher and exposes it as an MCP Server.
type Server struct {
	dispatcher Dispatcher
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(d Dispatcher) *Server {
	s := &Server{
		dispatcher: d,
		mcpServer:  server.NewMCPServer("gmp-mcp", strings.TrimSpace(gmp.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	submitTool := mcp.NewTool("submit_command",
		mcp.WithDescription("Submit a sequence command. APPLY commands are split across the registered handlers of their configuration."),
		mcp.WithString("sequence_command", mcp.Required(), mcp.Description("Sequence command, e.g. APPLY or PARK")),
		mcp.WithString("activity", mcp.Description("PRESET, START, PRESET_START (default) or CANCEL")),
		mcp.WithString("configuration", mcp.Description(`JSON object of path to value, e.g. {"X:S1:A.val1": "1"}`)),
		mcp.WithString("timeout", mcp.Description("Handler timeout, e.g. 5s")),
		mcp.WithBoolean("wait", mcp.Description("Wait for the final response when handlers answer STARTED")),
		mcp.WithOutputSchema[CommandResult](),
	)
	s.mcpServer.AddTool(submitTool, mcp.NewStructuredToolHandler(s.handleSubmit))

	completeTool := mcp.NewTool("complete_action",
		mcp.WithDescription("Report the asynchronous reply of a handler for a pending action."),
		mcp.WithNumber("action_id", mcp.Required(), mcp.Description("Pending action id")),
		mcp.WithString("response", mcp.Required(), mcp.Description("COMPLETED or ERROR")),
		mcp.WithString("message", mcp.Description("Error message")),
	)
	s.mcpServer.AddTool(completeTool, s.handleComplete)

	s.mcpServer.AddTool(mcp.NewTool("list_pending",
		mcp.WithDescription("List the actions waiting for asynchronous replies."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.dispatcher.Pending())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (CommandResult, error) {
	raw := map[string]any{}
	if v, ok := args["sequence_command"].(string); ok {
		raw["sequence_command"] = v
	}
	if v, ok := args["activity"].(string); ok && v != "" {
		raw["activity"] = v
	}
	if v, ok := args["configuration"].(string); ok && v != "" {
		entries := map[string]any{}
		if err := json.Unmarshal([]byte(v), &entries); err != nil {
			return CommandResult{}, fmt.Errorf("invalid configuration: %w", err)
		}
		raw["configuration"] = entries
	}
	cmd, err := config.DecodeCommand(raw)
	if err != nil {
		return CommandResult{}, err
	}

	var timeout time.Duration
	if v, ok := args["timeout"].(string); ok && v != "" {
		if timeout, err = time.ParseDuration(v); err != nil {
			return CommandResult{}, fmt.Errorf("invalid timeout: %w", err)
		}
	}

	if wait, _ := args["wait"].(bool); wait {
		final, err := s.dispatcher.SubmitAndWait(ctx, cmd, timeout)
		if err != nil {
			return CommandResult{}, fmt.Errorf("submit failed: %w", err)
		}
		return CommandResult{Response: final.Kind, Message: final.Message}, nil
	}

	action, r, err := s.dispatcher.SubmitWithTimeout(ctx, cmd, nil, timeout)
	if err != nil {
		return CommandResult{}, fmt.Errorf("submit failed: %w", err)
	}
	return CommandResult{ActionID: action.ID(), Response: r.Kind, Message: r.Message}, nil
}

func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["action_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("action_id is required"), nil
	}
	name, _ := args["response"].(string)
	kind, err := domain.ParseResponseKind(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, _ := args["message"].(string)

	if err := s.dispatcher.UpdateOcs(ctx, int64(id), domain.NewResponse(kind, message)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("gmp://handlers", "Registered APPLY handlers",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		paths, err := s.dispatcher.Handlers().ApplyHandlers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list handlers: %w", err)
		}
		names := make([]string, len(paths))
		for i, p := range paths {
			names[i] = p.String()
		}
		jsonBytes, _ := json.Marshal(names)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "gmp://handlers",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
