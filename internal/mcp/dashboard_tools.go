// ABOUTME: MCP tool implementations for dashboard matching.
// ABOUTME: Registers search_dashboards, list_dashboards, summarize_dashboard, reload_dashboards.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/dashmatch/internal/genai"
	"github.com/2389-research/dashmatch/internal/models"
	"github.com/2389-research/dashmatch/internal/state"
)

func (s *Server) registerDashboardTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_dashboards",
		Description: "Find the analytics dashboards that best match a free-text description of what you need. Returns dashboards ranked by similarity with their embed URLs.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "What the dashboard should show, e.g. 'weekly revenue by region'"},
				"top": {"type": "number", "description": "Maximum number of dashboards to return (default from config)"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearchDashboards)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_dashboards",
		Description: "List every dashboard that has been indexed for matching.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleListDashboards)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "summarize_dashboard",
		Description: "Summarize a dashboard from its metadata. With a query, also names the tile that best answers it.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"dashboard_id": {"type": "string", "description": "Dashboard id as returned by search_dashboards or list_dashboards"},
				"query": {"type": "string", "description": "Optional question the dashboard should answer"}
			},
			"required": ["dashboard_id"]
		}`),
	}, s.handleSummarizeDashboard)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "reload_dashboards",
		Description: "Re-fetch dashboards from the analytics host and rebuild their embeddings.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleReloadDashboards)
}

// decodeArgs unmarshals tool arguments, treating absent arguments as empty.
func decodeArgs(req *gomcp.CallToolRequest, out any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params.Arguments, out)
}

func (s *Server) handleSearchDashboards(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Top   *int   `json:"top"`
	}
	if err := decodeArgs(req, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	query := strings.TrimSpace(args.Query)
	if query == "" {
		return toolError("query is required"), nil
	}
	top := s.session.Top()
	if args.Top != nil {
		if *args.Top < 0 {
			return toolError("top must be zero or greater"), nil
		}
		top = *args.Top
	}

	loaded, err := s.session.EnsureLoaded(ctx, s.dispatcher)
	if err != nil {
		return toolError("failed to load dashboards: %v", err), nil
	}

	// Tool calls run concurrently; each search gets its own query state.
	d := state.NewDispatcher(state.Loaded(loaded.Embeddings))
	defer d.Close()

	st, err := s.session.SubmitTop(ctx, d, query, top)
	if err != nil {
		return toolError("search failed: %v", err), nil
	}

	if len(st.Matches) == 0 {
		return textResult("No matching dashboards found."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Dashboards matching %q:\n", query)
	for _, m := range st.Matches {
		fmt.Fprintf(&sb, "\n%d. %s (id %s) score %.3f\n", m.Rank+1, m.Title, m.DashboardID, m.Score)
		if url := s.embedURL(m.DashboardID); url != "" {
			fmt.Fprintf(&sb, "   Embed: %s\n", url)
		}
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleListDashboards(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	st, err := s.session.EnsureLoaded(ctx, s.dispatcher)
	if err != nil {
		return toolError("failed to load dashboards: %v", err), nil
	}

	if len(st.Embeddings) == 0 {
		return textResult("No dashboards found."), nil
	}

	var sb strings.Builder
	for _, e := range st.Embeddings {
		fmt.Fprintf(&sb, "- %s (id %s)", e.Title, e.DashboardID)
		if e.Description != "" {
			fmt.Fprintf(&sb, ": %s", e.Description)
		}
		sb.WriteString("\n")
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleSummarizeDashboard(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		DashboardID string `json:"dashboard_id"`
		Query       string `json:"query"`
	}
	if err := decodeArgs(req, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.DashboardID == "" {
		return toolError("dashboard_id is required"), nil
	}
	if s.generator == nil {
		return toolError("summaries are not configured"), nil
	}

	st, err := s.session.EnsureLoaded(ctx, s.dispatcher)
	if err != nil {
		return toolError("failed to load dashboards: %v", err), nil
	}
	emb, ok := models.FindEmbedding(st.Embeddings, args.DashboardID)
	if !ok {
		return toolError("dashboard not found: %s", args.DashboardID), nil
	}

	summary, err := genai.Summarize(ctx, s.generator, emb, args.Query)
	if err != nil {
		return toolError("%v", err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (id %s)\n", emb.Title, emb.DashboardID)
	if url := s.embedURL(emb.DashboardID); url != "" {
		fmt.Fprintf(&sb, "Embed: %s\n", url)
	}
	sb.WriteString("\n")
	sb.WriteString(summary)
	return textResult(sb.String()), nil
}

func (s *Server) handleReloadDashboards(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	st, err := s.session.Load(ctx, s.dispatcher)
	if err != nil {
		return toolError("failed to load dashboards: %v", err), nil
	}
	return textResult(fmt.Sprintf("Indexed %d dashboards.", len(st.Embeddings))), nil
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...any) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
