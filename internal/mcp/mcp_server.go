// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var familyEnum = mcp.Enum("scm", "its", "mls", "scr", "irc", "mediawiki", "qaforums")

// windowOptions are the arguments shared by every tool.
func windowOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("start", mcp.Description("Window start (YYYY-MM-DD, RFC3339 or 'N units ago'). Defaults to two years before the end.")),
		mcp.WithString("end", mcp.Description("Window end, exclusive. Defaults to the configured end.")),
		mcp.WithString("filter", mcp.Description("Restrict to one item as 'kind:value' (repository, company, country, domain, people).")),
	}
}

// NewMCPServer initializes and configures the grimoire MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Grimoire Metrics Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_aggregate ---
	s.AddTool(mcp.NewTool("get_aggregate", append([]mcp.ToolOption{
		mcp.WithDescription("Compute aggregated activity metrics of a data source over a time window, with trends."),
		mcp.WithString("family", mcp.Description("Data source family."), mcp.Required(), familyEnum),
		mcp.WithString("metrics", mcp.Description("Comma separated metric ids. Defaults to every metric of the family.")),
	}, windowOptions()...)...), h.handleGetAggregate)

	// --- 2. Tool: get_timeseries ---
	s.AddTool(mcp.NewTool("get_timeseries", append([]mcp.ToolOption{
		mcp.WithDescription("Compute activity metrics of a data source per period, zero filled."),
		mcp.WithString("family", mcp.Description("Data source family."), mcp.Required(), familyEnum),
		mcp.WithString("metrics", mcp.Description("Comma separated metric ids. Defaults to every metric of the family.")),
		mcp.WithString("period", mcp.Description("Bucket size. Defaults to the configured period."), mcp.Enum("day", "week", "month", "year")),
	}, windowOptions()...)...), h.handleGetTimeseries)

	// --- 3. Tool: get_top ---
	s.AddTool(mcp.NewTool("get_top", append([]mcp.ToolOption{
		mcp.WithDescription("Rank the most active people of a data source over the window, the last month and the last year."),
		mcp.WithString("family", mcp.Description("Data source family."), mcp.Required(), familyEnum),
		mcp.WithString("metric", mcp.Description("Metric to rank by. Defaults to the family's top metric.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of people per list.")),
	}, windowOptions()...)...), h.handleGetTop)

	// --- 4. Tool: get_onion ---
	s.AddTool(mcp.NewTool("get_onion", append([]mcp.ToolOption{
		mcp.WithDescription("Classify contributors into core, regular and occasional layers (onion model)."),
		mcp.WithString("family", mcp.Description("Data source family. Defaults to scm."), familyEnum),
	}, windowOptions()...)...), h.handleGetOnion)

	// --- 5. Tool: get_backlog ---
	s.AddTool(mcp.NewTool("get_backlog", append([]mcp.ToolOption{
		mcp.WithDescription("Replay ticket states and count tickets per state at the end of every period."),
		mcp.WithString("family", mcp.Description("Ticket family. Defaults to its."), mcp.Enum("its", "scr")),
		mcp.WithString("period", mcp.Description("Bucket size. Defaults to the configured period."), mcp.Enum("day", "week", "month", "year")),
	}, windowOptions()...)...), h.handleGetBacklog)

	return s
}

// StartMCPServer starts the grimoire MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
