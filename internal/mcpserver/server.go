// Package mcpserver exposes the translation pipeline as a Model Context
// Protocol tool so AI agents can query medical data directly.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/medsql/medsql/internal/observability"
	"github.com/medsql/medsql/internal/query"
)

const (
	toolName = "text_to_sql"

	toolDescription = "Convert natural language queries to SQL and execute them " +
		"against medical data. This tool analyzes medical triplet data (MEDCode, " +
		"Slot, Value) and returns matching records based on your natural language " +
		"description."

	queryParamDescription = "The natural language query to convert to SQL and " +
		"execute against the medical data. For example: 'Show me all records for " +
		"MEDCode 1302' or 'Find measurements containing sodium'"
)

// QueryPipeline is the slice of the pipeline the tool needs.
type QueryPipeline interface {
	Run(ctx context.Context, naturalLanguage string) query.Outcome
}

type Server struct {
	pipeline QueryPipeline
	logger   *slog.Logger
	mcp      *server.MCPServer
}

func New(pipeline QueryPipeline, logger *slog.Logger, version string) *Server {
	s := &Server{
		pipeline: pipeline,
		logger:   logger,
		mcp:      server.NewMCPServer("medsql", version, server.WithToolCapabilities(false)),
	}

	tool := mcp.NewTool(toolName,
		mcp.WithDescription(toolDescription),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description(queryParamDescription),
		),
	)
	s.mcp.AddTool(tool, s.handleTextToSQL)
	return s
}

// Handler mounts the MCP server as a stateless streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)
}

func (s *Server) handleTextToSQL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("Query parameter is required and cannot be empty"), nil
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return mcp.NewToolResultError("Query parameter is required and cannot be empty"), nil
	}

	outcome := s.pipeline.Run(ctx, text)
	if !outcome.Success {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "mcp tool query failed",
				slog.String("trace_id", observability.TraceIDFromContext(ctx)),
				slog.String("error", outcome.Error),
			)
		}
		return mcp.NewToolResultError("Error processing query: " + outcome.Error), nil
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "mcp tool query processed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.Int("row_count", outcome.RowCount),
		)
	}
	return mcp.NewToolResultText(Summary(outcome)), nil
}

// Summary renders a successful outcome as the agent-facing text block: the
// question, the SQL, a row count, and up to five sample rows.
func Summary(outcome query.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", outcome.NaturalLanguageQuery)
	fmt.Fprintf(&b, "Generated SQL: %s\n", outcome.GeneratedSQL)
	fmt.Fprintf(&b, "Results: %d records found\n\n", outcome.RowCount)

	if outcome.RowCount > 0 {
		b.WriteString("Sample results:\n")
		shown := outcome.Results
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for i, record := range shown {
			fmt.Fprintf(&b, "Record %d: MEDCode=%s, Slot=%s, Value=%s\n",
				i+1, fieldOrNA(record, "MEDCode"), fieldOrNA(record, "Slot"), fieldOrNA(record, "Value"))
		}
		if outcome.RowCount > 5 {
			fmt.Fprintf(&b, "... and %d more records\n", outcome.RowCount-5)
		}
	} else {
		b.WriteString("No matching records found.\n")
	}
	return b.String()
}

func fieldOrNA(record map[string]any, key string) string {
	value, ok := record[key]
	if !ok || value == nil {
		return "N/A"
	}
	return fmt.Sprintf("%v", value)
}
