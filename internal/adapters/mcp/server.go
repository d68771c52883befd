// Package mcpadapter exposes segmentation and context selection as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/core/retrieval"
)

const (
	serverName    = "study-assistant"
	serverVersion = "1.0.0"
)

type Tools struct {
	retrieval domain.RetrievalConfig
	docs      ports.DocumentManager
	study     ports.StudyService
}

func NewTools(cfg domain.RetrievalConfig, docs ports.DocumentManager, study ports.StudyService) *Tools {
	return &Tools{retrieval: cfg, docs: docs, study: study}
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("segment_text",
		mcp.WithDescription("Split text into ordered chunks of at most chunk_size words, carrying overlap words across chunk boundaries."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to segment")),
		mcp.WithNumber("chunk_size", mcp.Description("Maximum words per chunk; defaults to the service setting")),
		mcp.WithNumber("overlap", mcp.Description("Words carried into the next chunk; defaults to the service setting")),
	), tools.segmentText)

	s.AddTool(mcp.NewTool("select_context",
		mcp.WithDescription("Pick the chunks of a ready document that best ground an answer to a query."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("query", mcp.Description("Question or topic; empty returns the opening chunks")),
	), tools.selectContext)

	s.AddTool(mcp.NewTool("get_document_chunks",
		mcp.WithDescription("Return every stored chunk of a document in index order."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
	), tools.documentChunks)

	return s
}

func (t *Tools) segmentText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg := t.retrieval
	cfg.ChunkSize = request.GetInt("chunk_size", cfg.ChunkSize)
	cfg.Overlap = request.GetInt("overlap", cfg.Overlap)

	chunks, err := retrieval.Segment(text, cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(chunks)
}

func (t *Tools) selectContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	selection, err := t.study.SelectContext(ctx, documentID, request.GetString("query", ""))
	if err != nil {
		return toolError(ctx, "select_context", err), nil
	}
	return jsonResult(selection)
}

func (t *Tools) documentChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chunks, err := t.docs.Chunks(ctx, documentID)
	if err != nil {
		return toolError(ctx, "get_document_chunks", err), nil
	}
	return jsonResult(chunks)
}

// toolError reports failures inside the tool result so the client model can
// read them. Only unclassified errors are logged.
func toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrNotReady),
		domain.IsKind(err, domain.ErrInvalidInput):
	default:
		slog.ErrorContext(ctx, "mcp_tool_failed", "tool", tool, "error", err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
